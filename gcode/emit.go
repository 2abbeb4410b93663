package gcode

import (
	"fmt"
	"math"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/toolpath"
)

// Tolerance is the largest XY gap between segments that is cut through
// instead of bridged with a retract and rapid.
const Tolerance = 1e-4

const (
	defaultContourProgram = 1
	defaultContourSpindle = 1000
	defaultDrillProgram   = 2
	defaultDrillSpindle   = 800
)

type emitter struct {
	p    MachineParams
	prog Program

	cur     coord.Point
	hasCur  bool
	cutting bool
}

func newEmitter(p MachineParams, program int, spindle float64) *emitter {
	if p.ProgramNumber != 0 {
		program = p.ProgramNumber
	}
	if p.SpindleSpeed != 0 {
		spindle = p.SpindleSpeed
	}

	e := &emitter{p: p}
	e.prog.Raw("%")
	e.prog.Add(Word{W: 'O', Arg: float64(program)})
	e.prog.Add(G(90), G(21), G(17))
	e.prog.Add(M(3), S(spindle))
	e.prog.Add(G(0), Z(p.SafeZ))
	return e
}

func (e *emitter) retract() {
	if !e.cutting {
		return
	}
	e.prog.Add(G(0), Z(e.p.SafeZ))
	e.cutting = false
}

// moveTo positions the tool at pt, cutting depth, retracting first if the
// tool is elsewhere.
func (e *emitter) moveTo(pt coord.Point) {
	if !e.hasCur || !e.cur.NearXY(pt, Tolerance) {
		e.retract()
		e.prog.Add(G(0), X(pt.X), Y(pt.Y))
		e.cur, e.hasCur = pt, true
	}
	if !e.cutting {
		e.prog.Add(G(1), Z(e.p.levelZ(pt.X, pt.Y, e.p.StepDown)), F(e.p.FeedRate/2))
		e.cutting = true
	}
}

func (e *emitter) lineTo(pt coord.Point) {
	if e.p.Leveler == nil {
		e.prog.Add(G(1), X(pt.X), Y(pt.Y), F(e.p.FeedRate))
		e.cur = pt
		return
	}

	n := int(math.Ceil(e.cur.DistanceXY(pt.X, pt.Y)/e.p.LevelGranularity - 1e-9))
	if n < 1 {
		n = 1
	}
	for _, s := range e.cur.WithZ(0).Split(pt.WithZ(0), n) {
		e.prog.Add(G(1), X(s.X), Y(s.Y), Z(e.p.levelZ(s.X, s.Y, e.p.StepDown)), F(e.p.FeedRate))
	}
	e.cur = pt
}

func (e *emitter) arc(seg toolpath.Segment) {
	g := 3.0
	if seg.Direction == toolpath.CW {
		g = 2
	}
	words := []Word{G(g), X(seg.End.X), Y(seg.End.Y)}
	if e.p.Leveler != nil {
		words = append(words, Z(e.p.levelZ(seg.End.X, seg.End.Y, e.p.StepDown)))
	}
	words = append(words, I(seg.Center.X-e.cur.X), J(seg.Center.Y-e.cur.Y), F(e.p.FeedRate))
	e.prog.Add(words...)
	e.cur = seg.End
}

func (e *emitter) finish() string {
	e.retract()
	e.prog.Add(M(5))
	e.prog.Add(M(30))
	e.prog.Raw("%")
	return e.prog.String()
}

// Emit renders path as a complete program. Each segment is entered from
// safe Z unless it starts where the previous one ended, lines are cut at
// the feed rate and plunges at half of it. The tool is left at safe Z with
// the spindle stopped.
func Emit(path toolpath.Path, p MachineParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	for i, seg := range path {
		if err := seg.Validate(); err != nil {
			return "", fmt.Errorf("segment %d: %w", i, err)
		}
	}

	e := newEmitter(p, defaultContourProgram, defaultContourSpindle)
	for _, seg := range path {
		e.moveTo(seg.First())
		switch seg.Kind {
		case toolpath.KindArc:
			e.arc(seg)
		default:
			for _, pt := range seg.Points[1:] {
				e.lineTo(pt)
			}
		}
	}

	return e.finish(), nil
}
