// Package arcfit replaces runs of a linearized path that lie on known
// circular arcs with true arc segments, so the emitter can use G02/G03
// instead of many short G01 moves.
package arcfit

import (
	"math"
	"sort"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/toolpath"
)

// ArcDescriptor is a circular arc known from the source drawing. Angles are
// in degrees, counter-clockwise from start to end.
type ArcDescriptor struct {
	Center     coord.Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
}

// Sweep returns the counter-clockwise span of the arc in degrees, in (0, 360].
func (a ArcDescriptor) Sweep() float64 {
	s := math.Mod(a.EndAngle-a.StartAngle, 360)
	if s <= 0 {
		s += 360
	}
	return s
}

// Options tune the match.
type Options struct {
	// Tolerance is how far a point may sit from the arc radius, in mm.
	Tolerance float64

	// MinPoints is the shortest run that becomes an arc. Two points are
	// only a chord, so values below 3 are raised to 3.
	MinPoints int

	// MaxStep is the widest angle, in degrees, one chord of a run may
	// subtend. Coarser chords are left as lines. Zero means 45.
	MaxStep float64
}

// DefaultOptions are used by FitArcs.
var DefaultOptions = Options{Tolerance: 1e-2, MinPoints: 3, MaxStep: 45}

// angleEps absorbs rounding at the span ends, in degrees.
const angleEps = 1e-6

// FitArcs is FitArcsWithOptions using DefaultOptions.
func FitArcs(path []coord.Point, arcs []ArcDescriptor) toolpath.Path {
	return FitArcsWithOptions(path, arcs, DefaultOptions)
}

type match struct {
	start, end int
	center     coord.Point
	dir        toolpath.Direction
}

// FitArcsWithOptions walks the arcs in the order given. Each arc claims the
// longest run of consecutive, unclaimed path points lying on its circle and
// within its angular span; claimed points are not offered to later arcs. Points outside any run are
// returned as line segments, sharing their end points with the neighbouring
// arcs so the path stays contiguous.
func FitArcsWithOptions(path []coord.Point, arcs []ArcDescriptor, opt Options) toolpath.Path {
	if opt.MinPoints < 3 {
		opt.MinPoints = 3
	}
	if !(opt.MaxStep > 0) {
		opt.MaxStep = 45
	}
	if len(path) < 2 {
		return nil
	}

	claimed := make([]bool, len(path))
	var matches []match
	for _, arc := range arcs {
		if !(arc.Radius > 0) {
			continue
		}
		s, e := longestRun(path, claimed, arc, opt)
		if e-s+1 < opt.MinPoints {
			continue
		}
		sweep := sweepOf(path[s:e+1], arc.Center)
		if math.Abs(sweep) < 1e-9 {
			continue
		}
		dir := toolpath.CCW
		if sweep < 0 {
			dir = toolpath.CW
		}
		for i := s; i <= e; i++ {
			claimed[i] = true
		}
		matches = append(matches, match{start: s, end: e, center: arc.Center.WithZ(path[s].Z), dir: dir})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var res toolpath.Path
	cursor := 0
	for _, m := range matches {
		if m.start > cursor {
			res = append(res, line(path[cursor:m.start+1]))
		}
		res = append(res, toolpath.Arc(path[m.start], path[m.end], m.center, m.dir))
		cursor = m.end
	}
	if cursor < len(path)-1 {
		res = append(res, line(path[cursor:]))
	}

	return res
}

func line(pts []coord.Point) toolpath.Segment {
	cp := make([]coord.Point, len(pts))
	copy(cp, pts)
	return toolpath.Line(cp...)
}

// longestRun returns the inclusive bounds of the longest run of unclaimed
// points on the arc. A point is on the arc when it sits on the circle inside
// the span from StartAngle to EndAngle, and a run breaks at any chord wider
// than opt.MaxStep. The earliest run wins a tie. An empty result has e < s.
func longestRun(path []coord.Point, claimed []bool, arc ArcDescriptor, opt Options) (s, e int) {
	s, e = 0, -1
	maxStep := opt.MaxStep * math.Pi / 180
	runStart := -1
	for i, p := range path {
		on := !claimed[i] &&
			math.Abs(p.DistanceXY(arc.Center.X, arc.Center.Y)-arc.Radius) <= opt.Tolerance &&
			arc.contains(p.AngleFrom(arc.Center)*180/math.Pi)
		if !on {
			runStart = -1
			continue
		}
		if runStart >= 0 && math.Abs(angleDelta(path[i-1], p, arc.Center)) > maxStep {
			runStart = -1
		}
		if runStart < 0 {
			runStart = i
		}
		if i-runStart > e-s {
			s, e = runStart, i
		}
	}
	return s, e
}

// contains reports whether the angle, in degrees, falls inside the arc's
// counter-clockwise span.
func (a ArcDescriptor) contains(deg float64) bool {
	sweep := a.Sweep()
	if sweep >= 360-angleEps {
		return true
	}
	rel := math.Mod(deg-a.StartAngle, 360)
	if rel < 0 {
		rel += 360
	}
	if rel > 360-angleEps {
		rel = 0
	}
	return rel <= sweep+angleEps
}

// angleDelta is the signed angle from a to b around center, in (-pi, pi].
func angleDelta(a, b, center coord.Point) float64 {
	d := b.AngleFrom(center) - a.AngleFrom(center)
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// sweepOf sums the signed angle between consecutive points around center.
// Positive is counter-clockwise.
func sweepOf(pts []coord.Point, center coord.Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += angleDelta(pts[i-1], pts[i], center)
	}
	return total
}
