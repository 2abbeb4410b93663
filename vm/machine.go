// Package vm follows a G-code program the way Grbl would to find where it
// takes the tool, without a machine attached.
package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/gcode"
)

// Bounds is the box enclosing every position a program moves to, in work
// coordinates.
type Bounds struct {
	Min coord.Point `json:"min"`
	Max coord.Point `json:"max"`
}

func (b *Bounds) add(p coord.Point) {
	b.Min = coord.Point{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = coord.Point{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

type Machine struct {
	pos coord.Point
	wco coord.Point

	motion   float64
	relative bool
	inches   bool
	feed     float64
	spindle  bool

	bounds Bounds
	moved  bool
}

// NewMachine returns a machine at the origin in Grbl's power-on modes.
func NewMachine() *Machine {
	return &Machine{}
}

func (m Machine) WPos() coord.Point { return m.pos.Sub(m.wco) }
func (m Machine) MPos() coord.Point { return m.pos }
func (m Machine) WCO() coord.Point { return m.wco }
func (m Machine) Feed() float64 { return m.feed }
func (m Machine) SpindleOn() bool { return m.spindle }

// Bounds returns the extent of all moves so far. ok is false if nothing
// has moved.
func (m Machine) Bounds() (b Bounds, ok bool) { return m.bounds, m.moved }

func isSupported(g gcode.Word) bool {
	if g.IsAxis() {
		return true
	}

	switch g.W {
	case 'G':
		switch g.Arg {
		case 0, 1, 2, 3, 10, 17, 20, 21, 38.2, 53, 90, 91, 94:
			return true
		}
	case 'M':
		switch g.Arg {
		case 0, 2, 3, 4, 5, 30:
			return true
		}
	case 'F', 'S', 'I', 'J', 'O', 'N', 'P', 'L', 'T':
		return true
	}

	return false
}

func applyBlock(p coord.Point, b gcode.Block, mul float64) coord.Point {
	for _, g := range b {
		switch g.W {
		case 'X':
			p.X = g.Arg * mul
		case 'Y':
			p.Y = g.Arg * mul
		case 'Z':
			p.Z = g.Arg * mul
		}
	}

	return p
}

func hasAxis(b gcode.Block) bool {
	for _, g := range b {
		if g.IsAxis() {
			return true
		}
	}
	return false
}

// Run executes one block.
func (m *Machine) Run(b gcode.Block) error {
	if err := b.Validate(); err != nil {
		return err
	}

	var machineCoords, setOrigin bool
	for _, g := range b {
		if !isSupported(g) {
			return errors.New("unsupported code: " + g.String())
		}
		switch g {
		case gcode.G(0), gcode.G(1), gcode.G(2), gcode.G(3), gcode.G(38.2):
			m.motion = g.Arg
		case gcode.G(53):
			machineCoords = true
		case gcode.G(10):
			setOrigin = true
		case gcode.G(90):
			m.relative = false
		case gcode.G(91):
			m.relative = true
		case gcode.G(20):
			m.inches = true
		case gcode.G(21):
			m.inches = false
		case gcode.M(3), gcode.M(4):
			m.spindle = true
		case gcode.M(5), gcode.M(30), gcode.M(2):
			m.spindle = false
		}
	}

	mul := 1.0
	if m.inches {
		mul = 25.4
	}
	if ok, f := b.Arg('F'); ok {
		m.feed = f * mul
	}

	if setOrigin {
		ok, l := b.Arg('L')
		if !ok || l != 20 {
			return errors.New("only G10 L20 is supported")
		}
		// the current position becomes the given work coordinates
		m.wco = m.pos.Sub(applyBlock(m.WPos(), b, mul))
		return nil
	}

	if !hasAxis(b) {
		return nil
	}

	start := m.WPos()
	switch {
	case m.relative:
		m.pos = m.pos.Add(applyBlock(coord.Point{}, b, mul))
	case machineCoords:
		m.pos = applyBlock(m.pos, b, 1)
	default:
		m.pos = applyBlock(start, b, mul).Add(m.wco)
	}

	if !m.moved {
		m.bounds = Bounds{Min: start, Max: start}
		m.moved = true
	}
	if m.motion == 2 || m.motion == 3 {
		if err := m.arcBounds(b, start, mul); err != nil {
			return err
		}
	}
	m.bounds.add(m.WPos())
	return nil
}

// arcBounds adds the points where an arc crosses an axis of its center.
func (m *Machine) arcBounds(b gcode.Block, start coord.Point, mul float64) error {
	okI, i := b.Arg('I')
	okJ, j := b.Arg('J')
	if !okI && !okJ {
		return errors.New("arc without I or J")
	}
	center := start.Add(coord.Point{X: i * mul, Y: j * mul})
	end := m.WPos()
	r := math.Hypot(start.X-center.X, start.Y-center.Y)

	a0 := start.AngleFrom(center)
	a1 := end.AngleFrom(center)
	sweep := a1 - a0
	if m.motion == 2 {
		if sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else if sweep <= 0 {
		sweep += 2 * math.Pi
	}

	for q := 0; q < 4; q++ {
		a := float64(q) * math.Pi / 2
		d := a - a0
		if sweep < 0 {
			d = a0 - a
		}
		d = math.Mod(d+4*math.Pi, 2*math.Pi)
		if d <= math.Abs(sweep) {
			m.bounds.add(coord.Point{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a), Z: end.Z})
		}
	}
	return nil
}

// Simulate runs blocks on a new machine and returns the extent of its
// moves.
func Simulate(blocks []gcode.Block) (Bounds, error) {
	m := NewMachine()
	for i, b := range blocks {
		if err := m.Run(b); err != nil {
			return Bounds{}, fmt.Errorf("block %d (%s): %w", i+1, b, err)
		}
	}
	bounds, ok := m.Bounds()
	if !ok {
		return Bounds{}, errors.New("program has no moves")
	}
	return bounds, nil
}

// SimulateText parses and runs a program.
func SimulateText(data string) (Bounds, error) {
	blocks, err := gcode.Parse(data)
	if err != nil {
		return Bounds{}, err
	}
	return Simulate(blocks)
}
