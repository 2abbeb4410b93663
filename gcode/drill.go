package gcode

import (
	"errors"
	"math"

	"github.com/mastercactapus/geocraft/coord"
)

// pecks returns the depths of each plunge from retract down to bottom. A
// zero peck depth drills in one plunge.
func pecks(retract, bottom, q float64) []float64 {
	if q <= 0 {
		return []float64{bottom}
	}
	n := int(math.Ceil((retract-bottom)/q - 1e-9))
	if n < 1 {
		n = 1
	}
	res := make([]float64, n)
	for i := 1; i < n; i++ {
		res[i-1] = retract - float64(i)*q
	}
	res[n-1] = bottom
	return res
}

// EmitDrill renders one peck cycle per point. Each hole is entered with a
// rapid at safe Z, then down to RetractZ, and drilled in plunges of PeckQ
// until StepDown, rapidly clearing back to RetractZ between plunges.
//
// The cycle is written out as plain moves rather than G83 so it runs on
// controllers without canned cycles.
func EmitDrill(points []coord.Point, p MachineParams) (string, error) {
	if err := p.ValidateDrill(); err != nil {
		return "", err
	}
	if len(points) == 0 {
		return "", errors.New("no drill points")
	}

	e := newEmitter(p, defaultDrillProgram, defaultDrillSpindle)
	for _, pt := range points {
		e.prog.Add(G(0), X(pt.X), Y(pt.Y))

		retract := p.levelZ(pt.X, pt.Y, p.RetractZ)
		e.prog.Add(G(0), Z(retract))

		depths := pecks(p.RetractZ, p.StepDown, p.PeckQ)
		for i, d := range depths {
			e.prog.Add(G(1), Z(p.levelZ(pt.X, pt.Y, d)), F(p.FeedRate))
			if i < len(depths)-1 {
				e.prog.Add(G(0), Z(retract))
			}
		}
		e.prog.Add(G(0), Z(p.SafeZ))
	}

	return e.finish(), nil
}
