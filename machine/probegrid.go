package machine

import (
	"errors"
	"math"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/gcode"
)

// ProbeGridOptions configure a grid of z-probes starting at work X0 Y0.
type ProbeGridOptions struct {
	ProbeOptions

	DistanceX, DistanceY float64
	Granularity          float64
}

// Points returns the probe positions in the order they are visited. No two
// neighbouring points are farther than Granularity apart, and rows
// alternate direction to keep travel short.
func (opt ProbeGridOptions) Points() ([]coord.Point, error) {
	if !(opt.Granularity > 0) {
		return nil, errors.New("granularity must be positive")
	}
	if opt.DistanceX < 0 || opt.DistanceY < 0 {
		return nil, errors.New("grid distance must not be negative")
	}

	xyDist := math.Sqrt(opt.Granularity * opt.Granularity / 2)
	xCount := int(math.Ceil(opt.DistanceX / xyDist))
	yCount := int(math.Ceil(opt.DistanceY / xyDist))

	step := func(dist float64, count, i int) float64 {
		if count == 0 {
			return 0
		}
		return dist / float64(count) * float64(i)
	}

	var res []coord.Point
	for y := 0; y <= yCount; y++ {
		for x := 0; x <= xCount; x++ {
			xVal := step(opt.DistanceX, xCount, x)
			if y%2 != 0 {
				xVal = opt.DistanceX - xVal
			}
			res = append(res, coord.XY(xVal, step(opt.DistanceY, yCount, y)))
		}
	}
	return res, nil
}

// Program returns G-code that probes every grid point and returns to
// X0 Y0 at the lift height. Each contact is reported by the machine as a
// probe result.
func (opt ProbeGridOptions) Program() (string, int, error) {
	if err := opt.validate(); err != nil {
		return "", 0, err
	}
	points, err := opt.Points()
	if err != nil {
		return "", 0, err
	}

	var p gcode.Program
	p.Add(gcode.G(90), gcode.G(21))
	p.Add(gcode.G(0), gcode.Z(opt.Lift))
	for _, pt := range points {
		p.Add(gcode.G(0), gcode.X(pt.X), gcode.Y(pt.Y))
		opt.probe(&p)
	}
	p.Add(gcode.G(0), gcode.X(0), gcode.Y(0))

	return p.String(), len(points), nil
}
