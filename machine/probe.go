package machine

import (
	"errors"

	"github.com/mastercactapus/geocraft/gcode"
)

// ProbeOptions configure a straight z-probe.
type ProbeOptions struct {
	FeedRate float64

	// MaxTravel is how far down to search for contact.
	MaxTravel float64

	// Lift is the work Z to return to after each probe.
	Lift float64
}

func (opt ProbeOptions) validate() error {
	if !(opt.FeedRate > 0) {
		return errors.New("probe feed rate must be positive")
	}
	if !(opt.MaxTravel > 0) {
		return errors.New("probe max travel must be positive")
	}
	return nil
}

// probe adds a probe from the current position followed by a lift.
func (opt ProbeOptions) probe(p *gcode.Program) {
	p.Add(gcode.G(91), gcode.G(38.2), gcode.Z(-opt.MaxTravel), gcode.F(opt.FeedRate))
	p.Add(gcode.G(90), gcode.G(0), gcode.Z(opt.Lift))
}
