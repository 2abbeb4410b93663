package gcode

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when MachineParams can not produce a usable
// program.
var ErrInvalidParams = errors.New("invalid machine parameters")

// Leveler reports the Z correction for a work position. A false result
// means the position is outside the measured area and is left as-is.
type Leveler interface {
	OffsetZ(x, y float64) (bool, float64)
}

// MachineParams describe the cut. All values are in mm and mm/min.
type MachineParams struct {
	FeedRate     float64 `yaml:"feed_rate" json:"feedRate"`
	SafeZ        float64 `yaml:"safe_z" json:"safeZ"`
	StepDown     float64 `yaml:"step_down" json:"stepDown"`
	RetractZ     float64 `yaml:"retract_z" json:"retractZ"`
	PeckQ        float64 `yaml:"peck_q" json:"peckQ"`
	ToolDiameter float64 `yaml:"tool_diameter" json:"toolDiameter"`
	Stepover     float64 `yaml:"stepover" json:"stepover"`
	SpindleSpeed float64 `yaml:"spindle_speed" json:"spindleSpeed"`

	// ProgramNumber is written as the O word. Zero picks the default for
	// the program type.
	ProgramNumber int `yaml:"program_number" json:"programNumber"`

	// Leveler, when set, adjusts every cutting Z. Cut moves longer than
	// LevelGranularity are split so the correction follows the surface.
	Leveler          Leveler `yaml:"-" json:"-"`
	LevelGranularity float64 `yaml:"level_granularity" json:"levelGranularity"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

// Validate checks the values used by Emit.
func (p MachineParams) Validate() error {
	if !(p.FeedRate > 0) {
		return invalid("feed rate must be positive, got %g", p.FeedRate)
	}
	if !(p.StepDown < p.SafeZ) {
		return invalid("step down (%g) must be below safe Z (%g)", p.StepDown, p.SafeZ)
	}
	if p.SpindleSpeed < 0 {
		return invalid("spindle speed must not be negative")
	}
	if p.ProgramNumber < 0 || p.ProgramNumber > 9999 {
		return invalid("program number out of range: %d", p.ProgramNumber)
	}
	if p.Leveler != nil && !(p.LevelGranularity > 0) {
		return invalid("level granularity must be positive when leveling")
	}
	return nil
}

// ValidateDrill checks the values used by EmitDrill.
func (p MachineParams) ValidateDrill() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !(p.RetractZ <= p.SafeZ) {
		return invalid("retract Z (%g) must not be above safe Z (%g)", p.RetractZ, p.SafeZ)
	}
	if !(p.StepDown < p.RetractZ) {
		return invalid("step down (%g) must be below retract Z (%g)", p.StepDown, p.RetractZ)
	}
	if p.PeckQ < 0 {
		return invalid("peck depth must not be negative")
	}
	return nil
}

func (p MachineParams) levelZ(x, y, z float64) float64 {
	if p.Leveler == nil {
		return z
	}
	ok, off := p.Leveler.OffsetZ(x, y)
	if !ok {
		return z
	}
	return z + off
}
