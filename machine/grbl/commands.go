package grbl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mastercactapus/geocraft/gcode"
)

// Realtime commands are single bytes that are acted on immediately and
// are never acknowledged.
const (
	statusQuery = '?'
	softReset   = 0x18
)

const (
	cmdHome   = "$H"
	cmdUnlock = "$X"
)

// DefaultJogFeed is used when Config.JogFeed is unset.
const DefaultJogFeed = 1000

var ErrInvalidJog = errors.New("invalid jog")

func jogLine(axis string, dir int, step, feed float64) (string, error) {
	axis = strings.ToUpper(axis)
	switch axis {
	case "X", "Y", "Z":
	default:
		return "", fmt.Errorf("%w: unknown axis %q", ErrInvalidJog, axis)
	}
	if dir != 1 && dir != -1 {
		return "", fmt.Errorf("%w: direction must be 1 or -1, got %d", ErrInvalidJog, dir)
	}
	if !(step > 0) {
		return "", fmt.Errorf("%w: step must be positive", ErrInvalidJog)
	}

	b := gcode.Block{gcode.G(91), {W: axis[0], Arg: step * float64(dir)}, gcode.F(feed)}
	return "$J=" + b.String(), nil
}

// zeroLine sets the current position as the work origin for all axes.
func zeroLine() string {
	b := gcode.Block{gcode.G(10), {W: 'L', Arg: 20}, {W: 'P', Arg: 1}, gcode.X(0), gcode.Y(0), gcode.Z(0)}
	return b.String()
}

// splitLines returns the non-empty, trimmed lines of text.
func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
