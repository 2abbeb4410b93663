package gcode

import (
	"fmt"
	"math"
	"strconv"
)

// Word is a single letter address and its argument, e.g. X10.
type Word struct {
	W   byte
	Arg float64
}

func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z' && !math.IsNaN(w.Arg) && !math.IsInf(w.Arg, 0)
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if s[0] == '-' && strconv.FormatFloat(-f, 'f', prec, 64) == s[1:] && isZero(s[1:]) {
		// no "-0.000"
		return s[1:]
	}
	return s
}

func isZero(s string) bool {
	for _, c := range s {
		if c != '0' && c != '.' {
			return false
		}
	}
	return true
}

// String formats the word the way controllers expect it: codes are zero
// padded integers (G01, M03, O0001), counters are plain integers (S1000,
// P1) and everything else has 3 decimal places (X10.000, F50.000).
func (w Word) String() string {
	switch w.W {
	case 'G', 'M':
		if w.Arg == math.Trunc(w.Arg) {
			return fmt.Sprintf("%c%02d", w.W, int(w.Arg))
		}
		return string(w.W) + strconv.FormatFloat(w.Arg, 'f', -1, 64)
	case 'O':
		return fmt.Sprintf("O%04d", int(w.Arg))
	case 'S', 'P', 'L', 'T', 'N':
		return string(w.W) + strconv.FormatFloat(math.Round(w.Arg), 'f', 0, 64)
	}
	return string(w.W) + formatFloat(w.Arg, 3)
}
