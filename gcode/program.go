package gcode

import "strings"

// Program accumulates output lines.
type Program struct {
	lines []string
}

// Raw appends s as-is.
func (p *Program) Raw(s string) { p.lines = append(p.lines, s) }

// Add appends a block.
func (p *Program) Add(words ...Word) { p.lines = append(p.lines, Block(words).String()) }

func (p *Program) Lines() []string { return p.lines }

// String joins all lines, each terminated by a newline.
func (p *Program) String() string {
	if len(p.lines) == 0 {
		return ""
	}
	return strings.Join(p.lines, "\n") + "\n"
}

// G, M, X etc. build words.
func G(n float64) Word { return Word{W: 'G', Arg: n} }
func M(n float64) Word { return Word{W: 'M', Arg: n} }
func X(v float64) Word { return Word{W: 'X', Arg: v} }
func Y(v float64) Word { return Word{W: 'Y', Arg: v} }
func Z(v float64) Word { return Word{W: 'Z', Arg: v} }
func I(v float64) Word { return Word{W: 'I', Arg: v} }
func J(v float64) Word { return Word{W: 'J', Arg: v} }
func F(v float64) Word { return Word{W: 'F', Arg: v} }
func S(v float64) Word { return Word{W: 'S', Arg: v} }
