package gcode

import (
	"errors"
	"strings"
)

// Block is one line of G-code.
type Block []Word

func (b Block) Arg(w byte) (bool, float64) {
	for _, g := range b {
		if g.W == w {
			return true, g.Arg
		}
	}
	return false, 0
}

func (b Block) Clone() Block {
	c := make(Block, len(b))
	copy(c, b)
	return c
}

// Validate rejects unknown letters, non-finite arguments and repeated
// non-G words.
func (b Block) Validate() error {
	if len(b) == 0 {
		return errors.New("empty block")
	}
	var checkWord [256]bool
	for _, g := range b {
		if !g.IsValid() {
			return errors.New("invalid word in block")
		}
		if g.W != 'G' && checkWord[g.W] {
			return errors.New("word was repeated in a block")
		}
		checkWord[g.W] = true
	}
	return nil
}

func (b Block) String() string {
	parts := make([]string, len(b))
	for i, w := range b {
		parts[i] = w.String()
	}
	return strings.Join(parts, " ")
}
