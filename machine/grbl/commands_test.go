package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJogLine(t *testing.T) {
	line, err := jogLine("z", -1, 0.1, 500)
	assert.NoError(t, err)
	assert.Equal(t, "$J=G91 Z-0.100 F500.000", line)

	_, err = jogLine("X", 1, 0, 500)
	assert.ErrorIs(t, err, ErrInvalidJog)
	_, err = jogLine("X", 2, 1, 500)
	assert.ErrorIs(t, err, ErrInvalidJog)
	_, err = jogLine("B", 1, 1, 500)
	assert.ErrorIs(t, err, ErrInvalidJog)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"G0 X0", "G0 X1"}, splitLines("  G0 X0\r\n\n\tG0 X1 \n"))
	assert.Nil(t, splitLines("\n\n"))
}
