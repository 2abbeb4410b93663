package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWord_String(t *testing.T) {
	check := func(w Word, exp string) {
		t.Helper()
		assert.Equal(t, exp, w.String())
	}

	check(G(0), "G00")
	check(G(3), "G03")
	check(G(90), "G90")
	check(G(38.2), "G38.2")
	check(M(30), "M30")
	check(Word{W: 'O', Arg: 1}, "O0001")
	check(S(1000), "S1000")
	check(Word{W: 'P', Arg: 1}, "P1")
	check(X(10), "X10.000")
	check(Y(-2.5), "Y-2.500")
	check(F(50), "F50.000")
	check(Z(-0.0001), "Z0.000")
	check(I(1.23456), "I1.235")
}

func TestBlock_String(t *testing.T) {
	b := Block{G(1), X(1), Y(2), F(100)}
	assert.Equal(t, "G01 X1.000 Y2.000 F100.000", b.String())
}

func TestBlock_Validate(t *testing.T) {
	assert.NoError(t, Block{G(90), G(21), G(17)}.Validate())
	assert.Error(t, Block{X(1), X(2)}.Validate())
	assert.Error(t, Block{}.Validate())
}

func TestParse(t *testing.T) {
	blocks, err := Parse("%\nO0001\nG00 Z5.000 ; safe\n(plunge)G01 Z-1 F50\n\n%\n")
	assert.NoError(t, err)
	assert.Equal(t, []Block{
		{{W: 'O', Arg: 1}},
		{G(0), Z(5)},
		{G(1), Z(-1), F(50)},
	}, blocks)

	_, err = Parse("G00 X$")
	assert.Error(t, err)
}
