package offset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/coord"
)

func TestPocket_Square(t *testing.T) {
	passes, err := Pocket(square(0, 0, 10), 2, 1)
	require.NoError(t, err)
	require.Len(t, passes, 4, "offsets 1 through 4; 5 collapses the square")

	for i, p := range passes {
		assert.Equal(t, 1+float64(i), p.Offset)
		min, max := p.Ring.Bounds()
		assert.InDelta(t, 1+float64(i), min.X, 1e-6)
		assert.InDelta(t, 1+float64(i), min.Y, 1e-6)
		assert.InDelta(t, 9-float64(i), max.X, 1e-6)
		assert.InDelta(t, 9-float64(i), max.Y, 1e-6)
	}
	assert.InDelta(t, 64, passes[0].Ring.Area(), 1e-3)
}

func TestPocket_OffsetsAreStepped(t *testing.T) {
	l := coord.Polygon{
		coord.XY(0, 0), coord.XY(30, 0), coord.XY(30, 8),
		coord.XY(8, 8), coord.XY(8, 25), coord.XY(0, 25),
	}
	const toolDiameter, stepover = 3.0, 0.7

	passes, err := Pocket(l, toolDiameter, stepover)
	require.NoError(t, err)
	require.NotEmpty(t, passes)

	for _, p := range passes {
		k := (p.Offset - toolDiameter/2) / stepover
		assert.InDelta(t, math.Round(k), k, 1e-9, "offset %g is radius + k*stepover", p.Offset)
		assert.GreaterOrEqual(t, k, -1e-9)
		for _, pt := range p.Ring {
			assert.InDelta(t, p.Offset, l.Close().DistanceToEdge(pt.X, pt.Y), 0.01)
		}
	}
	for i := 1; i < len(passes); i++ {
		assert.GreaterOrEqual(t, passes[i].Offset, passes[i-1].Offset)
	}
}

func TestPocket_Split(t *testing.T) {
	passes, err := Pocket(dumbbell(), 2, 0.5)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(passes), 2)

	// both halves are kept for the first generation
	assert.Equal(t, 1.0, passes[0].Offset)
	assert.Equal(t, 1.0, passes[1].Offset)
	assert.Greater(t, passes[0].Ring.Area(), passes[1].Ring.Area())
}

func TestPocket_TooSmall(t *testing.T) {
	passes, err := Pocket(square(0, 0, 1), 2, 0.5)
	assert.NoError(t, err)
	assert.Empty(t, passes)
}

func TestPocket_Invalid(t *testing.T) {
	_, err := Pocket(coord.Polygon{coord.XY(0, 0), coord.XY(1, 0)}, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = Pocket(square(0, 0, 10), 2, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Pocket(square(0, 0, 10), -1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestGeneratePocket(t *testing.T) {
	rings, err := GeneratePocket(square(0, 0, 10), 2, 1)
	require.NoError(t, err)
	require.Len(t, rings, 4)
	for _, r := range rings {
		assert.Equal(t, r[0], r[len(r)-1])
		assert.GreaterOrEqual(t, r.Vertices(), 3)
	}
}
