package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func square(size float64) Polygon {
	return Polygon{XY(0, 0), XY(size, 0), XY(size, size), XY(0, size)}
}

func TestPolygon_Close(t *testing.T) {
	p := square(10).Close()
	assert.Len(t, p, 5)
	assert.Equal(t, p[0], p[4])
	assert.Equal(t, 4, p.Vertices())

	// already closed, with a duplicate vertex
	p = Polygon{XY(0, 0), XY(1, 0), XY(1, 0), XY(1, 1), XY(0, 0)}.Close()
	assert.Equal(t, Polygon{XY(0, 0), XY(1, 0), XY(1, 1), XY(0, 0)}, p)
	assert.Equal(t, 3, p.Vertices())
}

func TestPolygon_Area(t *testing.T) {
	assert.InDelta(t, 100, square(10).Area(), 1e-9)
	assert.InDelta(t, 100, square(10).Close().Area(), 1e-9)

	cw := Polygon{XY(0, 0), XY(0, 10), XY(10, 10), XY(10, 0)}
	assert.InDelta(t, -100, cw.Area(), 1e-9)
}

func TestPolygon_Bounds(t *testing.T) {
	min, max := Polygon{XY(-1, 2), XY(4, -3), XY(2, 8)}.Bounds()
	assert.Equal(t, XY(-1, -3), min)
	assert.Equal(t, XY(4, 8), max)
}

func TestPolygon_Contains(t *testing.T) {
	p := square(10)
	assert.True(t, p.Contains(5, 5))
	assert.True(t, p.Contains(0.01, 9.99))
	assert.False(t, p.Contains(10, 5), "edge is not strictly inside")
	assert.False(t, p.Contains(11, 5))
	assert.False(t, p.Contains(-0.5, -0.5))
}

func TestPolygon_SelfIntersects(t *testing.T) {
	assert.False(t, square(10).SelfIntersects())
	assert.False(t, Polygon{XY(0, 0), XY(10, 0), XY(5, 5)}.SelfIntersects())

	// concave but simple
	l := Polygon{XY(0, 0), XY(10, 0), XY(10, 2), XY(2, 2), XY(2, 10), XY(0, 10)}
	assert.False(t, l.SelfIntersects())

	bowtie := Polygon{XY(0, 0), XY(10, 10), XY(10, 0), XY(0, 10)}
	assert.True(t, bowtie.SelfIntersects())

	// spike folding back along an edge
	spike := Polygon{XY(0, 0), XY(10, 0), XY(5, 0), XY(5, 5)}
	assert.True(t, spike.SelfIntersects())

	// vertex touching another edge
	touch := Polygon{XY(0, 0), XY(10, 0), XY(10, 10), XY(5, 0), XY(0, 10)}
	assert.True(t, touch.SelfIntersects())
}
