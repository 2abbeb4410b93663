package coord

import (
	"math"
)

const (
	// Epsilon is the max error when checking containment.
	Epsilon   = 0.001
	epsilonSq = Epsilon * Epsilon
)

// Triangle is a face of a probed height mesh.
type Triangle struct{ A, B, C Point }

// ContainsXY returns true if the 2D projection of the triangle
// has the point x,y. Points within Epsilon of an edge count as inside.
func (t Triangle) ContainsXY(x, y float64) bool {
	min := Point{X: math.Min(t.A.X, math.Min(t.B.X, t.C.X)) - Epsilon, Y: math.Min(t.A.Y, math.Min(t.B.Y, t.C.Y)) - Epsilon}
	max := Point{X: math.Max(t.A.X, math.Max(t.B.X, t.C.X)) + Epsilon, Y: math.Max(t.A.Y, math.Max(t.B.Y, t.C.Y)) + Epsilon}
	if x < min.X || max.X < x || y < min.Y || max.Y < y {
		return false
	}

	p := XY(x, y)
	s1 := sign(orient(t.A, t.B, p))
	s2 := sign(orient(t.B, t.C, p))
	s3 := sign(orient(t.C, t.A, p))
	if (s1 >= 0 && s2 >= 0 && s3 >= 0) || (s1 <= 0 && s2 <= 0 && s3 <= 0) {
		return true
	}

	return distanceSquarePointToSegment(t.A.X, t.A.Y, t.B.X, t.B.Y, x, y) <= epsilonSq ||
		distanceSquarePointToSegment(t.B.X, t.B.Y, t.C.X, t.C.Y, x, y) <= epsilonSq ||
		distanceSquarePointToSegment(t.C.X, t.C.Y, t.A.X, t.A.Y, x, y) <= epsilonSq
}

// Z will give the Z-coordinate on the plane defined by the triangle
// where it intersects x,y.
func (t Triangle) Z(x, y float64) float64 {
	ac := t.C.Sub(t.A)
	ab := t.B.Sub(t.A)

	cp := ac.Cross(ab)
	a, b, c := cp.X, cp.Y, cp.Z

	d := cp.Dot(t.C)

	return (d - a*x - b*y) / c
}

func distanceSquarePointToSegment(x1, y1, x2, y2, x, y float64) float64 {
	lenSq := (x2-x1)*(x2-x1) + (y2-y1)*(y2-y1)
	if lenSq == 0 {
		return (x-x1)*(x-x1) + (y-y1)*(y-y1)
	}
	t := ((x-x1)*(x2-x1) + (y-y1)*(y2-y1)) / lenSq
	t = math.Max(0, math.Min(1, t))
	px := x1 + t*(x2-x1)
	py := y1 + t*(y2-y1)
	return (x-px)*(x-px) + (y-py)*(y-py)
}
