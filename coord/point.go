package coord

import (
	"math"
)

// Point is a position in millimeters. 2D geometry leaves Z at zero.
type Point struct{ X, Y, Z float64 }

// XY is shorthand for a 2D point.
func XY(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y && p.Z == b.Z
}

// NearXY reports whether b lies within tol of p on both the X and Y axis.
func (p Point) NearXY(b Point, tol float64) bool {
	return math.Abs(p.X-b.X) <= tol && math.Abs(p.Y-b.Y) <= tol
}

func (p Point) Cross(op Point) Point {
	return Point{
		p.Y*op.Z - p.Z*op.Y,
		p.Z*op.X - p.X*op.Z,
		p.X*op.Y - p.Y*op.X,
	}
}
func (p Point) Dot(op Point) float64 {
	return p.X*op.X + p.Y*op.Y + p.Z*op.Z
}
func (p Point) Mul(val float64) Point {
	p.X *= val
	p.Y *= val
	p.Z *= val
	return p
}

func (p Point) Div(val float64) Point {
	p.X /= val
	p.Y /= val
	p.Z /= val
	return p
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

// WithZ returns p with its Z replaced.
func (p Point) WithZ(z float64) Point {
	p.Z = z
	return p
}

// Split will return a set of evenly spaced points
// from p to the target, excluding p itself.
func (p Point) Split(target Point, n int) []Point {
	step := target.Sub(p).Div(float64(n))
	res := make([]Point, n)
	for i := range res {
		res[i] = p.Add(step.Mul(float64(i + 1)))
	}
	// avoid accumulating rounding error on the final point
	res[n-1] = target
	return res
}

// DistanceXY will return the 2D distance to p from (x,y).
func (p Point) DistanceXY(x, y float64) float64 {
	return math.Hypot(x-p.X, y-p.Y)
}

// AngleFrom returns the angle of p around center in radians, in (-π, π].
func (p Point) AngleFrom(center Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X)
}
