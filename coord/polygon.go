package coord

import (
	"math"
)

// Polygon is a closed ring of points. A normalized polygon repeats its
// first point at the end.
type Polygon []Point

// Close returns a normalized copy of p: consecutive duplicate vertices are
// collapsed and the start point is appended if the ring is open.
func (p Polygon) Close() Polygon {
	res := make(Polygon, 0, len(p)+1)
	for _, pt := range p {
		if len(res) > 0 && res[len(res)-1].NearXY(pt, Epsilon*Epsilon) {
			continue
		}
		res = append(res, pt)
	}
	if len(res) > 1 && !res[0].NearXY(res[len(res)-1], Epsilon*Epsilon) {
		res = append(res, res[0])
	}
	return res
}

// Vertices returns the number of distinct vertices, not counting the
// closing point.
func (p Polygon) Vertices() int {
	if len(p) > 1 && p[0].NearXY(p[len(p)-1], Epsilon*Epsilon) {
		return len(p) - 1
	}
	return len(p)
}

func (p Polygon) edges(fn func(a, b Point)) {
	n := len(p)
	if n < 2 {
		return
	}
	for i := 0; i < n-1; i++ {
		fn(p[i], p[i+1])
	}
	if !p[0].NearXY(p[n-1], Epsilon*Epsilon) {
		fn(p[n-1], p[0])
	}
}

// Area returns the signed area of the ring. Counter-clockwise rings are
// positive.
func (p Polygon) Area() float64 {
	var sum float64
	p.edges(func(a, b Point) {
		sum += a.X*b.Y - b.X*a.Y
	})
	return sum / 2
}

// Bounds returns the lower-left and upper-right corners of the ring.
func (p Polygon) Bounds() (min, max Point) {
	if len(p) == 0 {
		return min, max
	}
	min, max = p[0], p[0]
	for _, pt := range p[1:] {
		min.X = math.Min(min.X, pt.X)
		min.Y = math.Min(min.Y, pt.Y)
		max.X = math.Max(max.X, pt.X)
		max.Y = math.Max(max.Y, pt.Y)
	}
	return min, max
}

// Contains reports whether (x,y) is strictly inside the ring. Points on an
// edge (within Epsilon) are not contained.
func (p Polygon) Contains(x, y float64) bool {
	if p.DistanceToEdge(x, y) <= Epsilon {
		return false
	}
	var inside bool
	p.edges(func(a, b Point) {
		if (a.Y > y) == (b.Y > y) {
			return
		}
		if x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	})
	return inside
}

// DistanceToEdge returns the distance from (x,y) to the closest edge.
func (p Polygon) DistanceToEdge(x, y float64) float64 {
	best := math.Inf(1)
	p.edges(func(a, b Point) {
		best = math.Min(best, distanceSquarePointToSegment(a.X, a.Y, b.X, b.Y, x, y))
	})
	return math.Sqrt(best)
}

// SelfIntersects reports whether any two edges of the ring cross or touch,
// other than neighbouring edges meeting at their shared vertex.
func (p Polygon) SelfIntersects() bool {
	ring := p.Close()
	n := len(ring) - 1
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 1; j < n; j++ {
			b1, b2 := ring[j], ring[j+1]
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				// neighbours only share a vertex unless they fold back on each other
				if foldsBack(a1, a2, b1, b2, i == 0 && j == n-1) {
					return true
				}
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, c Point) bool {
	return math.Min(a.X, b.X)-Epsilon <= c.X && c.X <= math.Max(a.X, b.X)+Epsilon &&
		math.Min(a.Y, b.Y)-Epsilon <= c.Y && c.Y <= math.Max(a.Y, b.Y)+Epsilon
}

func sign(v float64) int {
	const tol = 1e-12
	switch {
	case v > tol:
		return 1
	case v < -tol:
		return -1
	}
	return 0
}

func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := sign(orient(b1, b2, a1))
	d2 := sign(orient(b1, b2, a2))
	d3 := sign(orient(a1, a2, b1))
	d4 := sign(orient(a1, a2, b2))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}

// foldsBack reports whether two edges sharing a vertex overlap along a line.
// wrap is set when b is the closing edge, so the shared vertex is a1 == b2.
func foldsBack(a1, a2, b1, b2 Point, wrap bool) bool {
	shared, pa, pb := a2, a1, b2
	if wrap {
		shared, pa, pb = a1, a2, b1
	}
	if sign(orient(shared, pa, pb)) != 0 {
		return false
	}
	u := pa.Sub(shared)
	v := pb.Sub(shared)
	return u.X*v.X+u.Y*v.Y > 0
}
