// Package meshlevel corrects cutting depth for a work surface that is not
// flat, using a triangulated mesh of probed heights.
package meshlevel

import (
	"errors"
	"fmt"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/mastercactapus/geocraft/coord"
)

// Mesh interpolates Z between probe points. It satisfies gcode.Leveler.
type Mesh struct {
	min, max  coord.Point
	triangles []coord.Triangle
}

// NewMesh triangulates points by their XY position. Two probes at the same
// position are rejected.
func NewMesh(points []coord.Point) (*Mesh, error) {
	if len(points) < 3 {
		return nil, errors.New("need at least 3 points to create a mesh")
	}

	seen := make(map[[2]float64]bool, len(points))
	verts := make([]delaunay.Point, len(points))
	mesh := &Mesh{min: points[0], max: points[0]}
	for i, p := range points {
		key := [2]float64{p.X, p.Y}
		if seen[key] {
			return nil, fmt.Errorf("duplicate probe position X%g Y%g", p.X, p.Y)
		}
		seen[key] = true
		verts[i] = delaunay.Point{X: p.X, Y: p.Y}

		mesh.min.X, mesh.max.X = math.Min(mesh.min.X, p.X), math.Max(mesh.max.X, p.X)
		mesh.min.Y, mesh.max.Y = math.Min(mesh.min.Y, p.Y), math.Max(mesh.max.Y, p.Y)
	}

	tri, err := delaunay.Triangulate(verts)
	if err != nil {
		return nil, fmt.Errorf("triangulate probes: %w", err)
	}

	// Triangles holds vertex indices, three per triangle
	idx := tri.Triangles
	mesh.triangles = make([]coord.Triangle, len(idx)/3)
	for i := range mesh.triangles {
		mesh.triangles[i] = coord.Triangle{
			A: points[idx[3*i]],
			B: points[idx[3*i+1]],
			C: points[idx[3*i+2]],
		}
	}

	return mesh, nil
}

func (m Mesh) inBounds(x, y float64) bool {
	return x >= m.min.X-coord.Epsilon && x <= m.max.X+coord.Epsilon &&
		y >= m.min.Y-coord.Epsilon && y <= m.max.Y+coord.Epsilon
}

// OffsetZ returns the interpolated height at (x,y), or false outside the
// probed area.
func (m Mesh) OffsetZ(x, y float64) (bool, float64) {
	if !m.inBounds(x, y) {
		return false, 0
	}
	for _, t := range m.triangles {
		if t.ContainsXY(x, y) {
			return true, t.Z(x, y)
		}
	}
	return false, 0
}
