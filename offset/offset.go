// Package offset computes tool-compensated contours and pocket clearing
// rings by buffering closed polygons.
package offset

import (
	"errors"
	"fmt"
	"math"

	clipper "github.com/ctessum/go.clipper"

	"github.com/mastercactapus/geocraft/coord"
)

var (
	// ErrInvalidGeometry is returned for polygons with fewer than 3 vertices,
	// self-intersecting rings, or offsets that leave nothing behind.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidParameter is returned for non-positive tool sizes or stepovers.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Side selects which side of the outline the tool runs on.
type Side string

const (
	Outer Side = "outer"
	Inner Side = "inner"
)

// ParseSide converts a side name into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Outer, Inner:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidParameter, s)
}

// Distance returns the signed buffer distance for a tool of the given radius.
func (s Side) Distance(toolRadius float64) float64 {
	if s == Inner {
		return -toolRadius
	}
	return toolRadius
}

const (
	// scale converts millimeters to the integer grid used for buffering (0.1µm).
	scale = 1e4

	// arcTolerance is the max deviation of round joins from a true arc, in mm.
	arcTolerance = 0.001

	// minRingArea drops slivers left by rounding when a ring collapses.
	minRingArea = 1e-6
)

func toPath(p coord.Polygon) clipper.Path {
	ring := p.Close()
	path := make(clipper.Path, 0, len(ring)-1)
	for _, pt := range ring[:len(ring)-1] {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(pt.X * scale)),
			Y: clipper.CInt(math.Round(pt.Y * scale)),
		})
	}
	return path
}

func fromPath(path clipper.Path) coord.Polygon {
	p := make(coord.Polygon, 0, len(path)+1)
	for _, pt := range path {
		p = append(p, coord.XY(float64(pt.X)/scale, float64(pt.Y)/scale))
	}
	return p.Close()
}

// validate normalizes p and rejects rings that cannot be buffered.
func validate(p coord.Polygon) (coord.Polygon, error) {
	ring := p.Close()
	if ring.Vertices() < 3 {
		return nil, fmt.Errorf("%w: at least 3 points are required, got %d", ErrInvalidGeometry, ring.Vertices())
	}
	if ring.SelfIntersects() {
		return nil, fmt.Errorf("%w: polygon is self-intersecting", ErrInvalidGeometry)
	}
	if math.Abs(ring.Area()) < minRingArea {
		return nil, fmt.Errorf("%w: polygon has no area", ErrInvalidGeometry)
	}
	return ring, nil
}

// buffer offsets ring by dist using round joins and returns the exterior
// rings of the result, largest first. Holes are discarded.
func buffer(ring coord.Polygon, dist float64) []coord.Polygon {
	co := clipper.NewClipperOffset()
	co.ArcTolerance = arcTolerance * scale
	co.AddPath(toPath(ring), clipper.JtRound, clipper.EtClosedPolygon)

	var res []coord.Polygon
	for _, path := range co.Execute(dist * scale) {
		if len(path) < 3 {
			continue
		}
		p := fromPath(path)
		if p.Area() < minRingArea {
			// negative area marks a hole, tiny area a collapsed sliver
			continue
		}
		res = append(res, p)
	}
	sortByArea(res)
	return res
}

// sortByArea orders rings by descending area; equal areas keep their
// input order so the selection stays deterministic.
func sortByArea(rings []coord.Polygon) {
	for i := 1; i < len(rings); i++ {
		for j := i; j > 0 && rings[j].Area() > rings[j-1].Area(); j-- {
			rings[j], rings[j-1] = rings[j-1], rings[j]
		}
	}
}

// OffsetContour buffers polygon by the tool radius on the given side. When
// the offset splits the outline into several rings, the ring with the
// largest enclosed area is returned.
func OffsetContour(polygon coord.Polygon, toolRadius float64, side Side) (coord.Polygon, error) {
	if !(toolRadius > 0) {
		return nil, fmt.Errorf("%w: tool radius must be positive", ErrInvalidParameter)
	}
	if side != Outer && side != Inner {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidParameter, side)
	}
	ring, err := validate(polygon)
	if err != nil {
		return nil, err
	}

	rings := buffer(ring, side.Distance(toolRadius))
	if len(rings) == 0 {
		return nil, fmt.Errorf("%w: offset of %g collapses the polygon", ErrInvalidGeometry, side.Distance(toolRadius))
	}
	return rings[0], nil
}

// Rings returns every exterior ring of polygon buffered by dist.
func Rings(polygon coord.Polygon, dist float64) ([]coord.Polygon, error) {
	ring, err := validate(polygon)
	if err != nil {
		return nil, err
	}
	return buffer(ring, dist), nil
}
