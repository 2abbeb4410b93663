package offset

import (
	"fmt"

	"github.com/mastercactapus/geocraft/coord"
)

// MaxPocketPasses bounds the number of inward offsets attempted for a pocket.
const MaxPocketPasses = 10000

// Pass is one ring of a pocket together with the inward distance it was
// offset by.
type Pass struct {
	Offset float64
	Ring   coord.Polygon
}

// Pocket clears the inside of polygon with concentric rings. The first
// generation is offset by the tool radius, each following generation by a
// further stepover, until nothing is left. Every ring of a generation is
// kept, largest first.
func Pocket(polygon coord.Polygon, toolDiameter, stepover float64) ([]Pass, error) {
	if !(toolDiameter > 0) {
		return nil, fmt.Errorf("%w: tool diameter must be positive", ErrInvalidParameter)
	}
	if !(stepover > 0) {
		return nil, fmt.Errorf("%w: stepover must be positive", ErrInvalidParameter)
	}
	ring, err := validate(polygon)
	if err != nil {
		return nil, err
	}

	var passes []Pass
	for k := 0; k < MaxPocketPasses; k++ {
		// computed from k instead of accumulated to keep offsets exact
		dist := toolDiameter/2 + float64(k)*stepover
		rings := buffer(ring, -dist)
		if len(rings) == 0 {
			return passes, nil
		}
		for _, r := range rings {
			passes = append(passes, Pass{Offset: dist, Ring: r})
		}
	}

	return nil, fmt.Errorf("%w: pocket did not converge after %d passes", ErrInvalidGeometry, MaxPocketPasses)
}

// GeneratePocket is Pocket without the per-ring offsets.
func GeneratePocket(polygon coord.Polygon, toolDiameter, stepover float64) ([]coord.Polygon, error) {
	passes, err := Pocket(polygon, toolDiameter, stepover)
	if err != nil {
		return nil, err
	}
	rings := make([]coord.Polygon, len(passes))
	for i, p := range passes {
		rings[i] = p.Ring
	}
	return rings, nil
}
