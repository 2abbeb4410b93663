package meshlevel

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mastercactapus/geocraft/coord"
)

// OffsetFrom returns points with z subtracted, turning absolute probe
// heights into offsets from a reference height.
func OffsetFrom(z float64, points []coord.Point) []coord.Point {
	p := make([]coord.Point, len(points))
	copy(p, points)

	for i := range p {
		p[i].Z -= z
	}
	return p
}

// ReadProbes decodes a YAML list of [x, y, z] probe results.
func ReadProbes(r io.Reader) ([]coord.Point, error) {
	var raw [][]float64
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no probe points")
		}
		return nil, fmt.Errorf("failed to parse probes: %w", err)
	}

	points := make([]coord.Point, len(raw))
	for i, v := range raw {
		if len(v) != 3 {
			return nil, fmt.Errorf("probe %d: want [x, y, z], got %d values", i, len(v))
		}
		points[i] = coord.Point{X: v[0], Y: v[1], Z: v[2]}
	}
	return points, nil
}

// WriteProbes encodes points in the format ReadProbes accepts.
func WriteProbes(w io.Writer, points []coord.Point) error {
	raw := make([][]float64, len(points))
	for i, p := range points {
		raw[i] = []float64{p.X, p.Y, p.Z}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("failed to write probes: %w", err)
	}
	return enc.Close()
}

// Load reads probes from r and builds a mesh of their heights relative to
// the first probe.
func Load(r io.Reader) (*Mesh, error) {
	points, err := ReadProbes(r)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, errors.New("no probe points")
	}
	return NewMesh(OffsetFrom(points[0].Z, points))
}
