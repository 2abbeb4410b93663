// Package toolpath holds the ordered cut segments handed from the geometry
// stages to the G-code emitter.
package toolpath

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mastercactapus/geocraft/coord"
)

// Kind tags a Segment.
type Kind string

const (
	KindLine Kind = "line"
	KindArc  Kind = "arc"
)

// Direction is the winding of an arc in the XY plane.
type Direction string

const (
	CW  Direction = "cw"
	CCW Direction = "ccw"
)

// Segment is either a polyline of cut moves (Kind == KindLine, Points holds
// at least 2 points) or a circular arc from Start to End around Center.
type Segment struct {
	Kind Kind

	Points []coord.Point

	Start, End, Center coord.Point
	Direction          Direction
}

// Path is an ordered sequence of segments.
type Path []Segment

// Line creates a line segment through pts.
func Line(pts ...coord.Point) Segment {
	return Segment{Kind: KindLine, Points: pts}
}

// Arc creates an arc segment.
func Arc(start, end, center coord.Point, dir Direction) Segment {
	return Segment{Kind: KindArc, Start: start, End: end, Center: center, Direction: dir}
}

// FromPolygon returns a single line segment following a closed ring.
func FromPolygon(p coord.Polygon) Segment {
	pts := make([]coord.Point, len(p))
	copy(pts, p)
	return Line(pts...)
}

// First returns the point the segment starts at.
func (s Segment) First() coord.Point {
	if s.Kind == KindArc {
		return s.Start
	}
	if len(s.Points) == 0 {
		return coord.Point{}
	}
	return s.Points[0]
}

// Last returns the point the segment ends at.
func (s Segment) Last() coord.Point {
	if s.Kind == KindArc {
		return s.End
	}
	if len(s.Points) == 0 {
		return coord.Point{}
	}
	return s.Points[len(s.Points)-1]
}

// Validate checks the segment shape.
func (s Segment) Validate() error {
	switch s.Kind {
	case KindLine:
		if len(s.Points) < 2 {
			return fmt.Errorf("line segment needs at least 2 points, got %d", len(s.Points))
		}
	case KindArc:
		if s.Direction != CW && s.Direction != CCW {
			return fmt.Errorf("arc direction must be cw or ccw, got %q", s.Direction)
		}
		if s.Start.DistanceXY(s.Center.X, s.Center.Y) == 0 {
			return errors.New("arc has zero radius")
		}
	default:
		return fmt.Errorf("unknown segment type %q", s.Kind)
	}
	return nil
}

type segmentJSON struct {
	Type      Kind        `json:"type"`
	Points    [][]float64 `json:"points,omitempty"`
	Start     []float64   `json:"start,omitempty"`
	End       []float64   `json:"end,omitempty"`
	Center    []float64   `json:"center,omitempty"`
	Direction Direction   `json:"direction,omitempty"`
}

func toArray(p coord.Point) []float64 { return []float64{p.X, p.Y, p.Z} }

func fromArray(v []float64) (coord.Point, error) {
	var p coord.Point
	switch len(v) {
	case 3:
		p.Z = v[2]
		fallthrough
	case 2:
		p.X, p.Y = v[0], v[1]
		return p, nil
	}
	return p, fmt.Errorf("point needs 2 or 3 coordinates, got %d", len(v))
}

// MarshalJSON encodes the segment as `{type:"line", points}` or
// `{type:"arc", start, end, center, direction}`.
func (s Segment) MarshalJSON() ([]byte, error) {
	j := segmentJSON{Type: s.Kind}
	switch s.Kind {
	case KindArc:
		j.Start, j.End, j.Center = toArray(s.Start), toArray(s.End), toArray(s.Center)
		j.Direction = s.Direction
	default:
		j.Points = make([][]float64, len(s.Points))
		for i, p := range s.Points {
			j.Points[i] = toArray(p)
		}
	}
	return json.Marshal(j)
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var j segmentJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		return err
	}
	seg := Segment{Kind: j.Type}
	if seg.Kind == "" {
		seg.Kind = KindLine
	}
	switch seg.Kind {
	case KindArc:
		if seg.Start, err = fromArray(j.Start); err != nil {
			return fmt.Errorf("arc start: %w", err)
		}
		if seg.End, err = fromArray(j.End); err != nil {
			return fmt.Errorf("arc end: %w", err)
		}
		if seg.Center, err = fromArray(j.Center); err != nil {
			return fmt.Errorf("arc center: %w", err)
		}
		seg.Direction = j.Direction
	default:
		seg.Points = make([]coord.Point, len(j.Points))
		for i, v := range j.Points {
			if seg.Points[i], err = fromArray(v); err != nil {
				return fmt.Errorf("line point %d: %w", i, err)
			}
		}
	}
	*s = seg
	return nil
}
