// Package bridge exposes the toolpath pipeline as JSON request/response
// envelopes. Every response carries a status of "success" or "error"; an
// error response has a message and no payload.
package bridge

import (
	"errors"
	"fmt"

	"github.com/mastercactapus/geocraft/arcfit"
	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/gcode"
	"github.com/mastercactapus/geocraft/offset"
	"github.com/mastercactapus/geocraft/toolpath"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status is embedded in every response.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func success() Status { return Status{Status: StatusSuccess} }

func failure(err error) Status { return Status{Status: StatusError, Message: err.Error()} }

// OK reports whether the response succeeded.
func (s Status) OK() bool { return s.Status == StatusSuccess }

// Err returns the message of a failed response as an error.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return errors.New(s.Message)
}

// XY is a point as [x, y] or [x, y, z]; Z is dropped for 2D geometry.
type XY []float64

func points(in []XY) ([]coord.Point, error) {
	res := make([]coord.Point, len(in))
	for i, p := range in {
		switch len(p) {
		case 2:
			res[i] = coord.XY(p[0], p[1])
		case 3:
			res[i] = coord.Point{X: p[0], Y: p[1], Z: p[2]}
		default:
			return nil, fmt.Errorf("point %d: want 2 or 3 coordinates, got %d", i, len(p))
		}
	}
	return res, nil
}

func xys(in []coord.Point) []XY {
	res := make([]XY, len(in))
	for i, p := range in {
		res[i] = XY{p.X, p.Y}
	}
	return res
}

type OffsetContourRequest struct {
	ToolDiameter float64 `json:"toolDiameter"`
	Geometry     []XY    `json:"geometry"`
	Side         string  `json:"side"`
}

type OffsetContourResponse struct {
	Status
	Toolpath []XY `json:"toolpath,omitempty"`
}

// OffsetContour offsets the geometry by half the tool diameter.
func OffsetContour(req OffsetContourRequest) OffsetContourResponse {
	side, err := offset.ParseSide(req.Side)
	if err != nil {
		return OffsetContourResponse{Status: failure(err)}
	}
	pts, err := points(req.Geometry)
	if err != nil {
		return OffsetContourResponse{Status: failure(err)}
	}
	ring, err := offset.OffsetContour(coord.Polygon(pts), req.ToolDiameter/2, side)
	if err != nil {
		return OffsetContourResponse{Status: failure(err)}
	}
	return OffsetContourResponse{Status: success(), Toolpath: xys(ring)}
}

type GeneratePocketRequest struct {
	Geometry     []XY    `json:"geometry"`
	ToolDiameter float64 `json:"toolDiameter"`
	Stepover     float64 `json:"stepover"`
}

type GeneratePocketResponse struct {
	Status
	Toolpaths [][]XY `json:"toolpaths,omitempty"`
}

func GeneratePocket(req GeneratePocketRequest) GeneratePocketResponse {
	pts, err := points(req.Geometry)
	if err != nil {
		return GeneratePocketResponse{Status: failure(err)}
	}
	rings, err := offset.GeneratePocket(coord.Polygon(pts), req.ToolDiameter, req.Stepover)
	if err != nil {
		return GeneratePocketResponse{Status: failure(err)}
	}
	res := GeneratePocketResponse{Status: success(), Toolpaths: make([][]XY, len(rings))}
	for i, r := range rings {
		res.Toolpaths[i] = xys(r)
	}
	return res
}

// Arc is an arc from the source drawing.
type Arc struct {
	Center     XY      `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

type FitArcsRequest struct {
	Toolpath []XY  `json:"toolpath"`
	Arcs     []Arc `json:"arcs"`
}

type FitArcsResponse struct {
	Status
	Segments toolpath.Path `json:"toolpath_segments,omitempty"`
}

func FitArcsToToolpath(req FitArcsRequest) FitArcsResponse {
	pts, err := points(req.Toolpath)
	if err != nil {
		return FitArcsResponse{Status: failure(err)}
	}
	arcs := make([]arcfit.ArcDescriptor, len(req.Arcs))
	for i, a := range req.Arcs {
		c, err := points([]XY{a.Center})
		if err != nil {
			return FitArcsResponse{Status: failure(fmt.Errorf("arc %d: %w", i, err))}
		}
		if !(a.Radius > 0) {
			return FitArcsResponse{Status: failure(fmt.Errorf("arc %d: radius must be positive", i))}
		}
		arcs[i] = arcfit.ArcDescriptor{Center: c[0], Radius: a.Radius, StartAngle: a.StartAngle, EndAngle: a.EndAngle}
	}
	return FitArcsResponse{Status: success(), Segments: arcfit.FitArcs(pts, arcs)}
}

type GenerateGcodeRequest struct {
	Toolpath toolpath.Path `json:"toolpath"`
	gcode.MachineParams
}

type GcodeResponse struct {
	Status
	Gcode string `json:"gcode,omitempty"`
}

func GenerateGcode(req GenerateGcodeRequest) GcodeResponse {
	if len(req.Toolpath) == 0 {
		return GcodeResponse{Status: failure(errors.New("empty toolpath"))}
	}
	out, err := gcode.Emit(req.Toolpath, req.MachineParams)
	if err != nil {
		return GcodeResponse{Status: failure(err)}
	}
	return GcodeResponse{Status: success(), Gcode: out}
}

type GenerateDrillGcodeRequest struct {
	DrillPoints []XY `json:"drillPoints"`
	gcode.MachineParams
}

func GenerateDrillGcode(req GenerateDrillGcodeRequest) GcodeResponse {
	pts, err := points(req.DrillPoints)
	if err != nil {
		return GcodeResponse{Status: failure(err)}
	}
	out, err := gcode.EmitDrill(pts, req.MachineParams)
	if err != nil {
		return GcodeResponse{Status: failure(err)}
	}
	return GcodeResponse{Status: success(), Gcode: out}
}
