package arcfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/toolpath"
)

// arcPoints returns n+1 points on a circle from a0 to a1 (radians).
func arcPoints(c coord.Point, r, a0, a1 float64, n int) []coord.Point {
	pts := make([]coord.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(n)
		pts = append(pts, coord.XY(c.X+r*math.Cos(a), c.Y+r*math.Sin(a)))
	}
	return pts
}

func concat(parts ...[]coord.Point) []coord.Point {
	var res []coord.Point
	for _, p := range parts {
		res = append(res, p...)
	}
	return res
}

func TestFitArcs_NoArcs(t *testing.T) {
	path := []coord.Point{coord.XY(0, 0), coord.XY(10, 0), coord.XY(10, 10), coord.XY(0, 10)}

	res := FitArcs(path, nil)
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindLine, res[0].Kind)
	assert.Equal(t, path, res[0].Points)

	// arcs that match nothing change nothing
	res = FitArcs(path, []ArcDescriptor{{Center: coord.XY(100, 100), Radius: 3}})
	require.Len(t, res, 1)
	assert.Equal(t, path, res[0].Points)
}

func TestFitArcs_Short(t *testing.T) {
	assert.Nil(t, FitArcs(nil, nil))
	assert.Nil(t, FitArcs([]coord.Point{coord.XY(1, 1)}, nil))
}

func TestFitArcs_QuarterCircle(t *testing.T) {
	origin := coord.XY(0, 0)
	path := concat(
		[]coord.Point{coord.XY(20, 0)},
		arcPoints(origin, 10, 0, math.Pi/2, 8),
		[]coord.Point{coord.XY(0, 20)},
	)

	res := FitArcs(path, []ArcDescriptor{{Center: origin, Radius: 10, StartAngle: 0, EndAngle: 90}})
	require.Len(t, res, 3)

	assert.Equal(t, toolpath.KindLine, res[0].Kind)
	assert.Equal(t, []coord.Point{coord.XY(20, 0), path[1]}, res[0].Points)

	arc := res[1]
	assert.Equal(t, toolpath.KindArc, arc.Kind)
	assert.Equal(t, toolpath.CCW, arc.Direction)
	assert.Equal(t, path[1], arc.Start)
	assert.Equal(t, path[9], arc.End)
	assert.Equal(t, origin, arc.Center)

	assert.Equal(t, []coord.Point{path[9], coord.XY(0, 20)}, res[2].Points)
}

func TestFitArcs_Clockwise(t *testing.T) {
	c := coord.XY(5, 5)
	path := arcPoints(c, 3, math.Pi, 0, 12)

	res := FitArcs(path, []ArcDescriptor{{Center: c, Radius: 3}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.CW, res[0].Direction)
	assert.Equal(t, path[0], res[0].Start)
	assert.Equal(t, path[12], res[0].End)
}

func TestFitArcs_Tolerance(t *testing.T) {
	c := coord.XY(0, 0)
	path := arcPoints(c, 10.005, 0, math.Pi/2, 6)

	res := FitArcs(path, []ArcDescriptor{{Center: c, Radius: 10}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindArc, res[0].Kind)

	res = FitArcsWithOptions(path, []ArcDescriptor{{Center: c, Radius: 10}}, Options{Tolerance: 1e-3})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindLine, res[0].Kind)
}

func TestFitArcs_ChordStaysLine(t *testing.T) {
	// both ends lie on the circle but the middle does not
	path := []coord.Point{coord.XY(-20, 0), coord.XY(-10, 0), coord.XY(10, 0), coord.XY(20, 0)}
	res := FitArcs(path, []ArcDescriptor{{Center: coord.XY(0, 0), Radius: 10}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindLine, res[0].Kind)
	assert.Len(t, res[0].Points, 4)
}

func TestFitArcs_FirstMatchClaimsPoints(t *testing.T) {
	c := coord.XY(0, 0)
	long := arcPoints(c, 5, 0, math.Pi/2, 10)
	short := arcPoints(c, 5, math.Pi, 1.25*math.Pi, 4)
	path := concat(long, []coord.Point{coord.XY(0, 20), coord.XY(-20, 0)}, short)

	same := ArcDescriptor{Center: c, Radius: 5}
	res := FitArcs(path, []ArcDescriptor{same, same})
	require.Len(t, res, 3)

	assert.Equal(t, toolpath.KindArc, res[0].Kind)
	assert.Equal(t, long[0], res[0].Start)
	assert.Equal(t, long[10], res[0].End)

	assert.Equal(t, toolpath.KindLine, res[1].Kind)
	assert.Equal(t, []coord.Point{long[10], coord.XY(0, 20), coord.XY(-20, 0), short[0]}, res[1].Points)

	assert.Equal(t, toolpath.KindArc, res[2].Kind)
	assert.Equal(t, short[0], res[2].Start)
	assert.Equal(t, short[4], res[2].End)

	// a single descriptor only claims the longest run
	res = FitArcs(path, []ArcDescriptor{same})
	require.Len(t, res, 2)
	assert.Equal(t, toolpath.KindArc, res[0].Kind)
	assert.Equal(t, toolpath.KindLine, res[1].Kind)
	assert.Equal(t, short[4], res[1].Last())
}

func TestFitArcs_FullCircle(t *testing.T) {
	c := coord.XY(1, 2)
	path := arcPoints(c, 4, 0, 2*math.Pi, 16)
	path[16] = path[0]

	res := FitArcs(path, []ArcDescriptor{{Center: c, Radius: 4}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.CCW, res[0].Direction)
	assert.Equal(t, res[0].Start, res[0].End)
}

func TestArcDescriptor_Sweep(t *testing.T) {
	assert.Equal(t, 90.0, ArcDescriptor{StartAngle: 0, EndAngle: 90}.Sweep())
	assert.Equal(t, 90.0, ArcDescriptor{StartAngle: 315, EndAngle: 45}.Sweep())
	assert.Equal(t, 360.0, ArcDescriptor{StartAngle: 10, EndAngle: 10}.Sweep())
}

func TestFitArcs_InscribedChords(t *testing.T) {
	c := coord.XY(0, 0)
	path := []coord.Point{coord.XY(10, 0), coord.XY(0, 10), coord.XY(-10, 0), coord.XY(-20, -20)}

	// every vertex is on the circle but outside the 300-330 span
	res := FitArcs(path, []ArcDescriptor{{Center: c, Radius: 10, StartAngle: 300, EndAngle: 330}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindLine, res[0].Kind)
	assert.Equal(t, path, res[0].Points)

	// a full circle accepts the angles, but 90 degree chords are not an arc
	res = FitArcs(path, []ArcDescriptor{{Center: c, Radius: 10}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindLine, res[0].Kind)

	res = FitArcsWithOptions(path, []ArcDescriptor{{Center: c, Radius: 10}}, Options{Tolerance: 1e-2, MaxStep: 120})
	require.Len(t, res, 2)
	assert.Equal(t, toolpath.KindArc, res[0].Kind)
	assert.Equal(t, coord.XY(-10, 0), res[0].End)
}

func TestFitArcs_SpanLimitsRun(t *testing.T) {
	c := coord.XY(0, 0)
	path := arcPoints(c, 10, 0, math.Pi/2, 8)

	res := FitArcs(path, []ArcDescriptor{{Center: c, Radius: 10, StartAngle: 0, EndAngle: 45}})
	require.Len(t, res, 2)
	assert.Equal(t, toolpath.KindArc, res[0].Kind)
	assert.Equal(t, path[0], res[0].Start)
	assert.Equal(t, path[4], res[0].End)
	assert.Equal(t, path[4:], res[1].Points)

	// the span wraps through zero
	path = arcPoints(c, 10, -math.Pi/4, math.Pi/4, 8)
	res = FitArcs(path, []ArcDescriptor{{Center: c, Radius: 10, StartAngle: 315, EndAngle: 45}})
	require.Len(t, res, 1)
	assert.Equal(t, toolpath.KindArc, res[0].Kind)
}

func TestArcDescriptor_contains(t *testing.T) {
	a := ArcDescriptor{StartAngle: 300, EndAngle: 330}
	assert.True(t, a.contains(300))
	assert.True(t, a.contains(-45))
	assert.False(t, a.contains(0))
	assert.False(t, a.contains(90))

	assert.True(t, ArcDescriptor{StartAngle: 315, EndAngle: 45}.contains(0))
	assert.True(t, ArcDescriptor{}.contains(123))
}
