package meshlevel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/gcode"
	"github.com/mastercactapus/geocraft/toolpath"
)

// probes indicate a rise of 30mm over 100mm or .3mmZ for every 1mm X
var probes = []coord.Point{
	{X: -700, Y: -450, Z: -80},
	{X: -700, Y: -550, Z: -80},

	{X: -600, Y: -450, Z: -50},
	{X: -600, Y: -550, Z: -50},
}

func TestMesh_OffsetZ(t *testing.T) {
	mesh, err := NewMesh(probes)
	require.NoError(t, err)

	ok, z := mesh.OffsetZ(-650, -500)
	assert.True(t, ok)
	assert.InDelta(t, -65, z, 1e-9)

	ok, z = mesh.OffsetZ(-700, -450)
	assert.True(t, ok)
	assert.InDelta(t, -80, z, 1e-9)

	ok, _ = mesh.OffsetZ(0, 0)
	assert.False(t, ok)
}

func TestNewMesh_Invalid(t *testing.T) {
	_, err := NewMesh(probes[:2])
	assert.Error(t, err)

	_, err = NewMesh(append([]coord.Point{probes[0]}, probes...))
	assert.Error(t, err)
}

func TestOffsetFrom(t *testing.T) {
	res := OffsetFrom(-80, probes)
	assert.Equal(t, 0.0, res[0].Z)
	assert.Equal(t, 30.0, res[2].Z)
	assert.Equal(t, -80.0, probes[0].Z)
}

func TestLoad(t *testing.T) {
	mesh, err := Load(strings.NewReader(`
- [0, 0, -1]
- [10, 0, 0]
- [0, 10, -1]
- [10, 10, 0]
`))
	require.NoError(t, err)

	ok, z := mesh.OffsetZ(5, 5)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, z, 1e-9)

	_, err = Load(strings.NewReader("- [0, 0]\n"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteProbes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProbes(&buf, probes))

	res, err := ReadProbes(&buf)
	require.NoError(t, err)
	assert.Equal(t, probes, res)
}

func TestMesh_Leveler(t *testing.T) {
	mesh, err := Load(strings.NewReader("[[0, 0, 0], [10, 0, 1], [0, 10, 0], [10, 10, 1]]"))
	require.NoError(t, err)

	out, err := gcode.Emit(
		toolpath.Path{toolpath.Line(coord.XY(0, 5), coord.XY(10, 5))},
		gcode.MachineParams{SafeZ: 5, StepDown: -1, FeedRate: 100, Leveler: mesh, LevelGranularity: 5},
	)
	require.NoError(t, err)
	assert.Contains(t, out, "G01 X5.000 Y5.000 Z-0.500 F100.000\nG01 X10.000 Y5.000 Z0.000 F100.000\n")
}
