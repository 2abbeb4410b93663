package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/machine"
)

func TestParseStatus(t *testing.T) {
	stat, err := parseStatus(machine.State{}, "<Idle|WPos:1.000,2.000,-3.500|MPos:11.000,12.000,-13.500|FS:0,0>")
	require.NoError(t, err)
	assert.Equal(t, "Idle", stat.Status)
	assert.Equal(t, coord.Point{X: 1, Y: 2, Z: -3.5}, stat.WPos)
	assert.Equal(t, coord.Point{X: 11, Y: 12, Z: -13.5}, stat.MPos)

	// WCO is only sent now and then, the last value is kept
	stat, err = parseStatus(machine.State{WCO: coord.Point{X: 10}}, "<Jog|MPos:15.000,0.000,0.000|FS:1000,0>")
	require.NoError(t, err)
	assert.Equal(t, "Jog", stat.Status)
	assert.Equal(t, coord.Point{X: 5}, stat.WPos)

	stat, err = parseStatus(machine.State{WCO: coord.Point{Z: 1}}, "<Hold:0|WPos:0.000,0.000,1.000>")
	require.NoError(t, err)
	assert.Equal(t, "Hold:0", stat.Status)
	assert.Equal(t, coord.Point{Z: 2}, stat.MPos)
}

func TestParseStatus_Malformed(t *testing.T) {
	for _, s := range []string{
		"<Idle|MPos:1,2>",
		"<Idle|WPos:a,b,c>",
		"Idle|MPos:1,2,3",
		"<>",
		"<Idle|MPos:1,2,3",
	} {
		_, err := parseStatus(machine.State{}, s)
		assert.ErrorIs(t, err, errMalformedStatus, s)
	}
}

func TestParseProbe(t *testing.T) {
	prb, err := parseProbe("[PRB:1.000,-2.000,3.250:1]")
	require.NoError(t, err)
	assert.True(t, prb.Valid)
	assert.Equal(t, coord.Point{X: 1, Y: -2, Z: 3.25}, prb.Point)

	prb, err = parseProbe("[PRB:0.000,0.000,0.000:0]")
	require.NoError(t, err)
	assert.False(t, prb.Valid)

	_, err = parseProbe("[GC:G0 G54 G17]")
	assert.Error(t, err)
}
