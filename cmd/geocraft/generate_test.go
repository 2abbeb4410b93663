package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/bridge"
	"github.com/mastercactapus/geocraft/config"
)

func testRootOptions() *RootOptions {
	cfg := config.Default()
	return &RootOptions{Config: &cfg}
}

func TestContourCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewContourCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"toolDiameter":2,"geometry":[[0,0],[10,0],[10,10],[0,10]],"side":"inner"}`))
	cmd.SetArgs([]string{"-"})
	require.NoError(t, cmd.Execute())

	var res bridge.OffsetContourResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, bridge.StatusSuccess, res.Status.Status)
	assert.NotEmpty(t, res.Toolpath)
}

func TestContourCommand_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewContourCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"geometry":[[0,0],[10,0]],"side":"inner"}`))
	cmd.SetArgs([]string{"-"})
	assert.Error(t, cmd.Execute())

	var res bridge.OffsetContourResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, bridge.StatusError, res.Status.Status)
	assert.NotEmpty(t, res.Message)
}

func TestContourCommand_BadRequest(t *testing.T) {
	cmd := NewContourCommand(testRootOptions())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`{"diameter":2}`))
	cmd.SetArgs([]string{"-"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse request")
}

func TestArcsCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewArcsCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"toolpath":[[0,0],[10,0]],"arcs":[]}`))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"type": "line"`)
}

func TestGcodeCommand_Raw(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewGcodeCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"toolpath":[{"type":"line","points":[[0,0,0],[10,0,0]]}],"feedRate":100}`))
	cmd.SetArgs([]string{"--raw", "-"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%\nO0001\n"), out)
	// safe height and plunge depth come from the config
	assert.Contains(t, out, "G00 Z5.000\n")
	assert.Contains(t, out, "G01 Z-1.000 F50.000\n")
	assert.Contains(t, out, "G01 X10.000 Y0.000 F100.000\n")
}

func TestGcodeCommand_Level(t *testing.T) {
	probes := filepath.Join(t.TempDir(), "probes.yaml")
	require.NoError(t, os.WriteFile(probes, []byte("- [0, 0, 0]\n- [10, 0, 1]\n- [10, 10, 1]\n- [0, 10, 0]\n"), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewGcodeCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"toolpath":[{"type":"line","points":[[1,5,0],[9,5,0]]}],"feedRate":100}`))
	cmd.SetArgs([]string{"--raw", "--level", probes, "--granularity", "4", "-"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "G01 Z-0.900 F50.000\n")
	assert.Contains(t, out, "G01 X5.000 Y5.000 Z-0.500 F100.000\n")
	assert.Contains(t, out, "G01 X9.000 Y5.000 Z-0.100 F100.000\n")
}

func TestDrillCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDrillCommand(testRootOptions())
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"drillPoints":[[5,5]],"stepDown":-2,"peckQ":0}`))
	cmd.SetArgs([]string{"--raw"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "O0002\n")
	assert.Contains(t, out, "G00 X5.000 Y5.000\nG00 Z1.000\nG01 Z-2.000 F300.000\nG00 Z5.000\n")
}
