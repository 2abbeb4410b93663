package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/geocraft/bridge"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "geocraft", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"contour", "pocket", "arcs", "gcode", "drill", "ports", "send", "probe", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestProbeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	probeCmd, _, err := cmd.Find([]string{"probe"})
	require.NoError(t, err)

	outputFlag := probeCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "probes.yaml", outputFlag.DefValue)

	portFlag := probeCmd.Flags().Lookup("port")
	require.NotNil(t, portFlag)
	assert.Equal(t, "p", portFlag.Shorthand)
}

func TestRootCommand_Config(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "geocraft.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("machine:\n  tool_diameter: 2\n  stepover: 1\n"), 0o644))
	reqPath := filepath.Join(dir, "pocket.json")
	require.NoError(t, os.WriteFile(reqPath, []byte(`{"geometry":[[0,0],[10,0],[10,10],[0,10]]}`), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", cfgPath, "pocket", reqPath})
	require.NoError(t, cmd.Execute())

	var res bridge.GeneratePocketResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.True(t, res.OK())
	assert.Len(t, res.Toolpaths, 4)
}

func TestRootCommand_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "geocraft.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("nope: 1\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "ports"})
	assert.Error(t, cmd.Execute())
}
