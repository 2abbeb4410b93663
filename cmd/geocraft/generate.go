package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/geocraft/bridge"
	"github.com/mastercactapus/geocraft/meshlevel"
)

const generateUsage = `

The request is read from the named file, or from stdin when the file is
omitted or "-".`

func NewContourCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contour [request.json]",
		Short: "Offset a closed contour by the tool radius",
		Long: `Offset a closed contour by half the tool diameter.

Request: {"toolDiameter": 3.175, "geometry": [[x, y], ...], "side": "inner|outer"}
The tool diameter defaults to machine.tool_diameter from the config.` + generateUsage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := bridge.OffsetContourRequest{ToolDiameter: rootOpts.Config.Machine.ToolDiameter}
			if err := readRequest(cmd, args, &req); err != nil {
				return err
			}
			res := bridge.OffsetContour(req)
			return writeResponse(cmd.OutOrStdout(), res, res.Status)
		},
	}
}

func NewPocketCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pocket [request.json]",
		Short: "Generate concentric clearing rings for a pocket",
		Long: `Generate the concentric rings that clear a pocket, outermost first.

Request: {"geometry": [[x, y], ...], "toolDiameter": 3.175, "stepover": 1}
Tool diameter and stepover default to the config.` + generateUsage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := bridge.GeneratePocketRequest{
				ToolDiameter: rootOpts.Config.Machine.ToolDiameter,
				Stepover:     rootOpts.Config.Machine.Stepover,
			}
			if err := readRequest(cmd, args, &req); err != nil {
				return err
			}
			res := bridge.GeneratePocket(req)
			return writeResponse(cmd.OutOrStdout(), res, res.Status)
		},
	}
}

func NewArcsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "arcs [request.json]",
		Short: "Replace toolpath runs that follow known arcs with arc moves",
		Long: `Fit the arcs of the source drawing to an offset toolpath.

Request: {"toolpath": [[x, y], ...], "arcs": [{"center": [x, y], "radius": r,
"start_angle": deg, "end_angle": deg}, ...]}` + generateUsage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req bridge.FitArcsRequest
			if err := readRequest(cmd, args, &req); err != nil {
				return err
			}
			res := bridge.FitArcsToToolpath(req)
			return writeResponse(cmd.OutOrStdout(), res, res.Status)
		},
	}
}

// GcodeOptions holds flags for the gcode command.
type GcodeOptions struct {
	*RootOptions
	Raw         bool
	LevelFile   string
	Granularity float64
}

func NewGcodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GcodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gcode [request.json]",
		Short: "Emit a G-code program for a toolpath",
		Long: `Emit a G-code program for a toolpath of line and arc segments.

Request: {"toolpath": [{"type": "line", "points": [[x, y, z], ...]}, ...],
"feedRate": 300, "safeZ": 5, "stepDown": -1}
Machine parameters left out of the request come from the config.

With --level, cut moves follow the height map in the given probe file.` + generateUsage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGcode(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "write the program as plain text instead of JSON")
	cmd.Flags().StringVar(&opts.LevelFile, "level", "", "YAML probe file to level cuts against")
	cmd.Flags().Float64Var(&opts.Granularity, "granularity", 1, "max length of a leveled line move in mm")

	return cmd
}

func runGcode(opts *GcodeOptions, args []string, cmd *cobra.Command) error {
	req := bridge.GenerateGcodeRequest{MachineParams: opts.Config.Machine}
	if err := readRequest(cmd, args, &req); err != nil {
		return err
	}

	if opts.LevelFile != "" {
		f, err := os.Open(opts.LevelFile)
		if err != nil {
			return fmt.Errorf("failed to open probe file: %w", err)
		}
		mesh, err := meshlevel.Load(f)
		f.Close()
		if err != nil {
			return err
		}
		req.Leveler = mesh
		if req.LevelGranularity == 0 {
			req.LevelGranularity = opts.Granularity
		}
	}

	res := bridge.GenerateGcode(req)
	if opts.Raw {
		return writeProgram(cmd.OutOrStdout(), res)
	}
	return writeResponse(cmd.OutOrStdout(), res, res.Status)
}

func NewDrillCommand(rootOpts *RootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "drill [request.json]",
		Short: "Emit a peck drilling program",
		Long: `Emit a peck drilling program for a list of points.

Request: {"drillPoints": [[x, y], ...], "feedRate": 100, "safeZ": 5,
"retractZ": 1, "stepDown": -2, "peckQ": 1}
Machine parameters left out of the request come from the config.` + generateUsage,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := bridge.GenerateDrillGcodeRequest{MachineParams: rootOpts.Config.Machine}
			if err := readRequest(cmd, args, &req); err != nil {
				return err
			}
			res := bridge.GenerateDrillGcode(req)
			if raw {
				return writeProgram(cmd.OutOrStdout(), res)
			}
			return writeResponse(cmd.OutOrStdout(), res, res.Status)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "write the program as plain text instead of JSON")

	return cmd
}

// readRequest decodes the JSON request named by args over v.
func readRequest(cmd *cobra.Command, args []string, v interface{}) error {
	r := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}

// writeResponse writes res as indented JSON and returns the failure it
// reports, if any.
func writeResponse(w io.Writer, res interface{}, status bridge.Status) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return status.Err()
}

func writeProgram(w io.Writer, res bridge.GcodeResponse) error {
	if err := res.Err(); err != nil {
		return err
	}
	_, err := io.WriteString(w, res.Gcode)
	return err
}
