package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/geocraft/config"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Verbose    bool
	ConfigPath string

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// NewRootCommand creates the geocraft command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "geocraft",
		Short: "CNC toolpath generation and Grbl streaming",
		Long: `geocraft turns 2D geometry into toolpaths and G-code and streams
programs to a Grbl controller over a serial port.

Generation commands read a JSON request from a file (or stdin with "-")
and write a JSON response with a "status" of "success" or "error".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(
		NewContourCommand(opts),
		NewPocketCommand(opts),
		NewArcsCommand(opts),
		NewGcodeCommand(opts),
		NewDrillCommand(opts),
		NewPortsCommand(opts),
		NewSendCommand(opts),
		NewProbeCommand(opts),
		NewServeCommand(opts),
	)

	return cmd
}

func (opts *RootOptions) init(cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.Config = cfg
	return nil
}
