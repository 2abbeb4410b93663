package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/geocraft/machine"
	"github.com/mastercactapus/geocraft/meshlevel"
	"github.com/mastercactapus/geocraft/vm"
)

// PortOptions selects the port for commands that talk to the machine.
type PortOptions struct {
	*RootOptions
	Port string
	Baud int
}

func (opts *PortOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "serial port (default serial.port from the config)")
	cmd.Flags().IntVarP(&opts.Baud, "baud", "b", 0, "baud rate (default serial.baud from the config)")
}

// connect opens a session on the selected port.
func (opts *PortOptions) connect() (*session, error) {
	port, baud := opts.Port, opts.Baud
	if port == "" {
		port = opts.Config.Serial.Port
	}
	if baud == 0 {
		baud = opts.Config.Serial.Baud
	}
	if port == "" {
		return nil, errors.New("no port given, use --port or set serial.port in the config")
	}

	s := newSession(opts.Config, slog.Default())
	if err := s.Connect(port, baud); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// signalContext is canceled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
}

func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ports",
		Short:         "List serial ports",
		Long:          "List serial ports on this host, or on the serial-port-json-server if spjs.url is set.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(rootOpts.Config, slog.Default())
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			ports, err := s.ListPorts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list ports: %w", err)
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PortOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send <program.nc>",
		Short: "Stream a G-code program to the machine",
		Long: `Stream a G-code program to a Grbl controller, one line per
acknowledgement. An interrupt stops the job and soft-resets the machine.

Example:
  geocraft send --port /dev/ttyUSB0 part.nc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(opts, args[0], cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runSend(opts *PortOptions, name string, cmd *cobra.Command) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read program: %w", err)
	}
	if b, err := vm.SimulateText(string(data)); err == nil {
		slog.Info("program extents", "min", b.Min, "max", b.Max)
	} else {
		slog.Debug("simulate program", "err", err)
	}

	s, err := opts.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	stopLog := logProgress(slog.Default(), s.Bus())
	defer stopLog()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	p, err := s.Run(ctx, string(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d/%d lines, %d errors\n", p.Sent, p.Total, p.Errors)
	return nil
}

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	PortOptions
	Grid   machine.ProbeGridOptions
	Output string
}

func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProbeOptions{PortOptions: PortOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe a grid of heights for leveling",
		Long: `Probe the work surface on a grid starting at work X0 Y0 and save the
contact points as YAML for "geocraft gcode --level".

Example:
  geocraft probe --distance-x 100 --distance-y 60 --granularity 10 -o probes.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(opts, cmd)
		},
	}
	opts.addFlags(cmd)

	cmd.Flags().Float64Var(&opts.Grid.DistanceX, "distance-x", 0, "grid size along X in mm")
	cmd.Flags().Float64Var(&opts.Grid.DistanceY, "distance-y", 0, "grid size along Y in mm")
	cmd.Flags().Float64Var(&opts.Grid.Granularity, "granularity", 10, "max distance between probes in mm")
	cmd.Flags().Float64Var(&opts.Grid.FeedRate, "feed", 50, "probe feed rate in mm/min")
	cmd.Flags().Float64Var(&opts.Grid.MaxTravel, "max-travel", 5, "how far down to search for contact in mm")
	cmd.Flags().Float64Var(&opts.Grid.Lift, "lift", 1, "work Z to lift to between probes")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "probes.yaml", `output file, "-" for stdout`)

	return cmd
}

func runProbe(opts *ProbeOptions, cmd *cobra.Command) error {
	if _, _, err := opts.Grid.Program(); err != nil {
		return err
	}

	s, err := opts.connect()
	if err != nil {
		return err
	}
	defer s.Close()

	stopLog := logProgress(slog.Default(), s.Bus())
	defer stopLog()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	points, err := s.ProbeGrid(ctx, opts.Grid)
	if err != nil {
		return err
	}

	if opts.Output == "-" {
		return meshlevel.WriteProbes(cmd.OutOrStdout(), points)
	}
	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := meshlevel.WriteProbes(f, points); err != nil {
		f.Close()
		return err
	}
	slog.Info("probes saved", "file", opts.Output, "points", len(points))
	return f.Close()
}
