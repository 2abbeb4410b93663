package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	PortOptions
	Addr    string
	DataDir string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{PortOptions: PortOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for toolpath generation and machine control.

Controller events are streamed over server-sent events at
/events/{type} and over a websocket at /ws. If a port is configured it
is connected on startup.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	opts.addFlags(cmd)

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "address to listen on (default http.addr from the config)")
	cmd.Flags().StringVar(&opts.DataDir, "dir", "./data", "data directory")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.HTTP.Addr
	}

	s := newSession(opts.Config, slog.Default())
	defer s.Close()

	port, baud := opts.Port, opts.Baud
	if port == "" {
		port = opts.Config.Serial.Port
	}
	if baud == 0 {
		baud = opts.Config.Serial.Baud
	}
	if port != "" {
		if err := s.Connect(port, baud); err != nil {
			slog.Error("connect", "port", port, "err", err)
		}
	}

	a := newAPI(s, opts.Config, opts.DataDir, slog.Default())

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "dir", opts.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	// event streams never end on their own
	slog.Info("shutting down")
	a.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		slog.Debug("request", "method", req.Method, "path", req.URL.Path, "remote", req.RemoteAddr)
		h.ServeHTTP(w, req)
	})
}
