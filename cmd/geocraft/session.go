package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mastercactapus/geocraft/config"
	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/machine"
	"github.com/mastercactapus/geocraft/machine/grbl"
	"github.com/mastercactapus/geocraft/spjs"
)

// session is a controller plus the transport its ports are opened through:
// local serial devices, or a serial-port-json-server when one is
// configured.
type session struct {
	*grbl.Controller
	log *slog.Logger
	sp  *spjs.SPJS
}

func newSession(cfg *config.Config, log *slog.Logger) *session {
	s := &session{log: log}
	ccfg := grbl.Config{
		Opener:       grbl.SerialOpener{},
		PollInterval: cfg.Serial.PollInterval,
		AckTimeout:   cfg.Serial.AckTimeout,
		JogFeed:      cfg.Serial.JogFeed,
		Logger:       log,
	}
	if cfg.SPJS.URL != "" {
		s.sp = spjs.New(cfg.SPJS.URL, log.With("spjs", cfg.SPJS.URL))
		ccfg.Opener = s.sp
	}
	s.Controller = grbl.NewController(ccfg)
	return s
}

func (s *session) Close() error {
	err := s.Controller.Close()
	if s.sp != nil {
		s.sp.Close()
	}
	return err
}

// ListPorts returns the names of the ports Connect can open.
func (s *session) ListPorts(ctx context.Context) ([]string, error) {
	if s.sp == nil {
		return grbl.ListPorts()
	}
	ports, err := s.sp.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names, nil
}

// Run sends text as a job and waits for it to end. If ctx is canceled
// first the job is stopped.
func (s *session) Run(ctx context.Context, text string) (machine.Progress, error) {
	events, cancel := s.Bus().Subscribe(256)
	defer cancel()

	id, err := s.SendGcode(text)
	if err != nil {
		return machine.Progress{}, err
	}

	type result struct {
		p   machine.Progress
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		p, err := grbl.WaitJob(events, id)
		resCh <- result{p, err}
	}()

	select {
	case res := <-resCh:
		return res.p, res.err
	case <-ctx.Done():
	}

	s.log.Info("stopping job", "job", id, "err", ctx.Err())
	if err := s.Stop(); err != nil && !errors.Is(err, machine.ErrNotConnected) {
		s.log.Error("stop job", "job", id, "err", err)
	}
	select {
	case res := <-resCh:
		return res.p, ctx.Err()
	case <-time.After(time.Second):
		return machine.Progress{}, ctx.Err()
	}
}

// ProbeGrid runs a grid probe and returns the contact points in the order
// they were probed.
func (s *session) ProbeGrid(ctx context.Context, opt machine.ProbeGridOptions) ([]coord.Point, error) {
	prog, n, err := opt.Program()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	s.ResetProbes()
	if _, err := s.Run(ctx, prog); err != nil {
		return nil, err
	}

	res := s.Probes()
	if len(res) != n {
		return nil, fmt.Errorf("got %d probe results, want %d", len(res), n)
	}
	points := make([]coord.Point, n)
	for i, r := range res {
		if !r.Valid {
			return nil, fmt.Errorf("probe %d at X%.3f Y%.3f made no contact", i, r.X, r.Y)
		}
		points[i] = r.Point
	}
	return points, nil
}

// logProgress logs job progress from the bus until stop is called.
func logProgress(log *slog.Logger, bus *machine.Bus) (stop func()) {
	events, cancel := bus.Subscribe(64)
	go func() {
		var last machine.JobStatus
		for e := range events {
			p, ok := e.Payload.(machine.Progress)
			if !ok {
				continue
			}
			if p.Status != last {
				log.Info("job "+string(p.Status), "job", p.JobID, "sent", p.Sent, "total", p.Total)
				last = p.Status
				continue
			}
			log.Debug("progress", "job", p.JobID, "sent", p.Sent, "total", p.Total, "errors", p.Errors)
		}
	}()
	return cancel
}
