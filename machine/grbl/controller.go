// Package grbl streams G-code to a Grbl controller over a serial link.
//
// A Controller owns the port. Every byte written to it goes through a
// single loop goroutine that also handles replies from the machine, the
// status poll and the acknowledgement timer, so job state is never shared
// between goroutines.
package grbl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mastercactapus/geocraft/machine"
)

const (
	// DefaultPollInterval is used when Config.PollInterval is zero.
	DefaultPollInterval = 250 * time.Millisecond

	writeBuffer = 64
)

// Config configures a Controller.
type Config struct {
	// Opener opens ports for Connect. Defaults to SerialOpener.
	Opener Opener

	// PollInterval is how often a status query is sent. Zero uses
	// DefaultPollInterval, negative disables polling.
	PollInterval time.Duration

	// AckTimeout fails a job when a line is not acknowledged in time.
	// Zero waits forever.
	AckTimeout time.Duration

	// JogFeed is the feed rate for jog moves. Defaults to DefaultJogFeed.
	JogFeed float64

	Logger *slog.Logger

	// Bus receives all events. One is created if nil.
	Bus *machine.Bus
}

// Controller drives a single Grbl machine.
type Controller struct {
	cfg Config
	log *slog.Logger
	bus *machine.Bus

	cmdCh      chan func()
	readCh     chan readEvent
	writeErrCh chan connError
	doneCh     chan struct{}
	exitCh     chan struct{}
	closeOnce  sync.Once

	// owned by loop
	state  machine.ControllerState
	conn   *conn
	job    *job
	status machine.State
	probes []machine.ProbeResult
	poll   *time.Ticker
	pollC  <-chan time.Time
	ack    *time.Timer
	ackC   <-chan time.Time

	// resetting is set from a soft reset until the startup banner. Acks
	// seen meanwhile belong to lines the reset discarded.
	resetting bool
}

type conn struct {
	name    string
	rw      io.ReadWriteCloser
	writeCh chan []byte
	done    chan struct{}
}

type readEvent struct {
	conn *conn
	line string
	err  error
}

type connError struct {
	conn *conn
	err  error
}

// NewController starts a Controller. Close must be called to release it.
func NewController(cfg Config) *Controller {
	if cfg.Opener == nil {
		cfg.Opener = SerialOpener{}
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.JogFeed <= 0 {
		cfg.JogFeed = DefaultJogFeed
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bus == nil {
		cfg.Bus = machine.NewBus()
	}

	c := &Controller{
		cfg: cfg,
		log: cfg.Logger,
		bus: cfg.Bus,

		cmdCh:      make(chan func()),
		readCh:     make(chan readEvent),
		writeErrCh: make(chan connError),
		doneCh:     make(chan struct{}),
		exitCh:     make(chan struct{}),

		state: machine.Disconnected,
	}
	go c.loop()

	return c
}

// Bus returns the bus events are published on.
func (c *Controller) Bus() *machine.Bus { return c.bus }

// Close disconnects and stops the controller.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.doneCh) })
	<-c.exitCh
	return nil
}

func (c *Controller) loop() {
	defer close(c.exitCh)
	for {
		select {
		case <-c.doneCh:
			if c.conn != nil {
				c.endJob(machine.JobStopped, machine.ErrClosed)
				c.closeConn(nil)
			}
			return
		case fn := <-c.cmdCh:
			fn()
		case ev := <-c.readCh:
			c.handleRead(ev)
		case ev := <-c.writeErrCh:
			c.handleWriteError(ev)
		case <-c.pollC:
			if c.conn != nil {
				c.write([]byte{statusQuery})
			}
		case <-c.ackC:
			c.ackC = nil
			if c.job != nil && c.job.inFlight {
				c.log.Error("no acknowledgement", "timeout", c.cfg.AckTimeout, "sent", c.job.sent, "total", c.job.total)
				c.endJob(machine.JobError, machine.ErrAckTimeout)
			}
		}
	}
}

// do runs fn on the loop and returns its result.
func (c *Controller) do(fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case c.cmdCh <- func() { errCh <- fn() }:
	case <-c.doneCh:
		return machine.ErrClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-c.exitCh:
		return machine.ErrClosed
	}
}

func (c *Controller) publish(typ string, payload interface{}) {
	c.bus.Publish(machine.Event{Type: typ, Payload: payload})
}

// requireIdle returns the error for a side-channel command in the current
// state, or nil if it may be written.
func (c *Controller) requireIdle() error {
	switch c.state {
	case machine.Idle:
		return nil
	case machine.Sending, machine.Paused:
		return machine.ErrBusy
	}
	return machine.ErrNotConnected
}

// write queues data for the writer goroutine without blocking.
func (c *Controller) write(data []byte) bool {
	select {
	case c.conn.writeCh <- data:
		return true
	default:
		c.log.Error("write buffer full", "port", c.conn.name, "bytes", len(data))
		return false
	}
}

func (c *Controller) writeLoop(cn *conn) {
	for {
		select {
		case <-cn.done:
			return
		case data := <-cn.writeCh:
			_, err := cn.rw.Write(data)
			if err == nil {
				continue
			}
			select {
			case c.writeErrCh <- connError{conn: cn, err: err}:
			case <-cn.done:
				return
			}
		}
	}
}

func (c *Controller) readLoop(cn *conn) {
	scan := bufio.NewScanner(cn.rw)
	for scan.Scan() {
		select {
		case c.readCh <- readEvent{conn: cn, line: scan.Text()}:
		case <-cn.done:
			return
		}
	}
	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.readCh <- readEvent{conn: cn, err: err}:
	case <-cn.done:
	}
}

// Connect opens port and starts polling its status.
func (c *Controller) Connect(port string, baud int) error {
	err := c.do(func() error {
		if c.state != machine.Disconnected {
			return machine.ErrPortAlreadyOpen
		}
		c.state = machine.Connecting
		return nil
	})
	if err != nil {
		return err
	}

	c.log.Info("opening port", "port", port, "baud", baud)
	rw, err := c.cfg.Opener.Open(port, baud)
	if err != nil {
		c.do(func() error {
			if c.state == machine.Connecting {
				c.state = machine.Disconnected
			}
			return nil
		})
		return fmt.Errorf("%w: %s: %v", machine.ErrPortUnavailable, port, err)
	}

	var attached bool
	err = c.do(func() error {
		if c.state != machine.Connecting {
			return fmt.Errorf("%w: connect canceled", machine.ErrNotConnected)
		}
		c.attach(port, rw)
		attached = true
		return nil
	})
	if !attached {
		rw.Close()
	}
	return err
}

func (c *Controller) attach(name string, rw io.ReadWriteCloser) {
	cn := &conn{
		name:    name,
		rw:      rw,
		writeCh: make(chan []byte, writeBuffer),
		done:    make(chan struct{}),
	}
	c.conn = cn
	c.state = machine.Idle
	c.status = machine.State{}
	c.resetting = false
	go c.writeLoop(cn)
	go c.readLoop(cn)

	if c.cfg.PollInterval > 0 {
		c.poll = time.NewTicker(c.cfg.PollInterval)
		c.pollC = c.poll.C
	}
	c.log.Info("connected", "port", name)
}

// closeConn tears the connection down. A nil cause is a requested
// disconnect.
func (c *Controller) closeConn(cause error) {
	cn := c.conn
	if cn == nil {
		return
	}
	if c.poll != nil {
		c.poll.Stop()
		c.poll, c.pollC = nil, nil
	}
	c.stopAckTimer()

	close(cn.done)
	if err := cn.rw.Close(); err != nil {
		c.log.Debug("close port", "port", cn.name, "err", err)
	}
	c.conn = nil
	c.state = machine.Disconnected
	c.resetting = false

	closed := machine.Closed{Port: cn.name}
	if cause != nil {
		closed.Error = cause.Error()
		c.log.Error("connection lost", "port", cn.name, "err", cause)
	} else {
		c.log.Info("disconnected", "port", cn.name)
	}
	c.publish(machine.EventClosed, closed)
}

// Disconnect closes the port. An active job is stopped.
func (c *Controller) Disconnect() error {
	return c.do(func() error {
		switch c.state {
		case machine.Disconnected:
			return machine.ErrNotConnected
		case machine.Connecting:
			c.state = machine.Disconnected
			return nil
		}
		c.endJob(machine.JobStopped, nil)
		c.closeConn(nil)
		return nil
	})
}

func (c *Controller) startAckTimer() {
	if c.cfg.AckTimeout <= 0 {
		return
	}
	c.stopAckTimer()
	c.ack = time.NewTimer(c.cfg.AckTimeout)
	c.ackC = c.ack.C
}

func (c *Controller) stopAckTimer() {
	if c.ack != nil {
		c.ack.Stop()
	}
	c.ack, c.ackC = nil, nil
}

// sendNext writes the next queued line of the job.
func (c *Controller) sendNext() {
	line := c.job.next()
	if !c.write([]byte(line + "\n")) {
		c.endJob(machine.JobError, machine.ErrWriteFailure)
		return
	}
	c.startAckTimer()
}

// endJob drops the active job, if any, and reports its final status. The
// controller returns to Idle while connected.
func (c *Controller) endJob(status machine.JobStatus, err error) {
	if c.state.Connected() {
		c.state = machine.Idle
	}
	c.stopAckTimer()

	j := c.job
	if j == nil {
		return
	}
	c.job = nil

	p := j.progress(status)
	if err != nil {
		p.Error = err.Error()
	}
	c.publish(machine.EventProgress, p)
}

// SendGcode queues the non-empty lines of text as a new job and writes the
// first one. Each further line is written once the previous one has been
// acknowledged. After Stop the first line waits for the machine to come back
// from its reset. It returns the job ID.
func (c *Controller) SendGcode(text string) (string, error) {
	lines := splitLines(text)
	var id string
	err := c.do(func() error {
		if err := c.requireIdle(); err != nil {
			return err
		}
		if len(lines) == 0 {
			return machine.ErrEmptyJob
		}

		c.job = newJob(lines)
		c.state = machine.Sending
		id = c.job.id
		c.log.Info("job started", "job", id, "lines", len(lines))
		c.publish(machine.EventProgress, c.job.progress(machine.JobSending))
		if c.resetting {
			c.log.Debug("waiting for reset", "job", id)
			return nil
		}
		c.sendNext()
		return nil
	})
	return id, err
}

// Pause stops writing queued lines. Lines already sent still run.
func (c *Controller) Pause() error {
	return c.do(func() error {
		if c.state != machine.Sending {
			return machine.ErrInvalidState
		}
		c.state = machine.Paused
		c.job.paused = true
		c.publish(machine.EventProgress, c.job.progress(machine.JobPaused))
		return nil
	})
}

// Resume continues a paused job from the next unsent line.
func (c *Controller) Resume() error {
	return c.do(func() error {
		if c.state != machine.Paused {
			return machine.ErrInvalidState
		}
		c.state = machine.Sending
		c.job.paused = false
		c.publish(machine.EventProgress, c.job.progress(machine.JobSending))
		if !c.job.inFlight && !c.resetting {
			c.sendNext()
		}
		return nil
	})
}

// Stop drops the queue and soft-resets the machine, aborting any motion.
// Pending acknowledgements are not waited for.
func (c *Controller) Stop() error {
	return c.do(func() error {
		if !c.state.Connected() {
			return machine.ErrNotConnected
		}

	drain:
		for {
			select {
			case <-c.conn.writeCh:
			default:
				break drain
			}
		}
		c.write([]byte{softReset})
		c.resetting = true
		c.log.Info("stop")
		c.endJob(machine.JobStopped, nil)
		return nil
	})
}

func (c *Controller) command(line string) error {
	return c.do(func() error {
		if err := c.requireIdle(); err != nil {
			return err
		}
		if !c.write([]byte(line + "\n")) {
			return machine.ErrWriteFailure
		}
		return nil
	})
}

// Jog moves axis by step mm in dir (1 or -1). It is rejected with ErrBusy
// while a job is active.
func (c *Controller) Jog(axis string, dir int, step float64) error {
	line, err := jogLine(axis, dir, step, c.cfg.JogFeed)
	if err != nil {
		return err
	}
	return c.command(line)
}

// SetZero makes the current position the work origin.
func (c *Controller) SetZero() error { return c.command(zeroLine()) }

// Home runs the homing cycle.
func (c *Controller) Home() error { return c.command(cmdHome) }

// Unlock clears an alarm lock.
func (c *Controller) Unlock() error { return c.command(cmdUnlock) }

// State returns the controller state.
func (c *Controller) State() machine.ControllerState {
	var s machine.ControllerState
	if err := c.do(func() error { s = c.state; return nil }); err != nil {
		return machine.Disconnected
	}
	return s
}

// Status returns the last status reported by the machine.
func (c *Controller) Status() machine.State {
	var s machine.State
	c.do(func() error { s = c.status; return nil })
	return s
}

// JobProgress returns the progress of the active job, if there is one.
func (c *Controller) JobProgress() (machine.Progress, bool) {
	var p machine.Progress
	var ok bool
	c.do(func() error {
		if c.job == nil {
			return nil
		}
		status := machine.JobSending
		if c.job.paused {
			status = machine.JobPaused
		}
		p, ok = c.job.progress(status), true
		return nil
	})
	return p, ok
}

// Probes returns probe results received since the last ResetProbes, in
// work coordinates.
func (c *Controller) Probes() []machine.ProbeResult {
	var res []machine.ProbeResult
	c.do(func() error {
		res = append(res, c.probes...)
		return nil
	})
	return res
}

func (c *Controller) ResetProbes() {
	c.do(func() error { c.probes = nil; return nil })
}

func (c *Controller) handleWriteError(ev connError) {
	if ev.conn != c.conn {
		return
	}
	c.log.Error("write to port", "port", ev.conn.name, "err", ev.err)
	err := fmt.Errorf("%w: %v", machine.ErrWriteFailure, ev.err)
	if c.job == nil {
		c.publish(machine.EventProgress, machine.Progress{Status: machine.JobError, Error: err.Error()})
	}
	c.endJob(machine.JobError, err)
}

func (c *Controller) handleRead(ev readEvent) {
	if ev.conn != c.conn {
		return
	}
	if ev.err != nil {
		cause := fmt.Errorf("%w: %v", machine.ErrConnectionLost, ev.err)
		c.endJob(machine.JobError, cause)
		c.closeConn(cause)
		return
	}

	line := strings.TrimSpace(ev.line)
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "<") {
		stat, err := parseStatus(c.status, line)
		if err != nil {
			c.log.Debug("parse status", "line", line, "err", err)
			return
		}
		c.status = *stat
		c.publish(machine.EventStatus, c.status)
		return
	}

	c.publish(machine.EventData, machine.Data{Line: line})

	switch {
	case strings.HasPrefix(line, "ok"):
		c.handleAck(line, false)
	case strings.HasPrefix(line, "error"):
		c.handleAck(line, true)
	case strings.HasPrefix(line, "[PRB:"):
		prb, err := parseProbe(line)
		if err != nil {
			c.log.Debug("parse probe", "line", line, "err", err)
			return
		}
		prb.Point = prb.Point.Sub(c.status.WCO)
		c.probes = append(c.probes, *prb)
		c.publish(machine.EventProbe, *prb)
	case strings.HasPrefix(line, "Grbl"):
		if c.resetting {
			c.resetting = false
			c.log.Debug("reset complete")
			if j := c.job; j != nil && !j.inFlight && !j.paused {
				c.sendNext()
			}
			return
		}
		if c.job != nil {
			c.log.Warn("controller reset during job", "job", c.job.id)
			c.endJob(machine.JobError, machine.ErrControllerReset)
		}
	case strings.HasPrefix(line, "ALARM"):
		c.log.Warn("alarm", "line", line)
	}
}

func (c *Controller) handleAck(line string, isError bool) {
	if c.resetting {
		c.log.Debug("acknowledgement discarded by reset", "line", line)
		return
	}
	j := c.job
	if j == nil || !j.inFlight {
		c.log.Debug("unexpected acknowledgement", "line", line)
		return
	}
	c.stopAckTimer()
	j.ack(isError)
	if isError {
		c.log.Warn("line rejected", "job", j.id, "line", j.sent, "reply", line)
	}

	if j.done() {
		c.log.Info("job finished", "job", j.id, "lines", j.total, "errors", j.errors)
		c.endJob(machine.JobFinished, nil)
		return
	}
	if j.paused {
		c.publish(machine.EventProgress, j.progress(machine.JobPaused))
		return
	}
	c.publish(machine.EventProgress, j.progress(machine.JobSending))
	c.sendNext()
}

// WaitJob blocks until the job with the given ID is done and returns its
// final progress. Events must come from this controller's bus.
func WaitJob(events <-chan machine.Event, id string) (machine.Progress, error) {
	for e := range events {
		p, ok := e.Payload.(machine.Progress)
		if !ok || e.Type != machine.EventProgress || p.JobID != id || !p.Status.Done() {
			continue
		}
		if p.Status == machine.JobFinished {
			return p, nil
		}
		if p.Error == "" {
			return p, fmt.Errorf("job %s", p.Status)
		}
		return p, errors.New(p.Error)
	}
	return machine.Progress{}, machine.ErrClosed
}
