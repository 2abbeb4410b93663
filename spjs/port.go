package spjs

import (
	"io"
	"strconv"
	"strings"
)

// Port is a serial port on the server. It implements io.ReadWriteCloser
// so it can stand in for a local device.
//
// A Port consumes the client's Messages, so only one may be open per
// client.
type Port struct {
	sp   *SPJS
	name string

	pr   *io.PipeReader
	pw   *io.PipeWriter
	done chan struct{}
}

// Open opens name on the server at baud using the grbl buffer algorithm.
func (sp *SPJS) Open(name string, baud int) (io.ReadWriteCloser, error) {
	return sp.OpenPort(name, baud)
}

// OpenPort opens name like Open. Messages queued before the call belong to
// an earlier session and are dropped.
func (sp *SPJS) OpenPort(name string, baud int) (*Port, error) {
	sp.drain()
	err := sp.WriteString("open " + name + " " + strconv.Itoa(baud) + " grbl")
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	p := &Port{
		sp:   sp,
		name: name,
		pr:   pr,
		pw:   pw,
		done: make(chan struct{}),
	}
	go p.loop()
	return p, nil
}

func (sp *SPJS) drain() {
	for n := 0; ; n++ {
		select {
		case <-sp.incomming:
		default:
			if n > 0 {
				sp.log.Debug("dropped stale messages", "count", n)
			}
			return
		}
	}
}

func (p *Port) loop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.sp.done:
			p.pw.CloseWithError(ErrClosed)
			return
		case msg := <-p.sp.Messages():
			switch m := msg.(type) {
			case *DataFrame:
				if m.Port != p.name {
					continue
				}
				if _, err := io.WriteString(p.pw, m.Data); err != nil {
					return
				}
			case *ErrorMessage:
				p.sp.log.Error("server", "port", p.name, "err", m.Error)
			}
		}
	}
}

func (p *Port) Read(b []byte) (int, error) { return p.pr.Read(b) }

// Write sends complete lines through the server's buffer. A single byte
// that is not a newline is a realtime command and bypasses the buffer.
func (p *Port) Write(b []byte) (int, error) {
	if len(b) == 1 && b[0] != '\n' {
		err := p.sp.WriteString("sendnobuf " + p.name + " " + string(b))
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	j := JSON{Port: p.name}
	for _, line := range strings.SplitAfter(string(b), "\n") {
		if line == "" {
			continue
		}
		j.Data = append(j.Data, Data{Data: line, ID: nextID()})
	}
	if err := p.sp.SendJSON(j); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *Port) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	close(p.done)
	p.pw.Close()
	return p.sp.WriteString("close " + p.name)
}
