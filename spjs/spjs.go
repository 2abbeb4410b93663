// Package spjs is a client for serial-port-json-server, which exposes the
// serial ports of a remote host over a websocket.
package spjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("spjs: client closed")

const reconnectDelay = 3 * time.Second

type SPJS struct {
	url string
	log *slog.Logger

	mx          sync.RWMutex
	serialPorts []SerialPort
	listed      chan struct{}

	outgoing  chan message
	incomming chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

type message struct {
	done    chan struct{}
	payload []byte
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}
type CmdStatus struct {
	Cmd        string
	QueueCount int `json:"QCnt"`
	Type       []string
	Data       Lines  `json:"D"`
	ID         string `json:"Id"`
}

// Lines holds the "D" field of a command status. Queued replies carry a
// list and Complete replies a single string.
type Lines []string

func (l *Lines) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Lines{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name         string
	Friendly     string
	SerialNumber string
	IsOpen       bool
	Baud         int
	USBVID       string
	USBPID       string
}

// New starts a client that keeps a connection to url open until Close.
func New(url string, log *slog.Logger) *SPJS {
	if log == nil {
		log = slog.Default()
	}
	sp := &SPJS{
		url:       url,
		log:       log,
		listed:    make(chan struct{}),
		outgoing:  make(chan message, 1000),
		incomming: make(chan interface{}, 1000),
		done:      make(chan struct{}),
	}

	go sp.loop()

	return sp
}

// Messages returns decoded messages other than port lists.
func (sp *SPJS) Messages() <-chan interface{} {
	return sp.incomming
}

func (sp *SPJS) Close() error {
	sp.closeOnce.Do(func() { close(sp.done) })
	return nil
}

func parseSPJSMessage(data []byte) (val interface{}, err error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	check := func(fieldName string, v interface{}) bool {
		if msg[fieldName] == nil {
			return false
		}
		val = v
		err = json.Unmarshal(data, val)
		return true
	}
	if check("Error", &ErrorMessage{}) {
		return
	}
	if check("SerialPorts", &SerialPortList{}) {
		return
	}
	if check("Cmd", &CmdStatus{}) {
		return
	}
	if check("D", &DataFrame{}) {
		return
	}

	return nil, errors.New("unknown message: " + string(data))
}

func (sp *SPJS) setPorts(ports []SerialPort) {
	sp.mx.Lock()
	sp.serialPorts = ports
	close(sp.listed)
	sp.listed = make(chan struct{})
	sp.mx.Unlock()
}

func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			sp.log.Error("read", "err", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// ignore echo messages
			continue
		}
		val, err := parseSPJSMessage(data)
		if err != nil {
			sp.log.Debug("parse", "err", err)
			continue
		}
		if list, ok := val.(*SerialPortList); ok {
			sp.setPorts(list.SerialPorts)
			continue
		}
		select {
		case sp.incomming <- val:
		case <-sp.done:
			return
		}
	}
}

func (sp *SPJS) loop() {
	var nextUp message

reconnect:
	for {
		select {
		case <-sp.done:
			return
		default:
		}

		sp.log.Info("connecting", "url", sp.url)
		ws, _, err := websocket.DefaultDialer.Dial(sp.url, nil)
		if err != nil {
			sp.log.Error("connect", "url", sp.url, "err", err)
			select {
			case <-time.After(reconnectDelay):
			case <-sp.done:
				return
			}
			continue
		}
		sp.log.Info("connected", "url", sp.url)
		ch := make(chan struct{})
		go sp.readLoop(ws, ch)
		go sp.WriteString("list") // refresh list on reconnect

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					sp.log.Error("send", "err", err)
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-sp.done:
				ws.Close()
				return
			case <-ch:
				ws.Close()
				continue reconnect
			case nextUp = <-sp.outgoing:
			}
		}
	}
}

type JSON struct {
	Port string `json:"P"`
	Data []Data
}
type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

// SendJSON queues lines to a port through the server's buffer.
func (sp *SPJS) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sp.send(append([]byte("sendjson "), data...))
}

// WriteString sends a raw server command and returns once it is written.
func (sp *SPJS) WriteString(data string) error {
	return sp.send([]byte(data))
}

func (sp *SPJS) send(payload []byte) error {
	ch := make(chan struct{})
	select {
	case sp.outgoing <- message{done: ch, payload: payload}:
	case <-sp.done:
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-sp.done:
		return ErrClosed
	}
}

// ListPorts asks the server for its serial ports.
func (sp *SPJS) ListPorts(ctx context.Context) ([]SerialPort, error) {
	sp.mx.RLock()
	listed := sp.listed
	sp.mx.RUnlock()

	if err := sp.WriteString("list"); err != nil {
		return nil, err
	}
	select {
	case <-listed:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-sp.done:
		return nil, ErrClosed
	}

	sp.mx.RLock()
	defer sp.mx.RUnlock()
	return append([]SerialPort(nil), sp.serialPorts...), nil
}
