package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mastercactapus/geocraft/bridge"
	"github.com/mastercactapus/geocraft/config"
	"github.com/mastercactapus/geocraft/coord"
	"github.com/mastercactapus/geocraft/machine"
	"github.com/mastercactapus/geocraft/machine/grbl"
	"github.com/mastercactapus/geocraft/meshlevel"
	"github.com/mastercactapus/geocraft/vm"
)

var errBadRequest = errors.New("bad request")

const probeFile = "probes.yaml"

type api struct {
	http.Handler
	m       *session
	cfg     *config.Config
	log     *slog.Logger
	dataDir string
	sse     *sse.Server
	ws      websocket.Upgrader
	stop    func()
}

func newAPI(m *session, cfg *config.Config, dir string, logger *slog.Logger) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		m:       m,
		cfg:     cfg,
		log:     logger,
		dataDir: dir,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(io.Discard, "", 0),
		}),
		ws: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	fs := http.FileServer(http.Dir(dir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet, http.MethodHead:
			fs.ServeHTTP(w, req)
		case http.MethodPut:
			a.putFile(w, req)
		case http.MethodDelete:
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	// Full paths on the root router, so a wrong method is a 405 rather
	// than a 404.
	r.HandleFunc("/api/contour", a.contour).Methods(http.MethodPost)
	r.HandleFunc("/api/pocket", a.pocket).Methods(http.MethodPost)
	r.HandleFunc("/api/arcs", a.arcs).Methods(http.MethodPost)
	r.HandleFunc("/api/gcode", a.gcode).Methods(http.MethodPost)
	r.HandleFunc("/api/drill", a.drill).Methods(http.MethodPost)

	r.HandleFunc("/api/ports", a.ports).Methods(http.MethodGet)
	r.HandleFunc("/api/serial/connect", a.connect).Methods(http.MethodPost)
	r.HandleFunc("/api/serial/disconnect", a.action(m.Disconnect)).Methods(http.MethodPost)
	r.HandleFunc("/api/gcode/send", a.send).Methods(http.MethodPost)
	r.HandleFunc("/api/gcode/pause", a.action(m.Pause)).Methods(http.MethodPost)
	r.HandleFunc("/api/gcode/resume", a.action(m.Resume)).Methods(http.MethodPost)
	r.HandleFunc("/api/gcode/stop", a.action(m.Stop)).Methods(http.MethodPost)
	r.HandleFunc("/api/jog", a.jog).Methods(http.MethodPost)
	r.HandleFunc("/api/zero", a.action(m.SetZero)).Methods(http.MethodPost)
	r.HandleFunc("/api/home", a.action(m.Home)).Methods(http.MethodPost)
	r.HandleFunc("/api/unlock", a.action(m.Unlock)).Methods(http.MethodPost)
	r.HandleFunc("/api/status", a.status).Methods(http.MethodGet)
	r.HandleFunc("/api/probe", a.probe).Methods(http.MethodPost)

	r.PathPrefix("/events/").Handler(a.sse)
	r.HandleFunc("/ws", a.stream)

	events, cancel := m.Bus().Subscribe(256)
	a.stop = cancel
	go func() {
		for e := range events {
			data, err := json.Marshal(e.Payload)
			if err != nil {
				a.log.Error("marshal event", "type", e.Type, "err", err)
				continue
			}
			a.sse.SendMessage("/events/"+e.Type, sse.SimpleMessage(string(data)))
		}
	}()

	return a
}

// Close stops event delivery and disconnects SSE clients.
func (a *api) Close() {
	a.stop()
	a.sse.Shutdown()
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

// httpStatus maps a controller or request error to a response code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, grbl.ErrInvalidJog),
		errors.Is(err, machine.ErrEmptyJob):
		return http.StatusBadRequest
	case errors.Is(err, machine.ErrBusy),
		errors.Is(err, machine.ErrInvalidState),
		errors.Is(err, machine.ErrNotConnected),
		errors.Is(err, machine.ErrPortAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, machine.ErrPortUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (a *api) fail(w http.ResponseWriter, req *http.Request, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		a.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
	}
	http.Error(w, err.Error(), code)
}

func (a *api) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug("encode response", "err", err)
	}
}

// decodeEnvelope reads a JSON request over v. A bad body is answered with
// an error envelope.
func (a *api) decodeEnvelope(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.writeJSON(w, http.StatusBadRequest, bridge.Status{Status: bridge.StatusError, Message: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func (a *api) writeEnvelope(w http.ResponseWriter, res interface{}, status bridge.Status) {
	code := http.StatusOK
	if !status.OK() {
		code = http.StatusBadRequest
	}
	a.writeJSON(w, code, res)
}

func (a *api) contour(w http.ResponseWriter, req *http.Request) {
	r := bridge.OffsetContourRequest{ToolDiameter: a.cfg.Machine.ToolDiameter}
	if !a.decodeEnvelope(w, req, &r) {
		return
	}
	res := bridge.OffsetContour(r)
	a.writeEnvelope(w, res, res.Status)
}

func (a *api) pocket(w http.ResponseWriter, req *http.Request) {
	r := bridge.GeneratePocketRequest{
		ToolDiameter: a.cfg.Machine.ToolDiameter,
		Stepover:     a.cfg.Machine.Stepover,
	}
	if !a.decodeEnvelope(w, req, &r) {
		return
	}
	res := bridge.GeneratePocket(r)
	a.writeEnvelope(w, res, res.Status)
}

func (a *api) arcs(w http.ResponseWriter, req *http.Request) {
	var r bridge.FitArcsRequest
	if !a.decodeEnvelope(w, req, &r) {
		return
	}
	res := bridge.FitArcsToToolpath(r)
	a.writeEnvelope(w, res, res.Status)
}

func (a *api) gcode(w http.ResponseWriter, req *http.Request) {
	r := bridge.GenerateGcodeRequest{MachineParams: a.cfg.Machine}
	if !a.decodeEnvelope(w, req, &r) {
		return
	}
	if req.URL.Query().Get("level") == "1" {
		mesh, err := a.loadMesh()
		if err != nil {
			a.writeJSON(w, http.StatusBadRequest, bridge.Status{Status: bridge.StatusError, Message: err.Error()})
			return
		}
		r.Leveler = mesh
		if r.LevelGranularity == 0 {
			r.LevelGranularity = 1
		}
	}
	res := bridge.GenerateGcode(r)
	a.writeEnvelope(w, res, res.Status)
}

func (a *api) loadMesh() (*meshlevel.Mesh, error) {
	_, name := safePath(a.dataDir, probeFile)
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.New("no probe data, run a grid probe first")
	}
	defer f.Close()
	return meshlevel.Load(f)
}

func (a *api) drill(w http.ResponseWriter, req *http.Request) {
	r := bridge.GenerateDrillGcodeRequest{MachineParams: a.cfg.Machine}
	if !a.decodeEnvelope(w, req, &r) {
		return
	}
	res := bridge.GenerateDrillGcode(r)
	a.writeEnvelope(w, res, res.Status)
}

func (a *api) ports(w http.ResponseWriter, req *http.Request) {
	ports, err := a.m.ListPorts(req.Context())
	if err != nil {
		a.log.Error("list ports", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if ports == nil {
		ports = []string{}
	}
	a.writeJSON(w, http.StatusOK, map[string][]string{"ports": ports})
}

// action runs a command that takes no input.
func (a *api) action(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := fn(); err != nil {
			a.fail(w, req, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decode reads a JSON body into v, reporting failures as errBadRequest.
func decode(req *http.Request, v interface{}) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type connectRequest struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}

func (a *api) connect(w http.ResponseWriter, req *http.Request) {
	r := connectRequest{Port: a.cfg.Serial.Port, Baud: a.cfg.Serial.Baud}
	if err := decode(req, &r); err != nil {
		a.fail(w, req, err)
		return
	}
	if r.Port == "" {
		a.fail(w, req, fmt.Errorf("%w: port is required", errBadRequest))
		return
	}
	if err := a.m.Connect(r.Port, r.Baud); err != nil {
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendResponse struct {
	JobID string `json:"jobId"`

	// Bounds is omitted for programs the simulator does not understand.
	Bounds *vm.Bounds `json:"bounds,omitempty"`
}

func (a *api) send(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		a.fail(w, req, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	id, err := a.m.SendGcode(string(data))
	if err != nil {
		a.fail(w, req, err)
		return
	}

	res := sendResponse{JobID: id}
	if b, err := vm.SimulateText(string(data)); err == nil {
		res.Bounds = &b
	} else {
		a.log.Debug("simulate program", "job", id, "err", err)
	}
	a.writeJSON(w, http.StatusAccepted, res)
}

type jogRequest struct {
	Axis      string  `json:"axis"`
	Direction int     `json:"direction"`
	Step      float64 `json:"step"`
}

func (a *api) jog(w http.ResponseWriter, req *http.Request) {
	var r jogRequest
	if err := decode(req, &r); err != nil {
		a.fail(w, req, err)
		return
	}
	if err := a.m.Jog(r.Axis, r.Direction, r.Step); err != nil {
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	State  machine.ControllerState `json:"state"`
	Status machine.State           `json:"status"`
	Job    *machine.Progress       `json:"job,omitempty"`
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	res := statusResponse{
		State:  a.m.State(),
		Status: a.m.Status(),
	}
	if p, ok := a.m.JobProgress(); ok {
		res.Job = &p
	}
	a.writeJSON(w, http.StatusOK, res)
}

type probeRequest struct {
	DistanceX   float64 `json:"distanceX"`
	DistanceY   float64 `json:"distanceY"`
	Granularity float64 `json:"granularity"`
	FeedRate    float64 `json:"feedRate"`
	MaxTravel   float64 `json:"maxTravel"`
	Lift        float64 `json:"lift"`
}

// probe runs a grid probe, saves the result to the data directory and
// returns the points as [x, y, z] triples.
func (a *api) probe(w http.ResponseWriter, req *http.Request) {
	r := probeRequest{Granularity: 10, FeedRate: 50, MaxTravel: 5, Lift: 1}
	if err := decode(req, &r); err != nil {
		a.fail(w, req, err)
		return
	}
	opt := machine.ProbeGridOptions{
		ProbeOptions: machine.ProbeOptions{FeedRate: r.FeedRate, MaxTravel: r.MaxTravel, Lift: r.Lift},
		DistanceX:    r.DistanceX,
		DistanceY:    r.DistanceY,
		Granularity:  r.Granularity,
	}

	points, err := a.m.ProbeGrid(req.Context(), opt)
	if err != nil {
		a.fail(w, req, err)
		return
	}

	_, name := safePath(a.dataDir, probeFile)
	if err := a.saveProbes(name, points); err != nil {
		a.log.Error("save probes", "file", name, "err", err)
	}

	res := make([][3]float64, len(points))
	for i, p := range points {
		res[i] = [3]float64{p.X, p.Y, p.Z}
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *api) saveProbes(name string, points []coord.Point) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := meshlevel.WriteProbes(f, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		a.fail(w, req, err)
		return
	}
	f, err := os.Create(name)
	if err != nil {
		a.fail(w, req, err)
		return
	}
	defer f.Close()
	if _, err := io.Copy(f, req.Body); err != nil {
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := os.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, req)
			return
		}
		a.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// wsCommand is a machine command sent over the websocket.
type wsCommand struct {
	Command   string  `json:"command"`
	Axis      string  `json:"axis,omitempty"`
	Direction int     `json:"direction,omitempty"`
	Step      float64 `json:"step,omitempty"`
}

type wsError struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (a *api) run(c wsCommand) error {
	switch c.Command {
	case "pause":
		return a.m.Pause()
	case "resume":
		return a.m.Resume()
	case "stop":
		return a.m.Stop()
	case "home":
		return a.m.Home()
	case "unlock":
		return a.m.Unlock()
	case "zero":
		return a.m.SetZero()
	case "jog":
		return a.m.Jog(c.Axis, c.Direction, c.Step)
	}
	return fmt.Errorf("%w: unknown command %q", errBadRequest, c.Command)
}

// stream sends every controller event as {type, payload} and accepts
// commands in the other direction. Failed commands are answered with an
// "error" event.
func (a *api) stream(w http.ResponseWriter, req *http.Request) {
	ws, err := a.ws.Upgrade(w, req, nil)
	if err != nil {
		a.log.Debug("upgrade websocket", "err", err)
		return
	}
	defer ws.Close()

	events, cancel := a.m.Bus().Subscribe(256)
	defer cancel()

	quit := make(chan struct{})
	defer close(quit)
	readDone := make(chan struct{})
	cmds := make(chan wsCommand)
	go func() {
		defer close(readDone)
		for {
			var c wsCommand
			if err := ws.ReadJSON(&c); err != nil {
				return
			}
			select {
			case cmds <- c:
			case <-quit:
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteJSON(e); err != nil {
				a.log.Debug("write websocket", "err", err)
				return
			}
		case c := <-cmds:
			err := a.run(c)
			if err == nil {
				continue
			}
			if err := ws.WriteJSON(machine.Event{Type: "error", Payload: wsError{Command: c.Command, Error: err.Error()}}); err != nil {
				return
			}
		}
	}
}
