// Package monitoring serves a controller's live state over HTTP
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/pkg/observers"
	"github.com/anggasct/pelican/visualization"
)

// DefaultPressHold is how long POST /api/press keeps the virtual button down
const DefaultPressHold = 100 * time.Millisecond

// StateSource is the part of *pelican.Controller the monitor reads
type StateSource interface {
	Snapshot() pelican.Snapshot
	Config() pelican.Config
}

// Monitor exposes a controller through a small HTTP API
type Monitor struct {
	source          StateSource
	button          *pelican.VirtualButton
	metrics         *observers.MetricsObserver
	registry        *prometheus.Registry
	portNumber      int
	profileDuration time.Duration
	log             *slog.Logger

	serverLock sync.Mutex
	server     *http.Server
	profLock   sync.Mutex
}

// NewMonitor creates a new Monitor
func NewMonitor(source StateSource) *Monitor {
	return &Monitor{
		source:          source,
		registry:        prometheus.NewRegistry(),
		profileDuration: time.Second,
		log:             slog.Default().With(slog.String("component", "monitor")),
	}
}

// WithPortNumber sets the port number of the monitor. Zero picks a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Warn("monitor_port_not_allowed", slog.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber
	return m
}

// WithButton enables POST /api/press
func (m *Monitor) WithButton(button *pelican.VirtualButton) *Monitor {
	m.button = button
	return m
}

// WithMetrics serves the observer on /api/metrics and /metrics
func (m *Monitor) WithMetrics(metrics *observers.MetricsObserver) (*Monitor, error) {
	if err := metrics.Register(m.registry); err != nil {
		return m, err
	}
	m.metrics = metrics
	return m, nil
}

// WithProfileDuration sets how long /api/profile samples the CPU
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// WithLogger replaces the logger
func (m *Monitor) WithLogger(log *slog.Logger) *Monitor {
	m.log = log.With(slog.String("component", "monitor"))
	return m
}

// Router returns the API routes
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/state/detail", m.stateDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/config", m.config).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", m.metricsSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/press", m.press).Methods(http.MethodPost)
	r.HandleFunc("/api/graph", m.graph).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// StartServer starts serving in the background and returns the URL
func (m *Monitor) StartServer() (string, error) {
	m.serverLock.Lock()
	defer m.serverLock.Unlock()
	if m.server != nil {
		return "", errors.New("monitor already started")
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	m.server = &http.Server{
		Handler:           handlers.LoggingHandler(os.Stderr, m.Router()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	m.log.Info("monitor_started", slog.String("url", url))

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("monitor_serve_failed", slog.Any("error", err))
		}
	}()

	return url, nil
}

// Shutdown stops the server
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.serverLock.Lock()
	defer m.serverLock.Unlock()
	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	return err
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.source.Snapshot())
}

func (m *Monitor) stateDetail(w http.ResponseWriter, _ *http.Request) {
	snapshot := m.source.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(2)
	if err := serializer.Serialize(w); err != nil {
		m.fail(w, http.StatusInternalServerError, err)
	}
}

func (m *Monitor) config(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.source.Config())
}

func (m *Monitor) metricsSnapshot(w http.ResponseWriter, _ *http.Request) {
	if m.metrics == nil {
		m.fail(w, http.StatusNotFound, errors.New("metrics are not enabled"))
		return
	}
	m.writeJSON(w, m.metrics.Snapshot())
}

type pressRsp struct {
	Pressed bool  `json:"pressed"`
	HoldMs  int64 `json:"hold_ms"`
}

func (m *Monitor) press(w http.ResponseWriter, r *http.Request) {
	if m.button == nil {
		m.fail(w, http.StatusNotImplemented, errors.New("no virtual button attached"))
		return
	}

	hold := DefaultPressHold
	if raw := r.URL.Query().Get("hold_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			m.fail(w, http.StatusBadRequest, fmt.Errorf("invalid hold_ms '%s'", raw))
			return
		}
		hold = time.Duration(ms) * time.Millisecond
	}

	m.button.Press()
	time.AfterFunc(hold, m.button.Release)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	m.writeJSON(w, pressRsp{Pressed: true, HoldMs: hold.Milliseconds()})
}

func (m *Monitor) graph(w http.ResponseWriter, _ *http.Request) {
	opts := visualization.DefaultDOTOptions()
	opts.Active = m.source.Snapshot().Phase
	opts.HighlightActive = true

	dot, err := visualization.NewDOTGenerator(m.source.Config(), opts).Generate()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	m.profLock.Lock()
	defer m.profLock.Unlock()

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}
	time.Sleep(m.profileDuration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}
	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(payload)
}

func (m *Monitor) fail(w http.ResponseWriter, status int, err error) {
	m.log.Warn("monitor_request_failed", slog.Int("status", status), slog.Any("error", err))
	http.Error(w, err.Error(), status)
}
