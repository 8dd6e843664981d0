// Package metrics exposes live loop counters on a Prometheus endpoint.
package metrics

import (
	"context"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives events from the capture loop
type Recorder interface {
	// Frame records a rendered frame and its detection count
	Frame(detections int)
	// FPS records the latest frame rate measurement
	FPS(v float64)
	// Screenshot records a saved frame
	Screenshot()
	// Reconnect records a reconnect attempt
	Reconnect()
	// CaptureError records a failed grab
	CaptureError()
}

// Nop is a Recorder that discards everything
type Nop struct{}

func (Nop) Frame(int)     {}
func (Nop) FPS(float64)   {}
func (Nop) Screenshot()   {}
func (Nop) Reconnect()    {}
func (Nop) CaptureError() {}

// Metrics holds the loop counters and the registry exporting them
type Metrics struct {
	Frames        atomic.Uint64
	Detections    atomic.Uint64
	Screenshots   atomic.Uint64
	Reconnects    atomic.Uint64
	CaptureErrors atomic.Uint64

	// last detection count and fps, the latter stored as float64 bits
	lastDetections atomic.Uint64
	fpsBits        atomic.Uint64

	started  time.Time
	registry *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a Metrics instance with its Prometheus collectors registered
func New() *Metrics {
	m := &Metrics{
		started:  time.Now(),
		registry: prometheus.NewRegistry(),
	}

	m.register()

	return m
}

func (m *Metrics) gauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "screendetect",
			Name:      name,
			Help:      help,
		},
		fn,
	))
}

func (m *Metrics) register() {

	m.gauge("frames_total", "Total frames rendered",
		func() float64 { return float64(m.Frames.Load()) })

	m.gauge("detections_total", "Total detections drawn",
		func() float64 { return float64(m.Detections.Load()) })

	m.gauge("detections", "Detections in the last rendered frame",
		func() float64 { return float64(m.lastDetections.Load()) })

	m.gauge("fps", "Frames per second over the last measurement window",
		func() float64 { return math.Float64frombits(m.fpsBits.Load()) })

	m.gauge("screenshots_total", "Total screenshots saved",
		func() float64 { return float64(m.Screenshots.Load()) })

	m.gauge("reconnects_total", "Total reconnect attempts",
		func() float64 { return float64(m.Reconnects.Load()) })

	m.gauge("capture_errors_total", "Total failed frame grabs",
		func() float64 { return float64(m.CaptureErrors.Load()) })

	m.gauge("uptime_seconds", "Seconds since the metrics were created",
		func() float64 { return time.Since(m.started).Seconds() })
}

// Frame records a rendered frame
func (m *Metrics) Frame(detections int) {
	m.Frames.Add(1)
	m.Detections.Add(uint64(detections))
	m.lastDetections.Store(uint64(detections))
}

// FPS records the latest frame rate
func (m *Metrics) FPS(v float64) {
	m.fpsBits.Store(math.Float64bits(v))
}

// Screenshot records a saved frame
func (m *Metrics) Screenshot() {
	m.Screenshots.Add(1)
}

// Reconnect records a reconnect attempt
func (m *Metrics) Reconnect() {
	m.Reconnects.Add(1)
}

// CaptureError records a failed grab
func (m *Metrics) CaptureError() {
	m.CaptureErrors.Add(1)
}

// Registry returns the registry the collectors are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics HTTP server on addr in the background.  Listen
// errors are returned immediately, later serve errors are dropped.
func (m *Metrics) Serve(addr string) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return errors.New("metrics server already running")
	}

	ln, err := net.Listen("tcp", addr)

	if err != nil {
		return errors.Wrapf(err, "error listening on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.addr = ln.Addr()

	go m.server.Serve(ln)

	return nil
}

// Addr returns the address the server is listening on, or nil if it has not
// been started
func (m *Metrics) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Shutdown stops the metrics HTTP server
func (m *Metrics) Shutdown(ctx context.Context) error {

	m.mu.Lock()
	srv := m.server
	m.server = nil
	m.addr = nil
	m.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
