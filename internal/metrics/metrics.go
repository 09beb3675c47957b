// Package metrics exposes tracking counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the tracker's counters. The tracking loop writes them with
// atomic adds; Prometheus reads them through GaugeFuncs.
type Metrics struct {
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	ReadErrors      atomic.Uint64
	DetectErrors    atomic.Uint64

	Detections    atomic.Uint64
	MarkerMissing atomic.Uint64

	Presses        atomic.Uint64
	Releases       atomic.Uint64
	Taps           atomic.Uint64
	ActuatorErrors atomic.Uint64

	ProcessLatencyUs atomic.Uint64
	StreamClients    atomic.Int64
	EventClients     atomic.Int64
	Enabled          atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Namespace: "markerpad", Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) register() {
	m.counter("frames_read_total", "Frames read from the camera", &m.FramesRead)
	m.counter("frames_processed_total", "Frames run through detection", &m.FramesProcessed)
	m.counter("read_errors_total", "Transient camera read failures", &m.ReadErrors)
	m.counter("detect_errors_total", "Frames the detector failed on", &m.DetectErrors)
	m.counter("detections_total", "Frames with an accepted marker", &m.Detections)
	m.counter("marker_missing_total", "Frames without an accepted marker", &m.MarkerMissing)
	m.counter("key_presses_total", "Press-and-hold events sent", &m.Presses)
	m.counter("key_releases_total", "Release events sent", &m.Releases)
	m.counter("key_taps_total", "Momentary tap events sent", &m.Taps)
	m.counter("actuator_errors_total", "Key injection failures", &m.ActuatorErrors)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "markerpad",
			Name:      "process_latency_seconds",
			Help:      "Detection and classification time of the last frame",
		},
		func() float64 { return float64(m.ProcessLatencyUs.Load()) / 1e6 },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "markerpad",
			Name:      "stream_clients",
			Help:      "Connected MJPEG viewers",
		},
		func() float64 { return float64(m.StreamClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "markerpad",
			Name:      "event_clients",
			Help:      "Connected websocket event listeners",
		},
		func() float64 { return float64(m.EventClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "markerpad",
			Name:      "tracking_enabled",
			Help:      "Tracking enabled (0=paused, 1=active)",
		},
		func() float64 { return float64(m.Enabled.Load()) },
	))
}

// UpdateProcessLatency records how long the last frame took.
func (m *Metrics) UpdateProcessLatency(d time.Duration) {
	m.ProcessLatencyUs.Store(uint64(d.Microseconds()))
}

// SetEnabled records the tracking state.
func (m *Metrics) SetEnabled(enabled bool) {
	if enabled {
		m.Enabled.Store(1)
	} else {
		m.Enabled.Store(0)
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
