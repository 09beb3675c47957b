// Package app runs the marker tracking loop: camera frames in, key events
// out, with annotated frames and status published for the HTTP layer.
package app

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/markerpad/internal/actuator"
	"github.com/ayusman/markerpad/internal/capture"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/logging"
	"github.com/ayusman/markerpad/internal/metrics"
	"github.com/ayusman/markerpad/internal/overlay"
	"github.com/ayusman/markerpad/internal/zone"
)

var (
	// ErrAlreadyRun is returned when Run is called a second time. The loop
	// closes the camera and actuator on exit, so an App runs once.
	ErrAlreadyRun = errors.New("tracker already ran")

	// ErrNoFrame is returned by SampleAt before the first frame arrives.
	ErrNoFrame = errors.New("no frame captured yet")
)

// Config holds the tracking policy.
type Config struct {
	Layout      zone.Layout
	Intent      intent.Config
	ReadTimeout time.Duration
	// FrameInterval paces the loop; zero reads as fast as the source allows.
	FrameInterval time.Duration
	JPEGQuality   int
	// Paused starts the loop with tracking disabled.
	Paused bool
}

// DefaultConfig returns the standard layout in hold mode.
func DefaultConfig() Config {
	return Config{
		Layout:      zone.DefaultLayout(),
		Intent:      intent.DefaultConfig(),
		ReadTimeout: capture.DefaultReadTimeout,
		JPEGQuality: overlay.DefaultQuality,
	}
}

// Validate checks every nested section.
func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	if err := c.Intent.Validate(); err != nil {
		return fmt.Errorf("intent: %w", err)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.FrameInterval < 0 {
		return errors.New("frame interval must not be negative")
	}
	return nil
}

// Deps are the collaborators the loop owns once Run starts.
type Deps struct {
	Camera   capture.Camera
	Detector detector.Detector
	Actuator actuator.KeyActuator
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// Status is a snapshot of the tracker for the API and tray.
type Status struct {
	Running   bool               `json:"running"`
	Enabled   bool               `json:"enabled"`
	Mode      string             `json:"mode"`
	Zone      zone.Zone          `json:"zone"`
	Held      zone.Zone          `json:"held"`
	Marker    *detector.Marker   `json:"marker,omitempty"`
	Band      detector.ColorBand `json:"band"`
	Frames    uint64             `json:"frames"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	LastEvent *intent.Event      `json:"lastEvent,omitempty"`
	Updated   time.Time          `json:"updated"`
}

// BandSetter is implemented by detectors whose color band can change at
// runtime.
type BandSetter interface {
	SetBand(detector.ColorBand) error
	Band() detector.ColorBand
}

// App is the tracking pipeline.
type App struct {
	config   Config
	log      zerolog.Logger
	camera   capture.Camera
	detector detector.Detector
	machine  *intent.Machine
	actuator actuator.KeyActuator
	metrics  *metrics.Metrics

	frames *Hub[[]byte]
	events *Hub[intent.Event]

	enabled atomic.Bool
	ran     atomic.Bool

	mu     sync.RWMutex
	status Status

	rawMu     sync.Mutex
	raw       gocv.Mat
	rawClosed bool
}

// New validates config and wires the pipeline. Nothing runs until Run.
func New(config Config, deps Deps) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Camera == nil || deps.Detector == nil || deps.Actuator == nil {
		return nil, errors.New("camera, detector and actuator are required")
	}
	machine, err := intent.New(config.Intent)
	if err != nil {
		return nil, err
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	a := &App{
		config:   config,
		log:      logging.Component(deps.Log, "tracker"),
		camera:   deps.Camera,
		detector: deps.Detector,
		machine:  machine,
		actuator: deps.Actuator,
		metrics:  deps.Metrics,
		frames:   NewHub[[]byte](),
		events:   NewHub[intent.Event](),
		raw:      gocv.NewMat(),
	}
	a.enabled.Store(!config.Paused)
	a.metrics.SetEnabled(!config.Paused)
	a.status = Status{Enabled: !config.Paused, Mode: config.Intent.Mode.String()}
	if bs, ok := deps.Detector.(BandSetter); ok {
		a.status.Band = bs.Band()
	}
	return a, nil
}

// SetEnabled pauses or resumes tracking. Pausing releases any held key on
// the next frame.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.log.Info().Bool("enabled", enabled).Msg("tracking toggled")
	}
	a.metrics.SetEnabled(enabled)

	a.mu.Lock()
	a.status.Enabled = enabled
	a.mu.Unlock()
}

// IsEnabled reports whether tracking is active.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// SetBand swaps the detector's color band.
func (a *App) SetBand(band detector.ColorBand) error {
	bs, ok := a.detector.(BandSetter)
	if !ok {
		return errors.New("detector does not support changing the color band")
	}
	if err := bs.SetBand(band); err != nil {
		return err
	}
	a.log.Info().Stringer("band", band).Msg("color band changed")

	a.mu.Lock()
	a.status.Band = band
	a.mu.Unlock()
	return nil
}

// Status returns a snapshot of the tracker state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.status
	if s.Marker != nil {
		m := *s.Marker
		s.Marker = &m
	}
	if s.LastEvent != nil {
		e := *s.LastEvent
		s.LastEvent = &e
	}
	return s
}

// SubscribeFrames streams annotated JPEG frames.
func (a *App) SubscribeFrames() (<-chan []byte, func()) {
	return a.frames.Subscribe(1)
}

// LatestFrame returns the most recent annotated JPEG.
func (a *App) LatestFrame() ([]byte, bool) {
	return a.frames.Latest()
}

// SubscribeEvents streams key events as they are sent.
func (a *App) SubscribeEvents() (<-chan intent.Event, func()) {
	return a.events.Subscribe(16)
}

// SampleAt suggests a color band from the patch around p in the most recent
// raw frame.
func (a *App) SampleAt(p image.Point) (detector.ColorBand, detector.HSV, error) {
	a.rawMu.Lock()
	defer a.rawMu.Unlock()

	if a.rawClosed || a.raw.Empty() {
		return detector.ColorBand{}, detector.HSV{}, ErrNoFrame
	}
	return detector.SampleBand(a.raw, p)
}

// Metrics returns the counters the loop updates.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
