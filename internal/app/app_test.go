package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/markerpad/internal/actuator"
	"github.com/ayusman/markerpad/internal/capture"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/fixture"
	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/zone"
)

type harness struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	keys     *actuator.Recorder
	frames   []*gocv.Mat
}

// newHarness plays n blank frames while the mock detector reports markers.
func newHarness(t *testing.T, cfg Config, markers ...*detector.Marker) *harness {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	h := &harness{
		detector: detector.NewMockDetector(),
		keys:     actuator.NewRecorder(),
	}
	for range markers {
		h.frames = append(h.frames, fixture.Blank(fixture.Width, fixture.Height))
	}
	t.Cleanup(func() { fixture.CloseAll(h.frames) })

	h.camera = capture.NewMockCamera(h.frames, false)
	h.detector.SetMarkers(markers...)

	a, err := New(cfg, Deps{Camera: h.camera, Detector: h.detector, Actuator: h.keys, Log: zerolog.Nop()})
	require.NoError(t, err)
	h.app = a
	return h
}

func at(x, y int) *detector.Marker {
	return &detector.Marker{Center: image.Pt(x, y), Radius: 30}
}

func TestRun_PressThenReleaseOnIdle(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(170, 240), at(170, 240), at(320, 240))

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []string{"press(left)", "release(left)", "releaseAll", "close"}, h.keys.Strings())
	assert.False(t, h.camera.IsOpen())

	st := h.app.Status()
	assert.False(t, st.Running)
	assert.Equal(t, uint64(3), st.Frames)
	assert.Equal(t, zone.Idle, st.Zone)
	assert.Equal(t, zone.None, st.Held)
	require.NotNil(t, st.LastEvent)
	assert.Equal(t, intent.Release, st.LastEvent.Kind)
}

func TestRun_MarkerLossReleasesOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(320, 115), nil, nil, nil, nil, nil)

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []string{"press(up)", "release(up)", "releaseAll", "close"}, h.keys.Strings())
	m := h.app.Metrics()
	assert.Equal(t, uint64(1), m.Detections.Load())
	assert.Equal(t, uint64(5), m.MarkerMissing.Load())
}

func TestRun_SwitchDirection(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(170, 240), at(470, 240), at(470, 240))

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []string{
		"press(left)",
		"release(left)",
		"press(right)",
		// held at end of stream
		"release(right)",
		"releaseAll",
		"close",
	}, h.keys.Strings())
}

func TestRun_MomentaryTaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Intent.Mode = intent.Momentary
	cfg.Intent.Divisor = 2
	h := newHarness(t, cfg, at(320, 365), at(320, 365), at(320, 365), nil)

	require.NoError(t, h.app.Run(context.Background()))

	// the recorder has no native tap, so each tap is a press and a release
	assert.Equal(t, []string{
		"press(down)", "release(down)",
		"press(down)", "release(down)",
		"releaseAll", "close",
	}, h.keys.Strings())
	assert.Equal(t, uint64(2), h.app.Metrics().Taps.Load())
}

func TestRun_Paused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paused = true
	h := newHarness(t, cfg, at(170, 240), at(170, 240))

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []string{"releaseAll", "close"}, h.keys.Strings())
	assert.Equal(t, uint64(2), h.app.Status().Frames)
	assert.Equal(t, uint64(0), h.app.Metrics().FramesProcessed.Load())
}

func TestRun_ActuatorFailureDoesNotStopTracking(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(170, 240), at(470, 240), nil)
	h.keys.FailWith(errors.New("no permission"))

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, uint64(3), h.app.Status().Frames)
	assert.Positive(t, h.app.Metrics().ActuatorErrors.Load())
	calls := h.keys.Strings()
	assert.Equal(t, "close", calls[len(calls)-1])
}

func TestRun_DetectorErrorIsNoMarker(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(170, 240), at(170, 240))
	h.detector.SetError(errors.New("bad frame"))

	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []string{"releaseAll", "close"}, h.keys.Strings())
	assert.Equal(t, uint64(2), h.app.Metrics().DetectErrors.Load())
}

func TestRun_CancelReleasesHeldKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := fixture.Blank(fixture.Width, fixture.Height)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	det := detector.NewMockDetector()
	det.SetMarkers(at(170, 240))
	keys := actuator.NewRecorder()

	cfg := DefaultConfig()
	cfg.FrameInterval = 5 * time.Millisecond
	a, err := New(cfg, Deps{Camera: cam, Detector: det, Actuator: keys, Log: zerolog.Nop()})
	require.NoError(t, err)

	events, unsubscribe := a.SubscribeEvents()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case e := <-events:
		assert.Equal(t, intent.Event{Kind: intent.Press, Direction: zone.Left, Frame: 1}, e)
	case <-time.After(5 * time.Second):
		t.Fatal("no press event")
	}
	assert.True(t, a.Status().Running)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []string{"press(left)", "release(left)", "releaseAll", "close"}, keys.Strings())
	assert.False(t, cam.IsOpen())
}

func TestRun_DisableReleasesHeldKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := fixture.Blank(fixture.Width, fixture.Height)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	det := detector.NewMockDetector()
	det.SetMarkers(at(320, 365))
	keys := actuator.NewRecorder()

	cfg := DefaultConfig()
	cfg.FrameInterval = 5 * time.Millisecond
	a, err := New(cfg, Deps{Camera: cam, Detector: det, Actuator: keys, Log: zerolog.Nop()})
	require.NoError(t, err)

	events, unsubscribe := a.SubscribeEvents()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	next := func() intent.Event {
		select {
		case e := <-events:
			return e
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
			return intent.Event{}
		}
	}

	assert.Equal(t, intent.Press, next().Kind)
	a.SetEnabled(false)
	e := next()
	assert.Equal(t, intent.Release, e.Kind)
	assert.Equal(t, zone.Down, e.Direction)
	assert.False(t, a.Status().Enabled)

	a.SetEnabled(true)
	assert.Equal(t, intent.Press, next().Kind)

	cancel()
	require.NoError(t, <-done)
}

func TestRun_OnlyOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig(), nil)

	require.NoError(t, h.app.Run(context.Background()))
	assert.ErrorIs(t, h.app.Run(context.Background()), ErrAlreadyRun)
}

type brokenCamera struct {
	capture.MockCamera
}

func (brokenCamera) Open() error { return errors.New("device busy") }

func TestRun_OpenFailureStillClosesActuator(t *testing.T) {
	keys := actuator.NewRecorder()
	a, err := New(DefaultConfig(), Deps{
		Camera:   &brokenCamera{},
		Detector: detector.NewMockDetector(),
		Actuator: keys,
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "device busy")
	assert.Equal(t, []string{"releaseAll", "close"}, keys.Strings())
}

func TestRun_PublishesFramesAndSampling(t *testing.T) {
	h := newHarness(t, DefaultConfig(), at(170, 240))

	_, err := h.app.SampleAt(image.Pt(10, 10))
	assert.ErrorIs(t, err, ErrNoFrame)

	frames, unsubscribe := h.app.SubscribeFrames()
	defer unsubscribe()

	require.NoError(t, h.app.Run(context.Background()))

	jpeg, ok := <-frames
	require.True(t, ok)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2])

	latest, ok := h.app.LatestFrame()
	require.True(t, ok)
	assert.Equal(t, jpeg, latest)

	// frame channel closes with the loop
	_, ok = <-frames
	assert.False(t, ok)
}

func TestRun_EndToEndWithColorDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frames := fixture.Sequence(fixture.Pt(170, 240), fixture.Pt(170, 240), fixture.Pt(320, 240), nil)
	defer fixture.CloseAll(frames)

	det, err := detector.NewHSVDetector(detector.DefaultConfig())
	require.NoError(t, err)
	keys := actuator.NewRecorder()

	a, err := New(DefaultConfig(), Deps{
		Camera:   capture.NewMockCamera(frames, false),
		Detector: det,
		Actuator: keys,
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []string{"press(left)", "release(left)", "releaseAll", "close"}, keys.Strings())
}

func TestSetBand(t *testing.T) {
	det := detector.NewMockDetector()
	a, err := New(DefaultConfig(), Deps{
		Camera:   capture.NewMockCamera(nil, false),
		Detector: det,
		Actuator: actuator.NewRecorder(),
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)

	band := detector.ColorBand{Lower: detector.HSV{H: 20, S: 100, V: 100}, Upper: detector.HSV{H: 30, S: 255, V: 255}}
	require.NoError(t, a.SetBand(band))
	assert.Equal(t, band, det.Band())
	assert.Equal(t, band, a.Status().Band)

	bad := detector.ColorBand{Lower: detector.HSV{H: 30}, Upper: detector.HSV{H: 20}}
	assert.Error(t, a.SetBand(bad))
	assert.Equal(t, band, a.Status().Band)
}

func TestNew_Validation(t *testing.T) {
	deps := Deps{Camera: capture.NewMockCamera(nil, false), Detector: detector.NewMockDetector(), Actuator: actuator.NewRecorder()}

	cfg := DefaultConfig()
	cfg.Intent.Divisor = 0
	_, err := New(cfg, deps)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ReadTimeout = 0
	_, err = New(cfg, deps)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), Deps{Camera: deps.Camera})
	assert.Error(t, err)
}

func TestRun_LogsAsTracker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	var buf bytes.Buffer
	a, err := New(DefaultConfig(), Deps{
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Actuator: actuator.NewRecorder(),
		Log:      zerolog.New(&buf),
	})
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, buf.String(), `"component":"tracker"`)
	assert.Contains(t, buf.String(), "end of stream")
}
