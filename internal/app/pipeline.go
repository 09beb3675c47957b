package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/markerpad/internal/actuator"
	"github.com/ayusman/markerpad/internal/capture"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/overlay"
	"github.com/ayusman/markerpad/internal/zone"
)

// Run opens the camera and tracks until ctx is cancelled or the stream
// ends. Both are a normal exit and return nil. On every exit the held key
// is released, the actuator is flushed and closed, and the camera is
// closed.
func (a *App) Run(ctx context.Context) error {
	if a.ran.Swap(true) {
		return ErrAlreadyRun
	}
	defer a.frames.Close()
	defer a.events.Close()

	if err := a.camera.Open(); err != nil {
		a.cleanup()
		return fmt.Errorf("open camera: %w", err)
	}
	a.setRunning(true)
	defer a.cleanup()

	a.log.Info().Str("mode", a.config.Intent.Mode.String()).Bool("enabled", a.IsEnabled()).Msg("tracking started")

	var tick <-chan time.Time
	if a.config.FrameInterval > 0 {
		ticker := time.NewTicker(a.config.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	wasEnabled := a.IsEnabled()
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		frame, err := capture.NextFrame(ctx, a.camera, a.config.ReadTimeout)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrEndOfStream):
			a.log.Info().Msg("end of stream")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			a.metrics.ReadErrors.Add(1)
			return fmt.Errorf("read frame: %w", err)
		}

		enabled := a.IsEnabled()
		if enabled != wasEnabled {
			if !enabled {
				a.apply(a.machine.Reset())
			}
			wasEnabled = enabled
		}

		a.process(frame, enabled)
		frame.Close()
	}
}

// process runs one frame through detection, classification and the intent
// machine, then publishes the annotated frame.
func (a *App) process(frame *gocv.Mat, enabled bool) {
	start := time.Now()
	a.metrics.FramesRead.Add(1)

	var (
		marker *detector.Marker
		z      = zone.None
	)
	center := zone.Center(frame.Cols(), frame.Rows())

	if enabled {
		m, err := a.detector.Detect(frame)
		if err != nil {
			a.metrics.DetectErrors.Add(1)
			a.log.Debug().Err(err).Msg("detect failed")
		}
		if m != nil {
			marker = m
			z = a.config.Layout.Classify(m.Center, center)
			a.metrics.Detections.Add(1)
		} else {
			a.metrics.MarkerMissing.Add(1)
		}

		events := a.machine.Observe(z)
		a.apply(events)
		a.metrics.FramesProcessed.Add(1)
		a.metrics.UpdateProcessLatency(time.Since(start))
	}

	a.keepRaw(frame)

	held := a.machine.Held()
	overlay.Render(frame, overlay.Scene{
		Regions: a.config.Layout.Regions(center),
		Marker:  marker,
		Zone:    z,
		Held:    held,
		Paused:  !enabled,
	})
	if jpeg, err := overlay.Encode(*frame, a.config.JPEGQuality); err != nil {
		a.log.Debug().Err(err).Msg("encode frame")
	} else {
		a.frames.Publish(jpeg)
	}

	a.mu.Lock()
	a.status.Zone = z
	a.status.Held = held
	a.status.Marker = marker
	a.status.Frames++
	a.status.Width = frame.Cols()
	a.status.Height = frame.Rows()
	a.status.Updated = time.Now()
	a.mu.Unlock()
}

// apply sends events to the actuator. Failures are logged and counted but
// never stop tracking.
func (a *App) apply(events []intent.Event) {
	for _, e := range events {
		err := actuator.Apply(a.actuator, e)
		if err != nil {
			a.metrics.ActuatorErrors.Add(1)
			a.log.Warn().Err(err).Stringer("event", e).Msg("key injection failed")
		} else {
			a.log.Info().Stringer("direction", e.Direction).Uint64("frame", e.Frame).Msg(e.Kind.String())
		}

		switch e.Kind {
		case intent.Press:
			a.metrics.Presses.Add(1)
		case intent.Release:
			a.metrics.Releases.Add(1)
		case intent.Tap:
			a.metrics.Taps.Add(1)
		}

		a.events.Publish(e)
		ev := e
		a.mu.Lock()
		a.status.LastEvent = &ev
		a.mu.Unlock()
	}
}

// keepRaw copies the unannotated frame for color sampling.
func (a *App) keepRaw(frame *gocv.Mat) {
	a.rawMu.Lock()
	defer a.rawMu.Unlock()
	if !a.rawClosed {
		frame.CopyTo(&a.raw)
	}
}

// cleanup runs the shutdown contract. Each step runs even if an earlier one
// failed.
func (a *App) cleanup() {
	a.apply(a.machine.Reset())

	if err := a.actuator.ReleaseAll(); err != nil {
		a.metrics.ActuatorErrors.Add(1)
		a.log.Warn().Err(err).Msg("release all keys")
	}
	if err := a.actuator.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close actuator")
	}
	if err := a.camera.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close camera")
	}
	if err := a.detector.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close detector")
	}

	a.rawMu.Lock()
	a.raw.Close()
	a.rawClosed = true
	a.rawMu.Unlock()

	a.setRunning(false)
	a.log.Info().Msg("tracking stopped")
}

func (a *App) setRunning(running bool) {
	a.mu.Lock()
	a.status.Running = running
	if !running {
		a.status.Held = zone.None
	}
	a.mu.Unlock()
}
