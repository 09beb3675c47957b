package api

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/markerpad/internal/app"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

var greenBand = detector.ColorBand{
	Lower: detector.HSV{H: 40, S: 80, V: 60},
	Upper: detector.HSV{H: 80, S: 255, V: 255},
}

type fakeTracker struct {
	mu      sync.Mutex
	enabled bool
	band    detector.ColorBand
	bandErr error

	sampleBand  detector.ColorBand
	sampleColor detector.HSV
	sampleErr   error
	sampledAt   image.Point
}

func (f *fakeTracker) Status() app.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return app.Status{Running: true, Enabled: f.enabled, Mode: "hold", Band: f.band}
}

func (f *fakeTracker) SetEnabled(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()
}

func (f *fakeTracker) SetBand(band detector.ColorBand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bandErr != nil {
		return f.bandErr
	}
	f.band = band
	return nil
}

func (f *fakeTracker) SampleAt(p image.Point) (detector.ColorBand, detector.HSV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampledAt = p
	return f.sampleBand, f.sampleColor, f.sampleErr
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
