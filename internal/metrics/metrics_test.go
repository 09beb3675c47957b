package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	m := New()
	m.FramesRead.Add(3)
	m.Presses.Add(1)
	m.StreamClients.Add(2)
	m.SetEnabled(true)
	m.UpdateProcessLatency(1500 * time.Microsecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, "markerpad_frames_read_total 3")
	assert.Contains(t, out, "markerpad_key_presses_total 1")
	assert.Contains(t, out, "markerpad_key_releases_total 0")
	assert.Contains(t, out, "markerpad_stream_clients 2")
	assert.Contains(t, out, "markerpad_tracking_enabled 1")
	assert.Contains(t, out, "markerpad_process_latency_seconds 0.0015")
}

func TestRegistryIsPrivate(t *testing.T) {
	// two instances must not collide on registration
	a, b := New(), New()
	a.Taps.Add(1)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "markerpad_key_taps_total" {
			assert.Equal(t, float64(0), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
