package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a scripted sequence of markers, one per Detect call.
type MockDetector struct {
	script []*Marker
	index  int
	err    error
	band   ColorBand
	mu     sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{band: DefaultBand()}
}

// SetMarkers sets the markers returned by successive Detect calls. A nil
// entry means no marker in that frame. Once the script is exhausted the
// last entry repeats.
func (m *MockDetector) SetMarkers(markers ...*Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = markers
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted marker or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) == 0 {
		return nil, nil
	}

	i := m.index
	if i >= len(m.script) {
		i = len(m.script) - 1
	} else {
		m.index++
	}
	return m.script[i], nil
}

// SetBand records the band so tests can assert on profile switches.
func (m *MockDetector) SetBand(band ColorBand) error {
	if err := band.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.band = band
	return nil
}

// Band returns the last band set.
func (m *MockDetector) Band() ColorBand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.band
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// MarkerAt is a convenience constructor for scripted markers.
func MarkerAt(x, y int) *Marker {
	return &Marker{Radius: 20, Area: 1250, Circularity: 0.9, Center: image.Pt(x, y)}
}
