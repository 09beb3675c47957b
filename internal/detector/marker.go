package detector

import (
	"errors"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when Detect is handed a nil or empty Mat.
var ErrEmptyFrame = errors.New("frame is empty")

// Candidate is a contour measured for marker selection.
type Candidate struct {
	Center      image.Point
	Radius      int
	Area        float64
	Perimeter   float64
	Circularity float64
}

// Circularity returns 4π·area/perimeter². The second result is false for a
// zero perimeter, in which case the score is undefined.
func Circularity(area, perimeter float64) (float64, bool) {
	if perimeter <= 0 {
		return 0, false
	}
	return 4 * math.Pi * area / (perimeter * perimeter), true
}

// Accept applies the area and circularity filters to a contour and returns
// its circularity score when it qualifies.
func (c Config) Accept(area, perimeter float64) (float64, bool) {
	if area <= c.MinArea {
		return 0, false
	}
	circ, ok := Circularity(area, perimeter)
	if !ok {
		return 0, false
	}
	if circ <= c.CircularityMin || circ >= c.CircularityMax {
		return circ, false
	}
	return circ, true
}

// Select returns the first candidate that passes Accept, in the order given.
// Contour enumeration order is not meaningful, so when several blobs
// qualify any one of them may be reported.
func (c Config) Select(candidates []Candidate) (Candidate, bool) {
	for _, cand := range candidates {
		circ, ok := c.Accept(cand.Area, cand.Perimeter)
		if !ok {
			continue
		}
		cand.Circularity = circ
		return cand, true
	}
	return Candidate{}, false
}

// HSVDetector finds the marker by color segmentation and shape filtering.
type HSVDetector struct {
	config Config
	mu     sync.Mutex
}

// NewHSVDetector creates a detector after validating its configuration.
func NewHSVDetector(config Config) (*HSVDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HSVDetector{config: config}, nil
}

// Detect segments the frame and returns the first qualifying blob.
func (d *HSVDetector) Detect(frame *gocv.Mat) (*Marker, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	d.mu.Lock()
	config := d.config
	d.mu.Unlock()

	mask := Segment(*frame, config.Band)
	defer mask.Close()

	return config.detectMask(mask), nil
}

// detectMask measures every external contour of a binary mask and picks
// the first one that qualifies.
func (c Config) detectMask(mask gocv.Mat) *Marker {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	candidates := make([]Candidate, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		x, y, radius := gocv.MinEnclosingCircle(contour)
		candidates = append(candidates, Candidate{
			Center:    image.Pt(int(x), int(y)),
			Radius:    int(radius),
			Area:      gocv.ContourArea(contour),
			Perimeter: gocv.ArcLength(contour, true),
		})
	}

	best, ok := c.Select(candidates)
	if !ok {
		return nil
	}
	return &Marker{
		Center:      best.Center,
		Radius:      best.Radius,
		Area:        best.Area,
		Circularity: best.Circularity,
	}
}

// SetBand swaps the segmentation band. Invalid bands are rejected and the
// current band is kept.
func (d *HSVDetector) SetBand(band ColorBand) error {
	if err := band.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.Band = band
	return nil
}

// Band returns the band currently used for segmentation.
func (d *HSVDetector) Band() ColorBand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Band
}

// Close is a no-op; every Mat is released inside Detect.
func (d *HSVDetector) Close() error {
	return nil
}
