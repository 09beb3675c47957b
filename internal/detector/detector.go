// Package detector isolates a colored marker in camera frames and reports
// its position.
package detector

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Detector defines the interface for marker detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected marker.
	// Returns nil with a nil error if no marker qualifies in this frame.
	Detect(frame *gocv.Mat) (*Marker, error)

	// SetBand replaces the color band used for segmentation.
	SetBand(band ColorBand) error

	// Close releases any resources held by the detector.
	Close() error
}

// Marker is the accepted candidate reported for a frame.
type Marker struct {
	Center      image.Point `json:"center"`
	Radius      int         `json:"radius"`
	Area        float64     `json:"area"`
	Circularity float64     `json:"circularity"`
}

// Config holds configuration options for marker detection.
type Config struct {
	Band ColorBand

	// MinArea is the contour area a blob must exceed, in mask pixels.
	MinArea float64

	// CircularityMin and CircularityMax are exclusive bounds on
	// 4π·area/perimeter².
	CircularityMin float64
	CircularityMax float64
}

// Default detection thresholds.
const (
	DefaultMinArea        = 200
	DefaultCircularityMin = 0.7
	DefaultCircularityMax = 1.2
)

// DefaultConfig returns a Config with the reference marker's thresholds.
func DefaultConfig() Config {
	return Config{
		Band:           DefaultBand(),
		MinArea:        DefaultMinArea,
		CircularityMin: DefaultCircularityMin,
		CircularityMax: DefaultCircularityMax,
	}
}

// Validate rejects configurations that can never accept a marker.
func (c Config) Validate() error {
	if err := c.Band.Validate(); err != nil {
		return fmt.Errorf("color band: %w", err)
	}
	if c.MinArea < 0 {
		return errors.New("min area must not be negative")
	}
	if c.CircularityMin < 0 || c.CircularityMin >= c.CircularityMax {
		return fmt.Errorf("circularity bounds (%g, %g) are empty", c.CircularityMin, c.CircularityMax)
	}
	return nil
}
