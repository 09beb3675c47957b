// Package overlay draws the zone guides and the tracked marker onto a frame
// and encodes it for streaming.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/zone"
)

// DefaultQuality is the JPEG quality used for the stream.
const DefaultQuality = 80

// ErrEmptyFrame is returned when encoding an empty Mat.
var ErrEmptyFrame = errors.New("empty frame")

var (
	GuideColor  = color.RGBA{R: 255, G: 255, B: 255}
	ActiveColor = color.RGBA{G: 255}
	IdleColor   = color.RGBA{R: 128, G: 128, B: 128}
	MarkerColor = color.RGBA{R: 255}
	LabelColor  = color.RGBA{G: 255}
)

const (
	lineThickness = 2
	labelScale    = 0.6
)

// Scene is what the tracking loop knows about one frame.
type Scene struct {
	Regions []zone.Region
	Marker  *detector.Marker
	Zone    zone.Zone
	Held    zone.Zone
	Paused  bool
}

// Render draws the scene onto frame in place. The region containing the
// marker is highlighted.
func Render(frame *gocv.Mat, s Scene) {
	for _, r := range s.Regions {
		c := GuideColor
		switch {
		case r.Zone == s.Zone && s.Zone != zone.None:
			c = ActiveColor
		case r.Zone == zone.Idle:
			c = IdleColor
		}
		gocv.Rectangle(frame, r.Box.Rect(), c, lineThickness)
	}

	if s.Marker != nil {
		gocv.Circle(frame, s.Marker.Center, s.Marker.Radius, MarkerColor, lineThickness)
		gocv.Circle(frame, s.Marker.Center, 3, MarkerColor, -1)
	}

	gocv.PutText(frame, Label(s), image.Pt(10, 25), gocv.FontHersheySimplex, labelScale, LabelColor, lineThickness)
}

// Label is the status line drawn in the top-left corner.
func Label(s Scene) string {
	if s.Paused {
		return "paused"
	}
	label := "zone: " + s.Zone.String()
	if s.Held != zone.None {
		label += "  holding: " + s.Held.String()
	}
	return label
}

// Encode JPEG-encodes frame and returns a copy of the bytes.
func Encode(frame gocv.Mat, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
