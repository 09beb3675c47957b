// Package fixture synthesizes camera frames with a marker at known positions
// for tests and the replay source.
package fixture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame size of the reference camera.
const (
	Width  = 640
	Height = 480
)

// MarkerColor is HSV (175, 199, 100), inside the default color band.
var MarkerColor = color.RGBA{R: 100, G: 22, B: 35}

// Background is a dark gray that no default band accepts.
var Background = color.RGBA{R: 40, G: 40, B: 40}

// DefaultRadius gives a marker area well above the minimum.
const DefaultRadius = 30

// Blank returns a frame filled with Background.
func Blank(width, height int) *gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(Background.B), float64(Background.G), float64(Background.R), 0),
		height, width, gocv.MatTypeCV8UC3,
	)
	return &m
}

// MarkerFrame returns a frame with a filled marker disc at center.
func MarkerFrame(width, height int, center image.Point, radius int) *gocv.Mat {
	m := Blank(width, height)
	gocv.Circle(m, center, radius, MarkerColor, -1)
	return m
}

// Sequence builds one frame per position. A nil position is a frame without
// a marker.
func Sequence(positions ...*image.Point) []*gocv.Mat {
	frames := make([]*gocv.Mat, len(positions))
	for i, p := range positions {
		if p == nil {
			frames[i] = Blank(Width, Height)
		} else {
			frames[i] = MarkerFrame(Width, Height, *p, DefaultRadius)
		}
	}
	return frames
}

// Pt is a shorthand for building Sequence arguments.
func Pt(x, y int) *image.Point {
	p := image.Pt(x, y)
	return &p
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
