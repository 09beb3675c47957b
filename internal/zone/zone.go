// Package zone maps a marker position to one of the fixed directional
// regions around the frame center.
package zone

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Zone identifies a classified screen region.
type Zone int

const (
	None Zone = iota
	Left
	Right
	Up
	Down
	Idle
)

var zoneNames = [...]string{
	None:  "none",
	Left:  "left",
	Right: "right",
	Up:    "up",
	Down:  "down",
	Idle:  "idle",
}

func (z Zone) String() string {
	if z < None || int(z) >= len(zoneNames) {
		return fmt.Sprintf("zone(%d)", int(z))
	}
	return zoneNames[z]
}

// IsDirectional reports whether z maps to a key direction.
func (z Zone) IsDirectional() bool {
	return z == Left || z == Right || z == Up || z == Down
}

// MarshalText implements encoding.TextMarshaler.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (z *Zone) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}

// Parse converts a zone name back to a Zone.
func Parse(name string) (Zone, error) {
	for i, n := range zoneNames {
		if strings.EqualFold(n, name) {
			return Zone(i), nil
		}
	}
	return None, fmt.Errorf("unknown zone %q", name)
}

// Box is an axis-aligned rectangle with inclusive edges.
type Box struct {
	Min image.Point
	Max image.Point
}

// Contains reports whether p lies inside the box or on its edge.
func (b Box) Contains(p image.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Rect returns the box as an image.Rectangle for drawing.
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{Min: b.Min, Max: b.Max}
}

func boxAround(c image.Point, halfW, halfH int) Box {
	return Box{
		Min: image.Pt(c.X-halfW, c.Y-halfH),
		Max: image.Pt(c.X+halfW, c.Y+halfH),
	}
}

// Region pairs a zone with its bounds for one frame size.
type Region struct {
	Zone Zone
	Box  Box
}

// Layout holds the offsets and sizes that place the zones relative to the
// frame center.
type Layout struct {
	HorizontalOffset int
	VerticalOffset   int
	HalfWidth        int
	HalfHeight       int
	IdleHalfSize     int
	IdleEnabled      bool
}

// DefaultLayout returns the layout used with a 640x480 camera.
func DefaultLayout() Layout {
	return Layout{
		HorizontalOffset: 150,
		VerticalOffset:   125,
		HalfWidth:        50,
		HalfHeight:       100,
		IdleHalfSize:     100,
		IdleEnabled:      true,
	}
}

// Validate rejects negative sizes and offsets.
func (l Layout) Validate() error {
	if l.HorizontalOffset < 0 || l.VerticalOffset < 0 {
		return errors.New("zone offsets must not be negative")
	}
	if l.HalfWidth <= 0 || l.HalfHeight <= 0 {
		return errors.New("zone half sizes must be positive")
	}
	if l.IdleEnabled && l.IdleHalfSize <= 0 {
		return errors.New("idle half size must be positive when the idle zone is enabled")
	}
	return nil
}

// Center returns the integer frame center used to anchor the layout.
func Center(width, height int) image.Point {
	return image.Pt(width/2, height/2)
}

// Regions returns the zone rectangles for the given center in
// classification order.
func (l Layout) Regions(center image.Point) []Region {
	regions := []Region{
		{Left, boxAround(image.Pt(center.X-l.HorizontalOffset, center.Y), l.HalfWidth, l.HalfHeight)},
		{Right, boxAround(image.Pt(center.X+l.HorizontalOffset, center.Y), l.HalfWidth, l.HalfHeight)},
		{Up, boxAround(image.Pt(center.X, center.Y-l.VerticalOffset), l.HalfWidth, l.HalfHeight)},
		{Down, boxAround(image.Pt(center.X, center.Y+l.VerticalOffset), l.HalfWidth, l.HalfHeight)},
	}
	if l.IdleEnabled {
		regions = append(regions, Region{Idle, boxAround(center, l.IdleHalfSize, l.IdleHalfSize)})
	}
	return regions
}

// Classify returns the first zone whose box contains p, checking Left,
// Right, Up, Down and then Idle. Points outside every box are None.
func (l Layout) Classify(p, center image.Point) Zone {
	for _, r := range l.Regions(center) {
		if r.Box.Contains(p) {
			return r.Zone
		}
	}
	return None
}
