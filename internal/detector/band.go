package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// OpenCV HSV channel domains for 8-bit images.
const (
	MaxHue        = 179
	MaxSaturation = 255
	MaxValue      = 255
)

// HSV is a single hue/saturation/value triple in OpenCV's 8-bit ranges.
type HSV struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// ColorBand is the inclusive HSV range that isolates the marker.
type ColorBand struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// DefaultBand returns the band tuned for the reference marker.
func DefaultBand() ColorBand {
	return ColorBand{
		Lower: HSV{H: 168, S: 151, V: 48},
		Upper: HSV{H: 179, S: 251, V: 148},
	}
}

// BandFromSlices builds a ColorBand from two [h, s, v] slices.
func BandFromSlices(lower, upper []int) (ColorBand, error) {
	if len(lower) != 3 || len(upper) != 3 {
		return ColorBand{}, fmt.Errorf("band bounds need 3 channels, got %d and %d", len(lower), len(upper))
	}

	var vals [6]uint8
	for i, v := range append(append([]int{}, lower...), upper...) {
		if v < 0 || v > 255 {
			return ColorBand{}, fmt.Errorf("band channel value %d out of range", v)
		}
		vals[i] = uint8(v)
	}

	return ColorBand{
		Lower: HSV{H: vals[0], S: vals[1], V: vals[2]},
		Upper: HSV{H: vals[3], S: vals[4], V: vals[5]},
	}, nil
}

// Validate checks that every lower bound is at most its upper bound and that
// hue stays inside OpenCV's [0, 179] domain.
func (b ColorBand) Validate() error {
	if b.Lower.H > MaxHue || b.Upper.H > MaxHue {
		return fmt.Errorf("hue bound exceeds %d: lower=%d upper=%d", MaxHue, b.Lower.H, b.Upper.H)
	}
	if b.Lower.H > b.Upper.H {
		return fmt.Errorf("inverted hue bounds: %d > %d", b.Lower.H, b.Upper.H)
	}
	if b.Lower.S > b.Upper.S {
		return fmt.Errorf("inverted saturation bounds: %d > %d", b.Lower.S, b.Upper.S)
	}
	if b.Lower.V > b.Upper.V {
		return fmt.Errorf("inverted value bounds: %d > %d", b.Lower.V, b.Upper.V)
	}
	return nil
}

// Contains reports whether the given pixel lies inside the band on all
// three channels. Bounds are inclusive.
func (b ColorBand) Contains(p HSV) bool {
	return p.H >= b.Lower.H && p.H <= b.Upper.H &&
		p.S >= b.Lower.S && p.S <= b.Upper.S &&
		p.V >= b.Lower.V && p.V <= b.Upper.V
}

// Scalars returns the band as gocv scalars for InRangeWithScalar.
func (b ColorBand) Scalars() (gocv.Scalar, gocv.Scalar) {
	lo := gocv.NewScalar(float64(b.Lower.H), float64(b.Lower.S), float64(b.Lower.V), 0)
	hi := gocv.NewScalar(float64(b.Upper.H), float64(b.Upper.S), float64(b.Upper.V), 0)
	return lo, hi
}

func (b ColorBand) String() string {
	return fmt.Sprintf("[%d %d %d]-[%d %d %d]",
		b.Lower.H, b.Lower.S, b.Lower.V, b.Upper.H, b.Upper.S, b.Upper.V)
}
