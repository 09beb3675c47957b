package detector

import (
	"errors"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Sampling tolerances applied around the median color of a clicked patch.
const (
	SampleRadius = 3 // 7x7 patch
	HueDelta     = 10
	SatDelta     = 50
	ValDelta     = 50
)

// ErrEmptyPatch is returned when the sample point lies outside the frame.
var ErrEmptyPatch = errors.New("sample patch is empty")

// SampleBand suggests a ColorBand from the 7x7 patch around pt in a BGR
// frame. The patch is clamped to the frame bounds. It also returns the
// median HSV of the patch.
func SampleBand(frame gocv.Mat, pt image.Point) (ColorBand, HSV, error) {
	if frame.Empty() {
		return ColorBand{}, HSV{}, ErrEmptyFrame
	}

	rect := image.Rect(pt.X-SampleRadius, pt.Y-SampleRadius, pt.X+SampleRadius+1, pt.Y+SampleRadius+1).
		Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return ColorBand{}, HSV{}, ErrEmptyPatch
	}

	patch := frame.Region(rect)
	defer patch.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(patch, &hsv, gocv.ColorBGRToHSV)

	data := hsv.ToBytes()
	samples := make([]HSV, 0, len(data)/3)
	for i := 0; i+2 < len(data); i += 3 {
		samples = append(samples, HSV{H: data[i], S: data[i+1], V: data[i+2]})
	}

	band, median := SuggestBand(samples)
	return band, median, nil
}

// SuggestBand computes the per-channel median of samples and widens it by
// the sampling tolerances, clamped to the OpenCV HSV domains.
func SuggestBand(samples []HSV) (ColorBand, HSV) {
	if len(samples) == 0 {
		return ColorBand{}, HSV{}
	}

	hs := make([]int, len(samples))
	ss := make([]int, len(samples))
	vs := make([]int, len(samples))
	for i, p := range samples {
		hs[i], ss[i], vs[i] = int(p.H), int(p.S), int(p.V)
	}

	h, s, v := median(hs), median(ss), median(vs)
	band := ColorBand{
		Lower: HSV{
			H: uint8(clamp(h-HueDelta, 0, MaxHue)),
			S: uint8(clamp(s-SatDelta, 0, MaxSaturation)),
			V: uint8(clamp(v-ValDelta, 0, MaxValue)),
		},
		Upper: HSV{
			H: uint8(clamp(h+HueDelta, 0, MaxHue)),
			S: uint8(clamp(s+SatDelta, 0, MaxSaturation)),
			V: uint8(clamp(v+ValDelta, 0, MaxValue)),
		},
	}
	return band, HSV{H: uint8(h), S: uint8(s), V: uint8(v)}
}

// median truncates the mean of the two middle values for even lengths.
func median(vals []int) int {
	sort.Ints(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
