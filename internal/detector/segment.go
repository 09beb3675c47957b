package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// OpeningKernelSize is the diameter of the elliptical opening kernel.
const OpeningKernelSize = 5

// Segment converts a BGR frame to HSV, keeps the pixels inside band and
// erases isolated noise with a morphological opening.
//
// The returned mask has the frame's dimensions and must be closed by the
// caller.
func Segment(frame gocv.Mat, band ColorBand) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	raw := gocv.NewMat()
	defer raw.Close()
	lo, hi := band.Scalars()
	gocv.InRangeWithScalar(hsv, lo, hi, &raw)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(OpeningKernelSize, OpeningKernelSize))
	defer kernel.Close()

	mask := gocv.NewMat()
	gocv.MorphologyEx(raw, &mask, gocv.MorphOpen, kernel)
	return mask
}
