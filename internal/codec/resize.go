package codec

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Resize scales img to exactly w x h using Lanczos resampling. The source is
// returned unchanged when it already has those dimensions.
func Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Fit returns the dimensions of a w x h image scaled down so that its longer
// side is at most maxDimension, preserving the aspect ratio. Images already
// inside the bound, or a non-positive bound, are returned unchanged.
func Fit(w, h, maxDimension int) (int, int) {
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return w, h
	}
	if w >= h {
		return maxDimension, atLeastOne(float64(h) * float64(maxDimension) / float64(w))
	}
	return atLeastOne(float64(w) * float64(maxDimension) / float64(h)), maxDimension
}

// Scale returns w x h multiplied by s, rounded, never below one pixel.
func Scale(w, h int, s float64) (int, int) {
	return atLeastOne(float64(w) * s), atLeastOne(float64(h) * s)
}

func atLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
