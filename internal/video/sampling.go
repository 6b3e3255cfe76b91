package video

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Stride returns how many source frames make up one sampled frame:
// max(1, floor(fps / target)). Unknown rates sample every frame.
func Stride(fps, target float64) int {
	if fps <= 0 || target <= 0 {
		return 1
	}
	n := int(math.Floor(fps / target))
	if n < 1 {
		return 1
	}
	return n
}

// Downscale shrinks img by an integer factor and returns the copy together
// with the horizontal and vertical ratios that map its coordinates back onto
// img. The ratios differ when a side is not a multiple of factor.
func Downscale(img image.Image, factor int) (image.Image, float64, float64) {
	b := img.Bounds()
	if factor <= 1 {
		return img, 1, 1
	}
	w, h := b.Dx()/factor, b.Dy()/factor
	if w < 1 || h < 1 {
		return img, 1, 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, float64(b.Dx()) / float64(w), float64(b.Dy()) / float64(h)
}
