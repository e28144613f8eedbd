package models

import "fmt"

// PixelSize is the angular size of a pixel in arcsec, X then Y
type PixelSize [2]float64

// ImageDim is the size of the pixel grid, image_dim[0] then image_dim[1]
type ImageDim [2]int

var (
	// DefaultPixelSize is one arcsec per pixel on both axes
	DefaultPixelSize = PixelSize{1.0, 1.0}

	// DefaultImageDim is a 64x64 grid
	DefaultImageDim = ImageDim{64, 64}
)

// NumPixels returns the number of pixels in the flattened grid
func (d ImageDim) NumPixels() int {
	return d[0] * d[1]
}

// Validate reports non-positive dimensions
func (d ImageDim) Validate() error {
	if d[0] <= 0 || d[1] <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", d[0], d[1])
	}
	return nil
}

// Validate reports non-positive pixel sizes
func (p PixelSize) Validate() error {
	if !(p[0] > 0) || !(p[1] > 0) {
		return fmt.Errorf("pixel size must be positive, got %gx%g", p[0], p[1])
	}
	return nil
}
