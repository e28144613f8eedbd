// Package grid holds the measured geometry of the RHESSI rotating modulation
// collimators and the pixel raster the back-projection is evaluated on.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"rhessibproj/internal/models"
)

// ErrInvalidDetector is returned for detector numbers outside 1..9
var ErrInvalidDetector = errors.New("invalid detector number")

// Measured fixed grid parameters, indexed by detector-1.
var (
	// Pitch is the angular pitch of each detector's grid in arcsec
	Pitch = [models.NumDetectors]float64{
		4.52467, 7.85160, 13.5751, 23.5542, 40.7241, 70.5309, 122.164,
		211.609, 366.646,
	}

	// Orientation is the fixed grid orientation angle in radians
	Orientation = [models.NumDetectors]float64{
		3.53547, 2.75007, 3.53569, 2.74962, 3.92596, 2.35647,
		0.786083, 0.00140674, 1.57147,
	}
)

// Params is the geometry needed to model one detector's modulation
type Params struct {
	Detector int

	// GridAngle is π/2 minus the grid orientation
	GridAngle float64

	// HarmAngPitch is the angular pitch of the fundamental harmonic
	HarmAngPitch float64
}

// Lookup returns the grid geometry of a 1-based detector number
func Lookup(detector int) (Params, error) {
	if detector < 1 || detector > models.NumDetectors {
		return Params{}, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidDetector, detector, models.NumDetectors)
	}
	idx := detector - 1
	return Params{
		Detector:     detector,
		GridAngle:    math.Pi/2 - Orientation[idx],
		HarmAngPitch: Pitch[idx],
	}, nil
}

// PixelCoordinates builds the flattened pixel raster used by the
// back-projection. For linear index i the raw x coordinate is
// (i mod dim[0]) - (dim[0]-1)/2; the raw y coordinate is the same sequence
// reshaped to dim, transposed and flattened again.
//
// Both axes are scaled by pixelSize[0]. The Y pixel size is not applied here;
// it only reaches the output header.
func PixelCoordinates(dim models.ImageDim, pixelSize models.PixelSize) (x, y []float64) {
	n0, n1 := dim[0], dim[1]
	npix := n0 * n1
	half := float64(n0-1) / 2

	raw := make([]float64, npix)
	for i := range raw {
		raw[i] = float64(i%n0) - half
	}

	// raw viewed as an n0 x n1 row-major matrix, transposed to n1 x n0
	y = make([]float64, npix)
	for i := range y {
		row, col := i%n0, i/n0
		y[i] = raw[row*n1+col]
	}

	x = raw
	floats.Scale(pixelSize[0], x)
	floats.Scale(pixelSize[0], y)
	return x, y
}
