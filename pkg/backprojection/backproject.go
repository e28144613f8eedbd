// Package backprojection reconstructs RHESSI hard X-ray images by
// back-projecting the modulated count rates of the rotating grid collimators
// onto a pixel grid.
package backprojection

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"rhessibproj/internal/models"
	"rhessibproj/pkg/eventlist"
	"rhessibproj/pkg/grid"
)

var (
	// ErrInvalidDetector is returned for detector numbers outside 1..9
	ErrInvalidDetector = grid.ErrInvalidDetector

	// ErrInvalidDimensions is returned for non-positive image dimensions or pixel sizes
	ErrInvalidDimensions = errors.New("invalid image geometry")
)

// DefaultDetector is the detector imaged when a single-detector map is
// requested without naming one
const DefaultDetector = 8

// maxBlockElements bounds the size of the probability matrix held in memory
// at once. Pixels are processed in row blocks of at most this many elements.
const maxBlockElements = 1 << 22

// BackprojectDetector reads one detector from the event list and
// back-projects it. Inputs are validated before anything is read.
func BackprojectDetector(list eventlist.Reader, detector int, pixelSize models.PixelSize, dim models.ImageDim) (*mat.Dense, error) {
	if err := validate(detector, pixelSize, dim); err != nil {
		return nil, err
	}

	data, err := list.Detector(detector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read detector %d", detector)
	}

	return Backproject(data, detector, pixelSize, dim)
}

// Backproject computes the back-projection image of a single detector.
//
// For every pixel p and phase sample k the probability of transmission
// through the grid pair is
//
//	phase[p,k] = (2π/pitch)(x[p]cos(roll[k]-θ) - y[p]sin(roll[k]-θ)) + phase_map_ctr[k]
//	prob[p,k]  = modamp[k]·gridtran[k]·cos(phase[p,k]) + gridtran[k]
//
// where θ = π/2 - grid orientation. The image is the matrix-vector product
// prob·count reshaped to dim (row-major). No normalisation is applied, so the
// result scales with the total counts.
//
// Parameters:
//   - data: modulation arrays of the detector, all of the same length
//   - detector: 1-based detector number
//   - pixelSize: arcsec per pixel; only pixelSize[0] enters the coordinates
//   - dim: image dimensions
//
// Returns:
//   - a dim[0] x dim[1] image
func Backproject(data *models.DetectorData, detector int, pixelSize models.PixelSize, dim models.ImageDim) (*mat.Dense, error) {
	if err := validate(detector, pixelSize, dim); err != nil {
		return nil, err
	}
	if err := eventlist.Validate(detector, data); err != nil {
		return nil, err
	}

	geom, err := grid.Lookup(detector)
	if err != nil {
		return nil, err
	}

	npix := dim.NumPixels()
	nsamp := data.NumSamples()
	image := make([]float64, npix)

	// Nothing was counted: the inner product is zero everywhere
	if nsamp == 0 {
		return mat.NewDense(dim[0], dim[1], image), nil
	}

	x, y := grid.PixelCoordinates(dim, pixelSize)

	// Per-sample terms shared by all pixels
	wavenumber := 2 * math.Pi / geom.HarmAngPitch
	cosRoll := make([]float64, nsamp)
	sinRoll := make([]float64, nsamp)
	gridMod := make([]float64, nsamp)
	for k := 0; k < nsamp; k++ {
		angle := data.RollAngle[k] - geom.GridAngle
		cosRoll[k] = math.Cos(angle)
		sinRoll[k] = math.Sin(angle)
		gridMod[k] = data.ModAmp[k] * data.GridTran[k]
	}

	count := mat.NewVecDense(nsamp, data.Count)

	blockRows := maxBlockElements / nsamp
	if blockRows < 1 {
		blockRows = 1
	}
	if blockRows > npix {
		blockRows = npix
	}
	probability := mat.NewDense(blockRows, nsamp, nil)

	for start := 0; start < npix; start += blockRows {
		end := start + blockRows
		if end > npix {
			end = npix
		}
		rows := end - start

		block := probability.Slice(0, rows, 0, nsamp).(*mat.Dense)
		for r := 0; r < rows; r++ {
			p := start + r
			row := block.RawRowView(r)
			for k := range row {
				phase := wavenumber*(x[p]*cosRoll[k]-y[p]*sinRoll[k]) + data.PhaseMapCtr[k]
				row[k] = gridMod[k]*math.Cos(phase) + data.GridTran[k]
			}
		}

		// Writes straight into the image backing slice
		dst := mat.NewVecDense(rows, image[start:end])
		dst.MulVec(block, count)
	}

	return mat.NewDense(dim[0], dim[1], image), nil
}

func validate(detector int, pixelSize models.PixelSize, dim models.ImageDim) error {
	if _, err := grid.Lookup(detector); err != nil {
		return err
	}
	if err := dim.Validate(); err != nil {
		return errors.Wrap(ErrInvalidDimensions, err.Error())
	}
	if err := pixelSize.Validate(); err != nil {
		return errors.Wrap(ErrInvalidDimensions, err.Error())
	}
	return nil
}
