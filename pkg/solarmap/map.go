// Package solarmap holds reconstructed images together with their
// coordinate header and writes them as FITS.
package solarmap

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// Map is an image plus its header. Neither is validated here.
type Map struct {
	data   *mat.Dense
	header Header
}

// New wraps a copy of data with header
func New(data mat.Matrix, header Header) *Map {
	return &Map{
		data:   mat.DenseCopyOf(data),
		header: header,
	}
}

// Data returns a copy of the pixel array
func (m *Map) Data() *mat.Dense {
	return mat.DenseCopyOf(m.data)
}

// At returns the pixel at row i, column j
func (m *Map) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Dims returns the rows and columns of the pixel array
func (m *Map) Dims() (r, c int) {
	return m.data.Dims()
}

// Header returns the map header
func (m *Map) Header() Header {
	return m.header
}

// structural keywords are derived from the data when writing FITS
var structural = map[string]bool{
	"SIMPLE": true,
	"BITPIX": true,
	"NAXIS":  true,
	"NAXIS1": true,
	"NAXIS2": true,
	"EXTEND": true,
	"END":    true,
}

// WriteFITS writes the map as a primary image HDU with BITPIX -64.
// Rows are the slow axis, so NAXIS1 is the number of columns.
func (m *Map) WriteFITS(w io.Writer) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS stream: %w", err)
	}

	if err := m.writeImage(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close FITS stream: %w", err)
	}
	return nil
}

func (m *Map) writeImage(f *fitsio.File) error {
	rows, cols := m.data.Dims()
	img := fitsio.NewImage(-64, []int{cols, rows})
	defer img.Close()

	cards := make([]fitsio.Card, 0, m.header.Len())
	for _, c := range m.header.cards {
		if !structural[c.Name] {
			cards = append(cards, c)
		}
	}
	if err := img.Header().Append(cards...); err != nil {
		return fmt.Errorf("failed to build FITS header: %w", err)
	}

	raw := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		raw = append(raw, m.data.RawRowView(i)...)
	}
	if err := img.Write(raw); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}

	if err := f.Write(img); err != nil {
		return fmt.Errorf("failed to write image HDU: %w", err)
	}
	return nil
}

// ReadFITS reads a map written by WriteFITS. NAXIS1/NAXIS2 in the returned
// header are the values stored in the file.
func ReadFITS(r io.Reader) (*Map, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS stream: %w", err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}

	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("expected a 2D image, got %d axes", len(axes))
	}

	cols, rows := axes[0], axes[1]
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid image axes %dx%d", rows, cols)
	}

	// fitsio fills the slice in place and needs it sized up front
	raw := make([]float64, rows*cols)
	if err := img.Read(&raw); err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(raw) != rows*cols {
		return nil, fmt.Errorf("image has %d pixels, header says %dx%d", len(raw), rows, cols)
	}

	var cards []fitsio.Card
	for _, key := range hdr.Keys() {
		switch key {
		case "SIMPLE", "BITPIX", "NAXIS", "EXTEND", "END":
			continue
		}
		if c := hdr.Get(key); c != nil {
			cards = append(cards, *c)
		}
	}

	return &Map{
		data:   mat.NewDense(rows, cols, raw),
		header: NewHeader(cards...),
	}, nil
}
