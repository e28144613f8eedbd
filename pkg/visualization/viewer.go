// Package visualization renders back-projection maps as images for quick
// inspection: a bare grayscale raster and an annotated heat map with
// helioprojective axes.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"rhessibproj/pkg/solarmap"
)

// Viewer renders a map
type Viewer struct {
	m *solarmap.Map

	// world coordinates of the reference pixel along columns and rows
	x axis
	y axis
}

// axis maps 0-based pixel indices to arcsec using the FITS WCS keywords
type axis struct {
	crval, cdelt, crpix float64
}

func (a axis) at(i int) float64 {
	return a.crval + (float64(i+1)-a.crpix)*a.cdelt
}

// NewViewer creates a viewer for m. Missing WCS keywords default to a unit
// pixel grid centred on zero.
func NewViewer(m *solarmap.Map) *Viewer {
	rows, cols := m.Dims()
	h := m.Header()
	return &Viewer{
		m: m,
		x: axisFromHeader(h, "1", cols),
		y: axisFromHeader(h, "2", rows),
	}
}

func axisFromHeader(h solarmap.Header, n string, size int) axis {
	a := axis{cdelt: 1, crpix: float64(size+1) / 2}
	if v, ok := h.Float("CRVAL" + n); ok {
		a.crval = v
	}
	if v, ok := h.Float("CDELT" + n); ok {
		a.cdelt = v
	}
	if v, ok := h.Float("CRPIX" + n); ok {
		a.crpix = v
	}
	return a
}

// Image returns the map as a 16-bit grayscale image scaled between its
// minimum and maximum. Row 0 of the map is the top row of the image.
func (v *Viewer) Image() image.Image {
	rows, cols := v.m.Dims()
	data := v.m.Data().RawMatrix()

	lo, hi := dataRange(v.m)
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			value := (data.Data[r*data.Stride+c] - lo) * scale
			img.SetGray16(c, r, color.Gray16{Y: uint16(math.Round(math.Max(0, math.Min(65535, value))))})
		}
	}
	return img
}

// SaveImage writes the grayscale image as PNG
func (v *Viewer) SaveImage(w io.Writer) error {
	return png.Encode(w, v.Image())
}

// Plot builds an annotated heat map of the map with axes in arcsec
func (v *Viewer) Plot(title string) (*plot.Plot, error) {
	rows, cols := v.m.Dims()
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("heat map needs at least 2x2 pixels, got %dx%d", rows, cols)
	}

	hm := plotter.NewHeatMap(gridXYZ{v}, palette.Heat(32, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Text = "Solar X (arcsec)"
	p.Y.Label.Text = "Solar Y (arcsec)"
	p.Add(hm)
	return p, nil
}

// WriteQuicklook renders the heat map at wPx x hPx pixels and writes it as PNG
func (v *Viewer) WriteQuicklook(w io.Writer, title string, wPx, hPx int) error {
	p, err := v.Plot(title)
	if err != nil {
		return err
	}

	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func dataRange(m *solarmap.Map) (lo, hi float64) {
	values := m.Data().RawMatrix().Data
	return floats.Min(values), floats.Max(values)
}

// gridXYZ adapts a map to plotter.GridXYZ. Plot rows grow upwards, so map
// row 0 is drawn at the bottom.
type gridXYZ struct {
	v *Viewer
}

func (g gridXYZ) Dims() (c, r int) {
	rows, cols := g.v.m.Dims()
	return cols, rows
}

func (g gridXYZ) Z(c, r int) float64 {
	return g.v.m.At(r, c)
}

func (g gridXYZ) X(c int) float64 {
	return g.v.x.at(c)
}

func (g gridXYZ) Y(r int) float64 {
	return g.v.y.at(r)
}
