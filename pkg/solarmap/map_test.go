package solarmap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testHeader() Header {
	return NewHeader(
		fitsio.Card{Name: "DATE-OBS", Value: "2002-02-20 11:08:00"},
		fitsio.Card{Name: "CDELT1", Value: 4.0},
		fitsio.Card{Name: "NAXIS1", Value: 3},
		fitsio.Card{Name: "CRVAL1", Value: 912.5},
		fitsio.Card{Name: "CRVAL2", Value: 261.25},
		fitsio.Card{Name: "CTYPE1", Value: "HPLN-TAN"},
		fitsio.Card{Name: "HGLT_OBS", Value: 0},
	)
}

func TestHeaderAccessors(t *testing.T) {
	h := testHeader()

	assert.Equal(t, 7, h.Len())
	assert.Equal(t, []string{"DATE-OBS", "CDELT1", "NAXIS1", "CRVAL1", "CRVAL2", "CTYPE1", "HGLT_OBS"}, h.Keys())

	v, ok := h.Float("CRVAL1")
	assert.True(t, ok)
	assert.Equal(t, 912.5, v)

	v, ok = h.Float("NAXIS1")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	s, ok := h.String("CTYPE1")
	assert.True(t, ok)
	assert.Equal(t, "HPLN-TAN", s)

	_, ok = h.Float("CTYPE1")
	assert.False(t, ok)
	_, ok = h.Get("MISSING")
	assert.False(t, ok)
}

func TestHeaderReplacesRepeatedKeys(t *testing.T) {
	h := NewHeader(
		fitsio.Card{Name: "A", Value: 1},
		fitsio.Card{Name: "B", Value: 2},
		fitsio.Card{Name: "A", Value: 3},
	)
	assert.Equal(t, []string{"A", "B"}, h.Keys())
	v, _ := h.Get("A")
	assert.Equal(t, 3, v)
}

func TestHeaderCardsIsACopy(t *testing.T) {
	h := testHeader()
	cards := h.Cards()
	cards[0].Value = "changed"

	s, _ := h.String("DATE-OBS")
	assert.Equal(t, "2002-02-20 11:08:00", s)
}

func TestMapCopiesData(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	m := New(data, testHeader())

	data.Set(0, 0, 100)
	assert.Equal(t, 1.0, m.At(0, 0))

	out := m.Data()
	out.Set(1, 1, 100)
	assert.Equal(t, 4.0, m.At(1, 1))
}

func TestFITSRoundTrip(t *testing.T) {
	// Non-square so that row/column order is checked
	data := mat.NewDense(3, 5, []float64{
		0, 1, 2, 3, 4,
		5, 6, 7, 8, 9,
		10, 11, 12, 13, 14.5,
	})
	m := New(data, testHeader())

	var buf bytes.Buffer
	require.NoError(t, m.WriteFITS(&buf))

	got, err := ReadFITS(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	r, c := got.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 5, c)
	assert.True(t, mat.Equal(data, got.Data()))

	h := got.Header()
	for _, key := range []string{"CDELT1", "CRVAL1", "CRVAL2", "HGLT_OBS"} {
		want, _ := m.Header().Float(key)
		v, ok := h.Float(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}
	date, _ := h.String("DATE-OBS")
	assert.Equal(t, "2002-02-20 11:08:00", date)
}

func TestReadFITSSmallMap(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	var buf bytes.Buffer
	require.NoError(t, New(data, NewHeader()).WriteFITS(&buf))

	var got *Map
	require.NotPanics(t, func() {
		var err error
		got, err = ReadFITS(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
	})
	assert.True(t, mat.Equal(data, got.Data()))
}

// failingWriter rejects every write
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteFITSReportsWriteErrors(t *testing.T) {
	m := New(mat.NewDense(2, 2, nil), testHeader())
	assert.Error(t, m.WriteFITS(failingWriter{}))
}
