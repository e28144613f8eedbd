package eventlist

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"rhessibproj/internal/models"
)

// Epoch is the zero of RHESSI absolute times (seconds since 1979-01-01 UTC)
var Epoch = time.Date(1979, time.January, 1, 0, 0, 0, 0, time.UTC)

// FITS reads a calibrated event list FITS file. The file is parsed once on
// Open and kept until Close; decoded detectors are cached.
type FITS struct {
	mu        sync.Mutex
	file      *fitsio.File
	info      *models.GlobalInfo
	detectors map[int]*models.DetectorData
}

// Open parses a calibrated event list from r
func Open(r io.Reader) (*FITS, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open event list: %w", err)
	}
	return &FITS{
		file:      f,
		detectors: make(map[int]*models.DetectorData),
	}, nil
}

// Close releases the underlying FITS file
func (f *FITS) Close() error {
	return f.file.Close()
}

// GlobalInfo implements Reader. It reads the detector mask from the control
// parameters and the offset, time range and efficiencies from the info
// parameters.
func (f *FITS) GlobalInfo() (models.GlobalInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.info != nil {
		return *f.info, nil
	}

	var info models.GlobalInfo

	control, err := f.table(ControlHDU)
	if err != nil {
		return info, err
	}
	cols, err := readColumns(control, 1, FieldDetIndexMask)
	if err != nil {
		return info, errors.Wrapf(err, "control parameters (HDU %d)", ControlHDU)
	}
	mask := cols[FieldDetIndexMask]
	if len(mask) < models.NumDetectors {
		return info, errors.Wrapf(ErrMalformedField, "%s has %d entries, expected %d",
			FieldDetIndexMask, len(mask), models.NumDetectors)
	}
	info.DetIndexMask = MaskFrom(mask)

	params, err := f.table(InfoHDU)
	if err != nil {
		return info, err
	}
	cols, err = readColumns(params, 1, FieldXYOffset, FieldAbsoluteTimeRange)
	if err != nil {
		return info, errors.Wrapf(err, "info parameters (HDU %d)", InfoHDU)
	}

	xy := cols[FieldXYOffset]
	if len(xy) != 2 {
		return info, errors.Wrapf(ErrMalformedField, "%s has %d entries, expected 2", FieldXYOffset, len(xy))
	}
	info.XYOffset = [2]float64{xy[0], xy[1]}

	tr := cols[FieldAbsoluteTimeRange]
	if len(tr) != 2 {
		return info, errors.Wrapf(ErrMalformedField, "%s has %d entries, expected 2", FieldAbsoluteTimeRange, len(tr))
	}
	info.TimeRange = models.TimeRange{Start: FromAbsoluteTime(tr[0]), End: FromAbsoluteTime(tr[1])}

	// Efficiencies are informational; older files do not carry them
	if params.Index(FieldDetEfficiency) >= 0 {
		cols, err = readColumns(params, 1, FieldDetEfficiency)
		if err != nil {
			return info, errors.Wrapf(err, "info parameters (HDU %d)", InfoHDU)
		}
		info.DetectorEfficiency = cols[FieldDetEfficiency]
	}

	f.info = &info
	return info, nil
}

// Detector implements Reader
func (f *FITS) Detector(detector int) (*models.DetectorData, error) {
	if detector < 1 || detector > models.NumDetectors {
		return nil, errors.Wrapf(ErrNoDetector, "detector %d", detector)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if d, ok := f.detectors[detector]; ok {
		return d, nil
	}

	hdu := detector + DetectorHDUOffset
	tbl, err := f.table(hdu)
	if err != nil {
		return nil, errors.Wrapf(err, "detector %d", detector)
	}

	cols, err := readColumns(tbl, tbl.NumRows(),
		FieldPhaseMapCtr, FieldRollAngle, FieldModAmp, FieldGridTran, FieldCount)
	if err != nil {
		return nil, errors.Wrapf(err, "detector %d (HDU %d)", detector, hdu)
	}

	d := &models.DetectorData{
		PhaseMapCtr: cols[FieldPhaseMapCtr],
		RollAngle:   cols[FieldRollAngle],
		ModAmp:      cols[FieldModAmp],
		GridTran:    cols[FieldGridTran],
		Count:       cols[FieldCount],
	}
	if err := Validate(detector, d); err != nil {
		return nil, err
	}

	f.detectors[detector] = d
	return d, nil
}

// FromAbsoluteTime converts RHESSI absolute seconds to a UTC time
func FromAbsoluteTime(seconds float64) time.Time {
	return Epoch.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}

// ToAbsoluteTime converts a time to RHESSI absolute seconds
func ToAbsoluteTime(t time.Time) float64 {
	return t.Sub(Epoch).Seconds()
}

func (f *FITS) table(index int) (*fitsio.Table, error) {
	hdus := f.file.HDUs()
	if index >= len(hdus) {
		return nil, errors.Wrapf(ErrMissingHDU, "HDU %d (file has %d)", index, len(hdus))
	}
	tbl, ok := hdus[index].(*fitsio.Table)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedField, "HDU %d is not a table", index)
	}
	return tbl, nil
}

// readColumns reads up to maxRows rows of the named numeric columns and
// flattens each into a float64 slice. Vector cells are expanded in order.
func readColumns(tbl *fitsio.Table, maxRows int64, names ...string) (map[string][]float64, error) {
	for _, name := range names {
		if tbl.Index(name) < 0 {
			return nil, errors.Wrapf(ErrMissingField, "%s", name)
		}
	}

	nrows := tbl.NumRows()
	if maxRows < nrows {
		nrows = maxRows
	}

	out := make(map[string][]float64, len(names))
	for _, name := range names {
		out[name] = []float64{}
	}
	if nrows == 0 {
		return out, nil
	}

	rows, err := tbl.Read(0, nrows)
	if err != nil {
		return nil, fmt.Errorf("failed to read table rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		for _, name := range names {
			vals, err := appendCell(out[name], row[name])
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedField, "%s: %v", name, err)
			}
			out[name] = vals
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table rows: %w", err)
	}

	return out, nil
}

// appendCell appends the numeric content of one table cell. Scalar and vector
// cells of the usual column types are converted directly; anything else goes
// through reflection.
func appendCell(dst []float64, cell interface{}) ([]float64, error) {
	switch v := cell.(type) {
	case float64:
		return append(dst, v), nil
	case []float64:
		return append(dst, v...), nil
	case []float32:
		return append(dst, Float64s(v)...), nil
	case []int16:
		return append(dst, Float64s(v)...), nil
	case []int32:
		return append(dst, Float64s(v)...), nil
	case []int64:
		return append(dst, Float64s(v)...), nil
	case []uint8:
		return append(dst, Float64s(v)...), nil
	}
	return appendNumeric(dst, reflect.ValueOf(cell))
}

// appendNumeric appends the numeric content of v, recursing into arrays and slices
func appendNumeric(dst []float64, v reflect.Value) ([]float64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return append(dst, v.Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(dst, float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(dst, float64(v.Uint())), nil
	case reflect.Bool:
		if v.Bool() {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case reflect.Array, reflect.Slice:
		var err error
		for i := 0; i < v.Len(); i++ {
			dst, err = appendNumeric(dst, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return dst, nil
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil, fmt.Errorf("nil value")
		}
		return appendNumeric(dst, v.Elem())
	case reflect.Invalid:
		return nil, fmt.Errorf("no value")
	}
	return nil, fmt.Errorf("unsupported type %s", v.Type())
}
