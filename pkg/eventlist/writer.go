package eventlist

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"rhessibproj/internal/models"
)

// WriteFITS encodes an in-memory event list using the calibrated event list
// HDU layout. Every detector gets its own table, empty when m holds no data
// for it, so that detector d always sits at HDU d+DetectorHDUOffset.
func WriteFITS(w io.Writer, m *Memory) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS stream: %w", err)
	}

	if err := writeEventList(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close FITS stream: %w", err)
	}
	return nil
}

func writeEventList(f *fitsio.File, m *Memory) error {
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return fmt.Errorf("failed to create primary HDU: %w", err)
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("failed to write primary HDU: %w", err)
	}

	// Control parameters
	var mask [models.NumDetectors]uint8
	for i, on := range m.Info.DetIndexMask {
		if on {
			mask[i] = 1
		}
	}
	err = writeTable(f, "control_parameters", []fitsio.Column{
		{Name: FieldDetIndexMask, Format: fmt.Sprintf("%dB", models.NumDetectors)},
	}, [][]interface{}{{&mask}})
	if err != nil {
		return err
	}

	// Info parameters
	var eff [models.NumDetectors]float64
	copy(eff[:], m.Info.DetectorEfficiency)
	xy := m.Info.XYOffset
	tr := [2]float64{ToAbsoluteTime(m.Info.TimeRange.Start), ToAbsoluteTime(m.Info.TimeRange.End)}
	err = writeTable(f, "info_parameters", []fitsio.Column{
		{Name: FieldXYOffset, Format: "2D", Unit: "arcsec"},
		{Name: FieldAbsoluteTimeRange, Format: "2D", Unit: "s"},
		{Name: FieldDetEfficiency, Format: fmt.Sprintf("%dD", models.NumDetectors)},
	}, [][]interface{}{{&xy, &tr, &eff}})
	if err != nil {
		return err
	}

	// One table per detector
	cols := []fitsio.Column{
		{Name: FieldPhaseMapCtr, Format: "D", Unit: "rad"},
		{Name: FieldRollAngle, Format: "D", Unit: "rad"},
		{Name: FieldModAmp, Format: "D"},
		{Name: FieldGridTran, Format: "D"},
		{Name: FieldCount, Format: "D"},
	}
	for detector := 1; detector <= models.NumDetectors; detector++ {
		var rows [][]interface{}
		if d, ok := m.Detectors[detector]; ok {
			if err := Validate(detector, d); err != nil {
				return err
			}
			rows = make([][]interface{}, d.NumSamples())
			for k := range rows {
				rows[k] = []interface{}{&d.PhaseMapCtr[k], &d.RollAngle[k], &d.ModAmp[k], &d.GridTran[k], &d.Count[k]}
			}
		}
		if err := writeTable(f, fmt.Sprintf("detector_%d", detector), cols, rows); err != nil {
			return err
		}
	}

	return nil
}

func writeTable(f *fitsio.File, name string, cols []fitsio.Column, rows [][]interface{}) error {
	tbl, err := fitsio.NewTable(name, cols, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	defer tbl.Close()

	for i, row := range rows {
		if err := tbl.Write(row...); err != nil {
			return fmt.Errorf("failed to write row %d of table %s: %w", i, name, err)
		}
	}

	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("failed to write table %s: %w", name, err)
	}
	return nil
}
