// Package eventlist provides typed access to RHESSI calibrated event lists.
//
// A calibrated event list is a FITS file whose first extensions carry the
// control and info parameters of the imaging run, followed by one binary
// table per detector. Readers validate the fields they expose once, when a
// detector or the global info is first requested, and hand out plain Go
// values afterwards.
package eventlist

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"rhessibproj/internal/models"
)

// HDU layout of the calibrated event list file format.
const (
	// ControlHDU holds the control parameters (det_index_mask)
	ControlHDU = 1

	// InfoHDU holds the info parameters (USED_XYOFFSET, ABSOLUTE_TIME_RANGE)
	InfoHDU = 2

	// DetectorHDUOffset is the number of parameter extensions preceding the
	// per-detector tables: detector d lives in HDU d+DetectorHDUOffset.
	DetectorHDUOffset = 2
)

// Field names as written by the RHESSI imaging software.
const (
	FieldDetIndexMask      = "det_index_mask"
	FieldXYOffset          = "USED_XYOFFSET"
	FieldAbsoluteTimeRange = "ABSOLUTE_TIME_RANGE"
	FieldDetEfficiency     = "cbe_det_eff$$REL"

	FieldPhaseMapCtr = "phase_map_ctr"
	FieldRollAngle   = "roll_angle"
	FieldModAmp      = "modamp"
	FieldGridTran    = "gridtran"
	FieldCount       = "count"
)

var (
	// ErrMissingHDU is returned when the file has fewer extensions than the layout requires
	ErrMissingHDU = errors.New("missing HDU")

	// ErrMissingField is returned when an expected column is absent
	ErrMissingField = errors.New("missing field")

	// ErrMalformedField is returned when a column has the wrong shape or type
	ErrMalformedField = errors.New("malformed field")

	// ErrNoDetector is returned by readers that hold no data for a detector
	ErrNoDetector = errors.New("no data for detector")
)

// Reader is the event list collaborator used by the back-projection.
// Implementations must stay valid for a full aggregation pass.
type Reader interface {
	// GlobalInfo returns the fields shared by all detectors
	GlobalInfo() (models.GlobalInfo, error)

	// Detector returns the modulation arrays of a 1-based detector
	Detector(detector int) (*models.DetectorData, error)
}

// Validate checks that all modulation arrays have the same length
func Validate(detector int, d *models.DetectorData) error {
	n := len(d.Count)
	fields := []struct {
		name string
		data []float64
	}{
		{FieldPhaseMapCtr, d.PhaseMapCtr},
		{FieldRollAngle, d.RollAngle},
		{FieldModAmp, d.ModAmp},
		{FieldGridTran, d.GridTran},
	}
	for _, f := range fields {
		if len(f.data) != n {
			return errors.Wrapf(ErrMalformedField, "detector %d: %s has %d samples, %s has %d",
				detector, f.name, len(f.data), FieldCount, n)
		}
	}
	return nil
}

// Memory is an in-memory event list
type Memory struct {
	Info      models.GlobalInfo
	Detectors map[int]*models.DetectorData
}

// NewMemory creates an empty in-memory event list with the given global info
func NewMemory(info models.GlobalInfo) *Memory {
	return &Memory{
		Info:      info,
		Detectors: make(map[int]*models.DetectorData),
	}
}

// GlobalInfo implements Reader
func (m *Memory) GlobalInfo() (models.GlobalInfo, error) {
	return m.Info, nil
}

// Detector implements Reader
func (m *Memory) Detector(detector int) (*models.DetectorData, error) {
	d, ok := m.Detectors[detector]
	if !ok {
		return nil, errors.Wrapf(ErrNoDetector, "detector %d", detector)
	}
	if err := Validate(detector, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SetDetector stores the data of one detector and marks it active in the mask
func (m *Memory) SetDetector(detector int, d *models.DetectorData) {
	m.Detectors[detector] = d
	if detector >= 1 && detector <= models.NumDetectors {
		m.Info.DetIndexMask[detector-1] = true
	}
}

// MaskFrom converts a 0/1 vector of any numeric type into a detector mask
func MaskFrom[T constraints.Integer | constraints.Float](values []T) [models.NumDetectors]bool {
	var mask [models.NumDetectors]bool
	for i := 0; i < len(values) && i < models.NumDetectors; i++ {
		mask[i] = values[i] != 0
	}
	return mask
}

// Float64s converts a numeric slice to float64
func Float64s[T constraints.Integer | constraints.Float](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
