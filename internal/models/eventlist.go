package models

import (
	"time"
)

// NumDetectors is the number of rotating-grid collimators on RHESSI
const NumDetectors = 9

// TimeRange is a closed observation interval
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Center returns the midpoint of the interval
func (tr TimeRange) Center() time.Time {
	return tr.Start.Add(tr.End.Sub(tr.Start) / 2)
}

// Duration returns the length of the interval
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// GlobalInfo holds the event list fields shared by all detectors
type GlobalInfo struct {
	// XYOffset is the imaging centre used when the event list was built, in arcsec
	XYOffset [2]float64

	// TimeRange is the absolute accumulation interval of the event list
	TimeRange TimeRange

	// DetIndexMask flags which detectors contributed, indexed by detector-1
	DetIndexMask [NumDetectors]bool

	// DetectorEfficiency is the relative efficiency per detector. It may be
	// empty when the event list carries no efficiency column.
	DetectorEfficiency []float64
}

// ActiveDetectors returns the 1-based numbers of detectors whose mask bit is set,
// in ascending order
func (g GlobalInfo) ActiveDetectors() []int {
	active := make([]int, 0, NumDetectors)
	for i, on := range g.DetIndexMask {
		if on {
			active = append(active, i+1)
		}
	}
	return active
}

// DetectorData holds the per-sample modulation arrays of one detector.
// All slices have the same length, one entry per phase sample.
type DetectorData struct {
	PhaseMapCtr []float64
	RollAngle   []float64
	ModAmp      []float64
	GridTran    []float64
	Count       []float64
}

// NumSamples returns the number of phase samples
func (d *DetectorData) NumSamples() int {
	return len(d.Count)
}
