// Package ephemeris provides the solar geometry needed for map headers: the
// apparent angular radius of the Sun and the Sun-Earth distance at a given
// time.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

const (
	// SolarRadius is the photospheric solar radius in metres
	SolarRadius = 6.95508e8

	// AstronomicalUnit in metres
	AstronomicalUnit = 1.49597870691e11
)

// ErrOutOfRange is returned for times the ephemeris is not valid for
var ErrOutOfRange = errors.New("time outside supported ephemeris range")

// Supported validity range of the low-precision solar theory
var (
	MinTime = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTime = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Ephemeris resolves solar geometry at a given time
type Ephemeris interface {
	// AngularRadius returns the apparent radius of the Sun seen from Earth, in arcsec
	AngularRadius(t time.Time) (float64, error)

	// SunEarthDistance returns the Sun-Earth distance in AU
	SunEarthDistance(t time.Time) (float64, error)
}

// Meeus implements Ephemeris with the low accuracy solar coordinates of
// Meeus, Astronomical Algorithms, chapter 25 (about 0.01 degree).
type Meeus struct{}

// SunEarthDistance implements Ephemeris
func (Meeus) SunEarthDistance(t time.Time) (float64, error) {
	if err := checkRange(t); err != nil {
		return 0, err
	}
	return solar.Radius(base.J2000Century(JulianDate(t))), nil
}

// AngularRadius implements Ephemeris
func (eph Meeus) AngularRadius(t time.Time) (float64, error) {
	r, err := eph.SunEarthDistance(t)
	if err != nil {
		return 0, err
	}
	return unit.Angle(math.Atan(SolarRadius / (AstronomicalUnit * r))).Sec(), nil
}

// JulianDate returns the Julian date of t. UTC is used in place of TT.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

func checkRange(t time.Time) error {
	if t.Before(MinTime) || !t.Before(MaxTime) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, t.UTC().Format(time.RFC3339))
	}
	return nil
}
