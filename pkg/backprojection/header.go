package backprojection

import (
	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"rhessibproj/internal/models"
	"rhessibproj/pkg/ephemeris"
	"rhessibproj/pkg/solarmap"
)

// DateLayout is the DATE-OBS format
const DateLayout = "2006-01-02 15:04:05"

// BuildHeader builds the coordinate header of a back-projection map. Solar
// geometry is evaluated at the centre of the event list time range; if the
// ephemeris cannot resolve it no header is returned.
//
// CRPIX1 and CRPIX2 are both taken from dim[0] (integer half plus 0.5),
// matching the maps produced by the RHESSI imaging software.
func BuildHeader(info models.GlobalInfo, pixelSize models.PixelSize, dim models.ImageDim, eph ephemeris.Ephemeris) (solarmap.Header, error) {
	center := info.TimeRange.Center()

	rsun, err := eph.AngularRadius(center)
	if err != nil {
		return solarmap.Header{}, errors.Wrap(err, "failed to resolve solar angular radius")
	}
	dsun, err := eph.SunEarthDistance(center)
	if err != nil {
		return solarmap.Header{}, errors.Wrap(err, "failed to resolve Sun-Earth distance")
	}

	crpix := float64(dim[0]/2) + 0.5

	return solarmap.NewHeader(
		fitsio.Card{Name: "DATE-OBS", Value: center.UTC().Format(DateLayout)},
		fitsio.Card{Name: "CDELT1", Value: pixelSize[0]},
		fitsio.Card{Name: "NAXIS1", Value: dim[0]},
		fitsio.Card{Name: "CRVAL1", Value: info.XYOffset[0]},
		fitsio.Card{Name: "CRPIX1", Value: crpix},
		fitsio.Card{Name: "CUNIT1", Value: "arcsec"},
		fitsio.Card{Name: "CTYPE1", Value: "HPLN-TAN"},
		fitsio.Card{Name: "CDELT2", Value: pixelSize[1]},
		fitsio.Card{Name: "NAXIS2", Value: dim[1]},
		fitsio.Card{Name: "CRVAL2", Value: info.XYOffset[1]},
		fitsio.Card{Name: "CRPIX2", Value: crpix},
		fitsio.Card{Name: "CUNIT2", Value: "arcsec"},
		fitsio.Card{Name: "CTYPE2", Value: "HPLT-TAN"},
		fitsio.Card{Name: "HGLT_OBS", Value: 0},
		fitsio.Card{Name: "HGLN_OBS", Value: 0},
		fitsio.Card{Name: "RSUN_OBS", Value: rsun, Comment: "arcsec"},
		fitsio.Card{Name: "RSUN_REF", Value: ephemeris.SolarRadius, Comment: "m"},
		fitsio.Card{Name: "DSUN_OBS", Value: dsun * ephemeris.AstronomicalUnit, Comment: "m"},
	), nil
}
