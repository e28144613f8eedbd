package backprojection

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"rhessibproj/internal/models"
	"rhessibproj/pkg/ephemeris"
	"rhessibproj/pkg/eventlist"
	"rhessibproj/pkg/metrics"
	"rhessibproj/pkg/solarmap"
)

// Params holds the imaging configuration
type Params struct {
	// PixelSize is the angular size of a pixel in arcsec
	PixelSize models.PixelSize

	// ImageDim is the size of the output image in pixels
	ImageDim models.ImageDim

	// NumWorkers is the number of detectors back-projected concurrently.
	// Values below 2 run the detectors one after the other.
	NumWorkers int

	// Ephemeris resolves the solar geometry written to the header.
	// Defaults to ephemeris.Meeus.
	Ephemeris ephemeris.Ephemeris

	// Metrics, when set, records per-detector timings
	Metrics *metrics.Collector

	// Logger, when set, receives progress messages
	Logger *logrus.Logger
}

// DefaultParams returns a 64x64 image at 1 arcsec per pixel, computed sequentially
func DefaultParams() *Params {
	return &Params{
		PixelSize:  models.DefaultPixelSize,
		ImageDim:   models.DefaultImageDim,
		NumWorkers: 1,
		Ephemeris:  ephemeris.Meeus{},
	}
}

// Imager sums per-detector back-projections into a map
type Imager struct {
	params *Params
	log    *logrus.Logger
}

// NewImager creates an imager with the given parameters
func NewImager(params *Params) *Imager {
	log := params.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Imager{
		params: params,
		log:    log,
	}
}

// Backprojection builds the back-projection map of an event list.
//
// The global info is read once; every detector with its mask bit set is
// back-projected and the images are summed in ascending detector order. A
// mask with no active detector yields an all-zero image with a full header.
// Any detector failure fails the whole image.
func (im *Imager) Backprojection(list eventlist.Reader) (*solarmap.Map, error) {
	p := im.params
	if err := p.ImageDim.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidDimensions, err.Error())
	}
	if err := p.PixelSize.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidDimensions, err.Error())
	}

	info, err := list.GlobalInfo()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read event list info")
	}

	detectors := info.ActiveDetectors()
	im.log.Infof("Back-projecting %d active detector(s) %v onto %dx%d pixels of %gx%g arcsec",
		len(detectors), detectors, p.ImageDim[0], p.ImageDim[1], p.PixelSize[0], p.PixelSize[1])

	images, err := im.backprojectDetectors(list, detectors)
	if err != nil {
		return nil, err
	}

	image := mat.NewDense(p.ImageDim[0], p.ImageDim[1], nil)
	for _, img := range images {
		image.Add(image, img)
	}

	eph := p.Ephemeris
	if eph == nil {
		eph = ephemeris.Meeus{}
	}
	header, err := BuildHeader(info, p.PixelSize, p.ImageDim, eph)
	if err != nil {
		return nil, err
	}

	if p.Metrics != nil {
		p.Metrics.ImageBuilt(len(detectors))
	}
	return solarmap.New(image, header), nil
}

// backprojectDetectors returns one image per detector, in the order given.
// With more than one worker the detectors are spread over goroutines; the
// error of the lowest-numbered failing detector is returned.
func (im *Imager) backprojectDetectors(list eventlist.Reader, detectors []int) ([]*mat.Dense, error) {
	images := make([]*mat.Dense, len(detectors))

	workers := im.params.NumWorkers
	if workers > len(detectors) {
		workers = len(detectors)
	}

	if workers <= 1 {
		for i, detector := range detectors {
			img, err := im.backprojectOne(list, detector)
			if err != nil {
				return nil, err
			}
			images[i] = img
		}
		return images, nil
	}

	type result struct {
		idx int
		img *mat.Dense
		err error
	}
	jobs := make(chan int)
	results := make(chan result)

	for w := 0; w < workers; w++ {
		go func() {
			for idx := range jobs {
				img, err := im.backprojectOne(list, detectors[idx])
				results <- result{idx: idx, img: img, err: err}
			}
		}()
	}

	go func() {
		for idx := range detectors {
			jobs <- idx
		}
		close(jobs)
	}()

	errs := make([]error, len(detectors))
	for range detectors {
		res := <-results
		images[res.idx] = res.img
		errs[res.idx] = res.err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return images, nil
}

func (im *Imager) backprojectOne(list eventlist.Reader, detector int) (*mat.Dense, error) {
	start := time.Now()

	data, err := list.Detector(detector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read detector %d", detector)
	}

	img, err := Backproject(data, detector, im.params.PixelSize, im.params.ImageDim)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to back-project detector %d", detector)
	}

	elapsed := time.Since(start)
	im.log.Debugf("Detector %d: %d samples in %v", detector, data.NumSamples(), elapsed)
	if im.params.Metrics != nil {
		im.params.Metrics.ObserveDetector(detector, data.NumSamples(), elapsed)
	}
	return img, nil
}
