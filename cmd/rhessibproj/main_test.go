package main

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhessibproj/internal/models"
	"rhessibproj/pkg/backprojection"
	"rhessibproj/pkg/config"
	"rhessibproj/pkg/eventlist"
	"rhessibproj/pkg/fileaccess"
	"rhessibproj/pkg/solarmap"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeEventList(t *testing.T, dir string) string {
	t.Helper()

	start := time.Date(2002, time.February, 20, 11, 6, 0, 0, time.UTC)
	list := eventlist.NewMemory(models.GlobalInfo{
		XYOffset:  [2]float64{912.5, 261.25},
		TimeRange: models.TimeRange{Start: start, End: start.Add(4 * time.Minute)},
	})
	for _, detector := range []int{3, 8} {
		list.SetDetector(detector, &models.DetectorData{
			PhaseMapCtr: []float64{0, 0.5, 1},
			RollAngle:   []float64{0, 1, 2},
			ModAmp:      []float64{0.5, 0.5, 0.5},
			GridTran:    []float64{0.3, 0.3, 0.3},
			Count:       []float64{10, float64(detector), 5},
		})
	}

	var buf bytes.Buffer
	require.NoError(t, eventlist.WriteFITS(&buf, list))
	path := filepath.Join(dir, "events.fits")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestSingleDetector(t *testing.T) {
	// Nothing requested: keep the configured value
	assert.Equal(t, 0, singleDetector(0, false, false, backprojection.DefaultDetector))
	assert.Equal(t, 5, singleDetector(5, false, false, backprojection.DefaultDetector))

	// -single without -detector images detector 8
	assert.Equal(t, 8, singleDetector(0, true, false, backprojection.DefaultDetector))

	// -detector alone implies -single
	assert.Equal(t, 3, singleDetector(0, false, true, 3))
}

func TestMakeMap(t *testing.T) {
	dir := t.TempDir()
	input := writeEventList(t, dir)
	files := fileaccess.NewRouter("us-east-1")

	cfg := config.DefaultConfig()
	cfg.Imaging.ImageDim = [2]int{8, 8}
	cfg.Processing.NumWorkers = 2

	all, err := makeMap(quietLogger(), cfg, files, nil, input)
	require.NoError(t, err)

	cfg.Imaging.Detector = backprojection.DefaultDetector
	single, err := makeMap(quietLogger(), cfg, files, nil, input)
	require.NoError(t, err)

	cfg.Imaging.Detector = 3
	other, err := makeMap(quietLogger(), cfg, files, nil, input)
	require.NoError(t, err)

	// The summed map is the sum of the two active detectors
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			assert.InDelta(t, all.At(r, c), single.At(r, c)+other.At(r, c), 1e-9)
		}
	}

	crval1, _ := single.Header().Float("CRVAL1")
	assert.Equal(t, 912.5, crval1)
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	input := writeEventList(t, dir)
	files := fileaccess.NewRouter("us-east-1")

	cfg := config.DefaultConfig()
	cfg.Imaging.ImageDim = [2]int{8, 8}
	m, err := makeMap(quietLogger(), cfg, files, nil, input)
	require.NoError(t, err)

	cfg.Output.FITSFile = filepath.Join(dir, "out", "map.fits")
	cfg.Output.QuicklookFile = filepath.Join(dir, "out", "map.png")
	cfg.Output.GrayFile = filepath.Join(dir, "out", "gray.png")
	require.NoError(t, writeOutputs(quietLogger(), cfg, files, m))

	data, err := os.ReadFile(cfg.Output.FITSFile)
	require.NoError(t, err)
	back, err := solarmap.ReadFITS(bytes.NewReader(data))
	require.NoError(t, err)
	r, c := back.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 8, c)

	data, err = os.ReadFile(cfg.Output.GrayFile)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = os.Stat(cfg.Output.QuicklookFile)
	assert.NoError(t, err)
}

func TestParsePair(t *testing.T) {
	size, err := parsePair("4, 2.5", strconv.ParseFloat)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{4, 2.5}, size)

	_, err = parsePair("1,2,3", strconv.ParseFloat)
	assert.Error(t, err)
}
