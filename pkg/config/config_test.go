package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, [2]float64{1, 1}, cfg.Imaging.PixelSize)
	assert.Equal(t, [2]int{64, 64}, cfg.Imaging.ImageDim)
	assert.Equal(t, runtime.NumCPU(), cfg.Processing.NumWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
imaging:
  pixelSize: [4, 2]
  imageDim: [128, 96]
processing:
  numWorkers: 3
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{4, 2}, cfg.Imaging.PixelSize)
	assert.Equal(t, [2]int{128, 96}, cfg.Imaging.ImageDim)
	assert.Equal(t, 3, cfg.Processing.NumWorkers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults
	assert.Equal(t, "backprojection.fits", cfg.Output.FITSFile)
	assert.Equal(t, 60, cfg.Download.TimeoutSeconds)
}

func TestLoadConfigJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	data := `{
  // detector 8 only
  imaging: { detector: 8, imageDim: [32, 32] },
  output: { fitsFile: "s3://bucket/maps/flare.fits" },
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Imaging.Detector)
	assert.Equal(t, [2]int{32, 32}, cfg.Imaging.ImageDim)
	assert.Equal(t, "s3://bucket/maps/flare.fits", cfg.Output.FITSFile)
	assert.Equal(t, [2]float64{1, 1}, cfg.Imaging.PixelSize)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("imaging: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Imaging.ImageDim = [2]int{0, 64}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Imaging.PixelSize = [2]float64{1, -1}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Imaging.Detector = 10
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestNamedLogger(t *testing.T) {
	log := NamedLogger("imager")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	require.NoError(t, ConfigureLogger(log, cfg))
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[imager  ] shown")
}
