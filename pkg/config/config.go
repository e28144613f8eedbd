// Package config provides configuration loading and management for rhessibproj.
// It handles loading configuration from YAML or JSON5 files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	json "github.com/KevinWang15/go-json5"
	"gopkg.in/yaml.v3"

	"rhessibproj/internal/models"
)

// Config represents the application configuration
type Config struct {
	// Imaging parameters
	Imaging struct {
		// PixelSize is the angular size of a pixel in arcsec, X then Y
		PixelSize [2]float64 `yaml:"pixelSize" json:"pixelSize"`

		// ImageDim is the number of pixels along each axis
		ImageDim [2]int `yaml:"imageDim" json:"imageDim"`

		// Detector selects a single detector image; 0 sums all active detectors
		Detector int `yaml:"detector" json:"detector"`
	} `yaml:"imaging" json:"imaging"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many detectors are back-projected concurrently
		NumWorkers int `yaml:"numWorkers" json:"numWorkers"`
	} `yaml:"processing" json:"processing"`

	// Output parameters. Paths may be local or s3://bucket/key.
	Output struct {
		FITSFile      string `yaml:"fitsFile" json:"fitsFile"`
		QuicklookFile string `yaml:"quicklookFile" json:"quicklookFile"`
		GrayFile      string `yaml:"grayFile" json:"grayFile"`
		MetricsFile   string `yaml:"metricsFile" json:"metricsFile"`
	} `yaml:"output" json:"output"`

	Logging struct {
		// Level is a logrus level name
		Level string `yaml:"level" json:"level"`
	} `yaml:"logging" json:"logging"`

	// Source parameters for remote inputs
	Source struct {
		AWSRegion string `yaml:"awsRegion" json:"awsRegion"`
	} `yaml:"source" json:"source"`

	// Download parameters for observing summary files
	Download struct {
		// ServerIndex picks an entry of obssumm.DataServers
		ServerIndex int `yaml:"serverIndex" json:"serverIndex"`

		// Dir is where downloaded files are stored
		Dir string `yaml:"dir" json:"dir"`

		TimeoutSeconds int `yaml:"timeoutSeconds" json:"timeoutSeconds"`
	} `yaml:"download" json:"download"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Imaging.PixelSize = models.DefaultPixelSize
	cfg.Imaging.ImageDim = models.DefaultImageDim
	cfg.Imaging.Detector = 0

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Output.FITSFile = "backprojection.fits"
	cfg.Output.QuicklookFile = ""
	cfg.Output.GrayFile = ""
	cfg.Output.MetricsFile = ""

	cfg.Logging.Level = "info"

	cfg.Source.AWSRegion = "us-east-1"

	cfg.Download.ServerIndex = 0
	cfg.Download.Dir = "."
	cfg.Download.TimeoutSeconds = 60

	return cfg
}

// Validate reports settings that cannot produce an image
func (c *Config) Validate() error {
	if err := models.PixelSize(c.Imaging.PixelSize).Validate(); err != nil {
		return fmt.Errorf("invalid imaging.pixelSize: %w", err)
	}
	if err := models.ImageDim(c.Imaging.ImageDim).Validate(); err != nil {
		return fmt.Errorf("invalid imaging.imageDim: %w", err)
	}
	if c.Imaging.Detector < 0 || c.Imaging.Detector > models.NumDetectors {
		return fmt.Errorf("invalid imaging.detector %d: must be 0..%d", c.Imaging.Detector, models.NumDetectors)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads configuration from a YAML or JSON5 file. Files ending in
// .json or .json5 are parsed as JSON5, everything else as YAML.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isJSON(configPath) {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

func isJSON(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		return true
	}
	return false
}
