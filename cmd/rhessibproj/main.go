package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rhessibproj/internal/models"
	"rhessibproj/pkg/backprojection"
	"rhessibproj/pkg/config"
	"rhessibproj/pkg/ephemeris"
	"rhessibproj/pkg/eventlist"
	"rhessibproj/pkg/fileaccess"
	"rhessibproj/pkg/metrics"
	"rhessibproj/pkg/obssumm"
	"rhessibproj/pkg/solarmap"
	"rhessibproj/pkg/visualization"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "Calibrated event list FITS file (path or s3://bucket/key)")
	configPath := flag.String("config", "rhessibproj.yaml", "Configuration file (YAML or JSON5)")
	output := flag.String("output", "", "Output map FITS file (path or s3://bucket/key)")
	quicklook := flag.String("quicklook", "", "Write a PNG heat map of the map")
	gray := flag.String("gray", "", "Write the bare map as a 16-bit grayscale PNG")
	metricsFile := flag.String("metrics", "", "Write Prometheus metrics to this textfile")
	pixelSize := flag.String("pixel-size", "", "Pixel size in arcsec as X,Y")
	dim := flag.String("dim", "", "Image dimensions in pixels as N0,N1")
	workers := flag.Int("workers", 0, "Number of detectors back-projected concurrently")
	single := flag.Bool("single", false, fmt.Sprintf("Image a single detector (-detector, default %d) instead of all active ones", backprojection.DefaultDetector))
	detector := flag.Int("detector", backprojection.DefaultDetector, "Detector (1..9) imaged on its own; implies -single")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	download := flag.String("download", "", "Download the observing summary of this day (YYYY-MM-DD) instead of imaging")
	downloadDir := flag.String("download-dir", "", "Directory for downloaded files")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	log := config.NamedLogger("rhessibproj")

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		log.Infof("Default configuration written to: %s", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the configuration file
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["output"] {
		cfg.Output.FITSFile = *output
	}
	if set["quicklook"] {
		cfg.Output.QuicklookFile = *quicklook
	}
	if set["gray"] {
		cfg.Output.GrayFile = *gray
	}
	if set["metrics"] {
		cfg.Output.MetricsFile = *metricsFile
	}
	if set["pixel-size"] {
		v, err := parsePair(*pixelSize, strconv.ParseFloat)
		if err != nil {
			log.Fatalf("Invalid -pixel-size: %v", err)
		}
		cfg.Imaging.PixelSize = v
	}
	if set["dim"] {
		v, err := parsePair(*dim, func(s string, _ int) (int, error) { return strconv.Atoi(s) })
		if err != nil {
			log.Fatalf("Invalid -dim: %v", err)
		}
		cfg.Imaging.ImageDim = v
	}
	if set["workers"] {
		cfg.Processing.NumWorkers = *workers
	}
	cfg.Imaging.Detector = singleDetector(cfg.Imaging.Detector, *single, set["detector"], *detector)
	if set["log-level"] {
		cfg.Logging.Level = *logLevel
	}
	if set["download-dir"] {
		cfg.Download.Dir = *downloadDir
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.ConfigureLogger(log, cfg); err != nil {
		log.Fatalf("%v", err)
	}

	if *download != "" {
		if err := fetchObservingSummary(log, cfg, *download); err != nil {
			log.Fatalf("Download failed: %v", err)
		}
		return
	}

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	files := fileaccess.NewRouter(cfg.Source.AWSRegion)

	var collector *metrics.Collector
	if cfg.Output.MetricsFile != "" {
		collector = metrics.NewCollector()
	}

	startTime := time.Now()
	m, err := makeMap(log, cfg, files, collector, *input)
	if err != nil {
		log.Fatalf("Back-projection failed: %v", err)
	}
	log.Infof("Back-projection completed in %.2f seconds", time.Since(startTime).Seconds())

	logStatistics(log, m)

	if err := writeOutputs(log, cfg, files, m); err != nil {
		log.Fatalf("%v", err)
	}

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			log.Fatalf("Failed to write metrics: %v", err)
		}
		log.Infof("Metrics written to: %s", cfg.Output.MetricsFile)
	}
}

// makeMap reads the event list and builds either the summed map or a single
// detector map
func makeMap(log *logrus.Logger, cfg *config.Config, files *fileaccess.Router, collector *metrics.Collector, input string) (*solarmap.Map, error) {
	data, err := files.Read(input)
	if err != nil {
		return nil, err
	}

	list, err := eventlist.Open(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer list.Close()

	info, err := list.GlobalInfo()
	if err != nil {
		return nil, err
	}
	log.Infof("Event list %s: %s to %s (%v), offset (%g, %g) arcsec",
		input, info.TimeRange.Start.Format(backprojection.DateLayout),
		info.TimeRange.End.Format(backprojection.DateLayout), info.TimeRange.Duration(),
		info.XYOffset[0], info.XYOffset[1])
	if len(info.DetectorEfficiency) > 0 {
		// Reported only; the back-projection is not efficiency corrected
		log.Debugf("Detector efficiencies: %v", info.DetectorEfficiency)
	}

	pixelSize := models.PixelSize(cfg.Imaging.PixelSize)
	imageDim := models.ImageDim(cfg.Imaging.ImageDim)

	if cfg.Imaging.Detector > 0 {
		log.Infof("Back-projecting detector %d only", cfg.Imaging.Detector)
		img, err := backprojection.BackprojectDetector(list, cfg.Imaging.Detector, pixelSize, imageDim)
		if err != nil {
			return nil, err
		}
		header, err := backprojection.BuildHeader(info, pixelSize, imageDim, ephemeris.Meeus{})
		if err != nil {
			return nil, err
		}
		return solarmap.New(img, header), nil
	}

	imager := backprojection.NewImager(&backprojection.Params{
		PixelSize:  pixelSize,
		ImageDim:   imageDim,
		NumWorkers: cfg.Processing.NumWorkers,
		Ephemeris:  ephemeris.Meeus{},
		Metrics:    collector,
		Logger:     log,
	})
	return imager.Backprojection(list)
}

func writeOutputs(log *logrus.Logger, cfg *config.Config, files *fileaccess.Router, m *solarmap.Map) error {
	if cfg.Output.FITSFile != "" {
		var buf bytes.Buffer
		if err := m.WriteFITS(&buf); err != nil {
			return fmt.Errorf("failed to encode map: %w", err)
		}
		if err := files.Write(cfg.Output.FITSFile, buf.Bytes()); err != nil {
			return err
		}
		log.Infof("Map saved to: %s", cfg.Output.FITSFile)
	}

	if cfg.Output.QuicklookFile != "" {
		title := "RHESSI back-projection"
		if date, ok := m.Header().String("DATE-OBS"); ok {
			title += " " + date
		}

		var buf bytes.Buffer
		if err := visualization.NewViewer(m).WriteQuicklook(&buf, title, 800, 800); err != nil {
			return fmt.Errorf("failed to render quicklook: %w", err)
		}
		if err := files.Write(cfg.Output.QuicklookFile, buf.Bytes()); err != nil {
			return err
		}
		log.Infof("Quicklook saved to: %s", cfg.Output.QuicklookFile)
	}

	if cfg.Output.GrayFile != "" {
		var buf bytes.Buffer
		if err := visualization.NewViewer(m).SaveImage(&buf); err != nil {
			return fmt.Errorf("failed to encode grayscale image: %w", err)
		}
		if err := files.Write(cfg.Output.GrayFile, buf.Bytes()); err != nil {
			return err
		}
		log.Infof("Grayscale image saved to: %s", cfg.Output.GrayFile)
	}
	return nil
}

// singleDetector picks the detector to image on its own, 0 meaning all
// active detectors. Naming a detector on the command line implies -single;
// -single alone uses the flag default.
func singleDetector(configured int, single bool, detectorSet bool, detector int) int {
	if single || detectorSet {
		return detector
	}
	return configured
}

func logStatistics(log *logrus.Logger, m *solarmap.Map) {
	values := m.Data().RawMatrix().Data
	mean, std := stat.MeanStdDev(values, nil)
	peak := floats.MaxIdx(values)
	_, cols := m.Dims()

	log.Infof("Map statistics: min %.4g, max %.4g at (%d, %d), mean %.4g, std %.4g",
		floats.Min(values), values[peak], peak/cols, peak%cols, mean, std)
}

func fetchObservingSummary(log *logrus.Logger, cfg *config.Config, day string) error {
	start, err := time.Parse("2006-01-02", day)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", day, err)
	}
	if cfg.Download.ServerIndex < 0 || cfg.Download.ServerIndex >= len(obssumm.DataServers) {
		return fmt.Errorf("invalid download.serverIndex %d", cfg.Download.ServerIndex)
	}

	fetcher := obssumm.NewFetcher(log, time.Duration(cfg.Download.TimeoutSeconds)*time.Second)
	fetcher.Server = obssumm.DataServers[cfg.Download.ServerIndex]

	tr := models.TimeRange{Start: start, End: start.Add(24 * time.Hour)}
	filename, header, err := fetcher.Fetch(context.Background(), tr, cfg.Download.Dir)
	if err != nil {
		return err
	}
	log.Infof("Saved %s (%s)", filename, header.Get("Content-Type"))
	return nil
}

// parsePair parses "a,b"
func parsePair[T any](s string, parse func(string, int) (T, error)) ([2]T, error) {
	var out [2]T
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return out, fmt.Errorf("expected two comma separated values, got %q", s)
	}
	for i, p := range parts {
		v, err := parse(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
