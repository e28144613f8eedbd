// Package metrics records back-projection throughput with Prometheus
// collectors. Batch runs export them with WriteTextfile for the node exporter
// textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the imaging metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	detectorsProcessed *prometheus.CounterVec
	detectorDuration   *prometheus.HistogramVec
	imagesBuilt        prometheus.Counter
	activeDetectors    prometheus.Gauge
	samplesProcessed   prometheus.Counter
}

// NewCollector creates and registers the imaging metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		detectorsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rhessibproj",
			Name:      "detectors_backprojected_total",
			Help:      "Number of per-detector back-projections computed.",
		}, []string{"detector"}),
		detectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rhessibproj",
			Name:      "detector_backprojection_seconds",
			Help:      "Duration of per-detector back-projections.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"detector"}),
		imagesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rhessibproj",
			Name:      "images_total",
			Help:      "Number of aggregate images built.",
		}),
		activeDetectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rhessibproj",
			Name:      "active_detectors",
			Help:      "Detectors contributing to the last aggregate image.",
		}),
		samplesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rhessibproj",
			Name:      "phase_samples_total",
			Help:      "Phase samples consumed by back-projections.",
		}),
	}

	c.registry.MustRegister(
		c.detectorsProcessed,
		c.detectorDuration,
		c.imagesBuilt,
		c.activeDetectors,
		c.samplesProcessed,
	)
	return c
}

// ObserveDetector records one per-detector back-projection
func (c *Collector) ObserveDetector(detector int, samples int, d time.Duration) {
	label := strconv.Itoa(detector)
	c.detectorsProcessed.WithLabelValues(label).Inc()
	c.detectorDuration.WithLabelValues(label).Observe(d.Seconds())
	c.samplesProcessed.Add(float64(samples))
}

// ImageBuilt records a completed aggregate image
func (c *Collector) ImageBuilt(active int) {
	c.imagesBuilt.Inc()
	c.activeDetectors.Set(float64(active))
}

// Gatherer exposes the registry
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes the current metric values in the text exposition format
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
