// Package metrics records view activity with Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/timeline"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forecastview"

// Recorder implements forecastview.Recorder and also tracks fetch traffic.
type Recorder struct {
	loadsTotal    *prometheus.CounterVec
	loadPoints    *prometheus.GaugeVec
	loadWarnings  *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	gesturesTotal *prometheus.CounterVec
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of bundle loads by outcome",
			},
			[]string{"symbol", "result"},
		),
		loadPoints: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bundle_points",
				Help:      "Number of timeline points in the current bundle",
			},
			[]string{"symbol"},
		),
		loadWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "data_quality_warnings_total",
				Help:      "Total number of data quality warnings raised while loading",
			},
			[]string{"symbol"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of bundle loads in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		gesturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gestures_total",
				Help:      "Total number of viewport gestures by outcome",
			},
			[]string{"gesture", "result"},
		),
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Total number of upstream API requests by outcome",
			},
			[]string{"endpoint", "result"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of upstream API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}

// ObserveLoad records a bundle load.
func (r *Recorder) ObserveLoad(symbol string, points, warnings int, elapsed time.Duration, err error) {
	r.loadsTotal.WithLabelValues(symbol, loadResult(err)).Inc()
	if err != nil {
		return
	}
	r.loadPoints.WithLabelValues(symbol).Set(float64(points))
	if warnings > 0 {
		r.loadWarnings.WithLabelValues(symbol).Add(float64(warnings))
	}
	r.loadDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

// ObserveGesture records a pan, zoom or reset.
func (r *Recorder) ObserveGesture(gesture string, err error) {
	r.gesturesTotal.WithLabelValues(gesture, gestureResult(err)).Inc()
}

// ObserveFetch records a request to the upstream API.
func (r *Recorder) ObserveFetch(endpoint string, elapsed time.Duration, err error, cached bool) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case cached:
		result = "cache_hit"
	}
	r.fetchTotal.WithLabelValues(endpoint, result).Inc()
	if err == nil && !cached {
		r.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	}
}

func loadResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, timeline.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}

func gestureResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, viewport.ErrRangeDegenerate):
		return "degenerate"
	case errors.Is(err, viewport.ErrInvalidGesture):
		return "invalid"
	case errors.Is(err, forecastview.ErrStaleBundle):
		return "stale"
	default:
		return "error"
	}
}

var _ forecastview.Recorder = (*Recorder)(nil)
