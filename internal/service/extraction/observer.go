package extraction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Observer receives pipeline outcome notifications. Observers must not
// block; they run inline on the extraction path.
type Observer interface {
	ExtractionSucceeded(provider string, entities, relations int, duration time.Duration, fellBack bool)
	ExtractionFailed(provider string, duration time.Duration, err error)
}

// LoggingObserver writes structured outcome logs.
type LoggingObserver struct {
	logger *zap.Logger
}

var _ Observer = (*LoggingObserver)(nil)

// NewLoggingObserver creates an observer that logs pipeline outcomes.
func NewLoggingObserver(logger *zap.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) ExtractionSucceeded(provider string, entities, relations int, duration time.Duration, fellBack bool) {
	o.logger.Info("Extraction completed",
		zap.String("provider", provider),
		zap.Int("entities", entities),
		zap.Int("relations", relations),
		zap.Duration("duration", duration),
		zap.Bool("fell_back", fellBack),
	)
}

func (o *LoggingObserver) ExtractionFailed(provider string, duration time.Duration, err error) {
	o.logger.Error("Extraction failed",
		zap.String("provider", provider),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
}

// MetricsObserver exports pipeline outcomes as Prometheus metrics.
type MetricsObserver struct {
	runs      *prometheus.CounterVec
	fallbacks prometheus.Counter
	yield     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ Observer = (*MetricsObserver)(nil)

// NewMetricsObserver creates and registers the extraction metrics on the
// given registerer.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_runs_total",
			Help: "Extraction pipeline runs by provider and outcome.",
		}, []string{"provider", "outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extraction_fallbacks_total",
			Help: "Extraction runs that succeeded only after falling back to the local provider.",
		}),
		yield: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_items_total",
			Help: "Entities and relations produced by successful extraction runs.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Extraction run duration by provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	reg.MustRegister(o.runs, o.fallbacks, o.yield, o.duration)
	return o
}

func (o *MetricsObserver) ExtractionSucceeded(provider string, entities, relations int, duration time.Duration, fellBack bool) {
	o.runs.WithLabelValues(provider, "success").Inc()
	if fellBack {
		o.fallbacks.Inc()
	}
	o.yield.WithLabelValues("entity").Add(float64(entities))
	o.yield.WithLabelValues("relation").Add(float64(relations))
	o.duration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (o *MetricsObserver) ExtractionFailed(provider string, duration time.Duration, err error) {
	o.runs.WithLabelValues(provider, "failure").Inc()
	o.duration.WithLabelValues(provider).Observe(duration.Seconds())
}
