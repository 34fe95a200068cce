package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. A nil *Collector is valid and records
// nothing.
type Collector struct {
	reg *prometheus.Registry

	Predictions        *prometheus.CounterVec // variant, label
	PredictionFailures *prometheus.CounterVec // variant, stage
	PredictionDuration *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec // variant, result: hit|miss
	ArtifactReloads    *prometheus.CounterVec // schema, result: ok|error
	ArtifactGeneration *prometheus.GaugeVec
	FormRejections     *prometheus.CounterVec // form
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdelay_predictions_total",
			Help: "Predictions served, by form variant and label.",
		}, []string{"variant", "label"}),
		PredictionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdelay_prediction_failures_total",
			Help: "Failed predictions, by form variant and failing stage.",
		}, []string{"variant", "stage"}),
		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busdelay_prediction_duration_seconds",
			Help:    "Time spent in scaler transform and classifier calls.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}, []string{"variant"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdelay_prediction_cache_lookups_total",
			Help: "Prediction cache lookups, by result.",
		}, []string{"variant", "result"}),
		ArtifactReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdelay_artifact_reloads_total",
			Help: "Artifact reload attempts, by schema and result.",
		}, []string{"schema", "result"}),
		ArtifactGeneration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busdelay_artifact_generation",
			Help: "Generation number of the active artifacts per schema.",
		}, []string{"schema"}),
		FormRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busdelay_form_rejections_total",
			Help: "Submissions rejected because a value violated its widget constraints.",
		}, []string{"form"}),
	}

	reg.MustRegister(
		c.Predictions, c.PredictionFailures, c.PredictionDuration,
		c.CacheLookups, c.ArtifactReloads, c.ArtifactGeneration, c.FormRejections,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

func (c *Collector) ObservePrediction(variant, label string, d time.Duration) {
	if c == nil {
		return
	}
	c.Predictions.WithLabelValues(variant, label).Inc()
	c.PredictionDuration.WithLabelValues(variant).Observe(d.Seconds())
}

func (c *Collector) ObserveFailure(variant, stage string) {
	if c == nil {
		return
	}
	c.PredictionFailures.WithLabelValues(variant, stage).Inc()
}

func (c *Collector) ObserveCache(variant string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(variant, result).Inc()
}

func (c *Collector) ObserveReload(schema string, generation uint64, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ArtifactReloads.WithLabelValues(schema, "error").Inc()
		return
	}
	c.ArtifactReloads.WithLabelValues(schema, "ok").Inc()
	c.ArtifactGeneration.WithLabelValues(schema).Set(float64(generation))
}

func (c *Collector) ObserveRejection(form string) {
	if c == nil {
		return
	}
	c.FormRejections.WithLabelValues(form).Inc()
}
