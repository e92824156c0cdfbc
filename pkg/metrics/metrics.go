// Package metrics provides Prometheus metrics for Pulsar pipeline
// assembly, persistence, and transformation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelinesFitted counts successfully fitted pipelines
	PipelinesFitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsar",
		Name:      "pipelines_fitted_total",
		Help:      "Total number of pipelines fitted",
	})

	// StagesAssembled counts assembled stages by kind
	StagesAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsar",
		Name:      "stages_assembled_total",
		Help:      "Total number of stages assembled, by stage kind",
	}, []string{"kind"})

	// PipelinesLoaded counts pipelines reconstructed from a model store
	PipelinesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsar",
		Name:      "pipelines_loaded_total",
		Help:      "Total number of pipelines loaded from a model store",
	})

	// TransformDuration tracks end-to-end rebind-and-transform latency
	TransformDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pulsar",
		Name:      "transform_duration_seconds",
		Help:      "Latency of rebinding a fitted chain onto new input",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// FitErrors counts failed fit calls by error category
	FitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsar",
		Name:      "fit_errors_total",
		Help:      "Total number of failed fit calls, by error type",
	}, []string{"type"})
)
