package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "rockwatch_"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	registerOnce sync.Once

	modelAttempts     *prometheus.CounterVec
	evaluationsTotal  *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec
	translationGaps   *prometheus.CounterVec
	deliveriesTotal   *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
)

// Init registers the collectors on the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		modelAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "model_attempts_total",
				Help: "Model adapter attempts by model and result",
			},
			[]string{"model", "result"},
		)
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Completed evaluation cycles by risk level, skipped cycles use level=skipped",
			},
			[]string{"level"},
		)
		evaluationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_latency_seconds",
				Help:    "Evaluation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		)
		translationGaps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "translation_gaps_total",
				Help: "Translation keys that fell back to the default language",
			},
			[]string{"language"},
		)
		deliveriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "deliveries_total",
				Help: "Alert deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)
		breakerState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "circuit_breaker_open",
				Help: "1 when the named circuit breaker is open",
			},
			[]string{"name"},
		)

		prometheus.MustRegister(
			modelAttempts,
			evaluationsTotal,
			evaluationLatency,
			translationGaps,
			deliveriesTotal,
			breakerState,
		)
	})
}

// IncModelAttempt records one adapter invocation.
func IncModelAttempt(model, result string) {
	if modelAttempts == nil {
		return
	}
	modelAttempts.WithLabelValues(model, result).Inc()
}

// ObserveEvaluation records a finished cycle.
func ObserveEvaluation(level, model string, elapsed time.Duration) {
	if evaluationsTotal == nil {
		return
	}
	evaluationsTotal.WithLabelValues(level).Inc()
	if model != "" {
		evaluationLatency.WithLabelValues(model).Observe(elapsed.Seconds())
	}
}

// IncTranslationGap records a key missing from a language table.
func IncTranslationGap(language string) {
	if translationGaps == nil {
		return
	}
	translationGaps.WithLabelValues(language).Inc()
}

// IncDelivery records one channel send.
func IncDelivery(channel, result string) {
	if deliveriesTotal == nil {
		return
	}
	deliveriesTotal.WithLabelValues(channel, result).Inc()
}

// SetBreakerOpen tracks breaker transitions.
func SetBreakerOpen(name string, open bool) {
	if breakerState == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	breakerState.WithLabelValues(name).Set(value)
}
