// Package metrics exposes engine state as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

const namespace = "predictive_scaler"

// Metrics owns its own registry so tests and multiple engines do not
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	samplesTotal     prometheus.Counter
	degradedSamples  *prometheus.CounterVec
	predictionsTotal *prometheus.CounterVec
	dispatchesTotal  *prometheus.CounterVec
	cooldownActive   prometheus.Gauge
	historySize      prometheus.Gauge
	forecast         *prometheus.GaugeVec
	systemLoad       prometheus.Gauge
	modelVersion     prometheus.Gauge
	modelTraining    prometheus.Histogram
	cycleDuration    *prometheus.HistogramVec
	circuitState     *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Load samples collected.",
		}),
		degradedSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_samples_total",
			Help:      "Samples that substituted a last known value, by source.",
		}, []string{"source"}),
		predictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Scaling predictions emitted, by action.",
		}, []string{"action"}),
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Scaling dispatches, by action and result.",
		}, []string{"action", "result"}),
		cooldownActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_active",
			Help:      "1 while the execution controller is cooling down.",
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_size",
			Help:      "Samples in the load history window.",
		}),
		forecast: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_value",
			Help:      "Latest forecast, by metric.",
		}, []string{"metric"}),
		systemLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "system_load_percent",
			Help:      "Composite load of the latest sample.",
		}),
		modelVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_version",
			Help:      "Version of the current trained model.",
		}),
		modelTraining: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_training_seconds",
			Help:      "Time spent fitting the model.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of background loop cycles.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"loop"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "0=closed, 1=open, 2=half-open.",
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.samplesTotal, m.degradedSamples, m.predictionsTotal, m.dispatchesTotal,
		m.cooldownActive, m.historySize, m.forecast, m.systemLoad,
		m.modelVersion, m.modelTraining, m.cycleDuration, m.circuitState,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveSample(s models.LoadSample, historySize int) {
	m.samplesTotal.Inc()
	for _, source := range s.DegradedSources {
		m.degradedSamples.WithLabelValues(source).Inc()
	}
	m.systemLoad.Set(s.SystemLoad)
	m.historySize.Set(float64(historySize))
}

func (m *Metrics) ObservePredictions(predictions []models.ScalingPrediction) {
	for _, p := range predictions {
		m.predictionsTotal.WithLabelValues(string(p.Action)).Inc()
	}
}

func (m *Metrics) ObserveDispatch(action models.ScalingAction, status models.ActionStatus) {
	m.dispatchesTotal.WithLabelValues(string(action), string(status)).Inc()
}

func (m *Metrics) SetCooldown(active bool) {
	if active {
		m.cooldownActive.Set(1)
		return
	}
	m.cooldownActive.Set(0)
}

func (m *Metrics) SetForecast(s models.LoadSample) {
	for i, v := range s.Features() {
		m.forecast.WithLabelValues(models.FeatureNames[i]).Set(v)
	}
	m.forecast.WithLabelValues("system_load").Set(s.SystemLoad)
}

func (m *Metrics) ObserveModel(info models.ModelInfo, took time.Duration) {
	m.modelVersion.Set(float64(info.Version))
	m.modelTraining.Observe(took.Seconds())
}

func (m *Metrics) ObserveCycle(loop string, took time.Duration) {
	m.cycleDuration.WithLabelValues(loop).Observe(took.Seconds())
}

func (m *Metrics) SetCircuitState(source string, state int) {
	m.circuitState.WithLabelValues(source).Set(float64(state))
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}
