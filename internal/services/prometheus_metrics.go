package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names accepted by PrometheusMetrics.
const (
	MetricClassificationOutcome  = "classification.outcome"
	MetricClassificationDuration = "classification"
	MetricDashboardBuild         = "dashboard.build"
	MetricDashboardProvenance    = "dashboard.provenance"
	MetricDashboardTransactions  = "dashboard.transactions"
	MetricProviderRequest        = "provider.request"
	MetricProviderRetry          = "provider.retry"
	MetricCircuitBreakerState    = "circuit_breaker.state"
	MetricAuthenticationEvent    = "authentication_event"
	MetricProfileUpdated         = "profile_updated"
	MetricBankLinked             = "bank_linked"
)

type PrometheusMetrics struct {
	classificationOutcomes    *prometheus.CounterVec
	classificationDuration    prometheus.Histogram
	dashboardBuildDuration    prometheus.Histogram
	dashboardProvenance       *prometheus.CounterVec
	dashboardTransactions     prometheus.Histogram
	providerRequests          *prometheus.CounterVec
	providerRequestDuration   prometheus.Histogram
	providerRetries           *prometheus.CounterVec
	circuitBreakerState       *prometheus.GaugeVec
	authenticationEventsTotal *prometheus.CounterVec
	profileUpdatedTotal       *prometheus.CounterVec
	bankLinkedTotal           prometheus.Counter
}

// NewPrometheusMetrics registers the service metrics on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) MetricsRecorderInterface {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		classificationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "categorization_outcomes_total",
				Help: "Total number of transaction classification outcomes",
			},
			[]string{"status", "reason"},
		),
		classificationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "categorization_duration_milliseconds",
				Help:    "Duration of a single classification call in milliseconds",
				Buckets: prometheus.ExponentialBuckets(5, 2, 12),
			},
		),
		dashboardBuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_build_duration_seconds",
				Help:    "Duration of a dashboard build in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		dashboardProvenance: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_builds_total",
				Help: "Total number of dashboard builds by data provenance",
			},
			[]string{"provenance"},
		),
		dashboardTransactions: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashboard_transactions",
				Help:    "Number of transactions aggregated per dashboard build",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_provider_requests_total",
				Help: "Total number of bank data provider requests",
			},
			[]string{"operation", "status"},
		),
		providerRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bank_provider_request_duration_seconds",
				Help:    "Bank data provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		providerRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_provider_retries_total",
				Help: "Total number of bank data provider retry attempts",
			},
			[]string{"operation"},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		authenticationEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authentication_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event_type"},
		),
		profileUpdatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profile_updated_total",
				Help: "Total number of profile updates by field",
			},
			[]string{"field"},
		),
		bankLinkedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bank_linked_total",
				Help: "Total number of successfully linked bank items",
			},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case MetricClassificationOutcome:
		m.classificationOutcomes.WithLabelValues(tags["status"], tags["reason"]).Inc()
	case MetricDashboardProvenance:
		if provenance := tags["provenance"]; provenance != "" {
			m.dashboardProvenance.WithLabelValues(provenance).Inc()
		}
	case MetricProviderRequest:
		m.providerRequests.WithLabelValues(tags["operation"], tags["status"]).Inc()
	case MetricProviderRetry:
		m.providerRetries.WithLabelValues(tags["operation"]).Inc()
	case MetricAuthenticationEvent:
		if eventType := tags["event_type"]; eventType != "" {
			m.authenticationEventsTotal.WithLabelValues(eventType).Inc()
		}
	case MetricProfileUpdated:
		if field := tags["field"]; field != "" {
			m.profileUpdatedTotal.WithLabelValues(field).Inc()
		}
	case MetricBankLinked:
		m.bankLinkedTotal.Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricClassificationDuration:
		m.classificationDuration.Observe(float64(duration.Milliseconds()))
	case MetricDashboardBuild:
		m.dashboardBuildDuration.Observe(duration.Seconds())
	case MetricProviderRequest:
		m.providerRequestDuration.Observe(duration.Seconds())
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case MetricCircuitBreakerState:
		if service := tags["service"]; service != "" {
			m.circuitBreakerState.WithLabelValues(service).Set(value)
		}
	case MetricDashboardTransactions:
		m.dashboardTransactions.Observe(value)
	}
}
