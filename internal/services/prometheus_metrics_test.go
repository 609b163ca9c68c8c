package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type PrometheusMetricsTestSuite struct {
	suite.Suite
	registry *prometheus.Registry
	metrics  *PrometheusMetrics
}

func TestPrometheusMetricsSuite(t *testing.T) {
	suite.Run(t, new(PrometheusMetricsTestSuite))
}

func (s *PrometheusMetricsTestSuite) SetupTest() {
	s.registry = prometheus.NewRegistry()
	s.metrics = NewPrometheusMetrics(s.registry).(*PrometheusMetrics)
}

// sample returns the value of the series of family name whose labels match, and how many series the family has.
func (s *PrometheusMetricsTestSuite) sample(name string, labels map[string]string) (float64, int) {
	families, err := s.registry.Gather()
	s.Require().NoError(err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		value := 0.0
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					matched = false
				}
			}
			if !matched {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
		}
		return value, len(family.GetMetric())
	}
	return 0, 0
}

func (s *PrometheusMetricsTestSuite) TestClassificationOutcomes() {
	s.metrics.IncrementCounter(MetricClassificationOutcome, map[string]string{"status": "success", "reason": ""})
	s.metrics.IncrementCounter(MetricClassificationOutcome, map[string]string{"status": "failure", "reason": "timeout"})
	s.metrics.IncrementCounter(MetricClassificationOutcome, map[string]string{"status": "failure", "reason": "timeout"})

	success, series := s.sample("categorization_outcomes_total", map[string]string{"status": "success", "reason": ""})
	s.Equal(1.0, success)
	s.Equal(2, series)

	timeouts, _ := s.sample("categorization_outcomes_total", map[string]string{"status": "failure", "reason": "timeout"})
	s.Equal(2.0, timeouts)
}

func (s *PrometheusMetricsTestSuite) TestDashboardProvenanceIgnoresEmptyTag() {
	s.metrics.IncrementCounter(MetricDashboardProvenance, map[string]string{"provenance": "mock"})
	s.metrics.IncrementCounter(MetricDashboardProvenance, map[string]string{})

	value, series := s.sample("dashboard_builds_total", map[string]string{"provenance": "mock"})
	s.Equal(1.0, value)
	s.Equal(1, series)
}

func (s *PrometheusMetricsTestSuite) TestCircuitBreakerGauge() {
	s.metrics.RecordGauge(MetricCircuitBreakerState, 1, map[string]string{"service": "huggingface"})
	open, _ := s.sample("circuit_breaker_state", map[string]string{"service": "huggingface"})
	s.Equal(1.0, open)

	s.metrics.RecordGauge(MetricCircuitBreakerState, 0, map[string]string{"service": "huggingface"})
	closed, _ := s.sample("circuit_breaker_state", map[string]string{"service": "huggingface"})
	s.Equal(0.0, closed)
}

func (s *PrometheusMetricsTestSuite) TestProcessingTimesAreObserved() {
	s.metrics.RecordProcessingTime(MetricDashboardBuild, 250*time.Millisecond)
	s.metrics.RecordProcessingTime(MetricClassificationDuration, 40*time.Millisecond)
	s.metrics.RecordProcessingTime("unknown", time.Second)

	builds, _ := s.sample("dashboard_build_duration_seconds", nil)
	s.Equal(1.0, builds)

	calls, _ := s.sample("categorization_duration_milliseconds", nil)
	s.Equal(1.0, calls)
}

func (s *PrometheusMetricsTestSuite) TestRegistersOnGivenRegistry() {
	s.metrics.IncrementCounter(MetricBankLinked, nil)

	families, err := s.registry.Gather()
	s.Require().NoError(err)

	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	s.True(names["bank_linked_total"])
}

func (s *PrometheusMetricsTestSuite) TestSeparateRegistriesDoNotConflict() {
	s.NotPanics(func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
	})
}
