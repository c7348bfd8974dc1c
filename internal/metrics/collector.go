// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 纠错检索指标收集器
type Collector struct {
	// 门控指标
	gateEvaluations *prometheus.CounterVec

	// 纠错循环指标
	strategyAttempts   *prometheus.CounterVec
	strategyDuration   *prometheus.HistogramVec
	correctionDuration prometheus.Histogram
	correctionRounds   prometheus.Histogram

	// 熔断器指标
	breakerState *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时使用默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.gateEvaluations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_evaluations_total",
			Help:      "Total number of evidence gate evaluations",
		},
		[]string{"level", "passed"},
	)

	c.strategyAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_attempts_total",
			Help:      "Total number of corrective strategy attempts",
		},
		[]string{"strategy", "outcome"},
	)

	c.strategyDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_duration_seconds",
			Help:      "Corrective strategy attempt duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	c.correctionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correction_duration_seconds",
			Help:      "End-to-end correction loop duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.correctionRounds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correction_rounds",
			Help:      "Number of corrective rounds per request",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	c.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	return c
}

// ObserveEvaluation 记录一次门控评估
func (c *Collector) ObserveEvaluation(level string, passed bool) {
	p := "false"
	if passed {
		p = "true"
	}
	c.gateEvaluations.WithLabelValues(level, p).Inc()
}

// ObserveStrategy 记录一次纠错策略尝试
func (c *Collector) ObserveStrategy(strategy, outcome string, duration time.Duration) {
	c.strategyAttempts.WithLabelValues(strategy, outcome).Inc()
	c.strategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveCorrection 记录一次完整纠错循环
func (c *Collector) ObserveCorrection(duration time.Duration, rounds int) {
	c.correctionDuration.Observe(duration.Seconds())
	c.correctionRounds.Observe(float64(rounds))
}

// SetBreakerState 更新熔断器状态仪表
func (c *Collector) SetBreakerState(name string, state int) {
	c.breakerState.WithLabelValues(name).Set(float64(state))
}
