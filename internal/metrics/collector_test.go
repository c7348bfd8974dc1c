package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("corrag", reg, zap.NewNop())

	c.ObserveEvaluation("low", false)
	c.ObserveEvaluation("low", false)
	c.ObserveEvaluation("strong", true)
	c.ObserveStrategy("aggressive_hybrid", "success", 50*time.Millisecond)
	c.ObserveCorrection(time.Second, 2)
	c.SetBreakerState("search", 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.gateEvaluations.WithLabelValues("low", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.gateEvaluations.WithLabelValues("strong", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.strategyAttempts.WithLabelValues("aggressive_hybrid", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.breakerState.WithLabelValues("search")))
}

func TestCollector_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("corrag", reg, zap.NewNop())
	c.ObserveEvaluation("low", false)
	c.ObserveStrategy("hyde", "failed", time.Millisecond)
	c.ObserveCorrection(time.Millisecond, 1)
	c.SetBreakerState("search", 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}
