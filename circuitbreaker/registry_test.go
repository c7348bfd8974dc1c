package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_GetCreatesOnDemand(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	b1 := r.Get("search")
	b2 := r.Get("search")
	assert.Same(t, b1, b2, "同名返回同一实例")

	b3 := r.Get("hyde-generator")
	assert.NotSame(t, b1, b3)
	assert.Equal(t, []string{"hyde-generator", "search"}, r.Names())
}

func TestRegistry_DefaultsAreIsolated(t *testing.T) {
	defaults := &Config{FailureThreshold: 2, RecoveryTimeout: time.Hour}
	r := NewRegistry(defaults, zap.NewNop())

	a := r.Get("a")
	b := r.Get("b")

	// a 熔断不影响 b
	a.AllowRequest()
	a.RecordFailure(errUpstream)
	a.AllowRequest()
	a.RecordFailure(errUpstream)

	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, StateClosed, b.State())
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry(&Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}, zap.NewNop())

	b := r.Get("search")
	b.AllowRequest()
	b.RecordFailure(errUpstream)

	stats := r.Stats()
	require.Contains(t, stats, "search")
	assert.Equal(t, "Open", stats["search"].State)
	assert.Equal(t, int64(1), stats["search"].TotalFailures)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry(&Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}, zap.NewNop())

	b := r.Get("search")
	b.AllowRequest()
	b.RecordFailure(errUpstream)
	require.Equal(t, StateOpen, b.State())

	assert.True(t, r.Reset("search"))
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, r.Reset("unknown"))

	b.AllowRequest()
	b.RecordFailure(errUpstream)
	r.ResetAll()
	assert.Equal(t, StateClosed, b.State())
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	var wg sync.WaitGroup
	breakers := make([]*Breaker, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			breakers[idx] = r.Get("shared")
		}(i)
	}
	wg.Wait()

	for _, b := range breakers {
		assert.Same(t, breakers[0], b, "竞争创建只保留一个实例")
	}
}
