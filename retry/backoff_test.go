package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(attempts int) *Policy {
	return &Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      false,
	}
}

func TestBackoffRetryer_FirstAttemptSucceeds(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls, "成功后不再调用")
}

func TestBackoffRetryer_RetriesThenSucceeds(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryer_ExhaustsAttempts(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())
	persistent := errors.New("persistent")

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return persistent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, persistent, "最后的错误被包装后重新抛出")
	assert.Equal(t, 3, calls, "MaxAttempts 是总尝试次数")
}

func TestBackoffRetryer_NonRetryableStopsImmediately(t *testing.T) {
	retryable := errors.New("retryable")
	fatal := errors.New("fatal")

	policy := fastPolicy(5)
	policy.RetryableErrors = []error{retryable}
	r := NewBackoffRetryer(policy, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "不可重试错误立即返回")
}

func TestBackoffRetryer_ContextCancelDuringDelay(t *testing.T) {
	policy := &Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // 取消必须打断等待
		MaxDelay:    time.Hour,
		Multiplier:  2.0,
	}
	r := NewBackoffRetryer(policy, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := r.Do(ctx, func() error { return errors.New("fail") })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	var attempts []int
	policy := fastPolicy(3)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	r := NewBackoffRetryer(policy, zap.NewNop())

	_ = r.Do(context.Background(), func() error { return errors.New("fail") })
	assert.Equal(t, []int{1, 2}, attempts, "最后一次尝试后没有回调")
}

func TestDoTyped(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	got, err := DoTyped(context.Background(), r, func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	_, err = DoTyped(context.Background(), r, func() ([]int, error) {
		return nil, errors.New("fail")
	})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Delay
// ---------------------------------------------------------------------------

func TestPolicy_DelayWithoutJitter(t *testing.T) {
	p := &Policy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(4), "封顶 MaxDelay")
	assert.Equal(t, time.Second, p.Delay(10))
}

func TestPolicy_DelayJitterBounds(t *testing.T) {
	p := &Policy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	for i := 0; i < 200; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond, "抖动只向上膨胀")
		assert.LessOrEqual(t, d, 250*time.Millisecond, "最多 25%%")
	}
}
