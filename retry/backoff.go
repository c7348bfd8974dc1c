// Package retry 提供指数退避重试。
//
// 延迟公式：delay(attempt) = min(base × multiplier^attempt, max)，
// 可选地再加最多 25% 的随机抖动，避免多个调用方同步重试造成雪崩。
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy 重试策略配置。不可变，可在并发调用方之间安全共享。
type Policy struct {
	// MaxAttempts 总尝试次数（至少 1）
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay 初始延迟
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay 延迟上限
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// Multiplier 指数底数
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// Jitter 是否添加随机抖动（最多向上膨胀 25%）
	Jitter bool `json:"jitter" yaml:"jitter"`

	// RetryableErrors 可重试的错误（为空则重试所有错误）
	RetryableErrors []error `json:"-" yaml:"-"`

	// OnRetry 重试回调
	OnRetry func(attempt int, err error, delay time.Duration) `json:"-" yaml:"-"`
}

// DefaultPolicy 返回适合检索/生成调用的默认策略
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Delay 计算第 attempt 次失败后的等待时间（attempt 从 0 开始）。
// 无抖动时对 attempt 单调不减，且不超过 MaxDelay。
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		delay += rand.Float64() * 0.25 * delay
	}
	return time.Duration(delay)
}

// retryable 检查错误是否可重试
func (p *Policy) retryable(err error) bool {
	if err == nil {
		return false
	}
	if len(p.RetryableErrors) == 0 {
		return true
	}
	for _, target := range p.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时按策略重试
	Do(ctx context.Context, fn func() error) error

	// DoWithResult 执行函数并返回结果，失败时按策略重试
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

// backoffRetryer 指数退避重试器。无共享可变状态，
// 并发的独立重试序列互不影响。
type backoffRetryer struct {
	policy *Policy
	logger *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器，非法策略项回退到默认值。
func NewBackoffRetryer(policy *Policy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 200 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 5 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backoffRetryer{policy: policy, logger: logger}
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func() error) error {
	_, err := r.DoWithResult(ctx, func() (any, error) {
		return nil, fn()
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult。
// 最后一次尝试之后不再等待；等待期间监听 context 取消。
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Info("重试成功", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !r.policy.retryable(err) {
			r.logger.Debug("错误不可重试", zap.Error(err))
			return nil, err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt - 1)
		r.logger.Debug("重试中",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("重试被取消: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	r.logger.Warn("重试次数耗尽",
		zap.Int("attempts", r.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("重试 %d 次后仍失败: %w", r.policy.MaxAttempts, lastErr)
}

// DoTyped is a type-safe generic wrapper around Retryer.DoWithResult.
// It eliminates the need for type assertions on the return value.
func DoTyped[T any](ctx context.Context, r Retryer, fn func() (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
