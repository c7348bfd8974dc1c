package corrective

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/corrag/circuitbreaker"
	"github.com/BaSui01/corrag/retry"
)

// Status 一次弹性调用的结局
type Status int

const (
	// StatusSuccess 调用成功
	StatusSuccess Status = iota
	// StatusRejected 熔断器打开，调用未发出
	StatusRejected
	// StatusFailed 重试耗尽后仍失败
	StatusFailed
)

// String 实现 fmt.Stringer
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome 弹性调用的结局与错误。Rejected / Failed 时 Err 非空。
type Outcome struct {
	Status Status
	Err    error
}

// OK 调用是否成功
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Executor 组合限流器、熔断器注册表和重试器，
// 为纠错循环的每次外部调用提供统一的弹性包装。
type Executor struct {
	registry *circuitbreaker.Registry
	retryer  retry.Retryer
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// ExecutorOption Executor 可选配置
type ExecutorOption func(*Executor)

// WithRateLimit 为所有外部调用设置全局限流
func WithRateLimit(limit rate.Limit, burst int) ExecutorOption {
	return func(e *Executor) {
		e.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewExecutor 创建弹性执行器。registry 为 nil 时用默认熔断配置创建，
// policy 为 nil 时使用默认重试策略。
func NewExecutor(registry *circuitbreaker.Registry, policy *retry.Policy, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = circuitbreaker.NewRegistry(nil, logger)
	}

	e := &Executor{
		registry: registry,
		retryer:  retry.NewBackoffRetryer(policy, logger),
		logger:   logger.With(zap.String("component", "executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry 返回执行器持有的熔断器注册表，供调用方读取统计。
func (e *Executor) Registry() *circuitbreaker.Registry {
	return e.registry
}

// Execute 对单次外部调用施加完整弹性链：
// 限流等待 → 熔断器放行检查 → 指数退避重试 → 结局回写熔断器。
//
// 熔断器按整个重试序列的最终结局计一次成败，而非每次尝试。
// fallback 非 nil 时，Rejected / Failed 返回 fallback 值而非零值，
// 结局状态不变，调用方仍可据此判断降级。
func Execute[T any](ctx context.Context, e *Executor, dep string, fallback *T, fn func(ctx context.Context) (T, error)) (T, Outcome) {
	var zero T

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return zero, Outcome{Status: StatusFailed, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	breaker := e.registry.Get(dep)
	if !breaker.AllowRequest() {
		err := fmt.Errorf("%s: %w", dep, circuitbreaker.ErrCircuitOpen)
		e.logger.Warn("call rejected by circuit breaker", zap.String("dependency", dep))
		if fallback != nil {
			return *fallback, Outcome{Status: StatusRejected, Err: err}
		}
		return zero, Outcome{Status: StatusRejected, Err: err}
	}

	result, err := retry.DoTyped(ctx, e.retryer, func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		breaker.RecordFailure(err)
		e.logger.Warn("call failed after retries",
			zap.String("dependency", dep),
			zap.Error(err),
		)
		if fallback != nil {
			return *fallback, Outcome{Status: StatusFailed, Err: err}
		}
		return zero, Outcome{Status: StatusFailed, Err: err}
	}

	breaker.RecordSuccess()
	return result, Outcome{Status: StatusSuccess}
}
