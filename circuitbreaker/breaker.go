// Package circuitbreaker 提供按上游依赖命名的熔断器。
//
// 状态机：Closed（正常）→ Open（熔断中）→ HalfOpen（试探恢复）。
// 所有状态读写都在同一把锁内完成，并发调用方竞争 Open → HalfOpen
// 转换时只有一个能赢，不会重复发放试探配额。
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常工作）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中，调用被直接拒绝）
	StateOpen
	// StateHalfOpen 半开状态（放行有限的试探调用）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen 熔断器打开时拒绝调用返回的错误
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败次数阈值（触发熔断）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`

	// RecoveryTimeout 熔断恢复等待时间（Open → HalfOpen）
	RecoveryTimeout time.Duration `json:"recovery_timeout" yaml:"recovery_timeout"`

	// HalfOpenMaxCalls 半开状态下的试探调用配额，
	// 同时也是恢复 Closed 所需的连续成功次数
	HalfOpenMaxCalls int `json:"half_open_max_calls" yaml:"half_open_max_calls"`

	// ExcludedErrors 不计入熔断失败的错误（errors.Is 匹配）
	ExcludedErrors []error `json:"-" yaml:"-"`

	// ExcludedCodes 不计入熔断失败的错误码子串，
	// 例如调用方参数错误不应拖垮熔断器
	ExcludedCodes []string `json:"excluded_codes,omitempty" yaml:"excluded_codes,omitempty"`

	// OnStateChange 状态变更回调
	OnStateChange func(name string, from, to State) `json:"-" yaml:"-"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// Stats 熔断器状态快照，可直接序列化给健康检查端点。
type Stats struct {
	Name              string    `json:"name"`
	State             string    `json:"state"`
	FailureCount      int       `json:"failure_count"`
	HalfOpenSuccess   int       `json:"half_open_success"`
	LastFailureTime   time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime   time.Time `json:"last_success_time,omitempty"`
	LastStateChange   time.Time `json:"last_state_change,omitempty"`
	TotalCalls        int64     `json:"total_calls"`
	TotalFailures     int64     `json:"total_failures"`
	TotalSuccesses    int64     `json:"total_successes"`
	RejectedWhileOpen int64     `json:"rejected_while_open"`
}

// Breaker 单个命名上游依赖的熔断器。进程级长生命周期，并发安全。
type Breaker struct {
	name   string
	config *Config
	logger *zap.Logger

	mu                sync.Mutex
	state             State
	failureCount      int
	halfOpenCalls     int
	halfOpenSuccesses int
	lastFailureTime   time.Time
	lastSuccessTime   time.Time
	lastStateChange   time.Time

	totalCalls        int64
	totalFailures     int64
	totalSuccesses    int64
	rejectedWhileOpen int64
}

// NewBreaker 创建熔断器，非法配置项回退到默认值。
func NewBreaker(name string, config *Config, logger *zap.Logger) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Breaker{
		name:   name,
		config: config,
		logger: logger.With(zap.String("breaker", name)),
		state:  StateClosed,
	}
}

// Name 返回熔断器绑定的依赖名
func (b *Breaker) Name() string {
	return b.name
}

// AllowRequest 判断当前是否允许发起调用。
//
// Open 状态下恢复时间已到时，第一个调用触发 Open → HalfOpen 转换并放行；
// 半开配额内的调用放行，其余拒绝并累计 rejected 计数。
func (b *Breaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.totalCalls++
		return true

	case StateOpen:
		if time.Since(b.lastFailureTime) >= b.config.RecoveryTimeout {
			b.setState(StateHalfOpen)
			b.halfOpenCalls = 1
			b.halfOpenSuccesses = 0
			b.totalCalls++
			b.logger.Info("熔断器进入半开状态")
			return true
		}
		b.rejectedWhileOpen++
		return false

	case StateHalfOpen:
		if b.halfOpenCalls < b.config.HalfOpenMaxCalls {
			b.halfOpenCalls++
			b.totalCalls++
			return true
		}
		b.rejectedWhileOpen++
		return false

	default:
		return false
	}
}

// RecordSuccess 记录一次成功调用
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++
	b.lastSuccessTime = time.Now()

	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.HalfOpenMaxCalls {
			b.logger.Info("熔断器恢复正常",
				zap.Int("half_open_successes", b.halfOpenSuccesses),
			)
			b.setState(StateClosed)
			b.failureCount = 0
			b.halfOpenCalls = 0
			b.halfOpenSuccesses = 0
		}

	case StateOpen:
		b.logger.Warn("熔断器打开状态收到成功响应")
	}
}

// RecordFailure 记录一次失败调用。
// 匹配排除集的错误完全不计入失败，也不更新失败时间戳。
func (b *Breaker) RecordFailure(err error) {
	if b.isExcluded(err) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.logger.Warn("熔断器打开",
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.FailureThreshold),
				zap.Error(err),
			)
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.logger.Warn("熔断器半开状态失败，重新打开", zap.Error(err))
		b.setState(StateOpen)
		b.halfOpenCalls = 0
		b.halfOpenSuccesses = 0
	}
}

// isExcluded 判断错误是否属于配置的排除集
func (b *Breaker) isExcluded(err error) bool {
	if err == nil {
		return true
	}
	for _, excluded := range b.config.ExcludedErrors {
		if errors.Is(err, excluded) {
			return true
		}
	}
	msg := err.Error()
	for _, code := range b.config.ExcludedCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// Call 组合 AllowRequest / RecordSuccess / RecordFailure 的便捷入口。
// 熔断中返回 ErrCircuitOpen。
func (b *Breaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.AllowRequest() {
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}

	err := fn()
	if err != nil {
		b.RecordFailure(err)
		return err
	}
	b.RecordSuccess()
	return nil
}

// State 返回当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats 返回状态快照
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:              b.name,
		State:             b.state.String(),
		FailureCount:      b.failureCount,
		HalfOpenSuccess:   b.halfOpenSuccesses,
		LastFailureTime:   b.lastFailureTime,
		LastSuccessTime:   b.lastSuccessTime,
		LastStateChange:   b.lastStateChange,
		TotalCalls:        b.totalCalls,
		TotalFailures:     b.totalFailures,
		TotalSuccesses:    b.totalSuccesses,
		RejectedWhileOpen: b.rejectedWhileOpen,
	}
}

// Reset 手动恢复到关闭状态（测试/运维用）
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldState := b.state
	if oldState != StateClosed {
		b.setState(StateClosed)
	}
	b.failureCount = 0
	b.halfOpenCalls = 0
	b.halfOpenSuccesses = 0

	b.logger.Info("熔断器已重置", zap.String("from_state", oldState.String()))
}

// setState 调用方必须持有 b.mu
func (b *Breaker) setState(newState State) {
	oldState := b.state
	b.state = newState
	b.lastStateChange = time.Now()

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(b.name, oldState, newState)
	}
}
