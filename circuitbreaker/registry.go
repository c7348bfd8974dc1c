package circuitbreaker

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry 按依赖名管理熔断器。
//
// 显式传入需要它的组件（依赖注入），而不是模块级全局状态；
// 宿主进程想全局共享时自己持有一个实例即可。并发纠错请求共享
// 同一组命名熔断器，上游故障对所有请求同时熔断。
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults *Config
	logger   *zap.Logger
}

// NewRegistry 创建注册表，defaults 作为新建熔断器的默认配置。
func NewRegistry(defaults *Config, logger *zap.Logger) *Registry {
	if defaults == nil {
		defaults = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
		logger:   logger,
	}
}

// Get 返回命名熔断器，不存在时按默认配置创建。
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// 双重检查：两个调用方竞争创建时只保留一个
	if b, ok := r.breakers[name]; ok {
		return b
	}
	cfg := *r.defaults
	b = NewBreaker(name, &cfg, r.logger)
	r.breakers[name] = b
	r.logger.Debug("circuit breaker created", zap.String("name", name))
	return b
}

// Names 返回已注册的熔断器名称（排序后）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats 返回所有熔断器的状态快照，供监控端点使用。
func (r *Registry) Stats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Stats, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Stats()
	}
	return out
}

// Reset 重置指定熔断器，存在时返回 true。
func (r *Registry) Reset(name string) bool {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	b.Reset()
	return true
}

// ResetAll 重置全部熔断器（测试/运维用）
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
