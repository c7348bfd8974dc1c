// =============================================================================
// 📦 corrag 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/BaSui01/corrag/circuitbreaker"
	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/retry"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Gate:    gate.DefaultGateConfig(),
		Retry:   *retry.DefaultPolicy(),
		Breaker: *circuitbreaker.DefaultConfig(),
		Limit:   DefaultLimitConfig(),
		Metrics: DefaultMetricsConfig(),
		Log:     DefaultLogConfig(),
	}
}

// DefaultLimitConfig 返回默认限流配置。默认关闭，
// 单实例部署时上游自身的配额管理通常已经足够。
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{
		Enabled: false,
		RPS:     50,
		Burst:   100,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "corrag",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}
