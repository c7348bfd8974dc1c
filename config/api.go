package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/corrag/circuitbreaker"
	"github.com/BaSui01/corrag/corrective"
	"github.com/BaSui01/corrag/internal/metrics"
)

// Build 按配置组装完整的纠错检索栈：
// logger、熔断器注册表、弹性执行器、指标收集器、编排器。
// reg 为 nil 时指标注册到 Prometheus 默认注册表。
func (c *Config) Build(reg prometheus.Registerer) (*corrective.Orchestrator, *zap.Logger, error) {
	logger := BuildLogger(c.Log)

	var collector *metrics.Collector
	if c.Metrics.Enabled {
		collector = metrics.NewCollector(c.Metrics.Namespace, reg, logger)
	}

	breakerCfg := c.Breaker
	if collector != nil {
		// 状态仪表通过熔断器回调更新
		breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
			collector.SetBreakerState(name, int(to))
		}
	}
	registry := circuitbreaker.NewRegistry(&breakerCfg, logger)

	retryPolicy := c.Retry
	var execOpts []corrective.ExecutorOption
	if c.Limit.Enabled {
		execOpts = append(execOpts, corrective.WithRateLimit(rate.Limit(c.Limit.RPS), c.Limit.Burst))
	}
	executor := corrective.NewExecutor(registry, &retryPolicy, logger, execOpts...)

	var orchOpts []corrective.Option
	if collector != nil {
		orchOpts = append(orchOpts, corrective.WithMetrics(collector))
	}

	orch, err := corrective.NewOrchestrator(c.Gate, executor, logger, orchOpts...)
	if err != nil {
		return nil, nil, err
	}
	return orch, logger, nil
}
