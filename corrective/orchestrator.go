package corrective

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/internal/metrics"
	"github.com/BaSui01/corrag/strategy"
	"github.com/BaSui01/corrag/types"
)

const tracerName = "github.com/BaSui01/corrag/corrective"

// Orchestrator 纠错检索编排器，持有门控评估器、策略构造器与弹性执行器。
// 创建后不可变，可在并发请求之间安全共享。
type Orchestrator struct {
	cfg       gate.GateConfig
	evaluator *gate.Evaluator
	builder   *strategy.Builder
	executor  *Executor
	collector *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Option Orchestrator 可选配置
type Option func(*Orchestrator)

// WithMetrics 启用 Prometheus 指标上报
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.collector = c
	}
}

// WithTracerProvider 指定 trace provider，缺省用全局 provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
	}
}

// NewOrchestrator 创建编排器，配置非法时立即报错。
func NewOrchestrator(cfg gate.GateConfig, executor *Executor, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gate config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if executor == nil {
		executor = NewExecutor(nil, nil, logger)
	}

	o := &Orchestrator{
		cfg:       cfg,
		evaluator: gate.NewEvaluator(cfg, logger),
		builder:   strategy.NewBuilder(cfg, logger),
		executor:  executor,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With(zap.String("component", "corrective")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// EvaluateResults 对结果集做一次门控评估
func (o *Orchestrator) EvaluateResults(results []types.SearchResult) gate.Evaluation {
	ev := o.evaluator.Evaluate(results)
	if o.collector != nil {
		o.collector.ObserveEvaluation(string(ev.EvidenceLevel), ev.GatePassed)
	}
	return ev
}

// ShouldRetry 判断是否进入下一轮纠错：
// 门控已通过、轮次达到上限、或首轮之后结果仍为空，都终止循环。
func (o *Orchestrator) ShouldRetry(ev gate.Evaluation, round int) bool {
	if ev.GatePassed {
		return false
	}
	if round >= o.cfg.MaxRetryRounds {
		return false
	}
	if ev.ResultCount == 0 && round > 0 {
		return false
	}
	return ev.EvidenceLevel.RequiresCorrection()
}

// GetRetryParameters 返回第 round 轮应使用的纠错参数。
// 策略列表由当前评估和已尝试标记重新构造，round 越界时返回 false。
func (o *Orchestrator) GetRetryParameters(ev gate.Evaluation, baseTopK int, triedMultiQuery, triedHyDE bool, round int) (strategy.RetryParameters, bool) {
	list := o.builder.BuildStrategies(ev.EvidenceLevel, baseTopK, triedMultiQuery, triedHyDE)
	if round < 0 || round >= len(list) {
		return strategy.RetryParameters{}, false
	}
	return list[round], true
}

// CreateAuditTrail 评估初始结果并开启审计轨迹
func (o *Orchestrator) CreateAuditTrail(query string, initialResults []types.SearchResult) *AuditTrail {
	return newAuditTrail(query, o.EvaluateResults(initialResults))
}

// RecordAction 把一次策略尝试写入审计轨迹，并返回新结果的评估。
// execErr 非空表示该策略执行失败，结果视为空集。
func (o *Orchestrator) RecordAction(trail *AuditTrail, params strategy.RetryParameters, results []types.SearchResult, duration time.Duration, execErr error) gate.Evaluation {
	ev := o.EvaluateResults(results)

	action := CorrectiveAction{
		StrategyName: params.StrategyName,
		Parameters:   params,
		Success:      execErr == nil,
		DurationMs:   duration.Milliseconds(),
		ResultCount:  len(results),
		BestScore:    ev.BestScore,
		AvgTop3Score: ev.AvgTop3Score,
	}
	if execErr != nil {
		action.Error = execErr.Error()
	}
	trail.append(action)

	outcome := "success"
	if execErr != nil {
		outcome = "failed"
	}
	if o.collector != nil {
		o.collector.ObserveStrategy(params.StrategyName, outcome, duration)
	}

	o.logger.Debug("corrective action recorded",
		zap.String("trail_id", trail.ID),
		zap.String("strategy", params.StrategyName),
		zap.Bool("success", execErr == nil),
		zap.Int("result_count", len(results)),
		zap.Float64("best_score", ev.BestScore),
		zap.Duration("duration", duration),
	)
	return ev
}
