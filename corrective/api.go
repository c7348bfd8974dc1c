package corrective

import (
	"go.uber.org/zap"

	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/strategy"
	"github.com/BaSui01/corrag/types"
)

// EvaluateGate 用默认配置（可叠加覆盖）做一次性门控评估，
// 不需要先构造 Orchestrator。返回值可直接 JSON 序列化。
// 校验不通过的覆盖集被整体忽略，评估永不失败。
func EvaluateGate(results []types.SearchResult, overrides *gate.Overrides) gate.Evaluation {
	cfg := gateConfigWith(overrides)
	return gate.NewEvaluator(cfg, zap.NewNop()).Evaluate(results)
}

// GetRetryStrategy 评估结果并返回第一个建议策略的参数，
// 没有可用策略（证据充分或全部已尝试）时返回 false。
// 覆盖集的处理规则与 EvaluateGate 相同。
func GetRetryStrategy(results []types.SearchResult, baseTopK int, triedMultiQuery, triedHyDE bool, overrides *gate.Overrides) (strategy.RetryParameters, bool) {
	cfg := gateConfigWith(overrides)
	ev := gate.NewEvaluator(cfg, zap.NewNop()).Evaluate(results)
	list := strategy.NewBuilder(cfg, zap.NewNop()).BuildStrategies(ev.EvidenceLevel, baseTopK, triedMultiQuery, triedHyDE)
	if len(list) == 0 {
		return strategy.RetryParameters{}, false
	}
	return list[0], true
}

// gateConfigWith 在默认配置上应用覆盖并校验，
// 覆盖后配置非法时回退到默认配置。
func gateConfigWith(overrides *gate.Overrides) gate.GateConfig {
	cfg := DefaultGateConfig()
	if overrides == nil {
		return cfg
	}
	candidate := cfg.WithOverrides(*overrides)
	if err := candidate.Validate(); err != nil {
		return cfg
	}
	return candidate
}

// DefaultGateConfig 重导出默认门控配置，方便只导入本包的调用方。
func DefaultGateConfig() gate.GateConfig {
	return gate.DefaultGateConfig()
}
