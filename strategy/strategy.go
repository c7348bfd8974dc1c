// Package strategy 根据证据级别与已尝试的策略，构造有序、有界的
// 纠错重试参数列表。构造出的 RetryParameters 是值类型，创建后不再修改。
package strategy

import (
	"go.uber.org/zap"

	"github.com/BaSui01/corrag/gate"
)

// maxTopK 任何策略的检索宽度上限
const maxTopK = 50

// defaultTopK baseTopK 非法时的兜底值
const defaultTopK = 10

// RetryParameters 一次具体纠错尝试的参数
type RetryParameters struct {
	StrategyName   string  `json:"strategy_name"`
	TopK           int     `json:"top_k"`
	LexicalWeight  float64 `json:"lexical_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
	UseMultiQuery  bool    `json:"use_multi_query"`
	QueryVariants  int     `json:"query_variants,omitempty"`
	UseHyDE        bool    `json:"use_hyde"`
}

// Builder 重试策略构造器
type Builder struct {
	cfg    gate.GateConfig
	logger *zap.Logger
}

// NewBuilder 创建策略构造器。logger 为 nil 时使用 Nop。
func NewBuilder(cfg gate.GateConfig, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// BuildStrategies 按固定优先级构造策略列表，已尝试或被禁用的策略跳过，
// 最终截断到 MaxRetryRounds。
//
// Low / Insufficient 的顺序固定为：
// aggressive_hybrid → multi_query → hyde → aggressive_multi_query（仅 Insufficient）。
func (b *Builder) BuildStrategies(level gate.EvidenceLevel, baseTopK int, triedMultiQuery, triedHyDE bool) []RetryParameters {
	if baseTopK <= 0 {
		baseTopK = defaultTopK
	}

	var strategies []RetryParameters

	switch level {
	case gate.EvidenceStrong:
		return nil

	case gate.EvidenceModerate:
		strategies = append(strategies, RetryParameters{
			StrategyName:   gate.ActionExpandTopK,
			TopK:           capTopK(int(float64(baseTopK) * 1.5)),
			LexicalWeight:  0.5,
			SemanticWeight: 0.5,
		})

	default: // Low / Insufficient
		strategies = append(strategies, RetryParameters{
			StrategyName:   gate.ActionAggressiveHybrid,
			TopK:           capTopK(int(float64(baseTopK) * b.cfg.AggressiveTopKMultiplier)),
			LexicalWeight:  b.cfg.AggressiveLexicalWeight,
			SemanticWeight: b.cfg.AggressiveSemanticWeight,
		})

		if b.cfg.MultiQueryEnabled && !triedMultiQuery {
			strategies = append(strategies, RetryParameters{
				StrategyName:   gate.ActionMultiQuery,
				TopK:           capTopK(baseTopK),
				LexicalWeight:  0.5,
				SemanticWeight: 0.5,
				UseMultiQuery:  true,
				QueryVariants:  b.cfg.MultiQueryFanout,
			})
		}

		if b.cfg.HyDEEnabled && !triedHyDE {
			strategies = append(strategies, RetryParameters{
				StrategyName:   gate.ActionHyDE,
				TopK:           capTopK(baseTopK),
				LexicalWeight:  0.4,
				SemanticWeight: 0.6,
				UseHyDE:        true,
			})
		}

		if level == gate.EvidenceInsufficient && b.cfg.MultiQueryEnabled && !triedMultiQuery {
			strategies = append(strategies, RetryParameters{
				StrategyName:   gate.ActionAggressiveMultiQuery,
				TopK:           capTopK(int(float64(baseTopK) * b.cfg.AggressiveTopKMultiplier)),
				LexicalWeight:  b.cfg.AggressiveLexicalWeight,
				SemanticWeight: b.cfg.AggressiveSemanticWeight,
				UseMultiQuery:  true,
				QueryVariants:  b.cfg.MultiQueryFanout,
			})
		}
	}

	if len(strategies) > b.cfg.MaxRetryRounds {
		strategies = strategies[:b.cfg.MaxRetryRounds]
	}

	b.logger.Debug("retry strategies built",
		zap.String("level", string(level)),
		zap.Int("count", len(strategies)),
		zap.Bool("tried_multi_query", triedMultiQuery),
		zap.Bool("tried_hyde", triedHyDE),
	)

	return strategies
}

// Adjustment 轻量级的按轮次调整建议，供不需要完整参数对象的调用方使用。
type Adjustment struct {
	TopKMultiplier float64 `json:"top_k_multiplier"`
	LexicalWeight  float64 `json:"lexical_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
	UseMultiQuery  bool    `json:"use_multi_query"`
	UseHyDE        bool    `json:"use_hyde"`
}

// SuggestAdjustments 按轮次给出简化调整：
// round 0 → 激进混合，round 1 → 多查询，round ≥2 → HyDE。
func (b *Builder) SuggestAdjustments(level gate.EvidenceLevel, round int) Adjustment {
	switch level {
	case gate.EvidenceStrong:
		return Adjustment{TopKMultiplier: 1.0, LexicalWeight: 0.5, SemanticWeight: 0.5}
	case gate.EvidenceModerate:
		return Adjustment{TopKMultiplier: 1.5, LexicalWeight: 0.5, SemanticWeight: 0.5}
	}

	switch {
	case round == 0:
		return Adjustment{
			TopKMultiplier: b.cfg.AggressiveTopKMultiplier,
			LexicalWeight:  b.cfg.AggressiveLexicalWeight,
			SemanticWeight: b.cfg.AggressiveSemanticWeight,
		}
	case round == 1:
		return Adjustment{TopKMultiplier: 1.0, LexicalWeight: 0.5, SemanticWeight: 0.5, UseMultiQuery: true}
	default:
		return Adjustment{TopKMultiplier: 1.0, LexicalWeight: 0.4, SemanticWeight: 0.6, UseHyDE: true}
	}
}

func capTopK(k int) int {
	if k > maxTopK {
		return maxTopK
	}
	if k < 1 {
		return 1
	}
	return k
}
