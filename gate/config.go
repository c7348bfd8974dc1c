package gate

import (
	"fmt"
	"math"
)

// GateConfig 证据门控配置
//
// 每个请求上下文构造一次，之后只读。需要调整个别阈值时，
// 使用 WithOverrides 复制出新配置，不要原地修改。
type GateConfig struct {
	// 门控阈值
	MinBestScore    float64 `json:"min_best_score" yaml:"min_best_score"`
	MinAvgTop3Score float64 `json:"min_avg_top3_score" yaml:"min_avg_top3_score"`

	// Strong 级别阈值
	StrongBestThreshold float64 `json:"strong_best_threshold" yaml:"strong_best_threshold"`
	StrongAvgThreshold  float64 `json:"strong_avg_threshold" yaml:"strong_avg_threshold"`

	// 纠错循环
	MaxRetryRounds int `json:"max_retry_rounds" yaml:"max_retry_rounds"`

	// 策略开关
	MultiQueryEnabled bool `json:"multi_query_enabled" yaml:"multi_query_enabled"`
	HyDEEnabled       bool `json:"hyde_enabled" yaml:"hyde_enabled"`
	MultiQueryFanout  int  `json:"multi_query_fanout" yaml:"multi_query_fanout"`

	// 激进混合检索参数
	AggressiveTopKMultiplier float64 `json:"aggressive_top_k_multiplier" yaml:"aggressive_top_k_multiplier"`
	AggressiveLexicalWeight  float64 `json:"aggressive_lexical_weight" yaml:"aggressive_lexical_weight"`
	AggressiveSemanticWeight float64 `json:"aggressive_semantic_weight" yaml:"aggressive_semantic_weight"`
}

// DefaultGateConfig 返回默认门控配置
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinBestScore:             0.4,
		MinAvgTop3Score:          0.3,
		StrongBestThreshold:      0.7,
		StrongAvgThreshold:       0.55,
		MaxRetryRounds:           3,
		MultiQueryEnabled:        true,
		HyDEEnabled:              true,
		MultiQueryFanout:         3,
		AggressiveTopKMultiplier: 2.0,
		AggressiveLexicalWeight:  0.7,
		AggressiveSemanticWeight: 0.3,
	}
}

// Validate 校验配置，畸形阈值在构造期立即失败，而不是拖到评估时。
func (c GateConfig) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("gate: %s 必须在 [0,1] 区间, got %v", name, v)
		}
		return nil
	}
	for _, check := range []struct {
		name string
		v    float64
	}{
		{"min_best_score", c.MinBestScore},
		{"min_avg_top3_score", c.MinAvgTop3Score},
		{"strong_best_threshold", c.StrongBestThreshold},
		{"strong_avg_threshold", c.StrongAvgThreshold},
		{"aggressive_lexical_weight", c.AggressiveLexicalWeight},
		{"aggressive_semantic_weight", c.AggressiveSemanticWeight},
	} {
		if err := inUnit(check.name, check.v); err != nil {
			return err
		}
	}
	if c.StrongBestThreshold < c.MinBestScore {
		return fmt.Errorf("gate: strong_best_threshold (%v) 不能低于 min_best_score (%v)",
			c.StrongBestThreshold, c.MinBestScore)
	}
	if c.StrongAvgThreshold < c.MinAvgTop3Score {
		return fmt.Errorf("gate: strong_avg_threshold (%v) 不能低于 min_avg_top3_score (%v)",
			c.StrongAvgThreshold, c.MinAvgTop3Score)
	}
	if c.MaxRetryRounds < 0 {
		return fmt.Errorf("gate: max_retry_rounds 不能为负, got %d", c.MaxRetryRounds)
	}
	if c.MultiQueryFanout < 1 {
		return fmt.Errorf("gate: multi_query_fanout 至少为 1, got %d", c.MultiQueryFanout)
	}
	if c.AggressiveTopKMultiplier < 1 {
		return fmt.Errorf("gate: aggressive_top_k_multiplier 至少为 1, got %v", c.AggressiveTopKMultiplier)
	}
	if w := c.AggressiveLexicalWeight + c.AggressiveSemanticWeight; math.Abs(w-1.0) > 1e-9 {
		return fmt.Errorf("gate: 激进检索权重之和必须为 1, got %v", w)
	}
	return nil
}

// Overrides 是 WithOverrides 的可选覆盖集，nil 字段保持原值。
type Overrides struct {
	MinBestScore             *float64 `json:"min_best_score,omitempty"`
	MinAvgTop3Score          *float64 `json:"min_avg_top3_score,omitempty"`
	StrongBestThreshold      *float64 `json:"strong_best_threshold,omitempty"`
	StrongAvgThreshold       *float64 `json:"strong_avg_threshold,omitempty"`
	MaxRetryRounds           *int     `json:"max_retry_rounds,omitempty"`
	MultiQueryEnabled        *bool    `json:"multi_query_enabled,omitempty"`
	HyDEEnabled              *bool    `json:"hyde_enabled,omitempty"`
	MultiQueryFanout         *int     `json:"multi_query_fanout,omitempty"`
	AggressiveTopKMultiplier *float64 `json:"aggressive_top_k_multiplier,omitempty"`
	AggressiveLexicalWeight  *float64 `json:"aggressive_lexical_weight,omitempty"`
	AggressiveSemanticWeight *float64 `json:"aggressive_semantic_weight,omitempty"`
}

// WithOverrides 返回应用覆盖后的配置副本，原配置保持不变。
// 覆盖结果不做校验，使用前由调用方自行 Validate。
func (c GateConfig) WithOverrides(o Overrides) GateConfig {
	out := c
	if o.MinBestScore != nil {
		out.MinBestScore = *o.MinBestScore
	}
	if o.MinAvgTop3Score != nil {
		out.MinAvgTop3Score = *o.MinAvgTop3Score
	}
	if o.StrongBestThreshold != nil {
		out.StrongBestThreshold = *o.StrongBestThreshold
	}
	if o.StrongAvgThreshold != nil {
		out.StrongAvgThreshold = *o.StrongAvgThreshold
	}
	if o.MaxRetryRounds != nil {
		out.MaxRetryRounds = *o.MaxRetryRounds
	}
	if o.MultiQueryEnabled != nil {
		out.MultiQueryEnabled = *o.MultiQueryEnabled
	}
	if o.HyDEEnabled != nil {
		out.HyDEEnabled = *o.HyDEEnabled
	}
	if o.MultiQueryFanout != nil {
		out.MultiQueryFanout = *o.MultiQueryFanout
	}
	if o.AggressiveTopKMultiplier != nil {
		out.AggressiveTopKMultiplier = *o.AggressiveTopKMultiplier
	}
	if o.AggressiveLexicalWeight != nil {
		out.AggressiveLexicalWeight = *o.AggressiveLexicalWeight
	}
	if o.AggressiveSemanticWeight != nil {
		out.AggressiveSemanticWeight = *o.AggressiveSemanticWeight
	}
	return out
}
