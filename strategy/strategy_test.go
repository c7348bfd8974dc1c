package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/corrag/gate"
)

func names(params []RetryParameters) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.StrategyName
	}
	return out
}

// ---------------------------------------------------------------------------
// BuildStrategies
// ---------------------------------------------------------------------------

func TestBuilder_StrongProducesNothing(t *testing.T) {
	b := NewBuilder(gate.DefaultGateConfig(), nil)
	assert.Empty(t, b.BuildStrategies(gate.EvidenceStrong, 10, false, false))
}

func TestBuilder_ModerateExpandsTopK(t *testing.T) {
	b := NewBuilder(gate.DefaultGateConfig(), nil)

	got := b.BuildStrategies(gate.EvidenceModerate, 10, false, false)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, gate.ActionExpandTopK, p.StrategyName)
	assert.Equal(t, 15, p.TopK) // 10 × 1.5
	assert.Equal(t, 0.5, p.LexicalWeight)
	assert.Equal(t, 0.5, p.SemanticWeight)
	assert.False(t, p.UseMultiQuery)
	assert.False(t, p.UseHyDE)
}

func TestBuilder_ModerateTopKCapped(t *testing.T) {
	b := NewBuilder(gate.DefaultGateConfig(), nil)
	got := b.BuildStrategies(gate.EvidenceModerate, 40, false, false)
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].TopK, "宽度必须封顶 50")
}

func TestBuilder_LowOrdering(t *testing.T) {
	cfg := gate.DefaultGateConfig()
	cfg.MaxRetryRounds = 10 // 不截断，观察完整顺序
	b := NewBuilder(cfg, nil)

	got := b.BuildStrategies(gate.EvidenceLow, 10, false, false)
	assert.Equal(t,
		[]string{gate.ActionAggressiveHybrid, gate.ActionMultiQuery, gate.ActionHyDE},
		names(got))

	aggressive := got[0]
	assert.Equal(t, 20, aggressive.TopK) // 10 × 2.0
	assert.Equal(t, cfg.AggressiveLexicalWeight, aggressive.LexicalWeight)
	assert.Equal(t, cfg.AggressiveSemanticWeight, aggressive.SemanticWeight)

	mq := got[1]
	assert.True(t, mq.UseMultiQuery)
	assert.Equal(t, cfg.MultiQueryFanout, mq.QueryVariants)
	assert.Equal(t, 10, mq.TopK)

	hyde := got[2]
	assert.True(t, hyde.UseHyDE)
	assert.Equal(t, 0.4, hyde.LexicalWeight)
	assert.Equal(t, 0.6, hyde.SemanticWeight)
}

func TestBuilder_InsufficientAddsAggressiveMultiQuery(t *testing.T) {
	cfg := gate.DefaultGateConfig()
	cfg.MaxRetryRounds = 10
	b := NewBuilder(cfg, nil)

	got := b.BuildStrategies(gate.EvidenceInsufficient, 10, false, false)
	assert.Equal(t,
		[]string{gate.ActionAggressiveHybrid, gate.ActionMultiQuery, gate.ActionHyDE, gate.ActionAggressiveMultiQuery},
		names(got))

	combo := got[3]
	assert.True(t, combo.UseMultiQuery)
	assert.Equal(t, 20, combo.TopK)
	assert.Equal(t, cfg.AggressiveLexicalWeight, combo.LexicalWeight)
}

func TestBuilder_SkipsTriedAndDisabled(t *testing.T) {
	cfg := gate.DefaultGateConfig()
	cfg.MaxRetryRounds = 10
	b := NewBuilder(cfg, nil)

	// multi_query 已尝试：连 aggressive_multi_query 也不再出现
	got := b.BuildStrategies(gate.EvidenceInsufficient, 10, true, false)
	assert.Equal(t, []string{gate.ActionAggressiveHybrid, gate.ActionHyDE}, names(got))

	// hyde 已尝试
	got = b.BuildStrategies(gate.EvidenceLow, 10, false, true)
	assert.Equal(t, []string{gate.ActionAggressiveHybrid, gate.ActionMultiQuery}, names(got))

	// 两者都被配置禁用
	cfg2 := cfg
	cfg2.MultiQueryEnabled = false
	cfg2.HyDEEnabled = false
	got = NewBuilder(cfg2, nil).BuildStrategies(gate.EvidenceInsufficient, 10, false, false)
	assert.Equal(t, []string{gate.ActionAggressiveHybrid}, names(got))
}

func TestBuilder_TruncatesToMaxRetryRounds(t *testing.T) {
	cfg := gate.DefaultGateConfig()
	cfg.MaxRetryRounds = 2
	b := NewBuilder(cfg, nil)

	got := b.BuildStrategies(gate.EvidenceInsufficient, 10, false, false)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{gate.ActionAggressiveHybrid, gate.ActionMultiQuery}, names(got))
}

func TestBuilder_InvalidBaseTopK(t *testing.T) {
	b := NewBuilder(gate.DefaultGateConfig(), nil)
	got := b.BuildStrategies(gate.EvidenceLow, 0, false, false)
	require.NotEmpty(t, got)
	assert.Equal(t, 20, got[0].TopK, "非法 baseTopK 回退到默认宽度")
}

// ---------------------------------------------------------------------------
// SuggestAdjustments
// ---------------------------------------------------------------------------

func TestBuilder_SuggestAdjustments(t *testing.T) {
	cfg := gate.DefaultGateConfig()
	b := NewBuilder(cfg, nil)

	r0 := b.SuggestAdjustments(gate.EvidenceLow, 0)
	assert.Equal(t, cfg.AggressiveTopKMultiplier, r0.TopKMultiplier)
	assert.False(t, r0.UseMultiQuery)
	assert.False(t, r0.UseHyDE)

	r1 := b.SuggestAdjustments(gate.EvidenceLow, 1)
	assert.True(t, r1.UseMultiQuery)
	assert.Equal(t, 1.0, r1.TopKMultiplier)

	r2 := b.SuggestAdjustments(gate.EvidenceInsufficient, 2)
	assert.True(t, r2.UseHyDE)
	assert.Equal(t, 0.6, r2.SemanticWeight)

	r5 := b.SuggestAdjustments(gate.EvidenceInsufficient, 5)
	assert.True(t, r5.UseHyDE, "round ≥2 一律建议 hyde")

	strong := b.SuggestAdjustments(gate.EvidenceStrong, 0)
	assert.Equal(t, 1.0, strong.TopKMultiplier)
	assert.False(t, strong.UseMultiQuery)

	moderate := b.SuggestAdjustments(gate.EvidenceModerate, 0)
	assert.Equal(t, 1.5, moderate.TopKMultiplier)
}
