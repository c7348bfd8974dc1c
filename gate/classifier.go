// Package gate 实现证据质量门控：给定一组带分数的检索结果，
// 判定其是否足以回答查询，并给出建议的纠错策略。
//
// 评估是纯函数式的：容忍空输入和畸形分数字段，绝不失败。
package gate

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/corrag/types"
)

// Evaluator 证据评估器
type Evaluator struct {
	cfg    GateConfig
	logger *zap.Logger
}

// NewEvaluator 创建评估器。logger 为 nil 时使用 Nop。
func NewEvaluator(cfg GateConfig, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{cfg: cfg, logger: logger}
}

// Config 返回评估器使用的配置副本
func (e *Evaluator) Config() GateConfig {
	return e.cfg
}

// Evaluate 对结果集做一次质量评估。
//
// 分类按严格顺序：Strong → Moderate → Low → Insufficient。
// gatePassed 独立于级别计算，但两者由同一组阈值构造，天然一致。
func (e *Evaluator) Evaluate(results []types.SearchResult) Evaluation {
	if len(results) == 0 {
		return e.emptyEvaluation()
	}

	best, avgTop3 := scoreSummary(results)

	level := e.classify(best, avgTop3)
	passed := best >= e.cfg.MinBestScore && avgTop3 >= e.cfg.MinAvgTop3Score

	ev := Evaluation{
		GatePassed:         passed,
		EvidenceLevel:      level,
		Confidence:         level.Confidence(),
		BestScore:          best,
		AvgTop3Score:       avgTop3,
		ResultCount:        len(results),
		Reasons:            e.buildReasons(best, avgTop3, passed),
		RecommendedActions: e.recommend(level, best),
	}

	e.logger.Debug("evidence evaluated",
		zap.String("level", string(level)),
		zap.Bool("gate_passed", passed),
		zap.Float64("best_score", best),
		zap.Float64("avg_top3", avgTop3),
		zap.Int("result_count", len(results)),
	)

	return ev
}

// classify 按严格顺序判定证据级别
func (e *Evaluator) classify(best, avgTop3 float64) EvidenceLevel {
	switch {
	case best >= e.cfg.StrongBestThreshold && avgTop3 >= e.cfg.StrongAvgThreshold:
		return EvidenceStrong
	case best >= e.cfg.MinBestScore && avgTop3 >= e.cfg.MinAvgTop3Score:
		return EvidenceModerate
	case best > 0 || avgTop3 > 0:
		return EvidenceLow
	default:
		return EvidenceInsufficient
	}
}

// buildReasons 始终包含两个阈值比较，低于阈值时追加说明。
func (e *Evaluator) buildReasons(best, avgTop3 float64, passed bool) []string {
	reasons := []string{
		fmt.Sprintf("best_score=%.3f vs min_best_score=%.3f", best, e.cfg.MinBestScore),
		fmt.Sprintf("avg_top3_score=%.3f vs min_avg_top3_score=%.3f", avgTop3, e.cfg.MinAvgTop3Score),
	}
	if best < e.cfg.MinBestScore {
		reasons = append(reasons, "best_score below threshold")
	}
	if avgTop3 < e.cfg.MinAvgTop3Score {
		reasons = append(reasons, "avg_top3_score below threshold")
	}
	if passed {
		reasons = append(reasons, "gate passed")
	}
	return reasons
}

func (e *Evaluator) recommend(level EvidenceLevel, best float64) []string {
	switch level {
	case EvidenceStrong:
		return []string{}
	case EvidenceModerate:
		return []string{ActionExpandTopK}
	}

	// Low / Insufficient
	actions := []string{}
	if e.cfg.MultiQueryEnabled {
		actions = append(actions, ActionMultiQuery)
	}
	if e.cfg.HyDEEnabled && best < e.cfg.MinBestScore/2 {
		actions = append(actions, ActionHyDE)
	}
	actions = append(actions, ActionAggressiveHybrid)

	if level == EvidenceInsufficient {
		actions = append(actions, ActionExpandSources)
		if !contains(actions, ActionHyDE) {
			actions = append(actions, ActionHyDE)
		}
	}
	return actions
}

// emptyEvaluation 空输入固定产出 Insufficient，建议动作与开关配置无关。
func (e *Evaluator) emptyEvaluation() Evaluation {
	return Evaluation{
		GatePassed:    false,
		EvidenceLevel: EvidenceInsufficient,
		Confidence:    EvidenceInsufficient.Confidence(),
		Reasons: []string{
			fmt.Sprintf("best_score=0.000 vs min_best_score=%.3f", e.cfg.MinBestScore),
			fmt.Sprintf("avg_top3_score=0.000 vs min_avg_top3_score=%.3f", e.cfg.MinAvgTop3Score),
			"no results returned",
		},
		RecommendedActions: []string{ActionMultiQuery, ActionHyDE, ActionExpandSources},
	}
}

// scoreSummary 提取 bestScore 与 top-3 均分，结果不足 3 条时取实际条数。
func scoreSummary(results []types.SearchResult) (best, avgTop3 float64) {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.EffectiveScore()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	best = scores[0]
	n := 3
	if len(scores) < n {
		n = len(scores)
	}
	var sum float64
	for _, s := range scores[:n] {
		sum += s
	}
	avgTop3 = sum / float64(n)
	return best, avgTop3
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
