package corrective

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/corrag/fusion"
	"github.com/BaSui01/corrag/strategy"
	"github.com/BaSui01/corrag/types"
)

// ErrSearchNotConfigured Capabilities 缺少 Search 时返回
var ErrSearchNotConfigured = errors.New("search capability is not configured")

// SearchWithCorrection 执行完整的纠错检索循环。
//
// 初始结果先过证据门控；未通过时按策略顺序逐轮纠错，每轮的新结果
// 只有在最高分超过当前最优时才被采纳。循环终止后返回当前最优结果
// （最坏情况是原始输入）和完整的审计轨迹。
//
// 只有 Search 能力缺失会返回错误，策略层面的失败全部记录在轨迹里。
func (o *Orchestrator) SearchWithCorrection(ctx context.Context, query string, initialResults []types.SearchResult, baseTopK int, caps Capabilities) ([]types.SearchResult, *AuditTrail, error) {
	if !caps.HasSearch() {
		return nil, nil, ErrSearchNotConfigured
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "corrective.search_with_correction",
		trace.WithAttributes(
			attribute.Int("base_top_k", baseTopK),
			attribute.Int("initial_result_count", len(initialResults)),
		))
	defer span.End()

	trail := o.CreateAuditTrail(query, initialResults)
	best := initialResults
	bestScore := trail.InitialEvaluation.BestScore
	currentEval := trail.InitialEvaluation
	triedMultiQuery := false
	triedHyDE := false

	o.logger.Info("correction loop started",
		zap.String("trail_id", trail.ID),
		zap.String("evidence_level", string(currentEval.EvidenceLevel)),
		zap.Bool("gate_passed", currentEval.GatePassed),
		zap.Int("result_count", currentEval.ResultCount),
	)

	for round := 0; o.ShouldRetry(currentEval, round); round++ {
		params, ok := o.GetRetryParameters(currentEval, baseTopK, triedMultiQuery, triedHyDE, round)
		if !ok {
			o.logger.Debug("retry strategies exhausted",
				zap.String("trail_id", trail.ID),
				zap.Int("round", round),
			)
			break
		}

		attemptStart := time.Now()
		results, execErr := o.executeStrategy(ctx, query, params, caps)
		newEval := o.RecordAction(trail, params, results, time.Since(attemptStart), execErr)

		// aggressive_multi_query 同样消耗多查询标记
		if params.UseMultiQuery {
			triedMultiQuery = true
		}
		if params.UseHyDE {
			triedHyDE = true
		}

		if execErr == nil && newEval.BestScore > bestScore {
			best = results
			bestScore = newEval.BestScore
			currentEval = newEval
			o.logger.Info("improved results adopted",
				zap.String("trail_id", trail.ID),
				zap.String("strategy", params.StrategyName),
				zap.Float64("best_score", newEval.BestScore),
				zap.String("evidence_level", string(newEval.EvidenceLevel)),
			)
		}

		if ctx.Err() != nil {
			break
		}
	}

	finalEval := o.evaluator.Evaluate(best)
	trail.Finalize(finalEval, len(best))
	if o.collector != nil {
		o.collector.ObserveCorrection(time.Since(start), trail.Rounds())
	}

	span.SetAttributes(
		attribute.Int("rounds", trail.Rounds()),
		attribute.Bool("gate_passed", finalEval.GatePassed),
		attribute.String("evidence_level", string(finalEval.EvidenceLevel)),
		attribute.Int("final_result_count", len(best)),
	)
	o.logger.Info("correction loop finished",
		zap.String("trail_id", trail.ID),
		zap.Int("rounds", trail.Rounds()),
		zap.Bool("gate_passed", finalEval.GatePassed),
		zap.Int("final_result_count", len(best)),
		zap.Duration("duration", time.Since(start)),
	)

	return best, trail, nil
}

// executeStrategy 执行单个纠错策略并返回检索结果
func (o *Orchestrator) executeStrategy(ctx context.Context, query string, params strategy.RetryParameters, caps Capabilities) ([]types.SearchResult, error) {
	ctx, span := o.tracer.Start(ctx, "corrective.strategy",
		trace.WithAttributes(
			attribute.String("strategy", params.StrategyName),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	switch {
	case params.UseMultiQuery && caps.HasMultiQuery():
		return o.executeMultiQuery(ctx, query, params, caps)
	case params.UseHyDE && caps.HasHyDE():
		return o.executeHyDE(ctx, query, params, caps)
	default:
		// 可选能力缺失时退化为单次检索
		return o.searchOnce(ctx, query, params, caps)
	}
}

// searchOnce 经弹性层执行一次检索
func (o *Orchestrator) searchOnce(ctx context.Context, query string, params strategy.RetryParameters, caps Capabilities) ([]types.SearchResult, error) {
	results, outcome := Execute(ctx, o.executor, DepSearch, nil, func(ctx context.Context) ([]types.SearchResult, error) {
		return caps.Search(ctx, query, searchParams(params))
	})
	if !outcome.OK() {
		return nil, outcome.Err
	}
	return results, nil
}

// executeMultiQuery 生成查询变体并发检索，结果经 RRF 融合。
// 单个变体失败降级为空列表，全部失败才算策略失败。
func (o *Orchestrator) executeMultiQuery(ctx context.Context, query string, params strategy.RetryParameters, caps Capabilities) ([]types.SearchResult, error) {
	variants, outcome := Execute(ctx, o.executor, DepMultiQuery, nil, func(ctx context.Context) ([]string, error) {
		return caps.MultiQuery(ctx, query)
	})
	if !outcome.OK() {
		return nil, fmt.Errorf("multi-query generation: %w", outcome.Err)
	}
	if params.QueryVariants > 0 && len(variants) > params.QueryVariants {
		variants = variants[:params.QueryVariants]
	}
	if len(variants) == 0 {
		// 改写器没给出变体，退化为原始查询的单次检索
		o.logger.Debug("no query variants produced, falling back to plain search")
		return o.searchOnce(ctx, query, params, caps)
	}

	lists := make([][]types.SearchResult, len(variants))
	outcomes := make([]Outcome, len(variants))
	empty := []types.SearchResult{}

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		g.Go(func() error {
			results, out := Execute(gctx, o.executor, DepSearch, &empty, func(ctx context.Context) ([]types.SearchResult, error) {
				return caps.Search(ctx, variant, searchParams(params))
			})
			lists[i] = results
			outcomes[i] = out
			// 单个变体的失败不终止整个扇出
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var firstErr error
	for _, out := range outcomes {
		if out.OK() {
			succeeded++
		} else if firstErr == nil {
			firstErr = out.Err
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("all %d query variants failed: %w", len(variants), firstErr)
	}

	// RRF 分数决定融合顺序，但量纲与检索器分数不可比，直接参与门控
	// 评估会把有效结果误判。先按去重键记住融合前的有效分数
	// （取各列表中的最大值），融合后保持顺序、回写原始分数。
	origScores := make(map[string]float64)
	for _, list := range lists {
		for _, r := range list {
			key := r.StableKey()
			if s := r.EffectiveScore(); s > origScores[key] {
				origScores[key] = s
			}
		}
	}

	merged := fusion.MergeRRF(lists, params.TopK, fusion.DefaultK)
	for i := range merged {
		merged[i].FinalScore = origScores[merged[i].StableKey()]
	}

	o.logger.Debug("multi-query fan-out merged",
		zap.Int("variants", len(variants)),
		zap.Int("succeeded", succeeded),
		zap.Int("merged", len(merged)),
	)
	return merged, nil
}

// executeHyDE 生成假设文档并用其检索，生成为空时回退到原始查询。
func (o *Orchestrator) executeHyDE(ctx context.Context, query string, params strategy.RetryParameters, caps Capabilities) ([]types.SearchResult, error) {
	hypothetical, outcome := Execute(ctx, o.executor, DepHyDE, nil, func(ctx context.Context) (string, error) {
		return caps.HyDE(ctx, query)
	})
	if !outcome.OK() {
		return nil, fmt.Errorf("hyde generation: %w", outcome.Err)
	}
	if strings.TrimSpace(hypothetical) == "" {
		hypothetical = query
	}
	return o.searchOnce(ctx, hypothetical, params, caps)
}

func searchParams(params strategy.RetryParameters) SearchParams {
	return SearchParams{
		TopK:           params.TopK,
		LexicalWeight:  params.LexicalWeight,
		SemanticWeight: params.SemanticWeight,
	}
}
