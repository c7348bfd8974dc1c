package corrective

import (
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/strategy"
)

// maxAuditQueryLen 审计轨迹中查询文本的截断长度，避免长查询撑爆日志
const maxAuditQueryLen = 256

// CorrectiveAction 一次纠错尝试的审计记录
type CorrectiveAction struct {
	StrategyName string                   `json:"strategy_name"`
	Parameters   strategy.RetryParameters `json:"parameters"`
	Success      bool                     `json:"success"`
	Error        string                   `json:"error,omitempty"`
	DurationMs   int64                    `json:"duration_ms"`
	ResultCount  int                      `json:"result_count"`
	BestScore    float64                  `json:"best_score"`
	AvgTop3Score float64                  `json:"avg_top3_score"`
}

// AuditTrail 一次完整纠错循环的审计轨迹。
// 由单个循环 goroutine 顺序写入，不做并发保护。
type AuditTrail struct {
	ID                string             `json:"id"`
	Query             string             `json:"query"`
	StartedAt         time.Time          `json:"started_at"`
	InitialEvaluation gate.Evaluation    `json:"initial_evaluation"`
	Actions           []CorrectiveAction `json:"actions"`
	FinalEvaluation   gate.Evaluation    `json:"final_evaluation"`
	FinalResultCount  int                `json:"final_result_count"`
	TotalDurationMs   int64              `json:"total_duration_ms"`

	finalized bool
}

func newAuditTrail(query string, initial gate.Evaluation) *AuditTrail {
	if len(query) > maxAuditQueryLen {
		query = query[:maxAuditQueryLen]
	}
	return &AuditTrail{
		ID:                uuid.NewString(),
		Query:             query,
		StartedAt:         time.Now().UTC(),
		InitialEvaluation: initial,
		Actions:           []CorrectiveAction{},
	}
}

func (t *AuditTrail) append(action CorrectiveAction) {
	t.Actions = append(t.Actions, action)
}

// Finalize 封口审计轨迹，记录最终评估与总耗时。重复调用无效果。
func (t *AuditTrail) Finalize(final gate.Evaluation, resultCount int) {
	if t.finalized {
		return
	}
	t.finalized = true
	t.FinalEvaluation = final
	t.FinalResultCount = resultCount
	t.TotalDurationMs = time.Since(t.StartedAt).Milliseconds()
}

// Rounds 实际执行的纠错轮数
func (t *AuditTrail) Rounds() int {
	return len(t.Actions)
}

// ToMap 转成可直接序列化 / 入日志的扁平结构
func (t *AuditTrail) ToMap() map[string]any {
	actions := make([]map[string]any, 0, len(t.Actions))
	for _, a := range t.Actions {
		actions = append(actions, map[string]any{
			"strategy_name":  a.StrategyName,
			"success":        a.Success,
			"error":          a.Error,
			"duration_ms":    a.DurationMs,
			"result_count":   a.ResultCount,
			"best_score":     a.BestScore,
			"avg_top3_score": a.AvgTop3Score,
			"parameters":     a.Parameters,
		})
	}
	return map[string]any{
		"id":                 t.ID,
		"query":              t.Query,
		"started_at":         t.StartedAt.Format(time.RFC3339),
		"initial_evaluation": evaluationToMap(t.InitialEvaluation),
		"actions":            actions,
		"final_evaluation":   evaluationToMap(t.FinalEvaluation),
		"final_result_count": t.FinalResultCount,
		"rounds":             len(t.Actions),
		"total_duration_ms":  t.TotalDurationMs,
	}
}

func evaluationToMap(ev gate.Evaluation) map[string]any {
	return map[string]any{
		"gate_passed":         ev.GatePassed,
		"evidence_level":      string(ev.EvidenceLevel),
		"confidence":          ev.Confidence,
		"best_score":          ev.BestScore,
		"avg_top3_score":      ev.AvgTop3Score,
		"result_count":        ev.ResultCount,
		"reasons":             ev.Reasons,
		"recommended_actions": ev.RecommendedActions,
	}
}
