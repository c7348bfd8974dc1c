package gate

// EvidenceLevel 证据质量级别，按置信度降序排列
type EvidenceLevel string

const (
	// EvidenceStrong 证据充分，无需纠错
	EvidenceStrong EvidenceLevel = "strong"
	// EvidenceModerate 证据尚可，建议扩大检索范围
	EvidenceModerate EvidenceLevel = "moderate"
	// EvidenceLow 证据不足，需要纠错检索
	EvidenceLow EvidenceLevel = "low"
	// EvidenceInsufficient 几乎没有可用证据
	EvidenceInsufficient EvidenceLevel = "insufficient"
)

// Confidence 返回级别对应的固定置信度
func (l EvidenceLevel) Confidence() float64 {
	switch l {
	case EvidenceStrong:
		return 1.0
	case EvidenceModerate:
		return 0.7
	case EvidenceLow:
		return 0.4
	case EvidenceInsufficient:
		return 0.1
	default:
		return 0.0
	}
}

// RequiresCorrection Low / Insufficient 级别需要触发纠错检索
func (l EvidenceLevel) RequiresCorrection() bool {
	return l == EvidenceLow || l == EvidenceInsufficient
}

// 纠错策略名称。gate 在 RecommendedActions 里给出建议，
// strategy 包用同一组名称构造具体的重试参数。
const (
	ActionExpandTopK           = "expand_top_k"
	ActionMultiQuery           = "multi_query"
	ActionHyDE                 = "hyde"
	ActionAggressiveHybrid     = "aggressive_hybrid"
	ActionExpandSources        = "expand_sources"
	ActionAggressiveMultiQuery = "aggressive_multi_query"
)

// Evaluation 一次证据评估的结果。每次评估产生新值，从不原地修改。
type Evaluation struct {
	GatePassed         bool          `json:"gate_passed"`
	EvidenceLevel      EvidenceLevel `json:"evidence_level"`
	Confidence         float64       `json:"confidence"`
	BestScore          float64       `json:"best_score"`
	AvgTop3Score       float64       `json:"avg_top3_score"`
	ResultCount        int           `json:"result_count"`
	Reasons            []string      `json:"reasons"`
	RecommendedActions []string      `json:"recommended_actions"`
}
