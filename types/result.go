package types

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
)

// stableKeyPrefixLen 内容哈希取文本前缀的最大字节数
const stableKeyPrefixLen = 200

// SearchResult 检索结果记录
//
// 字段回退规则：提取分数时优先 FinalScore，其次 Score，最后 RerankScore，
// 全部缺失时为 0。LexicalScore / VectorScore / Hybrid 由融合层填充，
// 用于调试来源贡献。
type SearchResult struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`

	Score       float64 `json:"score,omitempty"`
	RerankScore float64 `json:"rerank_score,omitempty"`
	FinalScore  float64 `json:"final_score,omitempty"`

	// 融合层填充的来源信息
	LexicalScore float64  `json:"lexical_score,omitempty"`
	VectorScore  float64  `json:"vector_score,omitempty"`
	Hybrid       bool     `json:"hybrid,omitempty"`
	Sources      []string `json:"sources,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// EffectiveScore 返回记录的有效分数。
// 回退顺序：FinalScore → Score → RerankScore → 0。
func (r SearchResult) EffectiveScore() float64 {
	if r.FinalScore != 0 {
		return r.FinalScore
	}
	if r.Score != 0 {
		return r.Score
	}
	return r.RerankScore
}

// StableKey 返回用于去重的稳定标识。
// 有显式 ID 时直接使用；否则对文本前 200 字节做内容哈希。
func (r SearchResult) StableKey() string {
	if r.ID != "" {
		return r.ID
	}
	text := r.Text
	if len(text) > stableKeyPrefixLen {
		text = text[:stableKeyPrefixLen]
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	return "h:" + strconv.FormatUint(h.Sum64(), 16)
}

// FromMap 从松散的 map 记录构造 SearchResult。
// 容忍缺失或畸形字段，绝不返回错误——无法解析的分数按 0 处理。
func FromMap(record map[string]any) SearchResult {
	r := SearchResult{}
	if record == nil {
		return r
	}

	if v, ok := record["id"]; ok {
		r.ID = toString(v)
	} else if v, ok := record["doc_id"]; ok {
		r.ID = toString(v)
	}

	if v, ok := record["text"]; ok {
		r.Text = toString(v)
	} else if v, ok := record["content"]; ok {
		r.Text = toString(v)
	}

	r.FinalScore = toFloat(record["final_score"])
	r.Score = toFloat(record["score"])
	r.RerankScore = toFloat(record["rerank_score"])

	if meta, ok := record["metadata"].(map[string]any); ok {
		r.Metadata = meta
	}

	return r
}

// toFloat 宽松的数值转换，解析失败返回 0
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
