package corrective

import (
	"context"

	"github.com/BaSui01/corrag/types"
)

// 弹性层的受保护依赖名，每个依赖对应一个独立的熔断器。
const (
	DepSearch     = "search"
	DepMultiQuery = "multi-query"
	DepHyDE       = "hyde-generator"
)

// SearchParams 单次检索调用的参数
type SearchParams struct {
	TopK           int     `json:"top_k"`
	LexicalWeight  float64 `json:"lexical_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
}

// SearchFunc 执行一次检索并返回带分数的结果列表
type SearchFunc func(ctx context.Context, query string, params SearchParams) ([]types.SearchResult, error)

// MultiQueryFunc 为原始查询生成若干改写变体
type MultiQueryFunc func(ctx context.Context, query string) ([]string, error)

// HyDEFunc 为查询生成假设文档，用其代替原始查询做检索
type HyDEFunc func(ctx context.Context, query string) (string, error)

// Capabilities 纠错循环可调用的外部能力。Search 必填，
// MultiQuery 与 HyDE 缺失时对应策略退化为单次检索。
type Capabilities struct {
	Search     SearchFunc
	MultiQuery MultiQueryFunc
	HyDE       HyDEFunc
}

// HasSearch 检索能力是否配置
func (c Capabilities) HasSearch() bool { return c.Search != nil }

// HasMultiQuery 多查询改写能力是否配置
func (c Capabilities) HasMultiQuery() bool { return c.MultiQuery != nil }

// HasHyDE 假设文档生成能力是否配置
func (c Capabilities) HasHyDE() bool { return c.HyDE != nil }
