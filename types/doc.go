// Package types 定义纠错检索核心共享的数据类型。
//
// 核心类型是 SearchResult：一个松散结构的检索结果记录，
// 带有少量必需字段（稳定 ID、分数、文本）和开放的元数据表。
// 分数提取遵循固定的字段回退顺序：final_score → score → rerank_score。
package types
