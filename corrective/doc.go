// Package corrective 实现纠错检索控制循环 (Corrective RAG)。
//
// 工作流程：
//  1. 用证据门控 (gate) 评估初始检索结果质量
//  2. 质量不足时，按策略构造器 (strategy) 给出的顺序执行纠错检索
//  3. multi_query 策略并发扇出多个查询变体，结果经 RRF 融合 (fusion)
//  4. 每次外部调用都经过弹性层（熔断器 + 指数退避重试）
//  5. 循环直到门控通过、策略耗尽或达到轮次上限
//
// 单个策略的失败只记录在审计轨迹上，绝不中断外层循环；
// 调用方最终拿到结果列表（最坏情况是原始输入）和完整的审计轨迹。
package corrective
