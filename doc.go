// Package marketrec 是 marketplace 的推荐与以图搜图引擎。
//
// 设计要点：
// - 无状态：每次调用从参数构建交互矩阵、商品特征与模型，用完即弃
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: 召回来源、冷启动等标记随 Item 全链路透传
// - 外部能力（图像编码、对象存储、结果缓存）均在接口之后，可替换
//
// 入口见 cmd/recommend-engine 与 cmd/visual-search。
package marketrec

import "github.com/rushteam/marketrec/pipeline"

// 轻量 facade：便于直接 import "marketrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
