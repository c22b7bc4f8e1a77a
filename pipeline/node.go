package pipeline

import (
	"context"

	"github.com/rushteam/marketrec/core"
)

// Kind 用于标记 Node 所处阶段，日志中按阶段区分。
type Kind string

const (
	KindRecall Kind = "recall" // 召回：生成候选集
	KindFilter Kind = "filter" // 过滤：剔除不符合约束的候选
	KindRank   Kind = "rank"   // 排序：按分数排序
	KindReRank Kind = "rerank" // 重排：截断等后处理
)

// Node 是 Pipeline 的最小可扩展单元，统一为“输入 items -> 输出 items”。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
