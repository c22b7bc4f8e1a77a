package rerank

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pipeline"
)

// TopNNode 截取前 N 个候选，通常放在 rank.SortNode 之后。
//
// N 为 0 时使用 rctx.TopK；两者都 <= 0 时返回空列表。
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit == 0 && rctx != nil {
		limit = rctx.TopK
	}
	if limit <= 0 {
		return []*core.Item{}, nil
	}
	if len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
