package rank

import (
	"context"
	"sort"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pipeline"
)

// SortNode 按 Score 降序排序。
// 排序是稳定的：分数相同的候选保持进入本节点时的相对顺序（召回顺序）。
type SortNode struct{}

func (n *SortNode) Name() string {
	return "rank.sort"
}

func (n *SortNode) Kind() pipeline.Kind {
	return pipeline.KindRank
}

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
