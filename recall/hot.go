package recall

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/feature"
	"github.com/rushteam/marketrec/pipeline"
	"github.com/rushteam/marketrec/pkg/similarity"
	"github.com/rushteam/marketrec/pkg/utils"
)

// Hot 是热门召回源：热门度 = 交互矩阵中商品列的分数总和。
//
// 结果按热门度降序，热门度相同按列号（商品 ID 升序）排列，与交互记录的输入顺序无关。
// 冷启动用户和协同过滤无结果时都走这一路。
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Matrix *feature.InteractionMatrix

	// TopK <= 0 时返回全部商品
	TopK int
}

func (r *Hot) Name() string        { return "popular" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	_ context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	ranked := r.Ranking()
	out := make([]*core.Item, 0, len(ranked))
	for i, s := range ranked {
		it := core.NewItem(s.ID)
		it.Score = s.Score
		it.Order = i
		it.PutLabel(LabelRecallSource, utils.NewLabel(r.Name(), "recall"))
		out = append(out, it)
	}
	return out, nil
}

// Ranking 返回热门排行
func (r *Hot) Ranking() []core.ScoredID {
	if r.Matrix == nil || r.Matrix.IsEmpty() {
		return []core.ScoredID{}
	}
	sums := r.Matrix.ColumnSums()
	k := r.TopK
	if k <= 0 {
		k = len(sums)
	}
	idx := similarity.TopIndices(sums, k)
	out := make([]core.ScoredID, 0, len(idx))
	for _, j := range idx {
		out = append(out, core.ScoredID{ID: r.Matrix.Items[j], Score: sums[j]})
	}
	return out
}
