package recall

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/feature"
	"github.com/rushteam/marketrec/model"
	"github.com/rushteam/marketrec/pkg/similarity"
)

// LatentRecall 是基于隐因子模型的协同过滤召回源（Source 名称 "cf"）。
//
// 分数 = cos(用户隐向量, 商品隐向量)，只对用户尚未交互（分数为 0）的商品打分，
// 零向量的商品得分为 0。按分数降序保留 TopK 个，分数相同按列号。
// 用户不在矩阵中或没有模型时返回空结果。
type LatentRecall struct {
	Model  model.LatentModel
	Matrix *feature.InteractionMatrix

	// TopK 候选数量上限，<= 0 不截断
	TopK int
}

func (r *LatentRecall) Name() string {
	return "cf"
}

func (r *LatentRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil || r.Matrix == nil || rctx == nil {
		return nil, nil
	}
	row, ok := r.Matrix.Row(rctx.UserID)
	if !ok {
		return nil, nil
	}

	userVector, err := r.Model.ProjectUser(row)
	if err != nil {
		return nil, err
	}
	itemVectors := r.Model.ItemFactors()

	candidates := make([]core.ScoredID, 0, len(row))
	for j, v := range row {
		if v != 0 {
			continue
		}
		candidates = append(candidates, core.ScoredID{
			ID:    r.Matrix.Items[j],
			Score: similarity.CosineOrZero(userVector, itemVectors[j]),
		})
	}

	k := r.TopK
	if k <= 0 {
		k = len(candidates)
	}
	top := similarity.TopK(candidates, k)

	out := make([]*core.Item, 0, len(top))
	for _, s := range top {
		it := core.NewItem(s.ID)
		it.Score = s.Score
		out = append(out, it)
	}
	return out, nil
}
