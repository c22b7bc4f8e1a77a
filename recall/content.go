package recall

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/feature"
	"github.com/rushteam/marketrec/pkg/similarity"
)

const (
	// DefaultSeedItems 内容召回使用的用户种子商品数
	DefaultSeedItems = 3
	// DefaultNeighbors 每个种子商品取的相似商品数
	DefaultNeighbors = 5
)

// ContentRecall 是基于内容的召回源（Source 名称 "content"）。
//
// 核心思想："用户喜欢的商品 → 与之内容相似的其他商品"
//  1. 取用户分数最高的 SeedItems 个商品（分数 > 0，同分按列号）作为种子
//  2. 每个种子取 Neighbors 个内容最相似的商品（不含种子自身）
//  3. 同一商品被多个种子命中时相似度累加
//
// 内容召回不排除用户已交互过的商品。
type ContentRecall struct {
	Matrix   *feature.InteractionMatrix
	Features *feature.ItemFeatures

	SeedItems int
	Neighbors int
}

func (r *ContentRecall) Name() string {
	return "content"
}

func (r *ContentRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Matrix == nil || r.Features == nil || rctx == nil {
		return nil, nil
	}
	row, ok := r.Matrix.Row(rctx.UserID)
	if !ok {
		return nil, nil
	}

	seeds := r.SeedItems
	if seeds <= 0 {
		seeds = DefaultSeedItems
	}
	neighbors := r.Neighbors
	if neighbors <= 0 {
		neighbors = DefaultNeighbors
	}

	index := make(map[core.ID]*core.Item)
	out := make([]*core.Item, 0)
	for _, j := range similarity.TopIndices(row, seeds) {
		if row[j] <= 0 {
			continue
		}
		for _, s := range SimilarItems(r.Features, r.Matrix.Items[j], neighbors) {
			if it, ok := index[s.ID]; ok {
				it.Score += s.Score
				continue
			}
			it := core.NewItem(s.ID)
			it.Score = s.Score
			index[s.ID] = it
			out = append(out, it)
		}
	}
	return out, nil
}

// SimilarItems 返回与商品 id 内容最相似的 n 个商品（按特征余弦相似度，不含自身所在行）。
// 商品不在特征表中时返回空列表；相似度相同按商品输入顺序。
func SimilarItems(features *feature.ItemFeatures, id core.ID, n int) []core.ScoredID {
	if features == nil || n <= 0 {
		return []core.ScoredID{}
	}
	self, ok := features.RowOf(id)
	if !ok {
		return []core.ScoredID{}
	}
	query := features.Vectors[self]

	candidates := make([]core.ScoredID, 0, features.Len())
	for i, vec := range features.Vectors {
		if i == self {
			continue
		}
		candidates = append(candidates, core.ScoredID{
			ID:    features.IDs[i],
			Score: similarity.CosineOrZero(query, vec),
		})
	}
	return similarity.TopK(candidates, n)
}
