// Package vector 实现以图搜图的向量检索：在一次请求给出的候选集中找与查询向量最相似的项。
package vector

import (
	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pkg/similarity"
)

// FindSimilar 以内积为相似度，返回前 topK 个候选（降序，同分保持输入顺序）。
//
// 前置条件：向量已由编码端 L2 归一化，此处不再归一化，内积即余弦相似度。
// 结果长度 = min(topK, len(candidates))；候选为空返回空列表；
// 任一候选维度与查询不一致返回 COMPUTATION 错误。
func FindSimilar(query []float64, candidates []Candidate, topK int) ([]core.ScoredID, error) {
	scored := make([]core.ScoredID, 0, len(candidates))
	for _, c := range candidates {
		s, err := similarity.Dot(query, c.Vector)
		if err != nil {
			return nil, core.Computationf(core.ModuleVector, "candidate %s: %s", c.ID, err.Error())
		}
		scored = append(scored, core.ScoredID{ID: c.ID, Score: s})
	}
	return similarity.TopK(scored, topK), nil
}
