package recall

import (
	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/feature"
	"github.com/rushteam/marketrec/pkg/similarity"
)

// SimilarUsers 基于原始交互行的余弦相似度找出最相似的 n 个用户（不含自身）。
//
// 这是 User-based CF 的第一步：相似用户本身就是可解释的结果，
// 例如“和你口味相近的卖家”。未知用户返回空列表；零向量用户相似度为 0。
func SimilarUsers(matrix *feature.InteractionMatrix, user core.ID, n int) []core.ScoredID {
	if matrix == nil || n <= 0 {
		return []core.ScoredID{}
	}
	self, ok := matrix.UserIndex[user]
	if !ok {
		return []core.ScoredID{}
	}
	query := matrix.Values[self]

	candidates := make([]core.ScoredID, 0, len(matrix.Users))
	for i, row := range matrix.Values {
		if i == self {
			continue
		}
		candidates = append(candidates, core.ScoredID{
			ID:    matrix.Users[i],
			Score: similarity.CosineOrZero(query, row),
		})
	}
	return similarity.TopK(candidates, n)
}
