// Package similarity 提供向量相似度与稳定 TopK 选择，供推荐与向量检索共用。
package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/marketrec/core"
)

// Dot 计算内积；维度不一致或结果溢出为非有限值时返回 COMPUTATION 错误
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, core.Computationf(core.ModuleVector, "dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return finite(floats.Dot(a, b))
}

func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, core.Computationf(core.ModuleVector, "non-finite similarity")
	}
	return v, nil
}

// Norm 返回 L2 范数
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// Cosine 计算余弦相似度。
// 任一向量为零向量时无定义，返回 COMPUTATION 错误。
func Cosine(a, b []float64) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, core.Computationf(core.ModuleVector, "cosine similarity of zero-norm vector")
	}
	return finite(dot / (na * nb))
}

// CosineOrZero 与 Cosine 相同，但零向量或维度不一致时返回 0。
// 排序场景使用：零向量的候选得分为 0，而不是中断整个请求。
func CosineOrZero(a, b []float64) float64 {
	s, err := Cosine(a, b)
	if err != nil {
		return 0
	}
	return s
}

// Normalize 返回 L2 归一化后的新向量；零向量返回 COMPUTATION 错误
func Normalize(v []float64) ([]float64, error) {
	n := Norm(v)
	if n == 0 {
		return nil, core.Computationf(core.ModuleVector, "cannot normalize zero-norm vector")
	}
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/n, out)
	return out, nil
}

// TopK 按分数降序返回前 k 个，分数相同保持输入顺序。
// k <= 0 返回空结果；不修改入参。
func TopK(scored []core.ScoredID, k int) []core.ScoredID {
	if k <= 0 || len(scored) == 0 {
		return []core.ScoredID{}
	}
	out := make([]core.ScoredID, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// TopIndices 返回分数最高的 k 个下标，分数相同时下标小的在前
func TopIndices(scores []float64, k int) []int {
	if k <= 0 || len(scores) == 0 {
		return []int{}
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
