package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/marketrec/core"
)

// DefaultComponents 缺省隐空间维度
const DefaultComponents = 20

// TruncatedSVD 截断奇异值分解：M ≈ U_k Σ_k V_kᵀ。
//
// 使用精确的 thin SVD 而不是随机化算法，并对奇异向量做符号规范化
// （每个右奇异向量绝对值最大的分量取正，左奇异向量同步翻转），
// 同一矩阵每次拟合得到完全相同的结果。
//
// 用户隐向量 = M · V_k，商品隐向量 = Mᵀ · U_k，两者同处 k 维空间，
// 对任意形状的矩阵都成立。
type TruncatedSVD struct {
	components int
	rows, cols int
	values     []float64
	vk         *mat.Dense // cols × k
	users      [][]float64
	items      [][]float64
}

var _ LatentModel = (*TruncatedSVD)(nil)

// FitTruncatedSVD 对 rows × cols 的矩阵做截断 SVD。
//
// 实际维度 k = min(requested, min(rows, cols) - 1)。
// requested <= 0、行数或列数小于 2 时返回 CONFIGURATION 错误。
func FitTruncatedSVD(a mat.Matrix, requested int) (*TruncatedSVD, error) {
	if requested <= 0 {
		return nil, core.Configurationf(core.ModuleModel, "components must be positive, got %d", requested)
	}
	if a == nil {
		return nil, core.Configurationf(core.ModuleModel, "cannot factorize an empty matrix")
	}
	rows, cols := a.Dims()
	if rows < 2 || cols < 2 {
		return nil, core.Configurationf(core.ModuleModel, "factorization needs at least 2 users and 2 items, got %dx%d", rows, cols)
	}
	k := min(requested, min(rows, cols)-1)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, core.Computationf(core.ModuleModel, "singular value decomposition did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	normalizeSigns(&u, &v, k)

	uk := mat.DenseCopyOf(u.Slice(0, rows, 0, k))
	vk := mat.DenseCopyOf(v.Slice(0, cols, 0, k))

	var users, items mat.Dense
	users.Mul(a, vk)
	items.Mul(a.T(), uk)

	return &TruncatedSVD{
		components: k,
		rows:       rows,
		cols:       cols,
		values:     svd.Values(nil)[:k],
		vk:         vk,
		users:      denseRows(&users),
		items:      denseRows(&items),
	}, nil
}

// normalizeSigns 让每个右奇异向量绝对值最大的分量为正（并列取下标最小者）
func normalizeSigns(u, v *mat.Dense, k int) {
	ur, _ := u.Dims()
	vr, _ := v.Dims()
	for j := 0; j < k; j++ {
		pivot := 0
		for i := 1; i < vr; i++ {
			if math.Abs(v.At(i, j)) > math.Abs(v.At(pivot, j)) {
				pivot = i
			}
		}
		if v.At(pivot, j) >= 0 {
			continue
		}
		for i := 0; i < vr; i++ {
			v.Set(i, j, -v.At(i, j))
		}
		for i := 0; i < ur; i++ {
			u.Set(i, j, -u.At(i, j))
		}
	}
}

func denseRows(d *mat.Dense) [][]float64 {
	r, _ := d.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, d)
	}
	return out
}

func (m *TruncatedSVD) Name() string { return "truncated_svd" }

func (m *TruncatedSVD) Components() int { return m.components }

// SingularValues 前 k 个奇异值，降序
func (m *TruncatedSVD) SingularValues() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

// ExplainedVariance 每个分量奇异值平方占前 k 个分量平方和的比例
func (m *TruncatedSVD) ExplainedVariance() []float64 {
	total := 0.0
	for _, s := range m.values {
		total += s * s
	}
	out := make([]float64, len(m.values))
	if total == 0 {
		return out
	}
	for i, s := range m.values {
		out[i] = s * s / total
	}
	return out
}

// ProjectUser 计算 row · V_k
func (m *TruncatedSVD) ProjectUser(row []float64) ([]float64, error) {
	if len(row) != m.cols {
		return nil, core.Computationf(core.ModuleModel, "user row has %d items, model expects %d", len(row), m.cols)
	}
	var out mat.VecDense
	out.MulVec(m.vk.T(), mat.NewVecDense(len(row), append([]float64(nil), row...)))
	return mat.Col(nil, 0, &out), nil
}

// UserFactors 训练矩阵中每个用户的隐向量（M · V_k）
func (m *TruncatedSVD) UserFactors() [][]float64 { return m.users }

// ItemFactors 每个商品的隐向量（Mᵀ · U_k）
func (m *TruncatedSVD) ItemFactors() [][]float64 { return m.items }
