package feature

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/marketrec/core"
)

// InteractionMatrix 用户 × 商品的稠密交互矩阵。
//
// 行/列顺序为去重后 ID 的升序（core.CompareIDs），UserIndex/ItemIndex 与
// Users/Items 互为逆映射。未出现的 (user, item) 组合值为 0。
type InteractionMatrix struct {
	Users     []core.ID
	Items     []core.ID
	UserIndex map[core.ID]int
	ItemIndex map[core.ID]int
	Values    [][]float64
}

// BuildInteractionMatrix 由交互记录构建矩阵。
// 同一 (user, item) 出现多次时后者覆盖前者；空输入返回 0×0 矩阵而不是错误。
func BuildInteractionMatrix(interactions []core.Interaction) (*InteractionMatrix, error) {
	users := make(map[core.ID]struct{})
	items := make(map[core.ID]struct{})
	for _, in := range interactions {
		if err := in.Validate(); err != nil {
			return nil, err
		}
		users[in.UserID] = struct{}{}
		items[in.ProductID] = struct{}{}
	}

	m := &InteractionMatrix{
		Users: sortedIDs(users),
		Items: sortedIDs(items),
	}
	m.UserIndex = indexOf(m.Users)
	m.ItemIndex = indexOf(m.Items)

	m.Values = make([][]float64, len(m.Users))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Items))
	}
	for _, in := range interactions {
		m.Values[m.UserIndex[in.UserID]][m.ItemIndex[in.ProductID]] = in.Score
	}
	return m, nil
}

func sortedIDs(set map[core.ID]struct{}) []core.ID {
	ids := make([]core.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return core.CompareIDs(ids[i], ids[j]) < 0 })
	return ids
}

func indexOf(ids []core.ID) map[core.ID]int {
	idx := make(map[core.ID]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}

// Shape 返回 (用户数, 商品数)
func (m *InteractionMatrix) Shape() (int, int) {
	return len(m.Users), len(m.Items)
}

// IsEmpty 没有任何交互数据
func (m *InteractionMatrix) IsEmpty() bool {
	return len(m.Users) == 0 || len(m.Items) == 0
}

// Row 返回用户的交互行；未知用户返回 false
func (m *InteractionMatrix) Row(user core.ID) ([]float64, bool) {
	i, ok := m.UserIndex[user]
	if !ok {
		return nil, false
	}
	return m.Values[i], true
}

// RowSums 每个用户的分数总和
func (m *InteractionMatrix) RowSums() []float64 {
	sums := make([]float64, len(m.Users))
	for i, row := range m.Values {
		for _, v := range row {
			sums[i] += v
		}
	}
	return sums
}

// ColumnSums 每个商品的分数总和（热门度）
func (m *InteractionMatrix) ColumnSums() []float64 {
	sums := make([]float64, len(m.Items))
	for _, row := range m.Values {
		for j, v := range row {
			sums[j] += v
		}
	}
	return sums
}

// Transpose 返回商品 × 用户的转置矩阵
func (m *InteractionMatrix) Transpose() [][]float64 {
	t := make([][]float64, len(m.Items))
	for j := range t {
		t[j] = make([]float64, len(m.Users))
		for i := range m.Values {
			t[j][i] = m.Values[i][j]
		}
	}
	return t
}

// Dense 转为 gonum 稠密矩阵（拷贝）
func (m *InteractionMatrix) Dense() *mat.Dense {
	rows, cols := m.Shape()
	if rows == 0 || cols == 0 {
		return nil
	}
	data := make([]float64, 0, rows*cols)
	for _, row := range m.Values {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
