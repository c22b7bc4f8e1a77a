package model

// LatentModel 是隐因子模型的最小抽象：把用户与商品映射到同一个 k 维空间，
// 用户向量与商品向量的相似度即协同过滤分数。
//
// 模型由一次请求的交互矩阵拟合得到，拟合后不可变；数据变化时重新拟合。
type LatentModel interface {
	Name() string

	// Components 隐空间维度 k
	Components() int

	// ProjectUser 把一行用户交互（长度 = 商品数）投影到隐空间
	ProjectUser(row []float64) ([]float64, error)

	// ItemFactors 每个商品的隐向量，顺序与交互矩阵的列一致
	ItemFactors() [][]float64
}
