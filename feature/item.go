package feature

import (
	"github.com/rushteam/marketrec/core"
)

const (
	// CategoryBuckets 品类哈希桶数
	CategoryBuckets = 10
	// PriceScale 价格缩放基数
	PriceScale = 10000.0
)

// ItemFeatures 商品内容特征矩阵，行顺序与输入商品顺序一致。
//
// 注意：这里的行号与 InteractionMatrix 的列号无关；按商品 ID 查行请使用 RowOf。
type ItemFeatures struct {
	IDs     []core.ID
	Vectors [][]float64
	rowOf   map[core.ID]int
}

// DefaultEncoders 返回默认的编码器组合：10 个品类桶 + 成色 + 价格，共 12 列
func DefaultEncoders() []Encoder {
	return []Encoder{
		NewHashBucketEncoder(CategoryBuckets),
		ConditionEncoder{},
		PriceScaler{Scale: PriceScale},
	}
}

// BuildItemFeatures 使用默认编码器构建商品特征
func BuildItemFeatures(products []core.Product) (*ItemFeatures, error) {
	return BuildItemFeaturesWith(products, DefaultEncoders()...)
}

// BuildItemFeaturesWith 使用指定编码器构建商品特征。
// 重复的商品 ID 都会保留一行，RowOf 取首次出现的那一行。
func BuildItemFeaturesWith(products []core.Product, encoders ...Encoder) (*ItemFeatures, error) {
	width := 0
	for _, enc := range encoders {
		width += enc.Width()
	}

	f := &ItemFeatures{
		IDs:     make([]core.ID, 0, len(products)),
		Vectors: make([][]float64, 0, len(products)),
		rowOf:   make(map[core.ID]int, len(products)),
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		vec := make([]float64, width)
		offset := 0
		for _, enc := range encoders {
			enc.Encode(vec[offset:offset+enc.Width()], p)
			offset += enc.Width()
		}
		if _, dup := f.rowOf[p.ID]; !dup {
			f.rowOf[p.ID] = len(f.Vectors)
		}
		f.IDs = append(f.IDs, p.ID)
		f.Vectors = append(f.Vectors, vec)
	}
	return f, nil
}

// Len 商品行数
func (f *ItemFeatures) Len() int { return len(f.Vectors) }

// RowOf 返回商品 ID 对应的行号
func (f *ItemFeatures) RowOf(id core.ID) (int, bool) {
	i, ok := f.rowOf[id]
	return i, ok
}

// Vector 返回商品的特征向量
func (f *ItemFeatures) Vector(id core.ID) ([]float64, bool) {
	i, ok := f.rowOf[id]
	if !ok {
		return nil, false
	}
	return f.Vectors[i], true
}
