package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 实现：
//   - vector.BruteForceService：内存暴力检索，候选集规模为单次请求级（几百到几千）
//   - 其他向量数据库可以实现此接口后替换
type VectorService interface {
	// Search 向量搜索
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果，<= 0 表示不截断
	TopK int

	// Metric 相似度度量，缺省为 inner_product
	Metric MetricType
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	ID    ID
	Score float64
}

// VectorSearchResult 向量搜索结果，按 Score 降序
type VectorSearchResult struct {
	Items []VectorSearchItem
}

// MetricType 相似度度量类型
type MetricType string

const (
	MetricCosine       MetricType = "cosine"
	MetricInnerProduct MetricType = "inner_product"
)

// ValidateVectorMetric 验证度量类型
func ValidateVectorMetric(metric MetricType) bool {
	switch metric {
	case MetricCosine, MetricInnerProduct:
		return true
	default:
		return false
	}
}
