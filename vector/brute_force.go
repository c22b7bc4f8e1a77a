package vector

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pkg/similarity"
)

// BruteForceService 是基于内存候选集的 core.VectorService 实现，逐个计算相似度。
//
// 候选集来自单次请求（几百到几千个商品 embedding），不做索引也不持久化。
type BruteForceService struct {
	candidates []Candidate
	dimension  int
}

var _ core.VectorService = (*BruteForceService)(nil)

// NewBruteForceService 创建检索服务；所有候选维度必须一致，否则返回 VALIDATION 错误
func NewBruteForceService(candidates []Candidate) (*BruteForceService, error) {
	dim := 0
	for i, c := range candidates {
		if i == 0 {
			dim = len(c.Vector)
			continue
		}
		if len(c.Vector) != dim {
			return nil, core.Validationf(core.ModuleVector, "candidate %s has dimension %d, expected %d", c.ID, len(c.Vector), dim)
		}
	}
	return &BruteForceService{candidates: candidates, dimension: dim}, nil
}

// Dimension 候选向量维度；候选为空时为 0
func (s *BruteForceService) Dimension() int { return s.dimension }

// Search 实现 core.VectorService 接口；Metric 缺省为 inner_product
func (s *BruteForceService) Search(_ context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil {
		return nil, core.Validationf(core.ModuleVector, "vector search request is nil")
	}
	metric := req.Metric
	if metric == "" {
		metric = core.MetricInnerProduct
	}
	if !core.ValidateVectorMetric(metric) {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeNotSupported, "unsupported metric: "+string(metric))
	}

	var (
		scored []core.ScoredID
		err    error
	)
	switch metric {
	case core.MetricCosine:
		scored, err = s.cosine(req.Vector)
		if err == nil {
			scored = similarity.TopK(scored, limit(req.TopK, len(scored)))
		}
	default:
		scored, err = FindSimilar(req.Vector, s.candidates, limit(req.TopK, len(s.candidates)))
	}
	if err != nil {
		return nil, err
	}

	items := make([]core.VectorSearchItem, 0, len(scored))
	for _, x := range scored {
		items = append(items, core.VectorSearchItem{ID: x.ID, Score: x.Score})
	}
	return &core.VectorSearchResult{Items: items}, nil
}

func (s *BruteForceService) cosine(query []float64) ([]core.ScoredID, error) {
	out := make([]core.ScoredID, 0, len(s.candidates))
	for _, c := range s.candidates {
		if len(c.Vector) != len(query) {
			return nil, core.Computationf(core.ModuleVector, "candidate %s: dimension mismatch: %d vs %d", c.ID, len(query), len(c.Vector))
		}
		out = append(out, core.ScoredID{ID: c.ID, Score: similarity.CosineOrZero(query, c.Vector)})
	}
	return out, nil
}

// limit TopK <= 0 表示不截断
func limit(topK, n int) int {
	if topK <= 0 {
		return n
	}
	return topK
}

// Close 实现 core.VectorService 接口
func (s *BruteForceService) Close() error {
	s.candidates = nil
	return nil
}
