package recommend

import (
	"math"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/model"
	"github.com/rushteam/marketrec/recall"
)

const (
	// DefaultCFWeight 协同过滤分数在混合打分中的权重
	DefaultCFWeight = 0.7
	// DefaultTopK 缺省返回条数
	DefaultTopK = 10
	// DefaultCandidateFactor 协同过滤候选数 = TopK × 该系数
	DefaultCandidateFactor = 2
	// DefaultSimilarUsers similar_users 缺省返回条数
	DefaultSimilarUsers = 5
)

// Options 推荐引擎参数
type Options struct {
	Components        int     // 隐空间维度上限
	CFWeight          float64 // 混合权重 w：w·cf + (1-w)·content
	TopK              int
	CFCandidateFactor int
	ContentSeedItems  int
	ContentNeighbors  int
	Filter            string // CEL 保留条件，空表示不过滤
}

// DefaultOptions 返回缺省参数
func DefaultOptions() Options {
	return Options{
		Components:        model.DefaultComponents,
		CFWeight:          DefaultCFWeight,
		TopK:              DefaultTopK,
		CFCandidateFactor: DefaultCandidateFactor,
		ContentSeedItems:  recall.DefaultSeedItems,
		ContentNeighbors:  recall.DefaultNeighbors,
	}
}

// Option 推荐引擎配置选项
type Option func(*Options)

// WithComponents 设置隐空间维度上限
func WithComponents(n int) Option {
	return func(o *Options) { o.Components = n }
}

// WithCFWeight 设置缺省混合权重
func WithCFWeight(w float64) Option {
	return func(o *Options) { o.CFWeight = w }
}

// WithTopK 设置缺省返回条数
func WithTopK(k int) Option {
	return func(o *Options) { o.TopK = k }
}

// WithCandidateFactor 设置协同过滤候选倍数
func WithCandidateFactor(f int) Option {
	return func(o *Options) { o.CFCandidateFactor = f }
}

// WithContent 设置内容召回的种子数与近邻数
func WithContent(seedItems, neighbors int) Option {
	return func(o *Options) {
		o.ContentSeedItems = seedItems
		o.ContentNeighbors = neighbors
	}
}

// WithFilter 设置 CEL 过滤表达式
func WithFilter(expr string) Option {
	return func(o *Options) { o.Filter = expr }
}

func validateWeight(w float64) error {
	if math.IsNaN(w) || w < 0 || w > 1 {
		return core.Validationf(core.ModuleRecommend, "collaborative weight must be within [0, 1], got %v", w)
	}
	return nil
}

func validateTopK(k int) error {
	if k < 0 {
		return core.Validationf(core.ModuleRecommend, "top_k must not be negative, got %d", k)
	}
	return nil
}

func (o Options) validate() error {
	if err := validateWeight(o.CFWeight); err != nil {
		return err
	}
	if err := validateTopK(o.TopK); err != nil {
		return err
	}
	if o.CFCandidateFactor < 1 {
		return core.Validationf(core.ModuleRecommend, "cf candidate factor must be at least 1, got %d", o.CFCandidateFactor)
	}
	if o.ContentSeedItems < 1 || o.ContentNeighbors < 1 {
		return core.Validationf(core.ModuleRecommend, "content seed items and neighbors must be positive")
	}
	return nil
}
