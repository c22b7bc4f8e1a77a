// Package recommend 是混合推荐的编排层：协同过滤 + 内容相似 + 热门兜底。
//
// 一次请求的完整链路：
//
//	交互记录 → feature.InteractionMatrix → model.TruncatedSVD ─┐
//	商品列表 → feature.ItemFeatures ───────────────────────────┤
//	                                                           ▼
//	recall.Fanout(cf, content; 加权合并) → filter → rank.sort → rerank.topn
//
// 未知用户、协同过滤与内容召回都为空时走 recall.Hot（热门）。
// 未知用户/未知商品不是错误。
package recommend

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/feature"
	"github.com/rushteam/marketrec/filter"
	"github.com/rushteam/marketrec/model"
	"github.com/rushteam/marketrec/pipeline"
	"github.com/rushteam/marketrec/pkg/similarity"
	"github.com/rushteam/marketrec/pkg/utils"
	"github.com/rushteam/marketrec/rank"
	"github.com/rushteam/marketrec/recall"
	"github.com/rushteam/marketrec/rerank"
)

// Strategy 标记推荐结果由哪条路径产生
type Strategy string

const (
	StrategyHybrid  Strategy = "hybrid"  // 协同过滤 + 内容
	StrategyContent Strategy = "content" // 无法做矩阵分解，仅内容
	StrategyPopular Strategy = "popular" // 热门兜底
)

// Result 推荐结果
type Result struct {
	Items    []core.ScoredID `json:"items"`
	Strategy Strategy        `json:"strategy"`
}

// TrainSummary 训练（拟合）摘要
type TrainSummary struct {
	Users             int       `json:"users"`
	Items             int       `json:"items"`
	Components        int       `json:"components"`
	ExplainedVariance []float64 `json:"explained_variance"`
}

// Engine 持有一次请求的数据与模型。
// 模型在第一次需要时拟合，之后不可变；数据变化时创建新的 Engine。
type Engine struct {
	opts     Options
	matrix   *feature.InteractionMatrix
	features *feature.ItemFeatures
	filter   *filter.ExprFilter

	fitOnce sync.Once
	model   *model.TruncatedSVD
	fitErr  error
}

// NewEngine 构建交互矩阵与商品特征。输入非法时返回 VALIDATION 错误。
func NewEngine(interactions []core.Interaction, products []core.Product, opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	matrix, err := feature.BuildInteractionMatrix(interactions)
	if err != nil {
		return nil, err
	}
	features, err := feature.BuildItemFeatures(products)
	if err != nil {
		return nil, err
	}

	e := &Engine{opts: o, matrix: matrix, features: features}
	if o.Filter != "" {
		if e.filter, err = filter.NewExprFilter(o.Filter); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Matrix 返回交互矩阵
func (e *Engine) Matrix() *feature.InteractionMatrix { return e.matrix }

// Features 返回商品特征
func (e *Engine) Features() *feature.ItemFeatures { return e.features }

func (e *Engine) fit() (*model.TruncatedSVD, error) {
	e.fitOnce.Do(func() {
		if e.matrix.IsEmpty() {
			e.fitErr = core.Configurationf(core.ModuleModel, "no interaction data to factorize")
			return
		}
		e.model, e.fitErr = model.FitTruncatedSVD(e.matrix.Dense(), e.opts.Components)
	})
	return e.model, e.fitErr
}

// Train 拟合隐因子模型并返回摘要；用户/商品不足时返回 CONFIGURATION 错误
func (e *Engine) Train(ctx context.Context) (*TrainSummary, error) {
	m, err := e.fit()
	if err != nil {
		return nil, err
	}
	users, items := e.matrix.Shape()
	zerolog.Ctx(ctx).Info().
		Int("users", users).
		Int("items", items).
		Int("components", m.Components()).
		Msg("latent model trained")
	return &TrainSummary{
		Users:             users,
		Items:             items,
		Components:        m.Components(),
		ExplainedVariance: m.ExplainedVariance(),
	}, nil
}

// Recommend 为用户生成推荐。
//
//   - 没有任何交互数据：空结果，Strategy 为 popular
//   - 未知用户：热门排行
//   - 已知用户：w·cf + (1-w)·content 混合打分；矩阵无法分解时仅用内容分数
//   - 混合结果为空：热门排行
//
// cfWeight 超出 [0, 1] 或 topK 为负返回 VALIDATION 错误。
func (e *Engine) Recommend(ctx context.Context, userID core.ID, topK int, cfWeight float64) (*Result, error) {
	if err := validateWeight(cfWeight); err != nil {
		return nil, err
	}
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().Str("user", userID.String()).Int("top_k", topK).Logger()
	ctx = logger.WithContext(ctx)

	rctx := &core.RecommendContext{UserID: userID, TopK: topK}
	if e.matrix.IsEmpty() {
		return &Result{Items: []core.ScoredID{}, Strategy: StrategyPopular}, nil
	}

	if _, known := e.matrix.UserIndex[userID]; !known {
		rctx.PutLabel("cold_start", utils.NewLabel("true", "recommend"))
		logger.Debug().Msg("unknown user, serving popular items")
		return e.popular(ctx, rctx)
	}
	// 交互分数全为 0 的用户没有任何偏好信号，按冷启动处理
	if row, _ := e.matrix.Row(userID); similarity.Norm(row) == 0 {
		rctx.PutLabel("cold_start", utils.NewLabel("true", "recommend"))
		logger.Debug().Msg("user has no positive interactions, serving popular items")
		return e.popular(ctx, rctx)
	}

	strategy := StrategyHybrid
	sources := []recall.Source{}
	weights := []float64{}
	if m, err := e.fit(); err == nil {
		sources = append(sources, &recall.LatentRecall{
			Model:  m,
			Matrix: e.matrix,
			TopK:   topK * e.opts.CFCandidateFactor,
		})
		weights = append(weights, cfWeight)
	} else if core.IsConfiguration(err) {
		logger.Warn().Err(err).Msg("collaborative filtering skipped")
		strategy = StrategyContent
	} else {
		return nil, err
	}

	contentWeight := 1 - cfWeight
	if strategy == StrategyContent {
		contentWeight = 1
	}
	sources = append(sources, &recall.ContentRecall{
		Matrix:    e.matrix,
		Features:  e.features,
		SeedItems: e.opts.ContentSeedItems,
		Neighbors: e.opts.ContentNeighbors,
	})
	weights = append(weights, contentWeight)

	fanout := &recall.Fanout{
		Sources:       sources,
		Weights:       weights,
		MergeStrategy: recall.MergeWeighted,
	}
	candidates, err := fanout.Process(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		logger.Debug().Msg("blend is empty, serving popular items")
		return e.popular(ctx, rctx)
	}

	items, err := e.tail().Run(ctx, rctx, candidates)
	if err != nil {
		return nil, err
	}
	return &Result{Items: toScored(items), Strategy: strategy}, nil
}

func (e *Engine) popular(ctx context.Context, rctx *core.RecommendContext) (*Result, error) {
	candidates, err := (&recall.Hot{Matrix: e.matrix}).Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	items, err := e.tail().Run(ctx, rctx, candidates)
	if err != nil {
		return nil, err
	}
	return &Result{Items: toScored(items), Strategy: StrategyPopular}, nil
}

// tail 召回之后的公共链路：过滤 → 排序 → 截断
func (e *Engine) tail() *pipeline.Pipeline {
	nodes := make([]pipeline.Node, 0, 3)
	if e.filter != nil {
		nodes = append(nodes, &filter.FilterNode{Filters: []filter.Filter{e.filter}})
	}
	nodes = append(nodes, &rank.SortNode{}, &rerank.TopNNode{})
	return &pipeline.Pipeline{Nodes: nodes}
}

func toScored(items []*core.Item) []core.ScoredID {
	out := make([]core.ScoredID, 0, len(items))
	for _, it := range items {
		out = append(out, core.ScoredID{ID: it.ID, Score: it.Score})
	}
	return out
}

// Popular 热门排行；没有交互数据时返回空列表
func (e *Engine) Popular(_ context.Context, topK int) ([]core.ScoredID, error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	if topK == 0 {
		return []core.ScoredID{}, nil
	}
	return (&recall.Hot{Matrix: e.matrix, TopK: topK}).Ranking(), nil
}

// SimilarProducts 按内容特征找相似商品；未知商品返回空列表
func (e *Engine) SimilarProducts(_ context.Context, productID core.ID, topK int) ([]core.ScoredID, error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	return recall.SimilarItems(e.features, productID, topK), nil
}

// SimilarUsers 按交互行找相似用户；未知用户返回空列表
func (e *Engine) SimilarUsers(_ context.Context, userID core.ID, n int) ([]core.ScoredID, error) {
	if err := validateTopK(n); err != nil {
		return nil, err
	}
	return recall.SimilarUsers(e.matrix, userID, n), nil
}

// Options 返回引擎参数（命令行缺省值取自这里）
func (e *Engine) Options() Options { return e.opts }
