package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pipeline"
	"github.com/rushteam/marketrec/pkg/utils"
)

// MergeStrategy 多路召回结果的合并方式
type MergeStrategy string

const (
	// MergeFirst 按 ID 去重，保留第一次出现的候选
	MergeFirst MergeStrategy = "first"
	// MergeUnion 直接拼接，不去重
	MergeUnion MergeStrategy = "union"
	// MergeWeighted 按 ID 合并，分数为各路分数按 Weights 加权求和
	MergeWeighted MergeStrategy = "weighted"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
//
// 无论各召回源完成的先后，合并结果的顺序都是确定的：
// 按 Sources 顺序、每路内部按返回顺序，取每个 ID 第一次出现的位置。
type Fanout struct {
	Sources       []Source
	Weights       []float64     // MergeWeighted 时每路的权重，缺省为 1
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy

	// IgnoreErrors 为 true 时召回源出错只记日志并视为空结果；否则整个请求失败
	IgnoreErrors bool
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}
	logger := zerolog.Ctx(ctx)

	results := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				if n.IgnoreErrors {
					logger.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed, skipped")
					return nil
				}
				return err
			}
			for _, it := range items {
				if it != nil {
					it.PutLabel(LabelRecallSource, utils.NewLabel(src.Name(), "recall"))
				}
			}
			results[i] = items
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, items := range results {
		logger.Debug().Str("source", n.Sources[i].Name()).Int("items", len(items)).Msg("recall source done")
	}

	switch n.MergeStrategy {
	case MergeUnion:
		return n.mergeUnion(results), nil
	case MergeWeighted:
		return n.mergeWeighted(results), nil
	default:
		return n.mergeFirst(results), nil
	}
}

func (n *Fanout) weight(i int) float64 {
	if i < len(n.Weights) {
		return n.Weights[i]
	}
	return 1
}

// mergeFirst 按 ID 去重，保留第一个出现的，label 合并到保留的候选上
func (n *Fanout) mergeFirst(results [][]*core.Item) []*core.Item {
	seen := make(map[core.ID]*core.Item)
	out := make([]*core.Item, 0)
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			if old, ok := seen[it.ID]; ok {
				for k, v := range it.Labels {
					old.PutLabel(k, v)
				}
				continue
			}
			it.Order = len(out)
			seen[it.ID] = it
			out = append(out, it)
		}
	}
	return out
}

func (n *Fanout) mergeUnion(results [][]*core.Item) []*core.Item {
	out := make([]*core.Item, 0)
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			it.Order = len(out)
			out = append(out, it)
		}
	}
	return out
}

// mergeWeighted 同一 ID 的分数按各路权重累加：score = Σ w_i · s_i
func (n *Fanout) mergeWeighted(results [][]*core.Item) []*core.Item {
	seen := make(map[core.ID]*core.Item)
	out := make([]*core.Item, 0)
	for i, items := range results {
		w := n.weight(i)
		for _, it := range items {
			if it == nil {
				continue
			}
			if old, ok := seen[it.ID]; ok {
				old.Score += w * it.Score
				for k, v := range it.Labels {
					old.PutLabel(k, v)
				}
				continue
			}
			it.Score *= w
			it.Order = len(out)
			seen[it.ID] = it
			out = append(out, it)
		}
	}
	return out
}
