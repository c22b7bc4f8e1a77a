package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pipeline"
	"github.com/rushteam/marketrec/pkg/utils"
)

// FilterNode 组合多个过滤器，任一过滤器返回 true 即移除该候选。
// 过滤器出错时保留候选并记录 warn 日志，不中断请求。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}
	logger := zerolog.Ctx(ctx)

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				logger.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID.String()).Msg("filter failed, item kept")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			item.PutLabel("filtered", utils.NewLabel("true", reason))
			continue
		}
		out = append(out, item)
	}

	if dropped := len(items) - len(out); dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("items filtered")
	}
	return out, nil
}
