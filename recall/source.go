package recall

import (
	"context"

	"github.com/rushteam/marketrec/core"
)

// Source 是一个召回源（协同过滤/内容/热门）。
// Fanout 会并发执行多个 Source 并按策略合并结果。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// LabelRecallSource 召回来源 label key
const LabelRecallSource = "recall_source"
