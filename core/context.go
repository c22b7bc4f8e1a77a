package core

import "github.com/rushteam/marketrec/pkg/utils"

// RecommendContext 承载单次推荐请求的信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID ID

	// TopK 期望返回的条数
	TopK int

	// Labels 是用户级标签，例如 cold_start
	Labels map[string]utils.Label

	// Params 请求级参数，CEL 过滤表达式可以通过 rctx.params 访问
	Params map[string]any
}

// PutLabel 写入用户级 Label
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
