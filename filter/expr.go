package filter

import (
	"context"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述“保留条件”：表达式为 true 的候选保留，其余过滤。
//
// 例如 `item.score > 0.1`、`label.recall_source.contains("content")`。
type ExprFilter struct {
	program *dsl.Program
}

// NewExprFilter 编译表达式；表达式非法返回 VALIDATION 错误
func NewExprFilter(expr string) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: p}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式
func (f *ExprFilter) Expr() string { return f.program.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.program.Match(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
