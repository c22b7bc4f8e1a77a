package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/marketrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的 Label DSL 表达式（CEL 语法），可并发复用。
//
// 可用变量：
//   - item.id（字符串）/ item.score / item.labels
//   - label.<key>：等价于 item.labels.<key>.value，例如 label.recall_source
//   - rctx.user_id / rctx.top_k / rctx.params
//
// 示例：
//   - `item.score > 0.1`
//   - `label.recall_source.contains("content")`
//   - `has(label.recall_source) && label.recall_source != "popular"`
//
// 访问不存在的 label 会在求值时报错，请先用 has() 判断。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；表达式必须返回 bool，否则返回 VALIDATION 错误
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModuleRecommend, core.ErrorCodeValidation,
			fmt.Sprintf("invalid filter expression %q", expr), issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, core.Validationf(core.ModuleRecommend, "filter expression %q must return bool, got %s", expr, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleRecommend, core.ErrorCodeValidation,
			fmt.Sprintf("invalid filter expression %q", expr), err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (p *Program) String() string { return p.expr }

// Match 对单个候选求值
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	values := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]any{
			"value":  v.Value,
			"source": v.Source,
		}
		values[k] = v.Value
	}

	meta := item.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	itemMap := map[string]any{
		"id":     item.ID.String(),
		"score":  item.Score,
		"meta":   meta,
		"labels": labels,
	}

	rctxMap := map[string]any{
		"user_id": "",
		"top_k":   int64(0),
		"params":  map[string]any{},
	}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID.String()
		rctxMap["top_k"] = int64(rctx.TopK)
		if rctx.Params != nil {
			rctxMap["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": values,
		"rctx":  rctxMap,
	}
}
