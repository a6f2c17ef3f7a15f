package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选候选：表达式为 true 保留，为 false 过滤。
//
// 示例：
//   - `item.product.rating >= 4.0`
//   - `item.product.category_top == "Electronics" && item.product.discounted_price < 1000.0`
//   - `label.recall_source == "content"`
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式；编译失败返回错误，调用方应拒绝该请求参数。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	keep, err := f.prg.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
