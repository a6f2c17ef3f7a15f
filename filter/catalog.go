package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// CatalogFilter 丢弃在目录中查不到展示记录的候选，并把记录挂到 Item.Meta 上。
// 查不到不是错误，候选被静默丢弃，结果可能短于请求数量。
type CatalogFilter struct {
	Catalog core.Catalog
}

func (f *CatalogFilter) Name() string {
	return "filter.catalog"
}

func (f *CatalogFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Catalog == nil {
		return false, nil
	}
	p, ok := f.Catalog.Lookup(item.ID)
	if !ok || p == nil {
		return true, nil
	}
	if item.Meta == nil {
		item.Meta = make(map[string]any)
	}
	item.Meta[core.MetaProduct] = p
	return false, nil
}
