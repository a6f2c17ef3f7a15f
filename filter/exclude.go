package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// ExcludeFilter 过滤掉请求屏蔽集合（rctx.Excluded）以及固定屏蔽列表中的物品。
type ExcludeFilter struct {
	// ItemIDs 是进程级的固定屏蔽列表（例如下架商品），可为空
	ItemIDs map[string]struct{}
}

// NewExcludeFilter 创建屏蔽过滤器，itemIDs 为固定屏蔽列表。
func NewExcludeFilter(itemIDs ...string) *ExcludeFilter {
	return &ExcludeFilter{ItemIDs: core.NewExcludedSet(itemIDs...)}
}

func (f *ExcludeFilter) Name() string {
	return "filter.exclude"
}

func (f *ExcludeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.ItemIDs[item.ID]; ok {
		return true, nil
	}
	return rctx.IsExcluded(item.ID), nil
}
