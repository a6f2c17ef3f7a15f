package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// LabelFiltered 记录被哪个过滤器移除，只出现在调试输出里。
const LabelFiltered = "filtered"

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉；保留下来的物品顺序不变。
type FilterNode struct {
	Filters []Filter
	Logger  *zerolog.Logger

	// OnFiltered 可选，每移除一个物品回调一次
	OnFiltered func(item *core.Item, filter string)
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

	out := make([]*core.Item, 0, len(items))
	filteredCount := 0

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时记录但不中断流程
				if n.Logger != nil {
					n.Logger.Debug().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter error")
				}
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filteredCount++
			item.PutLabel(LabelFiltered, utils.Label{Value: "true", Source: reason})
			if n.OnFiltered != nil {
				n.OnFiltered(item, reason)
			}
			continue
		}

		out = append(out, item)
	}

	if n.Logger != nil && filteredCount > 0 {
		n.Logger.Debug().Int("filtered", filteredCount).Int("kept", len(out)).Msg("filter node")
	}
	return out, nil
}
