// Package rerank 对过滤后的候选按融合分排序并截断。
package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// 写在 Item.Meta 上的来源信息，同分时参与排序。值为 int。
const (
	MetaSourceOrder = "source_order" // 第一个贡献该商品的信号源，小的在前
	MetaSourcePos   = "source_pos"   // 在该信号源中的位置
)

// RankNode 按融合分降序排序后取前 N 个。
// 同分依次比较 MetaSourceOrder、MetaSourcePos、商品 ID；
// 没有来源信息的候选 order 视为 0，位置取输入下标，因此已排好序的输入保持原顺序。
type RankNode struct {
	// N <= 0 时不截断
	N int
}

func (n *RankNode) Name() string {
	return "rerank.rank"
}

func (n *RankNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *RankNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	entries := make([]ranked, 0, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		entries = append(entries, ranked{
			item:  it,
			order: metaInt(it, MetaSourceOrder, 0),
			pos:   metaInt(it, MetaSourcePos, i),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.item.Score != b.item.Score {
			return a.item.Score > b.item.Score
		}
		if a.order != b.order {
			return a.order < b.order
		}
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		return a.item.ID < b.item.ID
	})

	if n.N > 0 && len(entries) > n.N {
		entries = entries[:n.N]
	}
	out := make([]*core.Item, len(entries))
	for i, r := range entries {
		out[i] = r.item
	}
	return out, nil
}

type ranked struct {
	item  *core.Item
	order int
	pos   int
}

func metaInt(it *core.Item, key string, def int) int {
	if v, ok := it.Meta[key].(int); ok {
		return v
	}
	return def
}

var _ pipeline.Node = (*RankNode)(nil)
