package core

import "github.com/rushteam/hybridrec/pkg/utils"

// MetaProduct 是 Item.Meta 中存放商品展示记录的 key。
const MetaProduct = "product"

// Item 是推荐链路中的统一承载结构：商品 ID、融合分数、元信息、标签。
// Labels 记录候选来源（collaborative / content / popularity），用于解释；
// Score 只用于排序，不同召回源的分数在 hybrid 层统一到可比的尺度。
type Item struct {
	ID     string
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Product 返回挂在 Meta 上的商品记录，未解析到目录时返回 nil。
func (it *Item) Product() *Product {
	if it == nil || it.Meta == nil {
		return nil
	}
	p, _ := it.Meta[MetaProduct].(*Product)
	return p
}

// IDs 提取 items 的 ID 列表，保持顺序。
func IDs(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, it.ID)
	}
	return out
}
