package recall

import (
	"context"
	"strings"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// CategoryRecall 在内容模型不可用或种子是冷启动商品时，
// 返回与种子同一叶子类目的商品，按 (rating_count, rating) 排序。
type CategoryRecall struct {
	Catalog core.Catalog

	// TopK 返回 TopK 个物品（Recall 使用）
	TopK int
}

func (r *CategoryRecall) Name() string {
	return "recall.category"
}

// SimilarByCategory 返回与 seed 同叶子类目（大小写不敏感）的至多 n 个商品，seed 本身除外。
// 叶子类目为空时退化为完整类目字符串比较；seed 不在目录中返回空。
func (r *CategoryRecall) SimilarByCategory(seed string, n int, excluded map[string]struct{}) []string {
	if r.Catalog == nil || n <= 0 {
		return nil
	}
	sp, ok := r.Catalog.Lookup(seed)
	if !ok {
		return nil
	}
	leaf := categoryKey(sp)

	same := make([]*core.Product, 0)
	for _, p := range r.Catalog.Products() {
		if p.ProductID == seed || categoryKey(p) != leaf {
			continue
		}
		if _, skip := excluded[p.ProductID]; skip {
			continue
		}
		same = append(same, p)
	}

	ranked := RankByEngagement(r.Catalog, same)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, p.ProductID)
	}
	return out
}

func categoryKey(p *core.Product) string {
	if p.CategoryLeaf != "" {
		return strings.ToLower(p.CategoryLeaf)
	}
	return strings.ToLower(p.Category)
}

// Recall 实现 Source 接口：以第一个种子为准。
func (r *CategoryRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || len(rctx.SeedItemIDs) == 0 {
		return nil, nil
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}
	ids := r.SimilarByCategory(rctx.SeedItemIDs[0], topK, rctx.Excluded)

	out := make([]*core.Item, 0, len(ids))
	for i, id := range ids {
		it := core.NewItem(id)
		it.Score = 1.0 / float64(i+1)
		it.PutLabel(LabelRecallSource, utils.RecallLabel(SourceCategory))
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*CategoryRecall)(nil)
