package recall

import (
	"context"
	"sort"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Popularity 是热门兜底召回源，是所有个性化信号都不可用时的最后一道保障，永不失败。
//
// 数据来源优先级：
//   - Ranking：训练时离线产出的热门榜（模型包 pop_rank 或 Redis 有序集合）
//   - 目录本身：按 (rating_count, rating) 降序；两列都不存在时取目录前 n 个
//
// 热门榜中已下架（不在目录中）的商品会被跳过，而不是带着缺失数据返回。
type Popularity struct {
	Ranking []string
	Catalog core.Catalog

	// TopK 返回 TopK 个物品（Recall 使用）
	TopK int
}

func (r *Popularity) Name() string {
	return "recall.popularity"
}

// TopN 返回至多 n 个热门商品，最热在前，跳过 excluded。
func (r *Popularity) TopN(n int, excluded map[string]struct{}) []string {
	if n <= 0 {
		return []string{}
	}
	size := min(n, len(r.Ranking))
	out := make([]string, 0, size)
	seen := make(map[string]struct{}, size)
	for _, id := range r.Ranking {
		if _, ok := excluded[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if r.Catalog != nil && !r.Catalog.Contains(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) >= n {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	return r.CatalogTopN(n, excluded)
}

// CatalogTopN 按目录的 (rating_count, rating) 降序取前 n 个；
// 目录没有这两列时按加载顺序取前 n 个。
func (r *Popularity) CatalogTopN(n int, excluded map[string]struct{}) []string {
	if r.Catalog == nil || n <= 0 {
		return []string{}
	}
	ranked := RankByEngagement(r.Catalog, r.Catalog.Products())
	out := make([]string, 0, min(n, len(ranked)))
	for _, p := range ranked {
		if _, ok := excluded[p.ProductID]; ok {
			continue
		}
		out = append(out, p.ProductID)
		if len(out) >= n {
			break
		}
	}
	return out
}

// RankByEngagement 按 rating_count 降序、rating 降序排序（稳定排序，同值保持原顺序）。
// 目录两列都不存在时原样返回副本。
func RankByEngagement(c core.Catalog, products []*core.Product) []*core.Product {
	ranked := make([]*core.Product, len(products))
	copy(ranked, products)
	byCount := c != nil && c.HasField(core.FieldRatingCount)
	byRating := c != nil && c.HasField(core.FieldRating)
	if !byCount && !byRating {
		return ranked
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if byCount && a.RatingCount != b.RatingCount {
			return a.RatingCount > b.RatingCount
		}
		if byRating && a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return false
	})
	return ranked
}

// Recall 实现 Source 接口。
func (r *Popularity) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	topK := r.TopK
	if topK <= 0 {
		topK = 10
	}
	var excluded map[string]struct{}
	if rctx != nil {
		excluded = rctx.Excluded
	}
	ids := r.TopN(topK, excluded)

	out := make([]*core.Item, 0, len(ids))
	for i, id := range ids {
		it := core.NewItem(id)
		it.Score = 1.0 / float64(i+1)
		it.PutLabel(LabelRecallSource, utils.RecallLabel(SourcePopularity))
		out = append(out, it)
	}
	return out, nil
}

// LoadRanking 从有序集合读取热门榜（分数降序），limit <= 0 表示全部。
// key 不存在时返回空榜，不是错误。
func LoadRanking(ctx context.Context, kv core.KeyValueStore, key string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := kv.ZRange(ctx, key, 0, stop)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	return members, nil
}

var _ Source = (*Popularity)(nil)
