package recall

import (
	"context"
	"sort"

	"github.com/rushteam/hybridrec/artifact"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Content 是基于离线 item-item 相似度矩阵的内容召回源。
//
// 核心思想："用户看过的商品的相似商品"。相似度在离线按描述属性计算好，
// 在线只做查行、排序、累加。种子自身永远不会出现在结果中。
type Content struct {
	Bundle *artifact.Bundle

	// TopK 是 Recall 时每个种子取的相似商品数
	TopK int
}

func (r *Content) Name() string {
	return "recall.content"
}

// Available 判断相似度矩阵是否可用。
func (r *Content) Available() bool {
	return r.Bundle.HasContent()
}

// SimilarTo 返回与 seed 最相似的至多 k 个商品，分数不增。
// 未知种子返回空（冷启动商品，交给下一个信号源）。
func (r *Content) SimilarTo(seed string, k int) []Scored {
	if !r.Available() || k <= 0 {
		return nil
	}
	idx, ok := r.Bundle.ContentIndex.Index(seed)
	if !ok {
		return nil
	}
	row := r.Bundle.Similarity.Row(idx)
	top := topIndices(row, k, func(j int) bool { return j == idx })
	return r.toScored(top, row)
}

// SimilarToMany 对每个种子取前 2k 个相似商品，按相似度求和后取前 k 个。
// 被两个种子同时强推荐的商品排在只被一个种子弱推荐的商品前面。
func (r *Content) SimilarToMany(seeds []string, k int) []Scored {
	if k <= 0 || !r.Available() {
		return nil
	}
	k = min(k, r.Bundle.ContentIndex.Len())
	acc := r.Accumulate(seeds, 2*k)
	if len(acc) > k {
		acc = acc[:k]
	}
	return acc
}

// Accumulate 是多种子聚合的实现：每个种子取 perSeed 个相似商品，分数累加，
// 所有种子本身都被排除。结果按累加分降序，同分按下标升序，不截断。
// 重复的种子只计一次，未知种子被跳过。
func (r *Content) Accumulate(seeds []string, perSeed int) []Scored {
	out, _ := r.accumulate(context.Background(), seeds, perSeed)
	return out
}

// accumulate 在处理每个种子前检查 ctx，取消或超时时返回 ctx 的错误。
func (r *Content) accumulate(ctx context.Context, seeds []string, perSeed int) ([]Scored, error) {
	if !r.Available() || perSeed <= 0 || len(seeds) == 0 {
		return nil, nil
	}
	index := r.Bundle.ContentIndex

	seedIdx := make([]int, 0, len(seeds))
	isSeed := make(map[int]struct{}, len(seeds))
	for _, s := range seeds {
		i, ok := index.Index(s)
		if !ok {
			continue
		}
		if _, dup := isSeed[i]; dup {
			continue
		}
		isSeed[i] = struct{}{}
		seedIdx = append(seedIdx, i)
	}
	if len(seedIdx) == 0 {
		return nil, nil
	}

	sums := make(map[int]float64)
	for _, si := range seedIdx {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		row := r.Bundle.Similarity.Row(si)
		self := si
		for _, j := range topIndices(row, perSeed, func(j int) bool { return j == self }) {
			if _, ok := isSeed[j]; ok {
				continue
			}
			sums[j] += row[j]
		}
	}

	out := make([]Scored, 0, len(sums))
	for j, s := range sums {
		id, _ := index.ID(j)
		out = append(out, Scored{ID: id, Index: j, Score: s})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Index < out[b].Index
	})
	return out, nil
}

func (r *Content) toScored(top []int, row []float64) []Scored {
	out := make([]Scored, 0, len(top))
	for _, j := range top {
		id, ok := r.Bundle.ContentIndex.ID(j)
		if !ok {
			continue
		}
		out = append(out, Scored{ID: id, Index: j, Score: row[j]})
	}
	return out
}

// Recall 实现 Source 接口：以 rctx.SeedItemIDs 为种子，返回累加后的全部候选。
func (r *Content) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || len(rctx.SeedItemIDs) == 0 {
		return nil, nil
	}
	perSeed := r.TopK
	if perSeed <= 0 {
		perSeed = 50
	}
	acc, err := r.accumulate(ctx, rctx.SeedItemIDs, perSeed)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(acc))
	for _, s := range acc {
		it := core.NewItem(s.ID)
		it.Score = s.Score
		it.PutLabel(LabelRecallSource, utils.RecallLabel(SourceContent))
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*Content)(nil)
