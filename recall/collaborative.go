package recall

import (
	"context"
	"math"

	"github.com/rushteam/hybridrec/artifact"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Collaborative 是基于隐因子的协同过滤召回源。
//
// 预测分数 = U[user] · V[item]，不做归一化（原始隐空间亲和度）。
// 排序时分数降序，同分按商品下标升序，保证结果可复现。
//
// 使用场景：
//   - 输入：训练时见过的用户 ID
//   - 输出：TopK 商品；冷启动用户返回空（不是错误）
type Collaborative struct {
	Bundle *artifact.Bundle

	// TopK 返回 TopK 个物品（Recall 使用）
	TopK int

	// Catalog 可选；设置后只保留仍在目录中的商品
	Catalog core.Catalog
}

func (r *Collaborative) Name() string {
	return "recall.collaborative"
}

// Status 判断该用户能否得到协同分数，只做编码器查找。
func (r *Collaborative) Status(userID string) Status {
	if !r.Bundle.HasCollaborative() {
		return StatusUnavailable
	}
	if userID == "" || !r.Bundle.UserEncoder.Contains(userID) {
		return StatusColdStart
	}
	return StatusFound
}

// ScoreForUser 计算用户对全部商品的分数向量，下标空间与 ProductEncoder 一致。
// 返回的切片是新分配的，调用方可以原地修改（例如 Mask）。
func (r *Collaborative) ScoreForUser(userID string) ([]float64, Status) {
	if st := r.Status(userID); st != StatusFound {
		return nil, st
	}
	uidx, _ := r.Bundle.UserEncoder.Index(userID)
	scores := r.Bundle.V.MulVecT(r.Bundle.U.Row(uidx))
	if scores == nil {
		return nil, StatusUnavailable
	}
	return scores, StatusFound
}

// Mask 把屏蔽集合内商品的分数置为 -Inf，保证无论分数多大都不会被召回。
// NaN 同样置为 -Inf。
func (r *Collaborative) Mask(scores []float64, excluded map[string]struct{}) {
	enc := r.Bundle.ProductEncoder
	for id := range excluded {
		if i, ok := enc.Index(id); ok && i < len(scores) {
			scores[i] = math.Inf(-1)
		}
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			scores[i] = math.Inf(-1)
		}
	}
}

// Rank 返回用户的前 n 个商品（已屏蔽 excluded，keep 返回 false 的商品被跳过）。
// 只枚举 n 加安全余量个候选；余量不够（keep 过滤太多）时翻倍重试。
func (r *Collaborative) Rank(userID string, n int, excluded map[string]struct{}, keep func(id string) bool) ([]Scored, Status) {
	scores, st := r.ScoreForUser(userID)
	if st != StatusFound {
		return nil, st
	}
	if n <= 0 {
		return nil, StatusFound
	}
	r.Mask(scores, excluded)
	n = min(n, len(scores))

	enc := r.Bundle.ProductEncoder
	limit := min(n+n/2+8, len(scores))
	for {
		top := topIndices(scores, limit, nil)
		out := make([]Scored, 0, n)
		for _, i := range top {
			id, ok := enc.ID(i)
			if !ok || (keep != nil && !keep(id)) {
				continue
			}
			out = append(out, Scored{ID: id, Index: i, Score: scores[i]})
			if len(out) >= n {
				return out, StatusFound
			}
		}
		if len(top) < limit || limit >= len(scores) {
			return out, StatusFound
		}
		limit = min(limit*2, len(scores))
	}
}

// Recall 实现 Source 接口：按 rctx.UserID 取 TopK，屏蔽 rctx.Excluded。
func (r *Collaborative) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		return nil, nil
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}
	var keep func(string) bool
	if r.Catalog != nil {
		keep = r.Catalog.Contains
	}
	ranked, _ := r.Rank(rctx.UserID, topK, rctx.Excluded, keep)
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(ranked))
	for _, s := range ranked {
		it := core.NewItem(s.ID)
		it.Score = s.Score
		it.PutLabel(LabelRecallSource, utils.RecallLabel(SourceCollaborative))
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*Collaborative)(nil)
