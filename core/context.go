package core

import "github.com/rushteam/hybridrec/pkg/utils"

// RecommendContext 承载一次请求的用户、种子商品与屏蔽集合，贯穿整个 Pipeline 透传。
// 它由请求方构造，请求结束即丢弃；核心逻辑不会持久化其中任何内容。
type RecommendContext struct {
	// UserID 为空表示匿名 / 冷启动用户
	UserID string

	// SessionID 用于从 session.ViewedStore 取已浏览商品
	SessionID string

	// SeedItemIDs 是内容召回的种子商品（例如最近浏览、购物车）
	SeedItemIDs []string

	// Excluded 是本次请求需要屏蔽的商品（已浏览、已加购、种子本身）
	Excluded map[string]struct{}

	// Labels 是请求级标签
	Labels map[string]utils.Label

	// Params 请求级参数，例如 CEL 过滤表达式用到的上下文变量
	Params map[string]any
}

// NewExcludedSet 由 ID 列表构造屏蔽集合，空 ID 会被忽略。
func NewExcludedSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// IsExcluded 判断商品是否在本次请求的屏蔽集合内。
func (rctx *RecommendContext) IsExcluded(id string) bool {
	if rctx == nil || rctx.Excluded == nil {
		return false
	}
	_, ok := rctx.Excluded[id]
	return ok
}

// Exclude 把商品加入屏蔽集合。
func (rctx *RecommendContext) Exclude(ids ...string) {
	if rctx.Excluded == nil {
		rctx.Excluded = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		rctx.Excluded[id] = struct{}{}
	}
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
