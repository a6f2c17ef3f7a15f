// Package hybrid 融合协同过滤、内容相似度和热门兜底三路信号，产出最终推荐列表。
//
// 融合规则：
//   - 协同过滤：取前 max(CollabCandidates, topK) 个，第 r 名（从 0 开始）得 alpha/(r+1)
//   - 内容相似度：每个种子取 ContentPerSeed 个，累加后除以本批最大值，乘 (1-alpha)
//   - 两路分数按商品 ID 累加；都为空时返回热门兜底
//
// 缺失的信号只是不贡献分数，Blender 不会因为模型缺失而失败。
package hybrid

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/artifact"
	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
	"github.com/rushteam/hybridrec/session"
)

// Blender 是融合推荐器，可被并发请求共享。
// 每个请求开始时读取一次 Holder.Current()，整个请求只使用这一份模型包。
type Blender struct {
	holder  *artifact.Holder
	catalog core.Catalog
	viewed  *session.ViewedStore

	alpha            float64
	topK             int
	collabCandidates int
	contentPerSeed   int
	timeout          time.Duration

	// popRanking 非空时覆盖模型包中的 pop_rank
	popRanking atomic.Pointer[[]string]

	logger zerolog.Logger
}

// New 创建 Blender。holder 中没有模型包时运行在降级模式。
func New(holder *artifact.Holder, catalog core.Catalog, opts ...Option) *Blender {
	if holder == nil {
		holder = artifact.NewHolder(nil)
	}
	b := &Blender{
		holder:           holder,
		catalog:          catalog,
		alpha:            config.DefaultAlpha,
		topK:             config.DefaultTopK,
		collabCandidates: config.DefaultCollabCandidates,
		contentPerSeed:   config.DefaultContentPerSeed,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("component", "hybrid_blender").Logger()
	return b
}

// ModelLoaded 判断是否有可用的模型包。false 表示只有热门兜底可用。
func (b *Blender) ModelLoaded() bool {
	return b.holder.Loaded()
}

// SetPopularityRanking 替换外部热门榜，nil 表示恢复使用模型包中的 pop_rank。
func (b *Blender) SetPopularityRanking(ids []string) {
	if ids == nil {
		b.popRanking.Store(nil)
		return
	}
	cp := append([]string(nil), ids...)
	b.popRanking.Store(&cp)
}

func (b *Blender) popularity(bundle *artifact.Bundle) *recall.Popularity {
	var ranking []string
	if bundle != nil {
		ranking = bundle.PopRank
	}
	if p := b.popRanking.Load(); p != nil {
		ranking = *p
	}
	return &recall.Popularity{Ranking: ranking, Catalog: b.catalog}
}

// Recommend 返回至多 TopK 个商品。
// 只有 Expr 编译失败会返回错误；其他情况总是返回尽力而为的结果，可能短于 TopK。
func (b *Blender) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	post, err := b.exprFilter(req.Expr)
	if err != nil {
		return nil, err
	}

	bundle := b.holder.Current()
	topK := b.resolveTopK(req.TopK)
	alpha := b.alpha
	if req.Alpha != nil {
		alpha = clampAlpha(*req.Alpha, b.alpha)
	}

	rctx := b.newContext(ctx, req)
	res := &Result{
		RequestID:   uuid.NewString(),
		ModelLoaded: bundle != nil,
	}

	collab := &recall.Collaborative{
		Bundle:  bundle,
		TopK:    max(b.collabCandidates, topK),
		Catalog: b.catalog,
	}
	content := &recall.Content{Bundle: bundle, TopK: b.contentPerSeed}

	status := collab.Status(rctx.UserID)
	if rctx.UserID != "" && status == recall.StatusColdStart {
		res.ColdStart = true
		metrics.ColdStarts.Inc()
	}

	fanout := &recall.Fanout{Sources: []recall.Source{collab, content}, Timeout: b.timeout, Logger: &b.logger}
	signals := fanout.Gather(ctx, rctx)
	collabItems, contentItems := signals[0], signals[1]
	metrics.RecordCandidates(recall.SourceCollaborative, len(collabItems))
	metrics.RecordCandidates(recall.SourceContent, len(contentItems))

	scores := newScoreMap(len(collabItems) + len(contentItems))
	scores.addCollaborative(collabItems, alpha)
	scores.addContent(contentItems, alpha)

	var items []*core.Item
	if scores.len() > 0 {
		items, err = b.postChain(post, topK).Run(ctx, rctx, scores.items())
		if err != nil {
			b.logger.Debug().Err(err).Msg("post chain aborted")
			items = nil
		}
	}

	if len(items) > 0 {
		res.Items = items
		res.Source = SourceHybrid
		res.Personalized = len(collabItems) > 0
	} else {
		res.Items = b.popular(ctx, rctx, bundle, topK, post)
		res.Source = SourcePopularity
	}

	b.logger.Debug().
		Str("request_id", res.RequestID).
		Str("user_id", rctx.UserID).
		Str("collab_status", status.String()).
		Int("collab", len(collabItems)).
		Int("content", len(contentItems)).
		Float64("alpha", alpha).
		Str("source", res.Source).
		Int("returned", len(res.Items)).
		Msg("recommend")
	metrics.RecordRequest(res.Source, time.Since(start))
	return res, nil
}

// Similar 返回与 productID 相似的至多 n 个商品。
// 依次尝试内容相似度、同叶子类目、热门兜底。
func (b *Blender) Similar(ctx context.Context, productID string, n int, excluded ...string) (*Result, error) {
	start := time.Now()
	bundle := b.holder.Current()
	n = b.resolveTopK(n)

	rctx := &core.RecommendContext{
		SeedItemIDs: []string{productID},
		Excluded:    core.NewExcludedSet(excluded...),
	}
	rctx.Exclude(productID)
	res := &Result{RequestID: uuid.NewString(), ModelLoaded: bundle != nil}

	content := &recall.Content{Bundle: bundle}
	var items []*core.Item
	if scored := content.SimilarTo(productID, max(2*n, b.contentPerSeed)); len(scored) > 0 {
		cand := make([]*core.Item, 0, len(scored))
		for _, s := range scored {
			it := core.NewItem(s.ID)
			it.Score = s.Score
			it.PutLabel(recall.LabelRecallSource, utils.RecallLabel(recall.SourceContent))
			cand = append(cand, it)
		}
		items, _ = b.postChain(nil, n).Run(ctx, rctx, cand)
		res.Source = SourceContent
	}

	if len(items) == 0 {
		cat := &recall.CategoryRecall{Catalog: b.catalog, TopK: n}
		items, _ = b.postChain(nil, n).Run(ctx, rctx, mustRecall(ctx, cat, rctx))
		res.Source = SourceCategory
	}

	if len(items) == 0 {
		items = b.popular(ctx, rctx, bundle, n, nil)
		res.Source = SourcePopularity
	}
	res.Items = items
	metrics.RecordRequest(res.Source, time.Since(start))
	return res, nil
}

// Popular 返回至多 n 个热门商品。
func (b *Blender) Popular(ctx context.Context, n int, excluded ...string) *Result {
	start := time.Now()
	bundle := b.holder.Current()
	rctx := &core.RecommendContext{Excluded: core.NewExcludedSet(excluded...)}
	res := &Result{
		RequestID:   uuid.NewString(),
		Items:       b.popular(ctx, rctx, bundle, b.resolveTopK(n), nil),
		Source:      SourcePopularity,
		ModelLoaded: bundle != nil,
	}
	metrics.RecordRequest(res.Source, time.Since(start))
	return res
}

// popular 是终极兜底，永不失败。带过滤表达式时先取全部热门再过滤，否则只取 n 个。
func (b *Blender) popular(ctx context.Context, rctx *core.RecommendContext, bundle *artifact.Bundle, n int, post filter.Filter) []*core.Item {
	pop := b.popularity(bundle)
	want := n
	if post != nil && b.catalog != nil {
		want = b.catalog.Len()
	}
	pop.TopK = want
	items := mustRecall(ctx, pop, rctx)
	metrics.RecordCandidates(recall.SourcePopularity, len(items))

	out, err := b.postChain(post, n).Run(ctx, rctx, items)
	if err != nil {
		return []*core.Item{}
	}
	return out
}

// postChain 构建融合后的处理链：屏蔽、目录缺失、表达式过滤，最后排序截断。
func (b *Blender) postChain(post filter.Filter, n int) *pipeline.Pipeline {
	filters := []filter.Filter{
		filter.NewExcludeFilter(),
		&filter.CatalogFilter{Catalog: b.catalog},
	}
	if post != nil {
		filters = append(filters, post)
	}
	p := &pipeline.Pipeline{}
	return p.Append(
		&filter.FilterNode{
			Filters: filters,
			Logger:  &b.logger,
			OnFiltered: func(_ *core.Item, name string) {
				if name == "filter.catalog" {
					metrics.CatalogMisses.Inc()
				}
			},
		},
		&rerank.RankNode{N: n},
	)
}

func (b *Blender) exprFilter(expr string) (filter.Filter, error) {
	if expr == "" {
		return nil, nil
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, err.Error())
	}
	return f, nil
}

// newContext 构造请求上下文：屏蔽集合包含调用方传入的商品、种子和会话浏览历史。
func (b *Blender) newContext(ctx context.Context, req Request) *core.RecommendContext {
	rctx := &core.RecommendContext{
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		SeedItemIDs: dedupe(req.SeedProductIDs),
		Excluded:    core.NewExcludedSet(req.Excluded...),
		Params:      req.Params,
	}
	rctx.Exclude(rctx.SeedItemIDs...)

	if b.viewed != nil && req.SessionID != "" {
		viewed, err := b.viewed.Viewed(ctx, req.SessionID)
		if err != nil {
			b.logger.Debug().Err(err).Str("session_id", req.SessionID).Msg("load viewed products")
		}
		rctx.Exclude(viewed...)
		if len(rctx.SeedItemIDs) == 0 && len(viewed) > 0 {
			rctx.SeedItemIDs = []string{viewed[len(viewed)-1]}
		}
	}
	return rctx
}

// resolveTopK 把 k <= 0 换成默认值，超过 config.MaxTopK 时截断。
func (b *Blender) resolveTopK(k int) int {
	if k <= 0 {
		k = b.topK
	}
	return min(k, config.MaxTopK)
}

// mustRecall 执行不会失败的召回源，出错时返回空。
func mustRecall(ctx context.Context, src recall.Source, rctx *core.RecommendContext) []*core.Item {
	items, err := src.Recall(ctx, rctx)
	if err != nil {
		return nil
	}
	return items
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
