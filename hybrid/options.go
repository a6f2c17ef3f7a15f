package hybrid

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/session"
)

// Option 配置 Blender。
type Option func(*Blender)

// WithAlpha 设置默认 alpha，超出 [0,1] 时截断。
func WithAlpha(alpha float64) Option {
	return func(b *Blender) { b.alpha = clampAlpha(alpha, config.DefaultAlpha) }
}

// WithTopK 设置默认返回数量。
func WithTopK(k int) Option {
	return func(b *Blender) {
		if k > 0 {
			b.topK = k
		}
	}
}

// WithCollabCandidates 设置协同过滤至少取的候选数。
func WithCollabCandidates(n int) Option {
	return func(b *Blender) {
		if n > 0 {
			b.collabCandidates = n
		}
	}
}

// WithContentPerSeed 设置每个种子取的相似商品数。
func WithContentPerSeed(n int) Option {
	return func(b *Blender) {
		if n > 0 {
			b.contentPerSeed = n
		}
	}
}

// WithTimeout 设置召回超时。
func WithTimeout(d time.Duration) Option {
	return func(b *Blender) { b.timeout = d }
}

// WithPopularityRanking 用外部热门榜（例如 Redis 有序集合）覆盖模型包中的 pop_rank。
func WithPopularityRanking(ids []string) Option {
	return func(b *Blender) { b.SetPopularityRanking(ids) }
}

// WithViewedStore 设置会话浏览历史。
func WithViewedStore(vs *session.ViewedStore) Option {
	return func(b *Blender) { b.viewed = vs }
}

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) Option {
	return func(b *Blender) { b.logger = l }
}

// FromConfig 把推荐配置转换为 Option。
func FromConfig(rc config.RecommendConfig) []Option {
	return []Option{
		WithAlpha(rc.AlphaOrDefault()),
		WithTopK(rc.TopK),
		WithCollabCandidates(rc.CollabCandidates),
		WithContentPerSeed(rc.ContentPerSeed),
		WithTimeout(rc.Timeout),
	}
}
