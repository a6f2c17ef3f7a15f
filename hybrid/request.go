package hybrid

import "github.com/rushteam/hybridrec/core"

// 结果来源
const (
	SourceHybrid     = "hybrid"
	SourceContent    = "content"
	SourceCategory   = "category"
	SourcePopularity = "popularity"
)

// Request 是一次推荐请求。所有字段都可以为空。
type Request struct {
	// UserID 为空或训练时没见过都按冷启动处理
	UserID string

	// SessionID 非空且配置了 ViewedStore 时，会话浏览过的商品加入屏蔽集合；
	// SeedProductIDs 也为空时，最近一次浏览的商品作为种子
	SessionID string

	SeedProductIDs []string

	// TopK <= 0 使用默认值
	TopK int

	// Alpha 为 nil 使用默认值；超出 [0,1] 时截断，NaN 使用默认值
	Alpha *float64

	// Excluded 是需要屏蔽的商品（已浏览、已加购等），种子本身总会被屏蔽
	Excluded []string

	// Expr 是可选的 CEL 过滤表达式，true 保留
	Expr string

	// Params 传给 Expr 的 rctx.params
	Params map[string]any
}

// Result 是推荐结果。
type Result struct {
	RequestID string       `json:"request_id"`
	Items     []*core.Item `json:"-"`

	// Source 是结果来源：hybrid / content / category / popularity
	Source string `json:"source"`

	// Personalized 为 true 表示协同过滤信号参与了排序
	Personalized bool `json:"personalized"`

	// ColdStart 为 true 表示请求带了 UserID，但用户没有编码器索引
	ColdStart bool `json:"cold_start"`

	// ModelLoaded 为 false 表示运行在降级模式（只有热门兜底），调用方可以据此关闭个性化展示
	ModelLoaded bool `json:"model_loaded"`
}

// IDs 返回结果商品 ID，保持顺序。
func (r *Result) IDs() []string {
	if r == nil {
		return []string{}
	}
	return core.IDs(r.Items)
}

// Products 返回结果商品的展示记录，保持顺序。
func (r *Result) Products() []*core.Product {
	if r == nil {
		return []*core.Product{}
	}
	out := make([]*core.Product, 0, len(r.Items))
	for _, it := range r.Items {
		if p := it.Product(); p != nil {
			out = append(out, p)
		}
	}
	return out
}
