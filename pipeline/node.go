package pipeline

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Kind 是节点所处的阶段，出错时写进错误信息。
type Kind string

// 融合后的处理链只有两个阶段：先过滤，再按融合分排序截断。
const (
	KindFilter Kind = "filter" // 屏蔽、目录缺失、表达式过滤
	KindReRank Kind = "rerank" // 按融合分和来源顺序排序并截断
)

// Node 接收上一节点的候选，返回交给下一节点的候选。
// Node 不应修改入参切片，需要重排时复制一份。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
