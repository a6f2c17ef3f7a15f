// Package recall 实现三类召回信号：协同过滤（隐因子点积）、内容相似度（离线 item-item 矩阵）
// 和热门兜底。所有召回源只读模型包，不持有锁，可被并发请求共享。
package recall

import (
	"context"
	"time"

	"github.com/rushteam/hybridrec/core"
)

// Source 表示一个可复用的召回源。
// 返回的 items 按该召回源自己的排序（最好在前），Item.Score 为该源的原始分数。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// Scored 是召回源内部的一条打分结果。
// Index 是商品在该召回源下标空间中的位置（协同用 ProductEncoder，内容用 ContentIndex）。
type Scored struct {
	ID    string
	Index int
	Score float64
}

// Status 描述个性化信号的可用性，用显式分支代替错误拦截。
type Status int

const (
	StatusFound       Status = iota // 正常产出分数
	StatusUnavailable               // 模型包缺少对应部分
	StatusColdStart                 // ID 不在编码器中
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusUnavailable:
		return "unavailable"
	case StatusColdStart:
		return "cold_start"
	}
	return "unknown"
}

// 召回来源标签值
const (
	SourceCollaborative = "collaborative"
	SourceContent       = "content"
	SourcePopularity    = "popularity"
	SourceCategory      = "category"
)

// LabelRecallSource 是记录召回来源的 label key。
const LabelRecallSource = "recall_source"

// ctxErr 返回 ctx 的错误；截止时间已过但计时器还没触发时也返回 DeadlineExceeded。
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return nil
}
