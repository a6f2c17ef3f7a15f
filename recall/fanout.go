package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
)

// Fanout 并发执行多个召回源，结果按 Sources 顺序排列，与完成顺序无关。
type Fanout struct {
	Sources []Source
	Timeout time.Duration // 每个召回源的超时时间，0 表示不限制
	Logger  *zerolog.Logger
}

// Gather 并发执行全部召回源，返回与 Sources 一一对应的结果。
// 单个召回源出错或超时只让它的结果为空，不中断其他召回源。
func (n *Fanout) Gather(ctx context.Context, rctx *core.RecommendContext) [][]*core.Item {
	results := make([][]*core.Item, len(n.Sources))
	if len(n.Sources) == 0 {
		return results
	}

	var eg errgroup.Group
	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				n.logger().Debug().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}
			// 每个 goroutine 只写自己的槽位
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (n *Fanout) logger() *zerolog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
