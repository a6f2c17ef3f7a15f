package artifact

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/metrics"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher 监听模型包文件，文件被写入或替换后重新加载并整包替换 Holder。
// 加载失败时保留旧包，只记录日志。
//
// 监听的是文件所在目录：离线任务通常先写临时文件再 rename，
// 直接监听文件会在 rename 后丢失 watch。
type Watcher struct {
	path     string
	holder   *Holder
	required []Key
	debounce time.Duration
	logger   zerolog.Logger
	onReload func(b *Bundle, err error)

	mu       sync.Mutex
	timer    *time.Timer
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption 配置 Watcher。
type WatcherOption func(*Watcher)

// WithRequired 指定热更新时必须存在的字段。
func WithRequired(keys ...Key) WatcherOption {
	return func(w *Watcher) { w.required = keys }
}

// WithDebounce 设置去抖时间。
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithReloadHook 在每次重新加载后回调（成功或失败）。
func WithReloadHook(fn func(b *Bundle, err error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher 创建模型包文件监听器。
func NewWatcher(path string, holder *Holder, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		debounce: defaultDebounce,
		logger:   zerolog.Nop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "artifact_watcher").Str("path", w.path).Logger()
	return w
}

// Start 开始监听，直到 ctx 取消或调用 Stop。
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}
	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	w.logger.Info().Msg("watching model bundle")
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn().Err(err).Msg("watcher error")
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug().Str("op", ev.Op.String()).Msg("model bundle changed")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { _ = w.Reload() })
}

// Reload 立即重新加载模型包；成功时替换 Holder，失败时保留旧包。
func (w *Watcher) Reload() error {
	b, err := Load(w.path, w.required...)
	metrics.RecordReload(err)
	if err != nil {
		w.logger.Warn().Err(err).Msg("model bundle reload failed, keeping previous bundle")
	} else {
		w.holder.Swap(b)
		metrics.SetArtifactLoaded(true)
		for _, warn := range b.Warnings() {
			w.logger.Warn().Str("detail", warn).Msg("model bundle degraded")
		}
		w.logger.Info().
			Bool("collaborative", b.HasCollaborative()).
			Bool("content", b.HasContent()).
			Int("pop_rank", len(b.PopRank)).
			Msg("model bundle reloaded")
	}
	if w.onReload != nil {
		w.onReload(b, err)
	}
	return err
}

// Stop 停止监听。
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}
