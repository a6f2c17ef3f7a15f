package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/artifact"
	"github.com/rushteam/hybridrec/catalog"
	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/session"
	"github.com/rushteam/hybridrec/store"
)

// components 是一次进程运行所需的全部组件。
type components struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   core.Store
	catalog *catalog.MemoryCatalog
	holder  *artifact.Holder
	viewed  *session.ViewedStore
	blender *hybrid.Blender
	watcher *artifact.Watcher
	metrics *http.Server
}

// initializeComponents 按配置装配组件。
// 只有目录加载失败是致命的；模型包不可用时进入降级模式并记录一次 warning。
func initializeComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	c := &components{cfg: cfg, logger: logger}

	if cfg.Redis.Enabled() {
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		c.store = rs
	} else {
		c.store = store.NewMemoryStore()
	}

	cat, err := catalog.LoadCSV(cfg.Catalog.Path)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.catalog = cat
	logger.Info().Str("path", cfg.Catalog.Path).Int("products", cat.Len()).Msg("catalog loaded")

	required, err := artifact.ParseKeys(cfg.Artifacts.Required)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.holder = artifact.NewHolder(nil)
	c.loadArtifacts(ctx, required)

	c.viewed = session.NewViewedStore(c.store)
	c.viewed.KeyPrefix = cfg.Session.KeyPrefix
	c.viewed.MaxItems = cfg.Session.MaxItems
	c.viewed.TTL = cfg.Session.TTLSeconds

	opts := append(hybrid.FromConfig(cfg.Recommend),
		hybrid.WithViewedStore(c.viewed),
		hybrid.WithLogger(logger),
	)
	if key := cfg.Recommend.PopularityKey; key != "" {
		if kv, ok := c.store.(core.KeyValueStore); ok {
			ranking, err := recall.LoadRanking(ctx, kv, key, 0)
			switch {
			case err != nil:
				logger.Warn().Err(err).Str("key", key).Msg("popularity ranking unavailable, using bundle pop_rank")
			case len(ranking) > 0:
				opts = append(opts, hybrid.WithPopularityRanking(ranking))
				logger.Info().Str("key", key).Int("size", len(ranking)).Msg("popularity ranking loaded")
			}
		}
	}
	c.blender = hybrid.New(c.holder, c.catalog, opts...)
	return c, nil
}

func (c *components) loadArtifacts(ctx context.Context, required []artifact.Key) {
	var (
		b   *artifact.Bundle
		err error
	)
	if key := c.cfg.Artifacts.StoreKey; key != "" {
		b, err = artifact.LoadFromStore(ctx, c.store, key, required...)
	} else {
		b, err = artifact.Load(c.cfg.Artifacts.Path(), required...)
	}
	if err != nil {
		if core.IsArtifactUnavailable(err) {
			c.logger.Warn().Err(err).Msg("model bundle unavailable, serving popularity fallback only")
		} else {
			c.logger.Error().Err(err).Msg("model bundle load failed")
		}
		metrics.SetArtifactLoaded(false)
		return
	}
	c.holder.Swap(b)
	metrics.SetArtifactLoaded(true)
	for _, w := range b.Warnings() {
		c.logger.Warn().Str("detail", w).Msg("model bundle degraded")
	}
	c.logger.Info().
		Str("source", b.Source).
		Bool("collaborative", b.HasCollaborative()).
		Bool("content", b.HasContent()).
		Int("pop_rank", len(b.PopRank)).
		Msg("model bundle loaded")
}

// startBackground 启动模型包热加载和 /metrics。
func (c *components) startBackground(ctx context.Context) error {
	if c.cfg.Artifacts.Watch && c.cfg.Artifacts.StoreKey == "" {
		required, _ := artifact.ParseKeys(c.cfg.Artifacts.Required)
		c.watcher = artifact.NewWatcher(c.cfg.Artifacts.Path(), c.holder,
			artifact.WithRequired(required...),
			artifact.WithDebounce(c.cfg.Artifacts.Debounce),
			artifact.WithLogger(c.logger),
		)
		if err := c.watcher.Start(ctx); err != nil {
			return err
		}
	}
	if addr := c.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		c.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := c.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
		c.logger.Info().Str("addr", addr).Msg("metrics listening")
	}
	return nil
}

// Close 释放组件。
func (c *components) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.metrics.Shutdown(ctx)
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}
