package config

import "time"

// 默认值
const (
	DefaultAlpha            = 0.55
	DefaultTopK             = 10
	DefaultCollabCandidates = 50
	DefaultContentPerSeed   = 50

	// MaxTopK 是单次请求能返回的最大商品数
	MaxTopK = 1000
)

// ApplyDefaults 为零值字段设置默认值。
// Alpha 允许显式配置为 0，用指针区分未配置。
func ApplyDefaults(cfg *Config) {
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "models"
	}
	if cfg.Artifacts.File == "" {
		cfg.Artifacts.File = "recsys_artifacts.json"
	}
	if cfg.Artifacts.Debounce == 0 {
		cfg.Artifacts.Debounce = 500 * time.Millisecond
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "data/amazon.csv"
	}
	if cfg.Recommend.Alpha == nil {
		alpha := DefaultAlpha
		cfg.Recommend.Alpha = &alpha
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = DefaultTopK
	}
	if cfg.Recommend.CollabCandidates == 0 {
		cfg.Recommend.CollabCandidates = DefaultCollabCandidates
	}
	if cfg.Recommend.ContentPerSeed == 0 {
		cfg.Recommend.ContentPerSeed = DefaultContentPerSeed
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "session:viewed"
	}
	if cfg.Session.MaxItems == 0 {
		cfg.Session.MaxItems = 50
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
