// Package config 加载推荐服务的 YAML 配置：解析、默认值、环境变量覆盖、校验。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvModelDir 覆盖 artifacts.dir，与线上部署约定一致。
const EnvModelDir = "RECSYS_MODEL_DIR"

// Config 是推荐服务的全部配置。
type Config struct {
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
	Session   SessionConfig   `yaml:"session"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ArtifactsConfig 是离线模型包配置。
type ArtifactsConfig struct {
	// Dir 模型目录，File 为相对 Dir 的文件名
	Dir  string `yaml:"dir"`
	File string `yaml:"file" validate:"required"`

	// Required 列出必须存在的字段，缺失时视为模型包不可用
	Required []string `yaml:"required"`

	// Watch 为 true 时监听文件变化并热加载
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`

	// StoreKey 非空时从 Redis 读取模型包，而不是本地文件
	StoreKey string `yaml:"store_key"`
}

// Path 返回模型包的完整路径。
func (a ArtifactsConfig) Path() string {
	if filepath.IsAbs(a.File) || a.Dir == "" {
		return a.File
	}
	return filepath.Join(a.Dir, a.File)
}

// CatalogConfig 是商品目录配置。
type CatalogConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// RecommendConfig 是融合推荐参数。
type RecommendConfig struct {
	// Alpha 是协同过滤权重，内容相似度权重为 1-Alpha；未配置时为 DefaultAlpha
	Alpha *float64 `yaml:"alpha" validate:"omitempty,gte=0,lte=1"`
	TopK  int     `yaml:"top_k" validate:"gte=1,lte=1000"`

	// CollabCandidates 协同过滤至少取的候选数
	CollabCandidates int `yaml:"collab_candidates" validate:"gte=1"`

	// ContentPerSeed 每个种子取的相似商品数
	ContentPerSeed int `yaml:"content_per_seed" validate:"gte=1"`

	// PopularityKey 非空时从 Redis 有序集合读取热门榜，覆盖模型包中的 pop_rank
	PopularityKey string `yaml:"popularity_key"`

	// Timeout 单次请求召回超时，0 表示不限制
	Timeout time.Duration `yaml:"timeout"`
}

// AlphaOrDefault 返回配置的 alpha，未配置时返回 DefaultAlpha。
func (r RecommendConfig) AlphaOrDefault() float64 {
	if r.Alpha == nil {
		return DefaultAlpha
	}
	return *r.Alpha
}

// SessionConfig 是会话浏览历史配置。
type SessionConfig struct {
	KeyPrefix  string `yaml:"key_prefix"`
	MaxItems   int    `yaml:"max_items" validate:"gte=0"`
	TTLSeconds int    `yaml:"ttl_seconds" validate:"gte=0"`
}

// RedisConfig 为空地址时使用内存存储。
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db" validate:"gte=0"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Enabled 判断是否配置了 Redis。
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// LogConfig 是日志配置。
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig 非空地址时暴露 /metrics。
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

var validate = validator.New()

// Load 读取并解析 path，依次应用默认值、环境变量覆盖和校验。
// path 为空时只使用默认值。
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	ApplyDefaults(cfg)
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 应用环境变量覆盖。
func ApplyEnv(cfg *Config) {
	if dir := os.Getenv(EnvModelDir); dir != "" {
		cfg.Artifacts.Dir = dir
	}
}

// Validate 校验配置取值范围。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
