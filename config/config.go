// Package config 加载两个命令行程序共用的配置。
//
// 加载顺序（后者覆盖前者）：
//  1. 结构体缺省值
//  2. YAML 配置文件（-config 参数或 MARKETREC_CONFIG 环境变量）
//  3. 环境变量：LOG_LEVEL / LOG_FORMAT，以及 MARKETREC_ 前缀变量，
//     双下划线表示层级，例如 MARKETREC_CACHE__REDIS__ADDR -> cache.redis.addr
package config

import (
	"time"

	"github.com/rushteam/marketrec/encoder"
	"github.com/rushteam/marketrec/model"
	"github.com/rushteam/marketrec/recall"
	"github.com/rushteam/marketrec/recommend"
	"github.com/rushteam/marketrec/store"
)

// Config 完整配置
type Config struct {
	Log            LogConfig       `koanf:"log" yaml:"log"`
	Recommend      RecommendConfig `koanf:"recommend" yaml:"recommend"`
	Cache          CacheConfig     `koanf:"cache" yaml:"cache"`
	Encoder        EncoderConfig   `koanf:"encoder" yaml:"encoder"`
	Storage        StorageConfig   `koanf:"storage" yaml:"storage"`
	CommandTimeout time.Duration   `koanf:"command_timeout" yaml:"command_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
}

// RecommendConfig 对应 recommend.Options
type RecommendConfig struct {
	Components        int     `koanf:"components" yaml:"components" validate:"min=1"`
	CFWeight          float64 `koanf:"cf_weight" yaml:"cf_weight" validate:"gte=0,lte=1"`
	TopK              int     `koanf:"top_k" yaml:"top_k" validate:"min=1"`
	CFCandidateFactor int     `koanf:"cf_candidate_factor" yaml:"cf_candidate_factor" validate:"min=1"`
	ContentSeedItems  int     `koanf:"content_seed_items" yaml:"content_seed_items" validate:"min=1"`
	ContentNeighbors  int     `koanf:"content_neighbors" yaml:"content_neighbors" validate:"min=1"`
	Filter            string  `koanf:"filter" yaml:"filter"`
}

// CacheConfig 结果缓存；backend=none 时不缓存
type CacheConfig struct {
	Backend string      `koanf:"backend" yaml:"backend" validate:"oneof=none memory redis"`
	Redis   RedisConfig `koanf:"redis" yaml:"redis"`
	TTL     TTLConfig   `koanf:"ttl" yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	DB       int    `koanf:"db" yaml:"db" validate:"gte=0"`
	Password string `koanf:"password" yaml:"password"`
}

type TTLConfig struct {
	Recommend       time.Duration `koanf:"recommend" yaml:"recommend" validate:"gte=0"`
	SimilarProducts time.Duration `koanf:"similar_products" yaml:"similar_products" validate:"gte=0"`
	Popular         time.Duration `koanf:"popular" yaml:"popular" validate:"gte=0"`
}

// EncoderConfig 外部编码服务
type EncoderConfig struct {
	Endpoint         string        `koanf:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Model            string        `koanf:"model" yaml:"model" validate:"required"`
	Token            string        `koanf:"token" yaml:"token"`
	Dimensions       int           `koanf:"dimensions" yaml:"dimensions" validate:"min=1"`
	Timeout          time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxRetries       int           `koanf:"max_retries" yaml:"max_retries" validate:"gte=0"`
	BatchConcurrency int           `koanf:"batch_concurrency" yaml:"batch_concurrency" validate:"min=1"`
	MemoSize         int           `koanf:"memo_size" yaml:"memo_size" validate:"gte=0"`
}

// StorageConfig S3 兼容对象存储，endpoint 为空表示不支持 s3:// 图片
type StorageConfig struct {
	Endpoint  string `koanf:"endpoint" yaml:"endpoint"`
	AccessKey string `koanf:"access_key" yaml:"access_key"`
	SecretKey string `koanf:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl" yaml:"use_ssl"`
}

// Default 返回缺省配置
func Default() *Config {
	opts := recommend.DefaultOptions()
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Recommend: RecommendConfig{
			Components:        model.DefaultComponents,
			CFWeight:          opts.CFWeight,
			TopK:              opts.TopK,
			CFCandidateFactor: opts.CFCandidateFactor,
			ContentSeedItems:  recall.DefaultSeedItems,
			ContentNeighbors:  recall.DefaultNeighbors,
		},
		Cache: CacheConfig{
			Backend: "none",
			Redis:   RedisConfig{Addr: "localhost:6379"},
			TTL: TTLConfig{
				Recommend:       store.DefaultRecommendTTL,
				SimilarProducts: store.DefaultSimilarProductsTTL,
				Popular:         store.DefaultPopularTTL,
			},
		},
		Encoder: EncoderConfig{
			Model:            "clip-vit-b32",
			Dimensions:       encoder.DefaultDimensions,
			Timeout:          30 * time.Second,
			MaxRetries:       3,
			BatchConcurrency: encoder.DefaultBatchConcurrency,
			MemoSize:         encoder.DefaultMemoSize,
		},
		CommandTimeout: 30 * time.Second,
	}
}

// EngineOptions 转换为推荐引擎参数
func (c RecommendConfig) EngineOptions() []recommend.Option {
	return []recommend.Option{
		recommend.WithComponents(c.Components),
		recommend.WithCFWeight(c.CFWeight),
		recommend.WithTopK(c.TopK),
		recommend.WithCandidateFactor(c.CFCandidateFactor),
		recommend.WithContent(c.ContentSeedItems, c.ContentNeighbors),
		recommend.WithFilter(c.Filter),
	}
}

// TTLs 转换为 ResultCache 的按命令缓存时长
func (c TTLConfig) TTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"recommend":        c.Recommend,
		"similar_products": c.SimilarProducts,
		"popular":          c.Popular,
	}
}

// Redacted 返回隐去密钥的副本，用于输出
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = "******"
		}
	}
	mask(&out.Cache.Redis.Password)
	mask(&out.Encoder.Token)
	mask(&out.Storage.AccessKey)
	mask(&out.Storage.SecretKey)
	return &out
}
