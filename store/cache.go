package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/marketrec/core"
)

// 各命令结果的默认缓存时长
const (
	DefaultRecommendTTL       = time.Hour
	DefaultSimilarProductsTTL = 24 * time.Hour
	DefaultPopularTTL         = 6 * time.Hour
)

// DefaultKeyPrefix 缓存 key 前缀
const DefaultKeyPrefix = "marketrec:"

// ResultCache 缓存命令结果。
//
// key = 前缀 + 命令名 + ":" + 参数的 SHA-256，参数相同即命中。
// 缓存读写失败只记日志，不影响命令本身。
type ResultCache struct {
	Store  core.Store
	Prefix string

	// TTL 按命令名配置缓存时长；未配置的命令不缓存
	TTL map[string]time.Duration
}

// NewResultCache 创建结果缓存，ttl 为 nil 时使用默认时长
func NewResultCache(s core.Store, ttl map[string]time.Duration) *ResultCache {
	if ttl == nil {
		ttl = map[string]time.Duration{
			"recommend":        DefaultRecommendTTL,
			"similar_products": DefaultSimilarProductsTTL,
			"popular":          DefaultPopularTTL,
		}
	}
	return &ResultCache{Store: s, Prefix: DefaultKeyPrefix, TTL: ttl}
}

// Key 计算缓存 key
func (c *ResultCache) Key(command string, args ...string) string {
	h := sha256.New()
	for _, a := range args {
		h.Write([]byte(a))
		h.Write([]byte{0})
	}
	return c.Prefix + command + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *ResultCache) enabled(command string) (time.Duration, bool) {
	if c == nil || c.Store == nil {
		return 0, false
	}
	ttl, ok := c.TTL[command]
	return ttl, ok && ttl > 0
}

// GetOrCompute 命中缓存时直接返回，否则调用 compute 并写回缓存。
// c 为 nil 或命令未配置 TTL 时等价于直接调用 compute。
func GetOrCompute[T any](
	ctx context.Context,
	c *ResultCache,
	command string,
	args []string,
	compute func(context.Context) (T, error),
) (T, error) {
	ttl, ok := c.enabled(command)
	if !ok {
		return compute(ctx)
	}

	logger := zerolog.Ctx(ctx).With().Str("command", command).Str("store", c.Store.Name()).Logger()
	key := c.Key(command, args...)

	data, err := c.Store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		decodeErr := json.Unmarshal(data, &cached)
		if decodeErr == nil {
			logger.Debug().Msg("result cache hit")
			return cached, nil
		}
		logger.Warn().Err(decodeErr).Msg("discard undecodable cache entry")
	case !core.IsStoreNotFound(err):
		logger.Warn().Err(err).Msg("result cache read failed")
	}

	out, err := compute(ctx)
	if err != nil {
		return out, err
	}
	if data, err := json.Marshal(out); err != nil {
		logger.Warn().Err(err).Msg("result cache encode failed")
	} else if err := c.Store.Set(ctx, key, data, int(ttl/time.Second)); err != nil {
		logger.Warn().Err(err).Msg("result cache write failed")
	}
	return out, nil
}
