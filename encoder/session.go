package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pkg/similarity"
)

const (
	// DefaultMemoSize 进程内缓存的 embedding 数量
	DefaultMemoSize = 1024
	// DefaultBatchConcurrency 批量加载图片的并发数
	DefaultBatchConcurrency = 8
)

// Session 是一次进程生命周期内的编码会话：创建一次，传给每个操作使用。
//
// 职责：
//   - 调用 Encoder 并把结果 L2 归一化（检索端依赖这一点，内积即余弦）
//   - 校验维度
//   - 以内容哈希为 key 缓存 embedding
//   - 批量编码时并发加载图片，加载失败的图片跳过
type Session struct {
	encoder     Encoder
	loader      *ImageLoader
	dimensions  int
	concurrency int
	memo        *lru.Cache[string, []float64]
}

// SessionOption 会话配置选项
type SessionOption func(*Session)

// WithDimensions 设置期望的向量维度
func WithDimensions(n int) SessionOption {
	return func(s *Session) { s.dimensions = n }
}

// WithImageLoader 设置图片加载器
func WithImageLoader(l *ImageLoader) SessionOption {
	return func(s *Session) { s.loader = l }
}

// WithBatchConcurrency 设置批量加载并发数
func WithBatchConcurrency(n int) SessionOption {
	return func(s *Session) { s.concurrency = n }
}

// WithMemo 设置缓存容量；<= 0 关闭缓存
func WithMemo(size int) SessionOption {
	return func(s *Session) {
		s.memo = nil
		if size > 0 {
			s.memo, _ = lru.New[string, []float64](size)
		}
	}
}

// NewSession 创建编码会话
func NewSession(enc Encoder, opts ...SessionOption) (*Session, error) {
	if enc == nil {
		return nil, core.Configurationf(core.ModuleEncoder, "encoder is not configured")
	}
	s := &Session{
		encoder:     enc,
		loader:      &ImageLoader{},
		dimensions:  DefaultDimensions,
		concurrency: DefaultBatchConcurrency,
	}
	WithMemo(DefaultMemoSize)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.dimensions <= 0 {
		return nil, core.Configurationf(core.ModuleEncoder, "dimensions must be positive, got %d", s.dimensions)
	}
	return s, nil
}

// Dimensions 返回向量维度
func (s *Session) Dimensions() int { return s.dimensions }

// EncodeImage 加载并编码单张图片
func (s *Session) EncodeImage(ctx context.Context, source string) ([]float64, error) {
	data, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	out, err := s.encodeImages(ctx, [][]byte{data})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EncodeText 编码文本（以文搜图）
func (s *Session) EncodeText(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.Validationf(core.ModuleEncoder, "text is empty")
	}
	key := memoKey("txt", []byte(text))
	if v, ok := s.lookup(key); ok {
		return v, nil
	}
	raw, err := s.encoder.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	v, err := s.finish(raw)
	if err != nil {
		return nil, err
	}
	s.store(key, v)
	return v, nil
}

// BatchResult 批量编码结果
type BatchResult struct {
	// Embeddings 与成功加载的图片一一对应，保持输入顺序
	Embeddings [][]float64
	// Sources 每个 embedding 对应的图片来源
	Sources []string
	// Skipped 加载失败被跳过的图片来源
	Skipped []string
}

// BatchEncode 批量编码。加载失败的图片记录 warn 日志后跳过，不影响其余图片。
func (s *Session) BatchEncode(ctx context.Context, sources []string) (*BatchResult, error) {
	logger := zerolog.Ctx(ctx)
	loaded := make([][]byte, len(sources))
	failed := make([]error, len(sources))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, s.concurrency))
	for i, src := range sources {
		eg.Go(func() error {
			data, err := s.loader.Load(egCtx, src)
			if err != nil {
				failed[i] = err
				return nil
			}
			loaded[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{Embeddings: [][]float64{}, Sources: []string{}, Skipped: []string{}}
	images := make([][]byte, 0, len(sources))
	for i, src := range sources {
		if failed[i] != nil {
			logger.Warn().Err(failed[i]).Str("source", src).Msg("could not load image, skipped")
			res.Skipped = append(res.Skipped, src)
			continue
		}
		images = append(images, loaded[i])
		res.Sources = append(res.Sources, src)
	}
	if len(images) == 0 {
		return res, nil
	}

	embeddings, err := s.encodeImages(ctx, images)
	if err != nil {
		return nil, err
	}
	res.Embeddings = embeddings
	return res, nil
}

// encodeImages 先查缓存，未命中的图片合并为一次 Encoder 调用
func (s *Session) encodeImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	out := make([][]float64, len(images))
	keys := make([]string, len(images))
	var (
		missIdx []int
		missing [][]byte
	)
	for i, img := range images {
		keys[i] = memoKey("img", img)
		if v, ok := s.lookup(keys[i]); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missing = append(missing, img)
	}
	if len(missing) == 0 {
		return out, nil
	}

	raw, err := s.encoder.EncodeImages(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(missing) {
		return nil, core.Computationf(core.ModuleEncoder, "encoder returned %d embeddings for %d images", len(raw), len(missing))
	}
	for j, i := range missIdx {
		v, err := s.finish(raw[j])
		if err != nil {
			return nil, err
		}
		out[i] = v
		s.store(keys[i], v)
	}
	return out, nil
}

// finish 校验维度并 L2 归一化
func (s *Session) finish(raw []float64) ([]float64, error) {
	if len(raw) != s.dimensions {
		return nil, core.Computationf(core.ModuleEncoder, "embedding has %d dimensions, expected %d", len(raw), s.dimensions)
	}
	return similarity.Normalize(raw)
}

func (s *Session) lookup(key string) ([]float64, bool) {
	if s.memo == nil {
		return nil, false
	}
	v, ok := s.memo.Get(key)
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

func (s *Session) store(key string, v []float64) {
	if s.memo != nil {
		s.memo.Add(key, append([]float64(nil), v...))
	}
}

func memoKey(kind string, data []byte) string {
	sum := sha256.Sum256(data)
	return kind + ":" + hex.EncodeToString(sum[:])
}
