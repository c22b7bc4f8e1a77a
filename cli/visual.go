package cli

import (
	"context"
	"flag"

	"github.com/rushteam/marketrec/config"
	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/encoder"
	"github.com/rushteam/marketrec/vector"
)

// EncoderFactory 根据配置创建编码器，测试中可替换
type EncoderFactory func(cfg *config.Config) (encoder.Encoder, error)

// VisualSearch 返回 visual-search 程序；newEncoder 为 nil 时使用 HTTP 推理服务
func VisualSearch(newEncoder EncoderFactory) *App {
	if newEncoder == nil {
		newEncoder = httpEncoder
	}
	withSession := func(run func(context.Context, *Invocation, *encoder.Session) (Fields, error)) func(context.Context, *Invocation) (Fields, error) {
		return func(ctx context.Context, inv *Invocation) (Fields, error) {
			s, err := newSession(inv.Config, newEncoder)
			if err != nil {
				return nil, err
			}
			return run(ctx, inv, s)
		}
	}
	return &App{
		Name: "visual-search",
		flags: func(fs *flag.FlagSet, inv *Invocation) {
			fs.StringVar(&inv.Metric, "metric", string(core.MetricInnerProduct), "find_similar metric: inner_product or cosine")
		},
		Commands: map[string]*Command{
			"encode_image": {Usage: "<path | data URI | s3://bucket/key>", MinArgs: 1, MaxArgs: 1, Run: withSession(runEncodeImage)},
			"encode_text":  {Usage: "<text>", MinArgs: 1, MaxArgs: 1, Run: withSession(runEncodeText)},
			"find_similar": {Usage: "<query> <candidates> [top_k]", MinArgs: 2, MaxArgs: 3, Run: runFindSimilar},
			"batch_encode": {Usage: "<sources JSON array>", MinArgs: 1, MaxArgs: 1, Run: withSession(runBatchEncode)},
			"health":       {Usage: "", MinArgs: 0, MaxArgs: 0, Run: healthCheck(newEncoder)},
			"config":       {Usage: "", MinArgs: 0, MaxArgs: 0, Run: runConfig},
		},
	}
}

// healthChecker 可探活的编码器
type healthChecker interface {
	Health(ctx context.Context) error
}

func healthCheck(newEncoder EncoderFactory) func(context.Context, *Invocation) (Fields, error) {
	return func(ctx context.Context, inv *Invocation) (Fields, error) {
		enc, err := newEncoder(inv.Config)
		if err != nil {
			return nil, err
		}
		hc, ok := enc.(healthChecker)
		if !ok {
			return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeNotSupported, "encoder has no health check")
		}
		if err := hc.Health(ctx); err != nil {
			return nil, err
		}
		return Fields{"healthy": true, "endpoint": inv.Config.Encoder.Endpoint}, nil
	}
}

func httpEncoder(cfg *config.Config) (encoder.Encoder, error) {
	ec := cfg.Encoder
	if ec.Endpoint == "" {
		return nil, core.Configurationf(core.ModuleEncoder, "encoder.endpoint is not configured")
	}
	opts := []encoder.HTTPEncoderOption{
		encoder.WithTimeout(ec.Timeout),
		encoder.WithMaxRetries(ec.MaxRetries),
	}
	if ec.Token != "" {
		opts = append(opts, encoder.WithAuth(&encoder.AuthConfig{Type: "bearer", Token: ec.Token}))
	}
	return encoder.NewHTTPEncoder(ec.Endpoint, ec.Model, opts...), nil
}

func newSession(cfg *config.Config, newEncoder EncoderFactory) (*encoder.Session, error) {
	enc, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}
	loader := &encoder.ImageLoader{}
	if sc := cfg.Storage; sc.Endpoint != "" {
		objects, err := encoder.NewMinioSource(sc.Endpoint, sc.AccessKey, sc.SecretKey, sc.UseSSL)
		if err != nil {
			return nil, err
		}
		loader.Objects = objects
	}
	return encoder.NewSession(enc,
		encoder.WithDimensions(cfg.Encoder.Dimensions),
		encoder.WithImageLoader(loader),
		encoder.WithBatchConcurrency(cfg.Encoder.BatchConcurrency),
		encoder.WithMemo(cfg.Encoder.MemoSize),
	)
}

func runEncodeImage(ctx context.Context, inv *Invocation, s *encoder.Session) (Fields, error) {
	v, err := s.EncodeImage(ctx, inv.Args[0])
	if err != nil {
		return nil, err
	}
	return Fields{"embedding": v, "dimensions": len(v)}, nil
}

func runEncodeText(ctx context.Context, inv *Invocation, s *encoder.Session) (Fields, error) {
	v, err := s.EncodeText(ctx, inv.Args[0])
	if err != nil {
		return nil, err
	}
	return Fields{"embedding": v, "dimensions": len(v)}, nil
}

func runBatchEncode(ctx context.Context, inv *Invocation, s *encoder.Session) (Fields, error) {
	sources, err := decodeArg[[]string](inv.Args[0], "image sources")
	if err != nil {
		return nil, err
	}
	res, err := s.BatchEncode(ctx, sources)
	if err != nil {
		return nil, err
	}
	return Fields{
		"embeddings": res.Embeddings,
		"count":      len(res.Embeddings),
		"sources":    res.Sources,
		"skipped":    res.Skipped,
	}, nil
}

// runFindSimilar 缺省按内积检索（向量已归一化），-metric cosine 时对未归一化的向量也成立
func runFindSimilar(ctx context.Context, inv *Invocation) (Fields, error) {
	query, err := vector.ParseQuery([]byte(inv.Args[0]))
	if err != nil {
		return nil, err
	}
	candidates, err := vector.ParseCandidates([]byte(inv.Args[1]))
	if err != nil {
		return nil, err
	}
	topK, err := optionalInt(inv.Args, 2, 10, "top_k")
	if err != nil {
		return nil, err
	}
	if topK < 0 {
		return nil, core.Validationf(core.ModuleVector, "top_k must not be negative, got %d", topK)
	}
	if topK == 0 || len(candidates) == 0 {
		return Fields{"results": []core.ScoredID{}}, nil
	}

	svc, err := vector.NewBruteForceService(candidates)
	if err != nil {
		return nil, err
	}
	defer svc.Close()
	found, err := svc.Search(ctx, &core.VectorSearchRequest{
		Vector: query,
		TopK:   topK,
		Metric: core.MetricType(inv.Metric),
	})
	if err != nil {
		return nil, err
	}
	results := make([]core.ScoredID, 0, len(found.Items))
	for _, it := range found.Items {
		results = append(results, core.ScoredID{ID: it.ID, Score: it.Score})
	}
	return Fields{"results": results}, nil
}
