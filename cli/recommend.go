package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/recommend"
	"github.com/rushteam/marketrec/store"
)

// RecommendEngine 返回 recommend-engine 程序
func RecommendEngine() *App {
	return &App{
		Name:      "recommend-engine",
		UsesCache: true,
		flags: func(fs *flag.FlagSet, inv *Invocation) {
			fs.StringVar(&inv.Filter, "filter", "", "CEL expression; recommendations for which it is false are dropped")
			fs.StringVar(&inv.Weight, "weight", "", "collaborative filtering weight in [0, 1]")
		},
		Commands: map[string]*Command{
			"train":            {Usage: "<interactions> <products>", MinArgs: 2, MaxArgs: 2, Run: runTrain},
			"recommend":        {Usage: "<interactions> <products> <user_id> [top_k]", MinArgs: 3, MaxArgs: 4, Run: runRecommend},
			"similar_products": {Usage: "<products> <product_id> [top_k]", MinArgs: 2, MaxArgs: 3, Run: runSimilarProducts},
			"popular":          {Usage: "<interactions> [top_k]", MinArgs: 1, MaxArgs: 2, Run: runPopular},
			"similar_users":    {Usage: "<interactions> <user_id> [n]", MinArgs: 2, MaxArgs: 3, Run: runSimilarUsers},
			"config":           {Usage: "", MinArgs: 0, MaxArgs: 0, Run: runConfig},
		},
	}
}

func newEngine(inv *Invocation, rawInteractions, rawProducts string) (*recommend.Engine, error) {
	var (
		interactions []core.Interaction
		products     []core.Product
		err          error
	)
	if rawInteractions != "" {
		if interactions, err = decodeArg[[]core.Interaction](rawInteractions, "interactions"); err != nil {
			return nil, err
		}
	}
	if rawProducts != "" {
		if products, err = decodeArg[[]core.Product](rawProducts, "products"); err != nil {
			return nil, err
		}
	}
	opts := inv.Config.Recommend.EngineOptions()
	if inv.Filter != "" {
		opts = append(opts, recommend.WithFilter(inv.Filter))
	}
	return recommend.NewEngine(interactions, products, opts...)
}

// cacheKey 由原始输入、生效的请求参数和引擎参数组成；
// 共用同一个 Redis 的调用方配置不同时不会读到彼此的结果
func cacheKey(engine *recommend.Engine, inputs []string, params ...string) []string {
	key := make([]string, 0, len(inputs)+len(params)+1)
	key = append(key, inputs...)
	key = append(key, params...)
	return append(key, fmt.Sprintf("%+v", engine.Options()))
}

func runTrain(ctx context.Context, inv *Invocation) (Fields, error) {
	engine, err := newEngine(inv, inv.Args[0], inv.Args[1])
	if err != nil {
		return nil, err
	}
	summary, err := engine.Train(ctx)
	if err != nil {
		return nil, err
	}
	return Fields{
		"users":              summary.Users,
		"items":              summary.Items,
		"components":         summary.Components,
		"explained_variance": summary.ExplainedVariance,
		"message":            "Model trained successfully",
	}, nil
}

func runRecommend(ctx context.Context, inv *Invocation) (Fields, error) {
	userID, err := core.ParseID(inv.Args[2])
	if err != nil {
		return nil, err
	}
	topK, err := optionalInt(inv.Args, 3, inv.Config.Recommend.TopK, "top_k")
	if err != nil {
		return nil, err
	}
	weight, err := parseWeight(inv.Weight, inv.Config.Recommend.CFWeight)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(inv, inv.Args[0], inv.Args[1])
	if err != nil {
		return nil, err
	}

	key := cacheKey(engine, inv.Args[:3], "top_k="+strconv.Itoa(topK), "weight="+strconv.FormatFloat(weight, 'g', -1, 64))
	res, err := store.GetOrCompute(ctx, inv.Cache, "recommend", key, func(ctx context.Context) (*recommend.Result, error) {
		return engine.Recommend(ctx, userID, topK, weight)
	})
	if err != nil {
		return nil, err
	}
	return Fields{"recommendations": res.Items, "strategy": res.Strategy}, nil
}

func runSimilarProducts(ctx context.Context, inv *Invocation) (Fields, error) {
	productID, err := core.ParseID(inv.Args[1])
	if err != nil {
		return nil, err
	}
	topK, err := optionalInt(inv.Args, 2, inv.Config.Recommend.TopK, "top_k")
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(inv, "", inv.Args[0])
	if err != nil {
		return nil, err
	}
	similar, err := store.GetOrCompute(ctx, inv.Cache, "similar_products", cacheKey(engine, inv.Args[:2], "top_k="+strconv.Itoa(topK)), func(ctx context.Context) ([]core.ScoredID, error) {
		return engine.SimilarProducts(ctx, productID, topK)
	})
	if err != nil {
		return nil, err
	}
	return Fields{"similar_products": similar}, nil
}

func runPopular(ctx context.Context, inv *Invocation) (Fields, error) {
	topK, err := optionalInt(inv.Args, 1, inv.Config.Recommend.TopK, "top_k")
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(inv, inv.Args[0], "")
	if err != nil {
		return nil, err
	}
	popular, err := store.GetOrCompute(ctx, inv.Cache, "popular", cacheKey(engine, inv.Args[:1], "top_k="+strconv.Itoa(topK)), func(ctx context.Context) ([]core.ScoredID, error) {
		return engine.Popular(ctx, topK)
	})
	if err != nil {
		return nil, err
	}
	return Fields{"popular_items": popular}, nil
}

func runSimilarUsers(ctx context.Context, inv *Invocation) (Fields, error) {
	userID, err := core.ParseID(inv.Args[1])
	if err != nil {
		return nil, err
	}
	n, err := optionalInt(inv.Args, 2, recommend.DefaultSimilarUsers, "n")
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(inv, inv.Args[0], "")
	if err != nil {
		return nil, err
	}
	users, err := engine.SimilarUsers(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return Fields{"similar_users": users}, nil
}

func runConfig(_ context.Context, inv *Invocation) (Fields, error) {
	out, err := inv.Config.Dump()
	if err != nil {
		return nil, err
	}
	return Fields{"config": out}, nil
}
