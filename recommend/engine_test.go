package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
)

func strPtr(s string) *string { return &s }

func conditionPtr(c core.Condition) *core.Condition { return &c }

func floatPtr(f float64) *float64 { return &f }

func scenarioInteractions() []core.Interaction {
	return []core.Interaction{
		{UserID: "u1", ProductID: "p1", Score: 5},
		{UserID: "u1", ProductID: "p2", Score: 0},
		{UserID: "u2", ProductID: "p1", Score: 3},
		{UserID: "u2", ProductID: "p3", Score: 4},
	}
}

func scenarioProducts() []core.Product {
	return []core.Product{
		{ID: "p1", Category: strPtr("electronics"), Condition: conditionPtr(core.ConditionNew), Price: floatPtr(900)},
		{ID: "p2", Category: strPtr("books"), Condition: conditionPtr(core.ConditionGood), Price: floatPtr(50)},
		{ID: "p3", Category: strPtr("electronics"), Condition: conditionPtr(core.ConditionLikeNew), Price: floatPtr(1200)},
	}
}

func itemIDs(items []core.ScoredID) []core.ID {
	out := make([]core.ID, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestRecommend_HybridScenario(t *testing.T) {
	var first *Result
	for i := 0; i < 5; i++ {
		e, err := NewEngine(scenarioInteractions(), scenarioProducts())
		require.NoError(t, err)

		res, err := e.Recommend(context.Background(), "u1", 2, DefaultCFWeight)
		require.NoError(t, err)
		assert.Equal(t, StrategyHybrid, res.Strategy)
		assert.NotContains(t, itemIDs(res.Items), core.ID("p1"))

		if first == nil {
			first = res
			continue
		}
		assert.Equal(t, first, res)
	}

	require.Equal(t, []core.ID{"p3", "p2"}, itemIDs(first.Items))
	assert.Greater(t, first.Items[0].Score, 0.7)
	assert.Less(t, first.Items[1].Score, 0.2)
}

func TestRecommend_ColdStartIsPopularity(t *testing.T) {
	in := scenarioInteractions()
	reversed := make([]core.Interaction, len(in))
	for i := range in {
		reversed[len(in)-1-i] = in[i]
	}

	for _, interactions := range [][]core.Interaction{in, reversed} {
		e, err := NewEngine(interactions, scenarioProducts())
		require.NoError(t, err)

		res, err := e.Recommend(context.Background(), "stranger", 3, DefaultCFWeight)
		require.NoError(t, err)
		popular, err := e.Popular(context.Background(), 3)
		require.NoError(t, err)

		assert.Equal(t, StrategyPopular, res.Strategy)
		assert.Equal(t, popular, res.Items)
		assert.Equal(t, []core.ScoredID{{ID: "p1", Score: 8}, {ID: "p3", Score: 4}, {ID: "p2", Score: 0}}, res.Items)
	}
}

func TestRecommend_ZeroScoreUserIsPopularity(t *testing.T) {
	interactions := append(scenarioInteractions(), core.Interaction{UserID: "u0", ProductID: "p2", Score: 0})
	e, err := NewEngine(interactions, scenarioProducts())
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), "u0", 3, DefaultCFWeight)
	require.NoError(t, err)
	popular, err := e.Popular(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, StrategyPopular, res.Strategy)
	assert.Equal(t, popular, res.Items)
	assert.Equal(t, []core.ScoredID{{ID: "p1", Score: 8}, {ID: "p3", Score: 4}, {ID: "p2", Score: 0}}, res.Items)
}

func TestRecommend_ContentOnlyWhenFactorizationImpossible(t *testing.T) {
	e, err := NewEngine(
		[]core.Interaction{{UserID: "u1", ProductID: "p1", Score: 5}},
		scenarioProducts(),
	)
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), "u1", 5, DefaultCFWeight)
	require.NoError(t, err)
	assert.Equal(t, StrategyContent, res.Strategy)
	assert.Equal(t, []core.ID{"p3", "p2"}, itemIDs(res.Items))

	_, err = e.Train(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestRecommend_EmptyBlendFallsBackToPopular(t *testing.T) {
	e, err := NewEngine([]core.Interaction{
		{UserID: "u1", ProductID: "p1", Score: 1},
		{UserID: "u1", ProductID: "p2", Score: 1},
		{UserID: "u2", ProductID: "p1", Score: 1},
	}, nil)
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), "u1", 5, DefaultCFWeight)
	require.NoError(t, err)
	assert.Equal(t, StrategyPopular, res.Strategy)
	assert.Equal(t, []core.ScoredID{{ID: "p1", Score: 2}, {ID: "p2", Score: 1}}, res.Items)
}

func TestRecommend_NoData(t *testing.T) {
	e, err := NewEngine(nil, nil)
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), "u1", 5, DefaultCFWeight)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	popular, err := e.Popular(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, popular)
	assert.Empty(t, popular)
}

func TestRecommend_InvalidArguments(t *testing.T) {
	e, err := NewEngine(scenarioInteractions(), scenarioProducts())
	require.NoError(t, err)

	for _, w := range []float64{-0.1, 1.5} {
		_, err := e.Recommend(context.Background(), "u1", 5, w)
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
	}
	_, err = e.Recommend(context.Background(), "u1", -1, 0.5)
	assert.True(t, core.IsValidation(err))

	_, err = NewEngine(scenarioInteractions(), scenarioProducts(), WithFilter("item.score >"))
	assert.True(t, core.IsValidation(err))
}

func TestRecommend_Filter(t *testing.T) {
	e, err := NewEngine(scenarioInteractions(), scenarioProducts(), WithFilter(`item.score > 0.5`))
	require.NoError(t, err)

	res, err := e.Recommend(context.Background(), "u1", 5, DefaultCFWeight)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"p3"}, itemIDs(res.Items))
}

func TestTrain(t *testing.T) {
	e, err := NewEngine(scenarioInteractions(), scenarioProducts())
	require.NoError(t, err)

	summary, err := e.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t, 3, summary.Items)
	assert.Equal(t, 1, summary.Components)
}

func TestSimilarProductsAndUsers(t *testing.T) {
	e, err := NewEngine(scenarioInteractions(), scenarioProducts())
	require.NoError(t, err)

	similar, err := e.SimilarProducts(context.Background(), "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"p3"}, itemIDs(similar))

	similar, err = e.SimilarProducts(context.Background(), "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, similar)

	users, err := e.SimilarUsers(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"u2"}, itemIDs(users))
}
