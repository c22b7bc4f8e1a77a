package core

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteraction_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Interaction
		wantErr bool
	}{
		{
			name:  "camel case keys",
			input: `{"userId": 1, "productId": 10, "score": 5}`,
			want:  Interaction{UserID: "1", ProductID: "10", Score: 5},
		},
		{
			name:  "snake case keys",
			input: `{"user_id": "u1", "product_id": "a", "score": 2.5}`,
			want:  Interaction{UserID: "u1", ProductID: "a", Score: 2.5},
		},
		{
			name:  "numeric string score",
			input: `{"userId": 1, "productId": 2, "score": "3"}`,
			want:  Interaction{UserID: "1", ProductID: "2", Score: 3},
		},
		{name: "missing user", input: `{"productId": 1, "score": 1}`, wantErr: true},
		{name: "missing product", input: `{"userId": 1, "score": 1}`, wantErr: true},
		{name: "missing score", input: `{"userId": 1, "productId": 1}`, wantErr: true},
		{name: "negative score", input: `{"userId": 1, "productId": 1, "score": -1}`, wantErr: true},
		{name: "non numeric score", input: `{"userId": 1, "productId": 1, "score": "high"}`, wantErr: true},
		{name: "nan score", input: `{"userId": 1, "productId": 1, "score": "NaN"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Interaction
			err := json.Unmarshal([]byte(tt.input), &in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, in)
		})
	}
}

func TestProduct_Defaults(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id": 3}`), &p))
	assert.Equal(t, ID("3"), p.ID)
	assert.Equal(t, "unknown", p.CategoryOrDefault())
	assert.Equal(t, ConditionGood, p.ConditionOrDefault())
	assert.Equal(t, 0.0, p.PriceOrDefault())

	require.NoError(t, json.Unmarshal([]byte(`{"id": "x", "category": "books", "condition": "new", "price": "1250.50"}`), &p))
	assert.Equal(t, "books", p.CategoryOrDefault())
	assert.Equal(t, ConditionNew, p.ConditionOrDefault())
	assert.InDelta(t, 1250.5, p.PriceOrDefault(), 1e-9)
}

func TestProduct_InvalidPrice(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"id": 1, "price": -5}`), &p)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	err = json.Unmarshal([]byte(`{"category": "books"}`), &p)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestScoredID_JSON(t *testing.T) {
	out, err := json.Marshal([]ScoredID{{ID: "7", Score: 0.5}, {ID: "b", Score: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[7, 0.5], ["b", 2]]`, string(out))

	var back []ScoredID
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, []ScoredID{{ID: "7", Score: 0.5}, {ID: "b", Score: 2}}, back)
}
