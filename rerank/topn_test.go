package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
)

func TestTopNNode(t *testing.T) {
	items := []*core.Item{core.NewItem("1"), core.NewItem("2"), core.NewItem("3")}

	tests := []struct {
		name string
		n    int
		topK int
		want int
	}{
		{name: "explicit n", n: 2, want: 2},
		{name: "n larger than items", n: 10, want: 3},
		{name: "falls back to rctx", n: 0, topK: 1, want: 1},
		{name: "nothing requested", n: 0, topK: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), &core.RecommendContext{TopK: tt.topK}, items)
			require.NoError(t, err)
			assert.Len(t, out, tt.want)
		})
	}
}
