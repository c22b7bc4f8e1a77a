package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
)

func interactions() []core.Interaction {
	return []core.Interaction{
		{UserID: "u2", ProductID: "p3", Score: 4},
		{UserID: "u1", ProductID: "p1", Score: 5},
		{UserID: "u1", ProductID: "p2", Score: 0},
		{UserID: "u2", ProductID: "p1", Score: 3},
	}
}

func TestBuildInteractionMatrix(t *testing.T) {
	m, err := BuildInteractionMatrix(interactions())
	require.NoError(t, err)

	rows, cols := m.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []core.ID{"u1", "u2"}, m.Users)
	assert.Equal(t, []core.ID{"p1", "p2", "p3"}, m.Items)
	assert.Equal(t, [][]float64{{5, 0, 0}, {3, 0, 4}}, m.Values)

	for id, i := range m.UserIndex {
		assert.Equal(t, id, m.Users[i])
	}
	for id, j := range m.ItemIndex {
		assert.Equal(t, id, m.Items[j])
	}
}

func TestBuildInteractionMatrix_RowSumsMatchUserTotals(t *testing.T) {
	in := interactions()
	m, err := BuildInteractionMatrix(in)
	require.NoError(t, err)

	totals := make(map[core.ID]float64)
	for _, x := range in {
		totals[x.UserID] += x.Score
	}
	sums := m.RowSums()
	for u, i := range m.UserIndex {
		assert.Equal(t, totals[u], sums[i])
	}
	assert.Equal(t, []float64{8, 0, 4}, m.ColumnSums())
}

func TestBuildInteractionMatrix_LastWriteWins(t *testing.T) {
	m, err := BuildInteractionMatrix([]core.Interaction{
		{UserID: "1", ProductID: "10", Score: 1},
		{UserID: "1", ProductID: "10", Score: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{7}}, m.Values)
}

func TestBuildInteractionMatrix_NumericOrder(t *testing.T) {
	m, err := BuildInteractionMatrix([]core.Interaction{
		{UserID: "10", ProductID: "2", Score: 1},
		{UserID: "9", ProductID: "11", Score: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{"9", "10"}, m.Users)
	assert.Equal(t, []core.ID{"2", "11"}, m.Items)
}

func TestBuildInteractionMatrix_Empty(t *testing.T) {
	m, err := BuildInteractionMatrix(nil)
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())
	assert.Nil(t, m.Dense())
	assert.Empty(t, m.ColumnSums())
}

func TestBuildInteractionMatrix_InvalidScore(t *testing.T) {
	_, err := BuildInteractionMatrix([]core.Interaction{{UserID: "1", ProductID: "1", Score: -2}})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestInteractionMatrix_Transpose(t *testing.T) {
	m, err := BuildInteractionMatrix(interactions())
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 3}, {0, 0}, {0, 4}}, m.Transpose())

	row, ok := m.Row("u2")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 0, 4}, row)
	_, ok = m.Row("nobody")
	assert.False(t, ok)
}
