package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "martbuild/pkg/errors"
)

func node(name string, deps ...string) *Model {
	return &Model{Name: name, Schema: "MARTS", DependsOn: deps}
}

func levelNames(levels [][]*Model) [][]string {
	out := make([][]string, 0, len(levels))
	for _, level := range levels {
		names := make([]string, 0, len(level))
		for _, m := range level {
			names = append(names, m.Name)
		}
		out = append(out, names)
	}
	return out
}

func TestGraphLevels(t *testing.T) {
	g, err := NewGraph(
		node("fct_sales", "stg_sales", "dim_product", "dim_date"),
		node("dim_product", "stg_products"),
		node("dim_date"),
		node("stg_products"),
		node("stg_sales"),
	)
	require.NoError(t, err)

	levels, err := g.Levels()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"dim_date", "stg_products", "stg_sales"},
		{"dim_product"},
		{"fct_sales"},
	}, levelNames(levels))
}

func TestGraphOrderIsDeterministic(t *testing.T) {
	g, err := NewGraph(
		node("b"),
		node("a"),
		node("c", "a", "b"),
	)
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestGraphRejectsCycle(t *testing.T) {
	g, err := NewGraph(
		node("a", "b"),
		node("b", "a"),
	)
	require.NoError(t, err)

	_, err = g.Levels()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeModelGraphInvalid, apperrors.GetErrorCode(err))
}

func TestGraphRejectsUnknownDependency(t *testing.T) {
	_, err := NewGraph(node("fct_sales", "stg_missing"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeModelGraphInvalid, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "stg_missing")
}

func TestGraphRejectsDuplicateName(t *testing.T) {
	_, err := NewGraph(node("dim_date"), node("dim_date"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeModelGraphInvalid, apperrors.GetErrorCode(err))
}

func TestGraphModelLookup(t *testing.T) {
	g, err := NewGraph(node("dim_date"))
	require.NoError(t, err)

	m, ok := g.Model("dim_date")
	assert.True(t, ok)
	assert.Equal(t, "dim_date", m.Name)

	_, ok = g.Model("dim_missing")
	assert.False(t, ok)
	assert.Equal(t, 1, g.Len())
}
