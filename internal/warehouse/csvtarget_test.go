package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martbuild/pkg/models"
)

func TestCSVTargetPublishRoundtrip(t *testing.T) {
	dir := t.TempDir()
	target := NewCSVTarget(dir)
	ctx := context.Background()

	require.NoError(t, target.Prepare(ctx))
	require.NoError(t, target.WriteTable(ctx, dimDateTable()))

	// Staged output is invisible until Publish
	_, err := os.Stat(filepath.Join(dir, "MARTS.DIM_DATE.csv"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, target.Publish(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "MARTS.DIM_DATE.csv"))
	require.NoError(t, err)
	assert.Equal(t, "DATE_KEY,YEAR\n20250101,2025\n20250102,2025\n", string(data))

	// The build directory is gone after publish
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MARTS.DIM_DATE.csv", entries[0].Name())
}

func TestCSVTargetPublishReplacesPreviousGeneration(t *testing.T) {
	dir := t.TempDir()
	target := NewCSVTarget(dir)
	ctx := context.Background()

	stale := filepath.Join(dir, "MARTS.DIM_DATE.csv")
	require.NoError(t, os.WriteFile(stale, []byte("old contents\n"), 0o600))

	require.NoError(t, target.Prepare(ctx))
	require.NoError(t, target.WriteTable(ctx, dimDateTable()))
	require.NoError(t, target.Publish(ctx))

	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old contents")
}

func TestCSVTargetAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	target := NewCSVTarget(dir)
	ctx := context.Background()

	require.NoError(t, target.Prepare(ctx))
	require.NoError(t, target.WriteTable(ctx, dimDateTable()))
	require.NoError(t, target.Abort(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCSVTargetAbortWithoutPrepare(t *testing.T) {
	target := NewCSVTarget(t.TempDir())
	assert.NoError(t, target.Abort(context.Background()))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{int64(-1), "-1"},
		{42, "42"},
		{3.5, "3.5"},
		{true, "true"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCell(tt.in))
	}
}

func TestCSVTargetNullCells(t *testing.T) {
	dir := t.TempDir()
	target := NewCSVTarget(dir)
	ctx := context.Background()

	table := &models.Table{
		Schema: "MARTS",
		Name:   "FCT_SALES",
		Columns: []models.Column{
			{Name: "TRANSACTION_ID", Type: "INT"},
			{Name: "PROFIT_MARGIN_PCT", Type: "DECIMAL(10,2)"},
		},
		Rows: [][]interface{}{{1, nil}},
	}

	require.NoError(t, target.Prepare(ctx))
	require.NoError(t, target.WriteTable(ctx, table))
	require.NoError(t, target.Publish(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "MARTS.FCT_SALES.csv"))
	require.NoError(t, err)
	assert.Equal(t, "TRANSACTION_ID,PROFIT_MARGIN_PCT\n1,\n", string(data))
}
