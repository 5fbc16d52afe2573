package generate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martbuild/pkg/models"
)

func testGenCfg(dir string) models.Generator {
	return models.Generator{
		Seed:      42,
		Products:  20,
		Stores:    3,
		Vendors:   5,
		StartDate: "2025-03-01",
		Days:      7,
		OutputDir: dir,
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunWritesAllFiles(t *testing.T) {
	dir := t.TempDir()
	summary, err := NewGenerator(testGenCfg(dir), nil).Run()
	require.NoError(t, err)

	for _, name := range []string{
		"products.csv", "stores.csv", "vendors.csv", "sales.csv", "inventory_snapshot.csv",
	} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, name)
	}

	assert.Equal(t, 20, summary.Products)
	assert.Equal(t, 3, summary.Stores)
	assert.Equal(t, 5, summary.Vendors)
	assert.Positive(t, summary.Sales)
	assert.Positive(t, summary.TotalRevenue)

	// One inventory row per product per store
	assert.Equal(t, 20*3, summary.Inventory)
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	_, err := NewGenerator(testGenCfg(dirA), nil).Run()
	require.NoError(t, err)
	_, err = NewGenerator(testGenCfg(dirB), nil).Run()
	require.NoError(t, err)

	for _, name := range []string{"products.csv", "sales.csv", "inventory_snapshot.csv"} {
		a, err := os.ReadFile(filepath.Join(dirA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dirB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestRunDifferentSeedsDiffer(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	cfgB := testGenCfg(dirB)
	cfgB.Seed = 7

	_, err := NewGenerator(testGenCfg(dirA), nil).Run()
	require.NoError(t, err)
	_, err = NewGenerator(cfgB, nil).Run()
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dirA, "sales.csv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "sales.csv"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestProductRows(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator(testGenCfg(dir), nil).Run()
	require.NoError(t, err)

	rows := readRows(t, filepath.Join(dir, "products.csv"))
	require.Greater(t, len(rows), 1)

	header := rows[0]
	assert.Equal(t, []string{
		"product_id", "sku", "product_name", "category", "subcategory",
		"brand", "unit_cost", "unit_price", "supplier",
	}, header)

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Len(t, first[1], 10) // CCCSSSNNNN sku shape
}

func TestSalesReferenceGeneratedMasterData(t *testing.T) {
	dir := t.TempDir()
	cfg := testGenCfg(dir)
	_, err := NewGenerator(cfg, nil).Run()
	require.NoError(t, err)

	rows := readRows(t, filepath.Join(dir, "sales.csv"))
	require.Greater(t, len(rows), 1)

	for _, row := range rows[1:] {
		assert.NotEmpty(t, row[1]) // sale_date
		productID := row[2]
		assert.NotEqual(t, "0", productID)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Generator)
	}{
		{"bad start date", func(c *models.Generator) { c.StartDate = "03/01/2025" }},
		{"zero days", func(c *models.Generator) { c.Days = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGenCfg(t.TempDir())
			tt.mutate(&cfg)
			_, err := NewGenerator(cfg, nil).Run()
			assert.Error(t, err)
		})
	}
}
