package landing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "martbuild/pkg/errors"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestProductsReadsHeaderIndexedRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "products.csv",
		"product_id,sku,product_name,category,unit_cost,unit_price,supplier\n"+
			"1,ELELAP0001,Laptop Pro,Electronics,450.50,799.99,Vendor 3\n"+
			"2,CLOMEN0002,Denim Jacket,Clothing,20,49.99,Vendor 1\n")

	records, err := NewCSVSource(dir).Products(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].ProductID)
	assert.Equal(t, "ELELAP0001", records[0].SKU)
	assert.Equal(t, "Electronics", records[0].Category)
	assert.InDelta(t, 450.50, records[0].UnitCost, 1e-9)
	assert.Equal(t, "Vendor 3", records[0].Supplier)
	// The brand column was absent, not malformed
	assert.Equal(t, "", records[0].Brand)
}

func TestSalesParsesDates(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "sales.csv",
		"transaction_id,sale_date,product_id,store_id,quantity_sold,total_revenue\n"+
			"1,2025-03-10,1,1,2,99.98\n"+
			"2,not-a-date,1,1,1,49.99\n")

	records, err := NewCSVSource(dir).Sales(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), records[0].SaleDate)
	// Unparseable dates come through zero; staging drops the row later
	assert.True(t, records[1].SaleDate.IsZero())
}

func TestMissingFileReturnsSourceNotFound(t *testing.T) {
	src := NewCSVSource(t.TempDir())

	_, err := src.Products(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSourceNotFound, apperrors.GetErrorCode(err))
}

func TestVulnerabilitiesFeedIsOptional(t *testing.T) {
	records, err := NewCSVSource(t.TempDir()).Vulnerabilities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestVulnerabilitiesMergesAllFiles(t *testing.T) {
	dir := t.TempDir()
	header := "cve_id,published_date,cvss_v3_score,cvss_v3_severity,attack_vector\n"
	writeCSV(t, dir, "cve_data_2025-01-01_to_2025-01-31.csv",
		header+"CVE-2025-0001,2025-01-05,9.8,CRITICAL,NETWORK\n")
	writeCSV(t, dir, "cve_data_2025-02-01_to_2025-02-28.csv",
		header+"CVE-2025-0002,2025-02-10,,,\n")

	records, err := NewCSVSource(dir).Vulnerabilities(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].CVSSScore)
	assert.InDelta(t, 9.8, *records[0].CVSSScore, 1e-9)
	assert.Nil(t, records[1].CVSSScore)
}

func TestEmptyFileYieldsNoRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "vendors.csv", "")

	records, err := NewCSVSource(dir).Vendors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRaggedRowsDoNotPanic(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "stores.csv",
		"store_id,store_name,region\n"+
			"1,Store 001\n")

	records, err := NewCSVSource(dir).Stores(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Region)
}
