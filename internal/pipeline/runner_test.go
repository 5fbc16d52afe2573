package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// memorySource serves fixed landing records without any I/O
type memorySource struct {
	products        []models.ProductRecord
	stores          []models.StoreRecord
	vendors         []models.VendorRecord
	sales           []models.SaleRecord
	inventory       []models.InventoryRecord
	vulnerabilities []models.VulnerabilityRecord
}

func (s *memorySource) Products(ctx context.Context) ([]models.ProductRecord, error) {
	return s.products, nil
}

func (s *memorySource) Stores(ctx context.Context) ([]models.StoreRecord, error) {
	return s.stores, nil
}

func (s *memorySource) Vendors(ctx context.Context) ([]models.VendorRecord, error) {
	return s.vendors, nil
}

func (s *memorySource) Sales(ctx context.Context) ([]models.SaleRecord, error) {
	return s.sales, nil
}

func (s *memorySource) Inventory(ctx context.Context) ([]models.InventoryRecord, error) {
	return s.inventory, nil
}

func (s *memorySource) Vulnerabilities(ctx context.Context) ([]models.VulnerabilityRecord, error) {
	return s.vulnerabilities, nil
}

// captureTarget records the staged tables and lifecycle calls
type captureTarget struct {
	mu        sync.Mutex
	prepared  bool
	published bool
	aborted   bool
	tables    map[string]*models.Table
}

func newCaptureTarget() *captureTarget {
	return &captureTarget{tables: make(map[string]*models.Table)}
}

func (t *captureTarget) Prepare(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prepared = true
	return nil
}

func (t *captureTarget) WriteTable(ctx context.Context, table *models.Table) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables[table.FullName()] = table
	return nil
}

func (t *captureTarget) Publish(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.published = true
	return nil
}

func (t *captureTarget) Abort(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborted = true
	return nil
}

func testRunnerCfg() models.Pipeline {
	return models.Pipeline{
		Workers:         2,
		DuplicatePolicy: "error",
		SentinelKey:     -1,
		DateDimension: models.DateDimension{
			StartDate:   "2025-01-01",
			Days:        365,
			WeekendDays: []string{"Saturday", "Sunday"},
			HolidaySeason: models.HolidaySeason{
				FullMonths:   []int{12},
				PartialMonth: 11,
				FromDay:      24,
			},
		},
		SeverityTiers: []models.SeverityTier{
			{Name: "LOW", MinScore: 0},
			{Name: "MEDIUM", MinScore: 4},
			{Name: "HIGH", MinScore: 7},
			{Name: "CRITICAL", MinScore: 9},
		},
	}
}

func testSource() *memorySource {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	score := 9.8
	return &memorySource{
		products: []models.ProductRecord{
			{ProductID: 1, SKU: "ELELAP0001", Supplier: "Vendor 1", UnitCost: 100, UnitPrice: 150},
		},
		stores:  []models.StoreRecord{{StoreID: 1, StoreName: "Store 001"}},
		vendors: []models.VendorRecord{{VendorID: 1, VendorName: "Vendor 1"}},
		sales: []models.SaleRecord{
			{TransactionID: 1, SaleDate: day, ProductID: 1, StoreID: 1, QuantitySold: 2, UnitPrice: 150, TotalRevenue: 300},
		},
		inventory: []models.InventoryRecord{
			{SnapshotDate: day, ProductID: 1, StoreID: 1, UnitsOnHand: 40, ReorderPoint: 10},
		},
		vulnerabilities: []models.VulnerabilityRecord{
			{CVEID: "CVE-2025-0001", PublishedDate: day, CVSSScore: &score},
		},
	}
}

func TestRunPublishesAllModels(t *testing.T) {
	target := newCaptureTarget()
	r := NewRunner(testRunnerCfg(), testSource(), target, nil)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Published)
	assert.Len(t, result.Models, 14)
	assert.True(t, target.prepared)
	assert.True(t, target.published)
	assert.False(t, target.aborted)
	assert.Len(t, target.tables, 14)

	fct, ok := target.tables["MARTS.FCT_SALES"]
	require.True(t, ok)
	assert.Len(t, fct.Rows, 1)
}

func TestRunAbortsOnDuplicateNaturalKey(t *testing.T) {
	src := testSource()
	src.products = append(src.products, src.products[0]) // same product_id twice

	target := newCaptureTarget()
	r := NewRunner(testRunnerCfg(), src, target, nil)

	result, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicateKey, apperrors.GetErrorCode(err))

	assert.False(t, result.Published)
	assert.True(t, target.aborted)
	assert.False(t, target.published)
}

func TestRunLastWinsPolicySurvivesDuplicates(t *testing.T) {
	src := testSource()
	src.products = append(src.products, models.ProductRecord{
		ProductID: 1, SKU: "ELELAP0001B", Supplier: "Vendor 1",
	})

	cfg := testRunnerCfg()
	cfg.DuplicatePolicy = "last-wins"
	target := newCaptureTarget()

	result, err := NewRunner(cfg, src, target, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Published)

	dim, ok := target.tables["MARTS.DIM_PRODUCT"]
	require.True(t, ok)
	require.Len(t, dim.Rows, 1)
	assert.Equal(t, "ELELAP0001B", dim.Rows[0][2])
}

func TestRunReleasesLocks(t *testing.T) {
	target := newCaptureTarget()
	r := NewRunner(testRunnerCfg(), testSource(), target, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// A second run would fail fast if the first leaked its locks
	_, err = r.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := newCaptureTarget()
	_, err := NewRunner(testRunnerCfg(), testSource(), target, nil).Run(ctx)
	require.Error(t, err)
}

func TestPlanOrdersStagingBeforeMarts(t *testing.T) {
	r := NewRunner(testRunnerCfg(), nil, nil, nil)

	plan, err := r.Plan()
	require.NoError(t, err)
	require.NotEmpty(t, plan)

	assert.Contains(t, plan[0], "stg_products")
	assert.Contains(t, plan[0], "dim_date")

	last := plan[len(plan)-1]
	assert.Contains(t, last, "fct_sales")

	total := 0
	for _, level := range plan {
		total += len(level)
	}
	assert.Equal(t, 14, total)
}
