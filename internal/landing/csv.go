package landing

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// CSVSource reads landing entities from the CSV files the generator, the
// loader and the NVD extractor produce.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a CSV landing source rooted at dir
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// row is one CSV record with header-name access. Missing columns and
// unparseable values yield zero values; staging drops what it must.
type row struct {
	index  map[string]int
	fields []string
}

func (r row) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) intval(col string) int {
	v, err := strconv.Atoi(r.str(col))
	if err != nil {
		return 0
	}
	return v
}

func (r row) floatval(col string) float64 {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r row) floatptr(col string) *float64 {
	s := r.str(col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func (r row) date(col string) time.Time {
	s := r.str(col)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// readFile parses one CSV file into header-indexed rows
func (s *CSVSource) readFile(name string) ([]row, error) {
	path := filepath.Join(s.Dir, name)
	f, err := os.Open(path) // #nosec G304 - path comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeSourceNotFound, fmt.Sprintf("Landing file %s not found", name)).
				WithContext("path", path).
				WithSuggestions(
					"Run 'martbuild generate' to create synthetic landing data",
					"Check the --data-dir flag",
				)
		}
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, fmt.Sprintf("Failed to open %s", name))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, fmt.Sprintf("Failed to parse %s", name))
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	rows := make([]row, 0, len(records)-1)
	for _, fields := range records[1:] {
		rows = append(rows, row{index: index, fields: fields})
	}
	return rows, nil
}

func (s *CSVSource) Products(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := s.readFile("products.csv")
	if err != nil {
		return nil, err
	}

	out := make([]models.ProductRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ProductRecord{
			ProductID:   r.intval("product_id"),
			SKU:         r.str("sku"),
			ProductName: r.str("product_name"),
			Category:    r.str("category"),
			Subcategory: r.str("subcategory"),
			Brand:       r.str("brand"),
			UnitCost:    r.floatval("unit_cost"),
			UnitPrice:   r.floatval("unit_price"),
			Supplier:    r.str("supplier"),
		})
	}
	return out, nil
}

func (s *CSVSource) Stores(ctx context.Context) ([]models.StoreRecord, error) {
	rows, err := s.readFile("stores.csv")
	if err != nil {
		return nil, err
	}

	out := make([]models.StoreRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.StoreRecord{
			StoreID:    r.intval("store_id"),
			StoreName:  r.str("store_name"),
			StoreType:  r.str("store_type"),
			Region:     r.str("region"),
			City:       r.str("city"),
			State:      r.str("state"),
			OpenedDate: r.date("opened_date"),
		})
	}
	return out, nil
}

func (s *CSVSource) Vendors(ctx context.Context) ([]models.VendorRecord, error) {
	rows, err := s.readFile("vendors.csv")
	if err != nil {
		return nil, err
	}

	out := make([]models.VendorRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.VendorRecord{
			VendorID:         r.intval("vendor_id"),
			VendorName:       r.str("vendor_name"),
			VendorCountry:    r.str("vendor_country"),
			AvgLeadTimeDays:  r.intval("avg_lead_time_days"),
			ReliabilityScore: r.floatval("reliability_score"),
		})
	}
	return out, nil
}

func (s *CSVSource) Sales(ctx context.Context) ([]models.SaleRecord, error) {
	rows, err := s.readFile("sales.csv")
	if err != nil {
		return nil, err
	}

	out := make([]models.SaleRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SaleRecord{
			TransactionID:   r.intval("transaction_id"),
			SaleDate:        r.date("sale_date"),
			ProductID:       r.intval("product_id"),
			StoreID:         r.intval("store_id"),
			CustomerSegment: r.str("customer_segment"),
			QuantitySold:    r.intval("quantity_sold"),
			UnitPrice:       r.floatval("unit_price"),
			DiscountAmount:  r.floatval("discount_amount"),
			TotalRevenue:    r.floatval("total_revenue"),
			CostOfGoods:     r.floatval("cost_of_goods"),
			Profit:          r.floatval("profit"),
		})
	}
	return out, nil
}

func (s *CSVSource) Inventory(ctx context.Context) ([]models.InventoryRecord, error) {
	rows, err := s.readFile("inventory_snapshot.csv")
	if err != nil {
		return nil, err
	}

	out := make([]models.InventoryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.InventoryRecord{
			SnapshotDate: r.date("snapshot_date"),
			ProductID:    r.intval("product_id"),
			StoreID:      r.intval("store_id"),
			UnitsOnHand:  r.intval("units_on_hand"),
			UnitsOnOrder: r.intval("units_on_order"),
			ReorderPoint: r.intval("reorder_point"),
			SafetyStock:  r.intval("safety_stock"),
			DaysOfSupply: r.floatval("days_of_supply"),
		})
	}
	return out, nil
}

// Vulnerabilities reads every cve_data*.csv file in the landing directory.
// The CVE feed is optional: no files means an empty security mart, not an
// error.
func (s *CSVSource) Vulnerabilities(ctx context.Context) ([]models.VulnerabilityRecord, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "cve_data*.csv"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "Failed to list CVE landing files")
	}

	var out []models.VulnerabilityRecord
	for _, match := range matches {
		rows, err := s.readFile(filepath.Base(match))
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, models.VulnerabilityRecord{
				CVEID:               r.str("cve_id"),
				PublishedDate:       r.date("published_date"),
				ModifiedDate:        r.date("modified_date"),
				VulnStatus:          r.str("vuln_status"),
				Description:         r.str("description"),
				CVSSScore:           r.floatptr("cvss_v3_score"),
				CVSSSeverity:        r.str("cvss_v3_severity"),
				AttackVector:        r.str("attack_vector"),
				AttackComplexity:    r.str("attack_complexity"),
				PrivilegesRequired:  r.str("privileges_required"),
				UserInteraction:     r.str("user_interaction"),
				ExploitabilityScore: r.floatptr("exploitability_score"),
				ImpactScore:         r.floatptr("impact_score"),
				CWEID:               r.str("cwe_id"),
				Vendor:              r.str("vendor"),
				Product:             r.str("product"),
				ReferenceCount:      r.intval("reference_count"),
			})
		}
	}
	return out, nil
}
