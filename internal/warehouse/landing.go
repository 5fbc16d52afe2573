package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"martbuild/internal/landing"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// landingDDL mirrors the raw entity layout the generator and the NVD
// extractor produce. Loaded as-is; staging owns cleansing.
var landingDDL = map[string]string{
	"PRODUCTS": `CREATE TABLE IF NOT EXISTS LANDING.PRODUCTS (
		PRODUCT_ID INT,
		SKU VARCHAR(50),
		PRODUCT_NAME VARCHAR(200),
		CATEGORY VARCHAR(50),
		SUBCATEGORY VARCHAR(50),
		BRAND VARCHAR(100),
		UNIT_COST DECIMAL(10,2),
		UNIT_PRICE DECIMAL(10,2),
		SUPPLIER VARCHAR(100)
	)`,
	"STORES": `CREATE TABLE IF NOT EXISTS LANDING.STORES (
		STORE_ID INT,
		STORE_NAME VARCHAR(100),
		STORE_TYPE VARCHAR(50),
		REGION VARCHAR(50),
		CITY VARCHAR(100),
		STATE VARCHAR(2),
		OPENED_DATE DATE
	)`,
	"VENDORS": `CREATE TABLE IF NOT EXISTS LANDING.VENDORS (
		VENDOR_ID INT,
		VENDOR_NAME VARCHAR(200),
		VENDOR_COUNTRY VARCHAR(50),
		AVG_LEAD_TIME_DAYS INT,
		RELIABILITY_SCORE DECIMAL(5,2)
	)`,
	"SALES": `CREATE TABLE IF NOT EXISTS LANDING.SALES (
		TRANSACTION_ID INT,
		SALE_DATE DATE,
		PRODUCT_ID INT,
		STORE_ID INT,
		CUSTOMER_SEGMENT VARCHAR(50),
		QUANTITY_SOLD INT,
		UNIT_PRICE DECIMAL(10,2),
		DISCOUNT_AMOUNT DECIMAL(10,2),
		TOTAL_REVENUE DECIMAL(10,2),
		COST_OF_GOODS DECIMAL(10,2),
		PROFIT DECIMAL(10,2)
	)`,
	"INVENTORY_SNAPSHOT": `CREATE TABLE IF NOT EXISTS LANDING.INVENTORY_SNAPSHOT (
		SNAPSHOT_DATE DATE,
		PRODUCT_ID INT,
		STORE_ID INT,
		UNITS_ON_HAND INT,
		UNITS_ON_ORDER INT,
		REORDER_POINT INT,
		SAFETY_STOCK INT,
		DAYS_OF_SUPPLY DECIMAL(5,1)
	)`,
	"CVE_DATA": `CREATE TABLE IF NOT EXISTS LANDING.CVE_DATA (
		CVE_ID VARCHAR(20),
		PUBLISHED_DATE DATE,
		MODIFIED_DATE DATE,
		VULN_STATUS VARCHAR(50),
		DESCRIPTION VARCHAR(500),
		CVSS_V3_SCORE DECIMAL(3,1),
		CVSS_V3_SEVERITY VARCHAR(20),
		ATTACK_VECTOR VARCHAR(20),
		ATTACK_COMPLEXITY VARCHAR(20),
		PRIVILEGES_REQUIRED VARCHAR(20),
		USER_INTERACTION VARCHAR(20),
		EXPLOITABILITY_SCORE DECIMAL(3,1),
		IMPACT_SCORE DECIMAL(3,1),
		CWE_ID VARCHAR(200),
		VENDOR VARCHAR(100),
		PRODUCT VARCHAR(200),
		REFERENCE_COUNT INT
	)`,
}

// landingTableOrder keeps loads and reloads deterministic
var landingTableOrder = []string{
	"PRODUCTS", "STORES", "VENDORS", "SALES", "INVENTORY_SNAPSHOT", "CVE_DATA",
}

// EnsureLandingTables creates the LANDING schema and its raw tables
func (s *Service) EnsureLandingTables(ctx context.Context) error {
	if err := s.EnsureSchemas(ctx, "LANDING"); err != nil {
		return err
	}
	for _, name := range landingTableOrder {
		if err := s.exec(ctx, landingDDL[name]); err != nil {
			return err
		}
	}
	return nil
}

// LoadLanding truncates and reloads the landing tables from another source,
// typically the CSV files the generator and the extractor wrote
func (s *Service) LoadLanding(ctx context.Context, src landing.Source) (map[string]int, error) {
	if err := s.EnsureLandingTables(ctx); err != nil {
		return nil, err
	}

	products, err := src.Products(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := src.Stores(ctx)
	if err != nil {
		return nil, err
	}
	vendors, err := src.Vendors(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := src.Sales(ctx)
	if err != nil {
		return nil, err
	}
	inventory, err := src.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	vulnerabilities, err := src.Vulnerabilities(ctx)
	if err != nil {
		return nil, err
	}

	loads := []struct {
		table string
		cols  []string
		rows  [][]interface{}
	}{
		{"LANDING.PRODUCTS",
			[]string{"PRODUCT_ID", "SKU", "PRODUCT_NAME", "CATEGORY", "SUBCATEGORY", "BRAND", "UNIT_COST", "UNIT_PRICE", "SUPPLIER"},
			productRows(products)},
		{"LANDING.STORES",
			[]string{"STORE_ID", "STORE_NAME", "STORE_TYPE", "REGION", "CITY", "STATE", "OPENED_DATE"},
			storeRows(stores)},
		{"LANDING.VENDORS",
			[]string{"VENDOR_ID", "VENDOR_NAME", "VENDOR_COUNTRY", "AVG_LEAD_TIME_DAYS", "RELIABILITY_SCORE"},
			vendorRows(vendors)},
		{"LANDING.SALES",
			[]string{"TRANSACTION_ID", "SALE_DATE", "PRODUCT_ID", "STORE_ID", "CUSTOMER_SEGMENT", "QUANTITY_SOLD", "UNIT_PRICE", "DISCOUNT_AMOUNT", "TOTAL_REVENUE", "COST_OF_GOODS", "PROFIT"},
			saleRows(sales)},
		{"LANDING.INVENTORY_SNAPSHOT",
			[]string{"SNAPSHOT_DATE", "PRODUCT_ID", "STORE_ID", "UNITS_ON_HAND", "UNITS_ON_ORDER", "REORDER_POINT", "SAFETY_STOCK", "DAYS_OF_SUPPLY"},
			inventoryRows(inventory)},
		{"LANDING.CVE_DATA",
			[]string{"CVE_ID", "PUBLISHED_DATE", "MODIFIED_DATE", "VULN_STATUS", "DESCRIPTION", "CVSS_V3_SCORE", "CVSS_V3_SEVERITY", "ATTACK_VECTOR", "ATTACK_COMPLEXITY", "PRIVILEGES_REQUIRED", "USER_INTERACTION", "EXPLOITABILITY_SCORE", "IMPACT_SCORE", "CWE_ID", "VENDOR", "PRODUCT", "REFERENCE_COUNT"},
			vulnerabilityRows(vulnerabilities)},
	}

	counts := make(map[string]int, len(loads))
	for _, load := range loads {
		if err := s.exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", load.table)); err != nil {
			return nil, err
		}
		if err := s.insertRows(ctx, load.table, load.cols, load.rows); err != nil {
			return nil, err
		}
		counts[load.table] = len(load.rows)
	}
	return counts, nil
}

func sqlDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func sqlFloatPtr(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func productRows(in []models.ProductRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			r.ProductID, r.SKU, r.ProductName, r.Category, r.Subcategory,
			r.Brand, r.UnitCost, r.UnitPrice, r.Supplier,
		})
	}
	return rows
}

func storeRows(in []models.StoreRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			r.StoreID, r.StoreName, r.StoreType, r.Region, r.City, r.State,
			sqlDate(r.OpenedDate),
		})
	}
	return rows
}

func vendorRows(in []models.VendorRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			r.VendorID, r.VendorName, r.VendorCountry, r.AvgLeadTimeDays, r.ReliabilityScore,
		})
	}
	return rows
}

func saleRows(in []models.SaleRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			r.TransactionID, sqlDate(r.SaleDate), r.ProductID, r.StoreID,
			r.CustomerSegment, r.QuantitySold, r.UnitPrice, r.DiscountAmount,
			r.TotalRevenue, r.CostOfGoods, r.Profit,
		})
	}
	return rows
}

func inventoryRows(in []models.InventoryRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			sqlDate(r.SnapshotDate), r.ProductID, r.StoreID, r.UnitsOnHand,
			r.UnitsOnOrder, r.ReorderPoint, r.SafetyStock, r.DaysOfSupply,
		})
	}
	return rows
}

func vulnerabilityRows(in []models.VulnerabilityRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(in))
	for _, r := range in {
		rows = append(rows, []interface{}{
			r.CVEID, sqlDate(r.PublishedDate), sqlDate(r.ModifiedDate),
			r.VulnStatus, r.Description, sqlFloatPtr(r.CVSSScore),
			r.CVSSSeverity, r.AttackVector, r.AttackComplexity,
			r.PrivilegesRequired, r.UserInteraction,
			sqlFloatPtr(r.ExploitabilityScore), sqlFloatPtr(r.ImpactScore),
			r.CWEID, r.Vendor, r.Product, r.ReferenceCount,
		})
	}
	return rows
}

// Products reads the raw landing products
func (s *Service) Products(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT PRODUCT_ID, SKU, PRODUCT_NAME, CATEGORY, SUBCATEGORY,
		BRAND, UNIT_COST, UNIT_PRICE, SUPPLIER FROM LANDING.PRODUCTS`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		var rec models.ProductRecord
		var sku, name, category, subcategory, brand, supplier sql.NullString
		var cost, price sql.NullFloat64
		if err := rows.Scan(&rec.ProductID, &sku, &name, &category, &subcategory,
			&brand, &cost, &price, &supplier); err != nil {
			return nil, errors.SQLError("Failed to scan product row", "LANDING.PRODUCTS", err)
		}
		rec.SKU = sku.String
		rec.ProductName = name.String
		rec.Category = category.String
		rec.Subcategory = subcategory.String
		rec.Brand = brand.String
		rec.UnitCost = cost.Float64
		rec.UnitPrice = price.Float64
		rec.Supplier = supplier.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stores reads the raw landing stores
func (s *Service) Stores(ctx context.Context) ([]models.StoreRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT STORE_ID, STORE_NAME, STORE_TYPE, REGION, CITY,
		STATE, OPENED_DATE FROM LANDING.STORES`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoreRecord
	for rows.Next() {
		var rec models.StoreRecord
		var name, storeType, region, city, state sql.NullString
		var opened sql.NullTime
		if err := rows.Scan(&rec.StoreID, &name, &storeType, &region, &city, &state, &opened); err != nil {
			return nil, errors.SQLError("Failed to scan store row", "LANDING.STORES", err)
		}
		rec.StoreName = name.String
		rec.StoreType = storeType.String
		rec.Region = region.String
		rec.City = city.String
		rec.State = state.String
		rec.OpenedDate = opened.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Vendors reads the raw landing vendors
func (s *Service) Vendors(ctx context.Context) ([]models.VendorRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT VENDOR_ID, VENDOR_NAME, VENDOR_COUNTRY,
		AVG_LEAD_TIME_DAYS, RELIABILITY_SCORE FROM LANDING.VENDORS`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VendorRecord
	for rows.Next() {
		var rec models.VendorRecord
		var name, country sql.NullString
		var leadTime sql.NullInt64
		var reliability sql.NullFloat64
		if err := rows.Scan(&rec.VendorID, &name, &country, &leadTime, &reliability); err != nil {
			return nil, errors.SQLError("Failed to scan vendor row", "LANDING.VENDORS", err)
		}
		rec.VendorName = name.String
		rec.VendorCountry = country.String
		rec.AvgLeadTimeDays = int(leadTime.Int64)
		rec.ReliabilityScore = reliability.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sales reads the raw landing sales transactions
func (s *Service) Sales(ctx context.Context) ([]models.SaleRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT TRANSACTION_ID, SALE_DATE, PRODUCT_ID, STORE_ID,
		CUSTOMER_SEGMENT, QUANTITY_SOLD, UNIT_PRICE, DISCOUNT_AMOUNT, TOTAL_REVENUE,
		COST_OF_GOODS, PROFIT FROM LANDING.SALES`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SaleRecord
	for rows.Next() {
		var rec models.SaleRecord
		var saleDate sql.NullTime
		var segment sql.NullString
		var unitPrice, discount, revenue, cost, profit sql.NullFloat64
		if err := rows.Scan(&rec.TransactionID, &saleDate, &rec.ProductID, &rec.StoreID,
			&segment, &rec.QuantitySold, &unitPrice, &discount, &revenue, &cost, &profit); err != nil {
			return nil, errors.SQLError("Failed to scan sale row", "LANDING.SALES", err)
		}
		rec.SaleDate = saleDate.Time
		rec.CustomerSegment = segment.String
		rec.UnitPrice = unitPrice.Float64
		rec.DiscountAmount = discount.Float64
		rec.TotalRevenue = revenue.Float64
		rec.CostOfGoods = cost.Float64
		rec.Profit = profit.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Inventory reads the raw landing inventory snapshots
func (s *Service) Inventory(ctx context.Context) ([]models.InventoryRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT SNAPSHOT_DATE, PRODUCT_ID, STORE_ID, UNITS_ON_HAND,
		UNITS_ON_ORDER, REORDER_POINT, SAFETY_STOCK, DAYS_OF_SUPPLY
		FROM LANDING.INVENTORY_SNAPSHOT`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InventoryRecord
	for rows.Next() {
		var rec models.InventoryRecord
		var snapshot sql.NullTime
		var daysOfSupply sql.NullFloat64
		if err := rows.Scan(&snapshot, &rec.ProductID, &rec.StoreID, &rec.UnitsOnHand,
			&rec.UnitsOnOrder, &rec.ReorderPoint, &rec.SafetyStock, &daysOfSupply); err != nil {
			return nil, errors.SQLError("Failed to scan inventory row", "LANDING.INVENTORY_SNAPSHOT", err)
		}
		rec.SnapshotDate = snapshot.Time
		rec.DaysOfSupply = daysOfSupply.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Vulnerabilities reads the raw landing CVE records. A missing CVE_DATA table
// means the security feed was never loaded; the security mart builds empty.
func (s *Service) Vulnerabilities(ctx context.Context) ([]models.VulnerabilityRecord, error) {
	rows, err := s.queryRows(ctx, `SELECT CVE_ID, PUBLISHED_DATE, MODIFIED_DATE, VULN_STATUS,
		DESCRIPTION, CVSS_V3_SCORE, CVSS_V3_SEVERITY, ATTACK_VECTOR, ATTACK_COMPLEXITY,
		PRIVILEGES_REQUIRED, USER_INTERACTION, EXPLOITABILITY_SCORE, IMPACT_SCORE,
		CWE_ID, VENDOR, PRODUCT, REFERENCE_COUNT FROM LANDING.CVE_DATA`)
	if err != nil {
		if isMissingObject(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var out []models.VulnerabilityRecord
	for rows.Next() {
		var rec models.VulnerabilityRecord
		var published, modified sql.NullTime
		var status, description, severity, vector, complexity sql.NullString
		var privileges, interaction, cwe, vendor, product sql.NullString
		var score, exploitability, impact sql.NullFloat64
		var refs sql.NullInt64
		if err := rows.Scan(&rec.CVEID, &published, &modified, &status, &description,
			&score, &severity, &vector, &complexity, &privileges, &interaction,
			&exploitability, &impact, &cwe, &vendor, &product, &refs); err != nil {
			return nil, errors.SQLError("Failed to scan CVE row", "LANDING.CVE_DATA", err)
		}
		rec.PublishedDate = published.Time
		rec.ModifiedDate = modified.Time
		rec.VulnStatus = status.String
		rec.Description = description.String
		if score.Valid {
			v := score.Float64
			rec.CVSSScore = &v
		}
		rec.CVSSSeverity = severity.String
		rec.AttackVector = vector.String
		rec.AttackComplexity = complexity.String
		rec.PrivilegesRequired = privileges.String
		rec.UserInteraction = interaction.String
		if exploitability.Valid {
			v := exploitability.Float64
			rec.ExploitabilityScore = &v
		}
		if impact.Valid {
			v := impact.Float64
			rec.ImpactScore = &v
		}
		rec.CWEID = cwe.String
		rec.Vendor = vendor.String
		rec.Product = product.String
		rec.ReferenceCount = int(refs.Int64)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isMissingObject(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")
}

func (s *Service) queryRows(ctx context.Context, query string) (*sql.Rows, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to Snowflake").
			WithSuggestions("Call Connect() before querying")
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.SQLError("Query failed", query, err)
	}
	return rows, nil
}
