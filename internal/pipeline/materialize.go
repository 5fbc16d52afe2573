package pipeline

import (
	"time"

	"martbuild/pkg/models"
)

// Materialization of typed record collections into writer-ready tables.
// Column layouts are the stable external contract downstream consumers join
// on (fact.dimension_key = dimension.surrogate_key).

const (
	SchemaLanding = "LANDING"
	SchemaStaging = "STAGING"
	SchemaMarts   = "MARTS"
)

func cellDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func cellTimestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func cellFloatPtr(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stgProductsTable(rows []models.ProductRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_PRODUCTS",
		Columns: []models.Column{
			{Name: "PRODUCT_ID", Type: "INT"},
			{Name: "SKU", Type: "VARCHAR(50)"},
			{Name: "PRODUCT_NAME", Type: "VARCHAR(200)"},
			{Name: "CATEGORY", Type: "VARCHAR(50)"},
			{Name: "SUBCATEGORY", Type: "VARCHAR(50)"},
			{Name: "BRAND", Type: "VARCHAR(100)"},
			{Name: "UNIT_COST", Type: "DECIMAL(10,2)"},
			{Name: "UNIT_PRICE", Type: "DECIMAL(10,2)"},
			{Name: "SUPPLIER", Type: "VARCHAR(100)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.ProductID, r.SKU, r.ProductName, r.Category, r.Subcategory,
			r.Brand, r.UnitCost, r.UnitPrice, r.Supplier,
		})
	}
	return t
}

func stgStoresTable(rows []models.StoreRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_STORES",
		Columns: []models.Column{
			{Name: "STORE_ID", Type: "INT"},
			{Name: "STORE_NAME", Type: "VARCHAR(100)"},
			{Name: "STORE_TYPE", Type: "VARCHAR(50)"},
			{Name: "REGION", Type: "VARCHAR(50)"},
			{Name: "CITY", Type: "VARCHAR(100)"},
			{Name: "STATE", Type: "VARCHAR(2)"},
			{Name: "OPENED_DATE", Type: "DATE"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.StoreID, r.StoreName, r.StoreType, r.Region, r.City, r.State,
			cellDate(r.OpenedDate),
		})
	}
	return t
}

func stgVendorsTable(rows []models.VendorRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_VENDORS",
		Columns: []models.Column{
			{Name: "VENDOR_ID", Type: "INT"},
			{Name: "VENDOR_NAME", Type: "VARCHAR(200)"},
			{Name: "VENDOR_COUNTRY", Type: "VARCHAR(50)"},
			{Name: "AVG_LEAD_TIME_DAYS", Type: "INT"},
			{Name: "RELIABILITY_SCORE", Type: "DECIMAL(5,2)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.VendorID, r.VendorName, r.VendorCountry, r.AvgLeadTimeDays, r.ReliabilityScore,
		})
	}
	return t
}

func stgSalesTable(rows []models.SaleRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_SALES",
		Columns: []models.Column{
			{Name: "TRANSACTION_ID", Type: "INT"},
			{Name: "SALE_DATE", Type: "DATE"},
			{Name: "PRODUCT_ID", Type: "INT"},
			{Name: "STORE_ID", Type: "INT"},
			{Name: "CUSTOMER_SEGMENT", Type: "VARCHAR(50)"},
			{Name: "QUANTITY_SOLD", Type: "INT"},
			{Name: "UNIT_PRICE", Type: "DECIMAL(10,2)"},
			{Name: "DISCOUNT_AMOUNT", Type: "DECIMAL(10,2)"},
			{Name: "TOTAL_REVENUE", Type: "DECIMAL(10,2)"},
			{Name: "COST_OF_GOODS", Type: "DECIMAL(10,2)"},
			{Name: "PROFIT", Type: "DECIMAL(10,2)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.TransactionID, cellDate(r.SaleDate), r.ProductID, r.StoreID,
			r.CustomerSegment, r.QuantitySold, r.UnitPrice, r.DiscountAmount,
			r.TotalRevenue, r.CostOfGoods, r.Profit,
		})
	}
	return t
}

func stgInventoryTable(rows []models.InventoryRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_INVENTORY",
		Columns: []models.Column{
			{Name: "SNAPSHOT_DATE", Type: "DATE"},
			{Name: "PRODUCT_ID", Type: "INT"},
			{Name: "STORE_ID", Type: "INT"},
			{Name: "UNITS_ON_HAND", Type: "INT"},
			{Name: "UNITS_ON_ORDER", Type: "INT"},
			{Name: "REORDER_POINT", Type: "INT"},
			{Name: "SAFETY_STOCK", Type: "INT"},
			{Name: "DAYS_OF_SUPPLY", Type: "DECIMAL(5,1)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			cellDate(r.SnapshotDate), r.ProductID, r.StoreID, r.UnitsOnHand,
			r.UnitsOnOrder, r.ReorderPoint, r.SafetyStock, r.DaysOfSupply,
		})
	}
	return t
}

func stgVulnerabilitiesTable(rows []models.VulnerabilityRecord) *models.Table {
	t := &models.Table{
		Schema: SchemaStaging,
		Name:   "STG_VULNERABILITIES",
		Columns: []models.Column{
			{Name: "CVE_ID", Type: "VARCHAR(20)"},
			{Name: "PUBLISHED_DATE", Type: "DATE"},
			{Name: "MODIFIED_DATE", Type: "DATE"},
			{Name: "VULN_STATUS", Type: "VARCHAR(50)"},
			{Name: "DESCRIPTION", Type: "VARCHAR(500)"},
			{Name: "CVSS_V3_SCORE", Type: "DECIMAL(3,1)"},
			{Name: "CVSS_V3_SEVERITY", Type: "VARCHAR(20)"},
			{Name: "ATTACK_VECTOR", Type: "VARCHAR(20)"},
			{Name: "ATTACK_COMPLEXITY", Type: "VARCHAR(20)"},
			{Name: "CWE_ID", Type: "VARCHAR(200)"},
			{Name: "VENDOR", Type: "VARCHAR(100)"},
			{Name: "PRODUCT", Type: "VARCHAR(200)"},
			{Name: "REFERENCE_COUNT", Type: "INT"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.CVEID, cellDate(r.PublishedDate), cellDate(r.ModifiedDate),
			r.VulnStatus, r.Description, cellFloatPtr(r.CVSSScore),
			r.CVSSSeverity, r.AttackVector, r.AttackComplexity, r.CWEID,
			r.Vendor, r.Product, r.ReferenceCount,
		})
	}
	return t
}

func dimProductTable(rows []models.ProductDim) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "DIM_PRODUCT",
		Columns: []models.Column{
			{Name: "PRODUCT_KEY", Type: "BIGINT"},
			{Name: "PRODUCT_ID", Type: "INT"},
			{Name: "SKU", Type: "VARCHAR(50)"},
			{Name: "PRODUCT_NAME", Type: "VARCHAR(200)"},
			{Name: "CATEGORY", Type: "VARCHAR(50)"},
			{Name: "SUBCATEGORY", Type: "VARCHAR(50)"},
			{Name: "BRAND", Type: "VARCHAR(100)"},
			{Name: "UNIT_COST", Type: "DECIMAL(10,2)"},
			{Name: "UNIT_PRICE", Type: "DECIMAL(10,2)"},
			{Name: "SUPPLIER", Type: "VARCHAR(100)"},
			{Name: "MARKUP_PCT", Type: "DECIMAL(10,2)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.ProductKey, r.ProductID, r.SKU, r.ProductName, r.Category,
			r.Subcategory, r.Brand, r.UnitCost, r.UnitPrice, r.Supplier,
			cellFloatPtr(r.MarkupPct),
		})
	}
	return t
}

func dimStoreTable(rows []models.StoreDim) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "DIM_STORE",
		Columns: []models.Column{
			{Name: "STORE_KEY", Type: "BIGINT"},
			{Name: "STORE_ID", Type: "INT"},
			{Name: "STORE_NAME", Type: "VARCHAR(100)"},
			{Name: "STORE_TYPE", Type: "VARCHAR(50)"},
			{Name: "REGION", Type: "VARCHAR(50)"},
			{Name: "CITY", Type: "VARCHAR(100)"},
			{Name: "STATE", Type: "VARCHAR(2)"},
			{Name: "OPENED_DATE", Type: "DATE"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.StoreKey, r.StoreID, r.StoreName, r.StoreType, r.Region,
			r.City, r.State, cellDate(r.OpenedDate),
		})
	}
	return t
}

func dimVendorTable(rows []models.VendorDim) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "DIM_VENDOR",
		Columns: []models.Column{
			{Name: "VENDOR_KEY", Type: "BIGINT"},
			{Name: "VENDOR_ID", Type: "INT"},
			{Name: "VENDOR_NAME", Type: "VARCHAR(200)"},
			{Name: "VENDOR_COUNTRY", Type: "VARCHAR(50)"},
			{Name: "AVG_LEAD_TIME_DAYS", Type: "INT"},
			{Name: "RELIABILITY_SCORE", Type: "DECIMAL(5,2)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.VendorKey, r.VendorID, r.VendorName, r.VendorCountry,
			r.AvgLeadTimeDays, r.ReliabilityScore,
		})
	}
	return t
}

func dimDateTable(rows []models.DateDim) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "DIM_DATE",
		Columns: []models.Column{
			{Name: "DATE_KEY", Type: "BIGINT"},
			{Name: "DATE", Type: "DATE"},
			{Name: "YEAR", Type: "INT"},
			{Name: "QUARTER", Type: "INT"},
			{Name: "MONTH", Type: "INT"},
			{Name: "MONTH_NAME", Type: "VARCHAR(20)"},
			{Name: "WEEK_OF_YEAR", Type: "INT"},
			{Name: "DAY_OF_MONTH", Type: "INT"},
			{Name: "DAY_OF_WEEK", Type: "INT"},
			{Name: "DAY_NAME", Type: "VARCHAR(20)"},
			{Name: "IS_WEEKEND", Type: "BOOLEAN"},
			{Name: "IS_HOLIDAY_SEASON", Type: "BOOLEAN"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.DateKey, cellDate(r.Date), r.Year, r.Quarter, r.Month,
			r.MonthName, r.WeekOfYear, r.DayOfMonth, r.DayOfWeek, r.DayName,
			r.IsWeekend, r.IsHolidaySeason,
		})
	}
	return t
}

func dimVulnerabilityTable(rows []models.VulnerabilityDim) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "DIM_VULNERABILITY",
		Columns: []models.Column{
			{Name: "VULNERABILITY_KEY", Type: "BIGINT"},
			{Name: "CVE_ID", Type: "VARCHAR(20)"},
			{Name: "CVSS_V3_SEVERITY", Type: "VARCHAR(20)"},
			{Name: "ATTACK_VECTOR", Type: "VARCHAR(20)"},
			{Name: "ATTACK_COMPLEXITY", Type: "VARCHAR(20)"},
			{Name: "CWE_ID", Type: "VARCHAR(200)"},
			{Name: "VENDOR", Type: "VARCHAR(100)"},
			{Name: "PRODUCT", Type: "VARCHAR(200)"},
			{Name: "DESCRIPTION", Type: "VARCHAR(500)"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.VulnerabilityKey, r.CVEID, r.CVSSSeverity, r.AttackVector,
			r.AttackComplexity, r.CWEID, r.Vendor, r.Product, r.Description,
		})
	}
	return t
}

func fctSalesTable(rows []models.SalesFact) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "FCT_SALES",
		Columns: []models.Column{
			{Name: "TRANSACTION_ID", Type: "INT"},
			{Name: "DATE_KEY", Type: "BIGINT"},
			{Name: "PRODUCT_KEY", Type: "BIGINT"},
			{Name: "STORE_KEY", Type: "BIGINT"},
			{Name: "VENDOR_KEY", Type: "BIGINT"},
			{Name: "CUSTOMER_SEGMENT", Type: "VARCHAR(50)"},
			{Name: "QUANTITY_SOLD", Type: "INT"},
			{Name: "UNIT_PRICE", Type: "DECIMAL(10,2)"},
			{Name: "DISCOUNT_AMOUNT", Type: "DECIMAL(10,2)"},
			{Name: "TOTAL_REVENUE", Type: "DECIMAL(10,2)"},
			{Name: "COST_OF_GOODS", Type: "DECIMAL(10,2)"},
			{Name: "PROFIT", Type: "DECIMAL(10,2)"},
			{Name: "PROFIT_MARGIN_PCT", Type: "DECIMAL(10,2)"},
			{Name: "DISCOUNT_PCT", Type: "DECIMAL(10,2)"},
			{Name: "IS_DISCOUNTED", Type: "BOOLEAN"},
			{Name: "BUILT_AT", Type: "TIMESTAMP_NTZ"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.TransactionID, r.DateKey, r.ProductKey, r.StoreKey, r.VendorKey,
			r.CustomerSegment, r.QuantitySold, r.UnitPrice, r.DiscountAmount,
			r.Revenue, r.Cost, r.Profit, cellFloatPtr(r.ProfitMarginPct),
			cellFloatPtr(r.DiscountPct), r.IsDiscounted, cellTimestamp(r.BuiltAt),
		})
	}
	return t
}

func fctInventoryTable(rows []models.InventoryFact) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "FCT_INVENTORY",
		Columns: []models.Column{
			{Name: "DATE_KEY", Type: "BIGINT"},
			{Name: "PRODUCT_KEY", Type: "BIGINT"},
			{Name: "STORE_KEY", Type: "BIGINT"},
			{Name: "UNITS_ON_HAND", Type: "INT"},
			{Name: "UNITS_ON_ORDER", Type: "INT"},
			{Name: "REORDER_POINT", Type: "INT"},
			{Name: "SAFETY_STOCK", Type: "INT"},
			{Name: "DAYS_OF_SUPPLY", Type: "DECIMAL(5,1)"},
			{Name: "NEEDS_REORDER", Type: "BOOLEAN"},
			{Name: "FORECAST_DEMAND", Type: "DECIMAL(10,2)"},
			{Name: "BUILT_AT", Type: "TIMESTAMP_NTZ"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.DateKey, r.ProductKey, r.StoreKey, r.UnitsOnHand, r.UnitsOnOrder,
			r.ReorderPoint, r.SafetyStock, r.DaysOfSupply, r.NeedsReorder,
			cellFloatPtr(r.ForecastDemand), cellTimestamp(r.BuiltAt),
		})
	}
	return t
}

func fctVulnerabilitiesTable(rows []models.VulnerabilityFact) *models.Table {
	t := &models.Table{
		Schema: SchemaMarts,
		Name:   "FCT_VULNERABILITIES",
		Columns: []models.Column{
			{Name: "CVE_ID", Type: "VARCHAR(20)"},
			{Name: "PUBLISHED_DATE_KEY", Type: "BIGINT"},
			{Name: "VULNERABILITY_KEY", Type: "BIGINT"},
			{Name: "CVSS_V3_SCORE", Type: "DECIMAL(3,1)"},
			{Name: "SEVERITY_TIER", Type: "VARCHAR(20)"},
			{Name: "EXPLOITABILITY_SCORE", Type: "DECIMAL(3,1)"},
			{Name: "IMPACT_SCORE", Type: "DECIMAL(3,1)"},
			{Name: "REFERENCE_COUNT", Type: "INT"},
			{Name: "IS_REMOTELY_EXPLOITABLE", Type: "BOOLEAN"},
			{Name: "RISK_SCORE", Type: "DECIMAL(5,2)"},
			{Name: "BUILT_AT", Type: "TIMESTAMP_NTZ"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.CVEID, r.PublishedDateKey, r.VulnerabilityKey,
			cellFloatPtr(r.CVSSScore), r.SeverityTier,
			cellFloatPtr(r.ExploitabilityScore), cellFloatPtr(r.ImpactScore),
			r.ReferenceCount, r.IsRemotelyExploitable, cellFloatPtr(r.RiskScore),
			cellTimestamp(r.BuiltAt),
		})
	}
	return t
}
