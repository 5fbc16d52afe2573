package models

import "time"

// Dimension rows. Surrogate keys are int64 across every dimension so a single
// sentinel value can stand in for any unmatched lookup.

type ProductDim struct {
	ProductKey  int64
	ProductID   int
	SKU         string
	ProductName string
	Category    string
	Subcategory string
	Brand       string
	UnitCost    float64
	UnitPrice   float64
	Supplier    string
	MarkupPct   *float64 // null when unit cost is zero
}

type StoreDim struct {
	StoreKey   int64
	StoreID    int
	StoreName  string
	StoreType  string
	Region     string
	City       string
	State      string
	OpenedDate time.Time
}

type VendorDim struct {
	VendorKey        int64
	VendorID         int
	VendorName       string
	VendorCountry    string
	AvgLeadTimeDays  int
	ReliabilityScore float64
}

// DateDim is generated from the configured window, not sourced.
type DateDim struct {
	DateKey         int64 // yyyymmdd
	Date            time.Time
	Year            int
	Quarter         int
	Month           int
	MonthName       string
	WeekOfYear      int
	DayOfMonth      int
	DayOfWeek       int // Monday = 1 .. Sunday = 7
	DayName         string
	IsWeekend       bool
	IsHolidaySeason bool
}

type VulnerabilityDim struct {
	VulnerabilityKey int64 // stable hash of the CVE ID
	CVEID            string
	CVSSSeverity     string
	AttackVector     string
	AttackComplexity string
	CWEID            string
	Vendor           string
	Product          string
	Description      string
}

// Fact rows. Every *Key column is either a resolved surrogate key or the
// configured sentinel, never zero and never null.

type SalesFact struct {
	TransactionID   int // degenerate natural key, unique per row
	DateKey         int64
	ProductKey      int64
	StoreKey        int64
	VendorKey       int64
	CustomerSegment string
	QuantitySold    int
	UnitPrice       float64
	DiscountAmount  float64
	Revenue         float64
	Cost            float64
	Profit          float64
	ProfitMarginPct *float64 // null when revenue is zero
	DiscountPct     *float64 // null when unit_price * quantity is zero
	IsDiscounted    bool
	BuiltAt         time.Time
}

type InventoryFact struct {
	DateKey        int64
	ProductKey     int64
	StoreKey       int64
	UnitsOnHand    int
	UnitsOnOrder   int
	ReorderPoint   int
	SafetyStock    int
	DaysOfSupply   float64
	NeedsReorder   bool
	ForecastDemand *float64 // reserved for the downstream forecasting job
	BuiltAt        time.Time
}

type VulnerabilityFact struct {
	CVEID                 string // degenerate natural key, unique per row
	PublishedDateKey      int64
	VulnerabilityKey      int64
	CVSSScore             *float64
	SeverityTier          string
	ExploitabilityScore   *float64
	ImpactScore           *float64
	ReferenceCount        int
	IsRemotelyExploitable bool
	RiskScore             *float64 // reserved for the downstream risk scorer
	BuiltAt               time.Time
}
