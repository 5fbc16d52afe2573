package models

import "time"

// Landing records mirror the LANDING table layouts one to one. They are
// immutable once read; staging works on copies.

type ProductRecord struct {
	ProductID   int
	SKU         string
	ProductName string
	Category    string
	Subcategory string
	Brand       string
	UnitCost    float64
	UnitPrice   float64
	Supplier    string
}

type StoreRecord struct {
	StoreID    int
	StoreName  string
	StoreType  string
	Region     string
	City       string
	State      string
	OpenedDate time.Time
}

type VendorRecord struct {
	VendorID         int
	VendorName       string
	VendorCountry    string
	AvgLeadTimeDays  int
	ReliabilityScore float64
}

type SaleRecord struct {
	TransactionID   int
	SaleDate        time.Time
	ProductID       int
	StoreID         int
	CustomerSegment string
	QuantitySold    int
	UnitPrice       float64
	DiscountAmount  float64
	TotalRevenue    float64
	CostOfGoods     float64
	Profit          float64
}

type InventoryRecord struct {
	SnapshotDate time.Time
	ProductID    int
	StoreID      int
	UnitsOnHand  int
	UnitsOnOrder int
	ReorderPoint int
	SafetyStock  int
	DaysOfSupply float64
}

// VulnerabilityRecord is the flattened NVD CVE row. CVSS fields are pointers
// because many records carry no v3.1 metrics at all.
type VulnerabilityRecord struct {
	CVEID               string
	PublishedDate       time.Time
	ModifiedDate        time.Time
	VulnStatus          string
	Description         string
	CVSSScore           *float64
	CVSSSeverity        string
	AttackVector        string
	AttackComplexity    string
	PrivilegesRequired  string
	UserInteraction     string
	ExploitabilityScore *float64
	ImpactScore         *float64
	CWEID               string
	Vendor              string
	Product             string
	ReferenceCount      int
}
