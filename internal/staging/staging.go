package staging

import (
	"fmt"
	"strings"

	"martbuild/pkg/models"
)

// Default required fields per entity: the natural key, the primary date and
// every column used downstream as a join key. Rows missing any of these are
// dropped, never repaired.
var defaultRequired = map[string][]string{
	"products":        {"product_id", "sku"},
	"stores":          {"store_id"},
	"vendors":         {"vendor_id"},
	"sales":           {"transaction_id", "sale_date", "product_id", "store_id"},
	"inventory":       {"snapshot_date", "product_id", "store_id"},
	"vulnerabilities": {"cve_id", "published_date"},
}

// DropReport counts the rows a staging pass excluded, per reason. Drops are
// surfaced as build warnings rather than discarded silently.
type DropReport struct {
	Entity  string
	Total   int
	Dropped int
	Reasons map[string]int
}

func newDropReport(entity string, total int) *DropReport {
	return &DropReport{Entity: entity, Total: total, Reasons: make(map[string]int)}
}

func (r *DropReport) drop(field string) {
	r.Dropped++
	r.Reasons[fmt.Sprintf("missing %s", field)]++
}

// Kept returns the number of rows that survived validation
func (r *DropReport) Kept() int {
	return r.Total - r.Dropped
}

// Normalizer validates row-level completeness and emits cleansed projections
// of each landing entity. It is pure: no aggregation, no joins, no state
// beyond the configured required-field lists.
type Normalizer struct {
	required map[string][]string
}

// NewNormalizer creates a normalizer. Entries in overrides replace the
// built-in required-field list for that entity.
func NewNormalizer(overrides map[string][]string) *Normalizer {
	required := make(map[string][]string, len(defaultRequired))
	for entity, fields := range defaultRequired {
		required[entity] = fields
	}
	for entity, fields := range overrides {
		required[entity] = fields
	}
	return &Normalizer{required: required}
}

// missingField returns the first required field absent from the record, or ""
func missingField(required []string, present func(string) bool) string {
	for _, field := range required {
		if !present(field) {
			return field
		}
	}
	return ""
}

func (n *Normalizer) Products(in []models.ProductRecord) ([]models.ProductRecord, *DropReport) {
	report := newDropReport("products", len(in))
	out := make([]models.ProductRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["products"], func(field string) bool {
			switch field {
			case "product_id":
				return rec.ProductID != 0
			case "sku":
				return rec.SKU != ""
			case "product_name":
				return rec.ProductName != ""
			case "category":
				return rec.Category != ""
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

func (n *Normalizer) Stores(in []models.StoreRecord) ([]models.StoreRecord, *DropReport) {
	report := newDropReport("stores", len(in))
	out := make([]models.StoreRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["stores"], func(field string) bool {
			switch field {
			case "store_id":
				return rec.StoreID != 0
			case "store_name":
				return rec.StoreName != ""
			case "region":
				return rec.Region != ""
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

func (n *Normalizer) Vendors(in []models.VendorRecord) ([]models.VendorRecord, *DropReport) {
	report := newDropReport("vendors", len(in))
	out := make([]models.VendorRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["vendors"], func(field string) bool {
			switch field {
			case "vendor_id":
				return rec.VendorID != 0
			case "vendor_name":
				return rec.VendorName != ""
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

func (n *Normalizer) Sales(in []models.SaleRecord) ([]models.SaleRecord, *DropReport) {
	report := newDropReport("sales", len(in))
	out := make([]models.SaleRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["sales"], func(field string) bool {
			switch field {
			case "transaction_id":
				return rec.TransactionID != 0
			case "sale_date":
				return !rec.SaleDate.IsZero()
			case "product_id":
				return rec.ProductID != 0
			case "store_id":
				return rec.StoreID != 0
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

func (n *Normalizer) Inventory(in []models.InventoryRecord) ([]models.InventoryRecord, *DropReport) {
	report := newDropReport("inventory", len(in))
	out := make([]models.InventoryRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["inventory"], func(field string) bool {
			switch field {
			case "snapshot_date":
				return !rec.SnapshotDate.IsZero()
			case "product_id":
				return rec.ProductID != 0
			case "store_id":
				return rec.StoreID != 0
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}
		out = append(out, rec)
	}
	return out, report
}

// Vulnerabilities also normalizes the enumerated CVSS fields to upper case,
// since downstream predicates compare against the NVD enum values.
func (n *Normalizer) Vulnerabilities(in []models.VulnerabilityRecord) ([]models.VulnerabilityRecord, *DropReport) {
	report := newDropReport("vulnerabilities", len(in))
	out := make([]models.VulnerabilityRecord, 0, len(in))

	for _, rec := range in {
		missing := missingField(n.required["vulnerabilities"], func(field string) bool {
			switch field {
			case "cve_id":
				return rec.CVEID != ""
			case "published_date":
				return !rec.PublishedDate.IsZero()
			case "cvss_v3_score":
				return rec.CVSSScore != nil
			default:
				return true
			}
		})
		if missing != "" {
			report.drop(missing)
			continue
		}

		rec.CVSSSeverity = strings.ToUpper(rec.CVSSSeverity)
		rec.AttackVector = strings.ToUpper(rec.AttackVector)
		rec.AttackComplexity = strings.ToUpper(rec.AttackComplexity)
		out = append(out, rec)
	}
	return out, report
}
