package dimension

import (
	"time"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Builder materializes dimension rows from staged records. Each dimension
// assigns a stable surrogate key, deduplicates on natural key per the
// configured policy and computes its derived attributes. Dimensions have no
// dependencies on each other.
type Builder struct {
	policy  DuplicatePolicy
	hashAlg string
	dateCfg models.DateDimension
}

// NewBuilder creates a dimension builder from the pipeline configuration
func NewBuilder(cfg models.Pipeline) (*Builder, error) {
	policy, err := ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	hashAlg := cfg.KeyHash
	if hashAlg == "" {
		hashAlg = HashAlgorithmFNV1a64
	}
	// Fail on an unknown hash algorithm up front, not mid-build
	if _, err := HashKey(hashAlg, "probe"); err != nil {
		return nil, err
	}
	return &Builder{
		policy:  policy,
		hashAlg: hashAlg,
		dateCfg: cfg.DateDimension,
	}, nil
}

// dedupe runs the duplicate-natural-key policy over a batch. Emitted row
// order is first-occurrence order; under last-wins the values of the last
// occurrence replace the earlier ones in place.
func dedupe[T any](policy DuplicatePolicy, in []T, naturalKey func(T) string, index *KeyIndex, surrogate func(T) int64) ([]T, error) {
	out := make([]T, 0, len(in))
	position := make(map[string]int, len(in))

	for _, rec := range in {
		nk := naturalKey(rec)
		if pos, seen := position[nk]; seen {
			if policy == DuplicateError {
				return nil, errors.DuplicateKeyError(index.Dimension(), nk)
			}
			out[pos] = rec
			index.Replace(nk, surrogate(rec))
			continue
		}
		if err := index.Add(nk, surrogate(rec)); err != nil {
			return nil, err
		}
		position[nk] = len(out)
		out = append(out, rec)
	}
	return out, nil
}

// Products builds dim_product. The landing product ID is already a stable
// integer, so it is reused as the surrogate key.
func (b *Builder) Products(staged []models.ProductRecord) ([]models.ProductDim, *KeyIndex, error) {
	index := NewKeyIndex("dim_product")
	unique, err := dedupe(b.policy, staged,
		func(r models.ProductRecord) string { return IntKey(r.ProductID) },
		index,
		func(r models.ProductRecord) int64 { return int64(r.ProductID) },
	)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]models.ProductDim, 0, len(unique))
	for _, rec := range unique {
		rows = append(rows, models.ProductDim{
			ProductKey:  int64(rec.ProductID),
			ProductID:   rec.ProductID,
			SKU:         rec.SKU,
			ProductName: rec.ProductName,
			Category:    rec.Category,
			Subcategory: rec.Subcategory,
			Brand:       rec.Brand,
			UnitCost:    rec.UnitCost,
			UnitPrice:   rec.UnitPrice,
			Supplier:    rec.Supplier,
			MarkupPct:   markupPct(rec.UnitCost, rec.UnitPrice),
		})
	}
	return rows, index, nil
}

// markupPct derives (price - cost) / cost * 100. Zero cost makes the markup
// undefined, not an error.
func markupPct(cost, price float64) *float64 {
	if cost == 0 {
		return nil
	}
	v := (price - cost) / cost * 100
	return &v
}

// Stores builds dim_store
func (b *Builder) Stores(staged []models.StoreRecord) ([]models.StoreDim, *KeyIndex, error) {
	index := NewKeyIndex("dim_store")
	unique, err := dedupe(b.policy, staged,
		func(r models.StoreRecord) string { return IntKey(r.StoreID) },
		index,
		func(r models.StoreRecord) int64 { return int64(r.StoreID) },
	)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]models.StoreDim, 0, len(unique))
	for _, rec := range unique {
		rows = append(rows, models.StoreDim{
			StoreKey:   int64(rec.StoreID),
			StoreID:    rec.StoreID,
			StoreName:  rec.StoreName,
			StoreType:  rec.StoreType,
			Region:     rec.Region,
			City:       rec.City,
			State:      rec.State,
			OpenedDate: rec.OpenedDate,
		})
	}
	return rows, index, nil
}

// Vendors builds dim_vendor
func (b *Builder) Vendors(staged []models.VendorRecord) ([]models.VendorDim, *KeyIndex, error) {
	index := NewKeyIndex("dim_vendor")
	unique, err := dedupe(b.policy, staged,
		func(r models.VendorRecord) string { return IntKey(r.VendorID) },
		index,
		func(r models.VendorRecord) int64 { return int64(r.VendorID) },
	)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]models.VendorDim, 0, len(unique))
	for _, rec := range unique {
		rows = append(rows, models.VendorDim{
			VendorKey:        int64(rec.VendorID),
			VendorID:         rec.VendorID,
			VendorName:       rec.VendorName,
			VendorCountry:    rec.VendorCountry,
			AvgLeadTimeDays:  rec.AvgLeadTimeDays,
			ReliabilityScore: rec.ReliabilityScore,
		})
	}
	return rows, index, nil
}

// Vulnerabilities builds dim_vulnerability. CVE IDs are synthesized strings,
// so the surrogate key is the configured stable hash of the CVE ID.
func (b *Builder) Vulnerabilities(staged []models.VulnerabilityRecord) ([]models.VulnerabilityDim, *KeyIndex, error) {
	// Precompute hashes so dedupe sees a total surrogate function
	hashes := make(map[string]int64, len(staged))
	for _, rec := range staged {
		if _, ok := hashes[rec.CVEID]; ok {
			continue
		}
		key, err := HashKey(b.hashAlg, rec.CVEID)
		if err != nil {
			return nil, nil, err
		}
		hashes[rec.CVEID] = key
	}

	index := NewKeyIndex("dim_vulnerability")
	unique, err := dedupe(b.policy, staged,
		func(r models.VulnerabilityRecord) string { return r.CVEID },
		index,
		func(r models.VulnerabilityRecord) int64 { return hashes[r.CVEID] },
	)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]models.VulnerabilityDim, 0, len(unique))
	for _, rec := range unique {
		rows = append(rows, models.VulnerabilityDim{
			VulnerabilityKey: hashes[rec.CVEID],
			CVEID:            rec.CVEID,
			CVSSSeverity:     rec.CVSSSeverity,
			AttackVector:     rec.AttackVector,
			AttackComplexity: rec.AttackComplexity,
			CWEID:            rec.CWEID,
			Vendor:           rec.Vendor,
			Product:          rec.Product,
			Description:      rec.Description,
		})
	}
	return rows, index, nil
}

// DateIndexFor resolves a timestamp against a date dimension index
func DateIndexFor(index *KeyIndex, t time.Time) (int64, bool) {
	return index.Resolve(NaturalDateKey(t))
}
