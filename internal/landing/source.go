package landing

import (
	"context"

	"martbuild/pkg/models"
)

// Source provides read-only access to the raw landing entities. Records come
// back exactly as stored; validation and cleansing belong to staging.
type Source interface {
	Products(ctx context.Context) ([]models.ProductRecord, error)
	Stores(ctx context.Context) ([]models.StoreRecord, error)
	Vendors(ctx context.Context) ([]models.VendorRecord, error)
	Sales(ctx context.Context) ([]models.SaleRecord, error)
	Inventory(ctx context.Context) ([]models.InventoryRecord, error)
	Vulnerabilities(ctx context.Context) ([]models.VulnerabilityRecord, error)
}
