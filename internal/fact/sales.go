package fact

import (
	"strconv"
	"strings"

	"martbuild/internal/dimension"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Sales builds fct_sales at one row per transaction. The vendor key resolves
// through the product's supplier attribute, so an unmatched product forces
// the vendor sentinel as well. supplierByProduct maps product ID to the
// staged supplier attribute.
func (b *Builder) Sales(
	staged []models.SaleRecord,
	dates, products, stores, vendors *dimension.KeyIndex,
	supplierByProduct map[int]string,
) ([]models.SalesFact, *Stats, error) {
	stats := newStats("fct_sales")
	seen := make(map[int]bool, len(staged))
	rows := make([]models.SalesFact, 0, len(staged))

	for _, rec := range staged {
		if seen[rec.TransactionID] {
			return nil, nil, errors.GrainViolationError("fct_sales", "transaction_id", rec.TransactionID)
		}
		seen[rec.TransactionID] = true

		productKey := b.resolve(products, dimension.IntKey(rec.ProductID), "product_key", stats)

		vendorKey := b.sentinel
		if productKey != b.sentinel {
			if vendorID, ok := supplierVendorID(supplierByProduct[rec.ProductID]); ok {
				vendorKey = b.resolve(vendors, dimension.IntKey(vendorID), "vendor_key", stats)
			} else {
				stats.UnmatchedKeys["vendor_key"]++
			}
		}

		rows = append(rows, models.SalesFact{
			TransactionID:   rec.TransactionID,
			DateKey:         b.resolveDate(dates, rec.SaleDate, "date_key", stats),
			ProductKey:      productKey,
			StoreKey:        b.resolve(stores, dimension.IntKey(rec.StoreID), "store_key", stats),
			VendorKey:       vendorKey,
			CustomerSegment: rec.CustomerSegment,
			QuantitySold:    rec.QuantitySold,
			UnitPrice:       rec.UnitPrice,
			DiscountAmount:  rec.DiscountAmount,
			Revenue:         rec.TotalRevenue,
			Cost:            rec.CostOfGoods,
			Profit:          rec.Profit,
			ProfitMarginPct: profitMarginPct(rec.Profit, rec.TotalRevenue),
			DiscountPct:     discountPct(rec.DiscountAmount, rec.UnitPrice, rec.QuantitySold),
			IsDiscounted:    rec.DiscountAmount > 0,
			BuiltAt:         b.buildTime,
		})
	}

	stats.Rows = len(rows)
	return rows, stats, nil
}

// supplierVendorID parses the vendor natural key out of a supplier attribute
// of the form "Vendor 12"
func supplierVendorID(supplier string) (int, bool) {
	fields := strings.Fields(supplier)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
