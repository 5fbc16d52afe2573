package fact

import (
	"fmt"

	"martbuild/internal/dimension"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Inventory builds fct_inventory at one row per snapshot date, product and
// store. ForecastDemand stays null: it belongs to the downstream forecasting
// job and this build never touches it.
func (b *Builder) Inventory(
	staged []models.InventoryRecord,
	dates, products, stores *dimension.KeyIndex,
) ([]models.InventoryFact, *Stats, error) {
	stats := newStats("fct_inventory")
	seen := make(map[string]bool, len(staged))
	rows := make([]models.InventoryFact, 0, len(staged))

	for _, rec := range staged {
		grain := fmt.Sprintf("%s|%d|%d", dimension.NaturalDateKey(rec.SnapshotDate), rec.ProductID, rec.StoreID)
		if seen[grain] {
			return nil, nil, errors.GrainViolationError("fct_inventory", "snapshot_date,product_id,store_id", grain)
		}
		seen[grain] = true

		rows = append(rows, models.InventoryFact{
			DateKey:        b.resolveDate(dates, rec.SnapshotDate, "date_key", stats),
			ProductKey:     b.resolve(products, dimension.IntKey(rec.ProductID), "product_key", stats),
			StoreKey:       b.resolve(stores, dimension.IntKey(rec.StoreID), "store_key", stats),
			UnitsOnHand:    rec.UnitsOnHand,
			UnitsOnOrder:   rec.UnitsOnOrder,
			ReorderPoint:   rec.ReorderPoint,
			SafetyStock:    rec.SafetyStock,
			DaysOfSupply:   rec.DaysOfSupply,
			NeedsReorder:   rec.UnitsOnHand <= rec.ReorderPoint,
			ForecastDemand: nil,
			BuiltAt:        b.buildTime,
		})
	}

	stats.Rows = len(rows)
	return rows, stats, nil
}
