package generate

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"martbuild/internal/logging"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Category catalog for synthetic products. Pricing bands differ per category
// so margins stay plausible.
var categories = map[string][]string{
	"Electronics":    {"Laptops", "Phones", "Tablets", "Accessories"},
	"Clothing":       {"Men", "Women", "Kids", "Shoes"},
	"Home & Kitchen": {"Furniture", "Appliances", "Decor", "Cookware"},
	"Sports":         {"Equipment", "Apparel", "Outdoor", "Fitness"},
	"Books":          {"Fiction", "Non-Fiction", "Textbooks", "Children"},
}

var categoryNames = []string{"Electronics", "Clothing", "Home & Kitchen", "Sports", "Books"}

var brands = []string{
	"TechPro", "StyleMax", "HomeEssentials", "ActiveLife", "ReadMore",
	"InnovateTech", "FashionForward", "ComfortHome", "SportElite", "BookNook",
}

var storeTypes = []string{"Retail", "Online", "Warehouse"}

var usRegions = []string{"Northeast", "Southeast", "Midwest", "Southwest", "West"}

var usCities = []string{
	"Springfield", "Riverside", "Franklin", "Greenville", "Bristol",
	"Clinton", "Fairview", "Salem", "Madison", "Georgetown",
	"Arlington", "Ashland", "Burlington", "Manchester", "Oxford",
}

var usStates = []string{
	"CA", "TX", "NY", "FL", "IL", "PA", "OH", "GA", "NC", "MI",
	"WA", "AZ", "MA", "TN", "CO",
}

var productColors = []string{
	"Black", "White", "Silver", "Navy", "Crimson", "Forest", "Slate",
	"Ivory", "Amber", "Teal",
}

var companySuffixes = []string{"Supply Co", "Trading", "Industries", "Logistics", "Global", "Partners"}

var companyPrefixes = []string{
	"Summit", "Pacific", "Atlas", "Meridian", "Pioneer", "Cascade",
	"Horizon", "Keystone", "Northstar", "Vanguard",
}

var vendorCountries = []string{"USA", "China", "Germany", "Japan", "Mexico"}

var customerSegments = []string{"Regular", "Premium", "VIP"}

// Summary reports what one generation run produced
type Summary struct {
	Products     int
	Stores       int
	Vendors      int
	Sales        int
	Inventory    int
	TotalRevenue float64
	TotalProfit  float64
}

// Generator produces the synthetic landing dataset: master data, daily sales
// with weekend and holiday lift, and an end-of-window inventory snapshot.
// Output is fully determined by the configured seed.
type Generator struct {
	cfg    models.Generator
	rng    *rand.Rand
	logger *logging.Logger

	products []models.ProductRecord
	stores   []models.StoreRecord
	vendors  []models.VendorRecord
}

// NewGenerator creates a generator seeded from the configuration
func NewGenerator(cfg models.Generator, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}
}

// Run generates the full dataset and writes it as CSV files into the
// configured output directory
func (g *Generator) Run() (*Summary, error) {
	start, err := time.Parse("2006-01-02", g.cfg.StartDate)
	if err != nil {
		return nil, errors.ConfigError(
			fmt.Sprintf("Invalid generator start date %q", g.cfg.StartDate),
			"generator.start_date",
		).WithSuggestions("Use YYYY-MM-DD format")
	}
	if g.cfg.Days <= 0 {
		return nil, errors.ConfigError(
			fmt.Sprintf("Generator window must be positive, got %d", g.cfg.Days),
			"generator.days",
		)
	}

	if err := os.MkdirAll(g.cfg.OutputDir, 0750); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create output directory").
			WithContext("dir", g.cfg.OutputDir)
	}

	g.generateVendors()
	g.generateProducts()
	g.generateStores(start)
	sales := g.generateSales(start)
	snapshotDate := start.AddDate(0, 0, g.cfg.Days-1)
	inventory := g.generateInventory(snapshotDate)

	summary := &Summary{
		Products:  len(g.products),
		Stores:    len(g.stores),
		Vendors:   len(g.vendors),
		Sales:     len(sales),
		Inventory: len(inventory),
	}
	for _, s := range sales {
		summary.TotalRevenue += s.TotalRevenue
		summary.TotalProfit += s.Profit
	}

	files := []struct {
		name  string
		write func(*csv.Writer) error
	}{
		{"products.csv", g.writeProducts},
		{"stores.csv", g.writeStores},
		{"vendors.csv", g.writeVendors},
		{"sales.csv", func(w *csv.Writer) error { return writeSales(w, sales) }},
		{"inventory_snapshot.csv", func(w *csv.Writer) error { return writeInventory(w, inventory) }},
	}
	for _, file := range files {
		if err := g.writeFile(file.name, file.write); err != nil {
			return nil, err
		}
	}

	g.logger.Info("Synthetic data generated", map[string]interface{}{
		"products":  summary.Products,
		"stores":    summary.Stores,
		"vendors":   summary.Vendors,
		"sales":     summary.Sales,
		"inventory": summary.Inventory,
		"dir":       g.cfg.OutputDir,
	})
	return summary, nil
}

func (g *Generator) generateProducts() {
	g.products = make([]models.ProductRecord, 0, g.cfg.Products)
	for i := 0; i < g.cfg.Products; i++ {
		category := categoryNames[g.rng.Intn(len(categoryNames))]
		subcategory := categories[category][g.rng.Intn(len(categories[category]))]
		brand := brands[g.rng.Intn(len(brands))]

		var unitCost float64
		switch category {
		case "Electronics":
			unitCost = round2(g.uniform(50, 800))
		case "Clothing":
			unitCost = round2(g.uniform(10, 150))
		case "Home & Kitchen":
			unitCost = round2(g.uniform(20, 500))
		default:
			unitCost = round2(g.uniform(5, 100))
		}
		unitPrice := round2(unitCost * g.uniform(1.3, 2.5))

		sku := fmt.Sprintf("%s%s%04d",
			strings.ToUpper(category[:3]), strings.ToUpper(subcategory[:3]), i)
		color := productColors[g.rng.Intn(len(productColors))]

		g.products = append(g.products, models.ProductRecord{
			ProductID:   i + 1,
			SKU:         sku,
			ProductName: fmt.Sprintf("%s %s %s", brand, subcategory, color),
			Category:    category,
			Subcategory: subcategory,
			Brand:       brand,
			UnitCost:    unitCost,
			UnitPrice:   unitPrice,
			Supplier:    fmt.Sprintf("Vendor %d", g.rng.Intn(g.cfg.Vendors)+1),
		})
	}
}

func (g *Generator) generateStores(windowStart time.Time) {
	g.stores = make([]models.StoreRecord, 0, g.cfg.Stores)
	for i := 0; i < g.cfg.Stores; i++ {
		// Opened one to five years before the sales window
		opened := windowStart.AddDate(0, 0, -(365 + g.rng.Intn(4*365)))

		g.stores = append(g.stores, models.StoreRecord{
			StoreID:    i + 1,
			StoreName:  fmt.Sprintf("Store %03d", i+1),
			StoreType:  storeTypes[g.rng.Intn(len(storeTypes))],
			Region:     usRegions[g.rng.Intn(len(usRegions))],
			City:       usCities[g.rng.Intn(len(usCities))],
			State:      usStates[g.rng.Intn(len(usStates))],
			OpenedDate: opened,
		})
	}
}

func (g *Generator) generateVendors() {
	g.vendors = make([]models.VendorRecord, 0, g.cfg.Vendors)
	for i := 0; i < g.cfg.Vendors; i++ {
		name := companyPrefixes[g.rng.Intn(len(companyPrefixes))] + " " +
			companySuffixes[g.rng.Intn(len(companySuffixes))]

		g.vendors = append(g.vendors, models.VendorRecord{
			VendorID:         i + 1,
			VendorName:       name,
			VendorCountry:    vendorCountries[g.rng.Intn(len(vendorCountries))],
			AvgLeadTimeDays:  3 + g.rng.Intn(28),
			ReliabilityScore: round1(g.uniform(70, 99)),
		})
	}
}

func (g *Generator) generateSales(start time.Time) []models.SaleRecord {
	var sales []models.SaleRecord
	transactionID := 1

	for day := 0; day < g.cfg.Days; day++ {
		date := start.AddDate(0, 0, day)

		base := 150
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			base = 200
		}
		if date.Month() == time.November || date.Month() == time.December {
			base = int(float64(base) * 1.5)
		}
		count := int(float64(base) * g.uniform(0.8, 1.2))

		for i := 0; i < count; i++ {
			product := g.products[g.rng.Intn(len(g.products))]
			store := g.stores[g.rng.Intn(len(g.stores))]
			quantity := g.weightedQuantity()

			discountPct := 0.0
			if g.rng.Float64() < 0.15 {
				discountPct = g.uniform(0.05, 0.3)
			}

			discountAmount := round2(product.UnitPrice * discountPct * float64(quantity))
			revenue := round2(product.UnitPrice*float64(quantity) - discountAmount)
			cost := round2(product.UnitCost * float64(quantity))

			sales = append(sales, models.SaleRecord{
				TransactionID:   transactionID,
				SaleDate:        date,
				ProductID:       product.ProductID,
				StoreID:         store.StoreID,
				CustomerSegment: customerSegments[g.rng.Intn(len(customerSegments))],
				QuantitySold:    quantity,
				UnitPrice:       product.UnitPrice,
				DiscountAmount:  discountAmount,
				TotalRevenue:    revenue,
				CostOfGoods:     cost,
				Profit:          round2(revenue - cost),
			})
			transactionID++
		}
	}
	return sales
}

// weightedQuantity draws 1..5 units with single-unit sales dominating
func (g *Generator) weightedQuantity() int {
	weights := []int{50, 25, 15, 7, 3}
	total := 0
	for _, w := range weights {
		total += w
	}
	n := g.rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return i + 1
		}
		n -= w
	}
	return 1
}

func (g *Generator) generateInventory(date time.Time) []models.InventoryRecord {
	inventory := make([]models.InventoryRecord, 0, len(g.products)*len(g.stores))

	for _, product := range g.products {
		for _, store := range g.stores {
			var base int
			switch product.Category {
			case "Electronics":
				base = 10 + g.rng.Intn(91)
			case "Clothing":
				base = 20 + g.rng.Intn(181)
			default:
				base = 15 + g.rng.Intn(136)
			}

			onHand := int(float64(base) * g.uniform(0.5, 1.5))
			if onHand < 0 {
				onHand = 0
			}
			onOrder := 0
			if float64(onHand) < float64(base)*0.3 {
				onOrder = g.rng.Intn(51)
			}
			reorderPoint := int(float64(base) * 0.2)
			safetyStock := reorderPoint / 2

			// Days of supply assumes a flat five units of daily demand
			inventory = append(inventory, models.InventoryRecord{
				SnapshotDate: date,
				ProductID:    product.ProductID,
				StoreID:      store.StoreID,
				UnitsOnHand:  onHand,
				UnitsOnOrder: onOrder,
				ReorderPoint: reorderPoint,
				SafetyStock:  safetyStock,
				DaysOfSupply: round1(float64(onHand) / 5),
			})
		}
	}
	return inventory
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (g *Generator) writeFile(name string, write func(*csv.Writer) error) error {
	path := filepath.Join(g.cfg.OutputDir, name)
	f, err := os.Create(path) // #nosec G304 - path comes from validated config
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to create %s", name))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
	}
	w.Flush()
	return w.Error()
}

func (g *Generator) writeProducts(w *csv.Writer) error {
	if err := w.Write([]string{"product_id", "sku", "product_name", "category",
		"subcategory", "brand", "unit_cost", "unit_price", "supplier"}); err != nil {
		return err
	}
	for _, p := range g.products {
		if err := w.Write([]string{
			strconv.Itoa(p.ProductID), p.SKU, p.ProductName, p.Category,
			p.Subcategory, p.Brand, money(p.UnitCost), money(p.UnitPrice), p.Supplier,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeStores(w *csv.Writer) error {
	if err := w.Write([]string{"store_id", "store_name", "store_type", "region",
		"city", "state", "opened_date"}); err != nil {
		return err
	}
	for _, s := range g.stores {
		if err := w.Write([]string{
			strconv.Itoa(s.StoreID), s.StoreName, s.StoreType, s.Region,
			s.City, s.State, s.OpenedDate.Format("2006-01-02"),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeVendors(w *csv.Writer) error {
	if err := w.Write([]string{"vendor_id", "vendor_name", "vendor_country",
		"avg_lead_time_days", "reliability_score"}); err != nil {
		return err
	}
	for _, v := range g.vendors {
		if err := w.Write([]string{
			strconv.Itoa(v.VendorID), v.VendorName, v.VendorCountry,
			strconv.Itoa(v.AvgLeadTimeDays), strconv.FormatFloat(v.ReliabilityScore, 'f', 1, 64),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeSales(w *csv.Writer, sales []models.SaleRecord) error {
	if err := w.Write([]string{"transaction_id", "sale_date", "product_id",
		"store_id", "customer_segment", "quantity_sold", "unit_price",
		"discount_amount", "total_revenue", "cost_of_goods", "profit"}); err != nil {
		return err
	}
	for _, s := range sales {
		if err := w.Write([]string{
			strconv.Itoa(s.TransactionID), s.SaleDate.Format("2006-01-02"),
			strconv.Itoa(s.ProductID), strconv.Itoa(s.StoreID), s.CustomerSegment,
			strconv.Itoa(s.QuantitySold), money(s.UnitPrice), money(s.DiscountAmount),
			money(s.TotalRevenue), money(s.CostOfGoods), money(s.Profit),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeInventory(w *csv.Writer, inventory []models.InventoryRecord) error {
	if err := w.Write([]string{"snapshot_date", "product_id", "store_id",
		"units_on_hand", "units_on_order", "reorder_point", "safety_stock",
		"days_of_supply"}); err != nil {
		return err
	}
	for _, r := range inventory {
		if err := w.Write([]string{
			r.SnapshotDate.Format("2006-01-02"), strconv.Itoa(r.ProductID),
			strconv.Itoa(r.StoreID), strconv.Itoa(r.UnitsOnHand),
			strconv.Itoa(r.UnitsOnOrder), strconv.Itoa(r.ReorderPoint),
			strconv.Itoa(r.SafetyStock), strconv.FormatFloat(r.DaysOfSupply, 'f', 1, 64),
		}); err != nil {
			return err
		}
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
