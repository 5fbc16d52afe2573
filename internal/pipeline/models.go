package pipeline

import (
	"context"

	"martbuild/internal/dimension"
	"martbuild/internal/fact"
	"martbuild/internal/staging"
	"martbuild/pkg/models"
)

// graph declares the static model DAG. Staging models read the landing
// source, dimensions read staged records, facts join staged records against
// the dimension key indexes. Closures share state through buildState; the
// level barrier in the runner orders the writes before the reads.
func (r *Runner) graph(state *buildState, dims *dimension.Builder, facts *fact.Builder) (*Graph, error) {
	normalizer := staging.NewNormalizer(r.cfg.RequiredFields)

	return NewGraph(
		&Model{
			Name:   "stg_products",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Products(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Products(records)
				state.products = staged
				return stagingResult(report, stgProductsTable(staged)), nil
			},
		},
		&Model{
			Name:   "stg_stores",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Stores(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Stores(records)
				state.stores = staged
				return stagingResult(report, stgStoresTable(staged)), nil
			},
		},
		&Model{
			Name:   "stg_vendors",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Vendors(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Vendors(records)
				state.vendors = staged
				return stagingResult(report, stgVendorsTable(staged)), nil
			},
		},
		&Model{
			Name:   "stg_sales",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Sales(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Sales(records)
				state.sales = staged
				return stagingResult(report, stgSalesTable(staged)), nil
			},
		},
		&Model{
			Name:   "stg_inventory",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Inventory(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Inventory(records)
				state.inventory = staged
				return stagingResult(report, stgInventoryTable(staged)), nil
			},
		},
		&Model{
			Name:   "stg_vulnerabilities",
			Schema: SchemaStaging,
			Run: func(ctx context.Context) (*ModelResult, error) {
				records, err := r.source.Vulnerabilities(ctx)
				if err != nil {
					return nil, err
				}
				staged, report := normalizer.Vulnerabilities(records)
				state.vulnerabilities = staged
				return stagingResult(report, stgVulnerabilitiesTable(staged)), nil
			},
		},
		&Model{
			Name:      "dim_product",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_products"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, index, err := dims.Products(state.products)
				if err != nil {
					return nil, err
				}
				state.productIndex = index
				return dimensionResult(len(state.products), len(rows), dimProductTable(rows)), nil
			},
		},
		&Model{
			Name:      "dim_store",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_stores"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, index, err := dims.Stores(state.stores)
				if err != nil {
					return nil, err
				}
				state.storeIndex = index
				return dimensionResult(len(state.stores), len(rows), dimStoreTable(rows)), nil
			},
		},
		&Model{
			Name:      "dim_vendor",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_vendors"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, index, err := dims.Vendors(state.vendors)
				if err != nil {
					return nil, err
				}
				state.vendorIndex = index
				return dimensionResult(len(state.vendors), len(rows), dimVendorTable(rows)), nil
			},
		},
		&Model{
			Name:   "dim_date",
			Schema: SchemaMarts,
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, index, err := dims.Dates()
				if err != nil {
					return nil, err
				}
				state.dateIndex = index
				return dimensionResult(0, len(rows), dimDateTable(rows)), nil
			},
		},
		&Model{
			Name:      "dim_vulnerability",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_vulnerabilities"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, index, err := dims.Vulnerabilities(state.vulnerabilities)
				if err != nil {
					return nil, err
				}
				state.vulnIndex = index
				return dimensionResult(len(state.vulnerabilities), len(rows), dimVulnerabilityTable(rows)), nil
			},
		},
		&Model{
			Name:      "fct_sales",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_sales", "dim_date", "dim_product", "dim_store", "dim_vendor"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, stats, err := facts.Sales(state.sales,
					state.dateIndex, state.productIndex, state.storeIndex, state.vendorIndex,
					state.supplierByProduct())
				if err != nil {
					return nil, err
				}
				return factResult(len(state.sales), stats, fctSalesTable(rows)), nil
			},
		},
		&Model{
			Name:      "fct_inventory",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_inventory", "dim_date", "dim_product", "dim_store"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, stats, err := facts.Inventory(state.inventory,
					state.dateIndex, state.productIndex, state.storeIndex)
				if err != nil {
					return nil, err
				}
				return factResult(len(state.inventory), stats, fctInventoryTable(rows)), nil
			},
		},
		&Model{
			Name:      "fct_vulnerabilities",
			Schema:    SchemaMarts,
			DependsOn: []string{"stg_vulnerabilities", "dim_date", "dim_vulnerability"},
			Run: func(ctx context.Context) (*ModelResult, error) {
				rows, stats, err := facts.Vulnerabilities(state.vulnerabilities,
					state.dateIndex, state.vulnIndex)
				if err != nil {
					return nil, err
				}
				return factResult(len(state.vulnerabilities), stats, fctVulnerabilitiesTable(rows)), nil
			},
		},
	)
}

func stagingResult(report *staging.DropReport, table *models.Table) *ModelResult {
	return &ModelResult{
		RowsIn:  report.Total,
		Dropped: report.Dropped,
		RowsOut: report.Kept(),
		Reasons: report.Reasons,
		Table:   table,
	}
}

func dimensionResult(in, out int, table *models.Table) *ModelResult {
	return &ModelResult{RowsIn: in, RowsOut: out, Table: table}
}

func factResult(in int, stats *fact.Stats, table *models.Table) *ModelResult {
	return &ModelResult{
		RowsIn:    in,
		RowsOut:   stats.Rows,
		Unmatched: stats.UnmatchedKeys,
		Table:     table,
	}
}
