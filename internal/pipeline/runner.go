package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"martbuild/internal/dimension"
	"martbuild/internal/fact"
	"martbuild/internal/landing"
	"martbuild/internal/logging"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Target receives materialized tables. WriteTable stages output without
// touching the live tables; Publish swaps everything staged into place in one
// pass; Abort discards staged output. Implementations must allow concurrent
// WriteTable calls for distinct tables.
type Target interface {
	Prepare(ctx context.Context) error
	WriteTable(ctx context.Context, table *models.Table) error
	Publish(ctx context.Context) error
	Abort(ctx context.Context) error
}

// RunResult aggregates the per-model outcomes of one pipeline run
type RunResult struct {
	Models    []*ModelResult
	StartedAt time.Time
	Duration  time.Duration
	Published bool
}

// TotalDropped sums staging drops across all models
func (r *RunResult) TotalDropped() int {
	total := 0
	for _, m := range r.Models {
		total += m.Dropped
	}
	return total
}

// TotalUnmatched sums sentinel substitutions across all models
func (r *RunResult) TotalUnmatched() int {
	total := 0
	for _, m := range r.Models {
		for _, n := range m.Unmatched {
			total += n
		}
	}
	return total
}

// Runner executes the full staging → dimensions → facts pipeline against a
// landing source and a target, full-refresh. Each run rebuilds every model
// and either replaces all target tables or leaves them untouched.
type Runner struct {
	cfg    models.Pipeline
	source landing.Source
	target Target
	logger *logging.Logger
	locks  *LockRegistry
	now    func() time.Time
}

// NewRunner creates a pipeline runner
func NewRunner(cfg models.Pipeline, source landing.Source, target Target, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		cfg:    cfg,
		source: source,
		target: target,
		logger: logger,
		locks:  DefaultLocks(),
		now:    time.Now,
	}
}

// buildState is the in-memory hand-off between graph levels. Models at one
// level write disjoint fields, so level barriers are the only synchronization
// needed.
type buildState struct {
	products        []models.ProductRecord
	stores          []models.StoreRecord
	vendors         []models.VendorRecord
	sales           []models.SaleRecord
	inventory       []models.InventoryRecord
	vulnerabilities []models.VulnerabilityRecord

	productIndex *dimension.KeyIndex
	storeIndex   *dimension.KeyIndex
	vendorIndex  *dimension.KeyIndex
	dateIndex    *dimension.KeyIndex
	vulnIndex    *dimension.KeyIndex
}

// supplierByProduct maps staged product IDs to their supplier attribute for
// the two-hop vendor resolution in fct_sales
func (s *buildState) supplierByProduct() map[int]string {
	m := make(map[int]string, len(s.products))
	for _, p := range s.products {
		m[p.ProductID] = p.Supplier
	}
	return m
}

// Plan returns the topologically ordered model levels without executing
func (r *Runner) Plan() ([][]string, error) {
	graph, err := r.graph(&buildState{}, nil, nil)
	if err != nil {
		return nil, err
	}
	levels, err := graph.Levels()
	if err != nil {
		return nil, err
	}

	plan := make([][]string, 0, len(levels))
	for _, level := range levels {
		names := make([]string, 0, len(level))
		for _, m := range level {
			names = append(names, m.Name)
		}
		plan = append(plan, names)
	}
	return plan, nil
}

// Run executes the whole pipeline. On any fatal error the staged output is
// aborted and the prior materialization stays visible.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := r.now()
	result := &RunResult{StartedAt: started}

	dims, err := dimension.NewBuilder(r.cfg)
	if err != nil {
		return result, err
	}
	facts := fact.NewBuilder(r.cfg, started.UTC().Truncate(time.Second))

	state := &buildState{}
	graph, err := r.graph(state, dims, facts)
	if err != nil {
		return result, err
	}
	levels, err := graph.Levels()
	if err != nil {
		return result, err
	}

	// One writer per target table per run
	targets := make([]string, 0, graph.Len())
	for _, level := range levels {
		for _, m := range level {
			targets = append(targets, m.Schema+"."+m.Name)
		}
	}
	if err := r.locks.AcquireAll(targets); err != nil {
		return result, err
	}
	defer r.locks.ReleaseAll(targets)

	if err := r.target.Prepare(ctx); err != nil {
		return result, err
	}

	for _, level := range levels {
		results, err := r.runLevel(ctx, level)
		result.Models = append(result.Models, results...)
		if err != nil {
			if abortErr := r.target.Abort(ctx); abortErr != nil {
				r.logger.Error("Failed to discard staged output", map[string]interface{}{
					"error": abortErr.Error(),
				})
			}
			result.Duration = r.now().Sub(started)
			return result, err
		}
	}

	if err := r.target.Publish(ctx); err != nil {
		result.Duration = r.now().Sub(started)
		return result, errors.Wrap(err, errors.ErrCodeSwapFailed, "Failed to publish build output")
	}

	result.Published = true
	result.Duration = r.now().Sub(started)
	r.logger.Info("Pipeline run complete", map[string]interface{}{
		"models":    len(result.Models),
		"dropped":   result.TotalDropped(),
		"unmatched": result.TotalUnmatched(),
		"duration":  result.Duration.String(),
	})
	return result, nil
}

// runLevel executes one dependency level on a bounded worker pool. The first
// error cancels the remaining models of the level.
func (r *Runner) runLevel(ctx context.Context, level []*Model) ([]*ModelResult, error) {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(level) {
		workers = len(level)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan *Model, len(level))
	results := make(chan *ModelResult, len(level))
	errs := make(chan error, len(level))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range tasks {
				if ctx.Err() != nil {
					return
				}
				res, err := r.runModel(ctx, m)
				if err != nil {
					errs <- err
					cancel()
					return
				}
				results <- res
			}
		}()
	}

	for _, m := range level {
		tasks <- m
	}
	close(tasks)
	wg.Wait()
	close(results)
	close(errs)

	var completed []*ModelResult
	for res := range results {
		completed = append(completed, res)
	}

	if err := <-errs; err != nil {
		return completed, err
	}
	if err := ctx.Err(); err != nil {
		return completed, errors.Wrap(err, errors.ErrCodeCancelled, "Pipeline run cancelled")
	}
	return completed, nil
}

// runModel executes one model and stages its output table
func (r *Runner) runModel(ctx context.Context, m *Model) (*ModelResult, error) {
	started := r.now()
	res, err := m.Run(ctx)
	if err != nil {
		r.logger.Error("Model build failed", map[string]interface{}{
			"model": m.Name,
			"error": err.Error(),
		})
		return nil, err
	}
	res.Name = m.Name
	res.Duration = r.now().Sub(started)

	if res.Table != nil {
		if err := r.target.WriteTable(ctx, res.Table); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{
		"model":    m.Name,
		"rows_in":  res.RowsIn,
		"rows_out": res.RowsOut,
		"duration": res.Duration.String(),
	}
	if res.Dropped > 0 {
		fields["dropped"] = res.Dropped
	}
	r.logger.Info("Model built", fields)
	return res, nil
}
