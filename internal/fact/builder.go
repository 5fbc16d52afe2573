package fact

import (
	"sort"
	"time"

	"martbuild/internal/dimension"
	"martbuild/pkg/models"
)

// Stats carries the data-quality metrics of one fact build: row counts plus
// unmatched-lookup counts per key column. Unmatched lookups are not errors;
// they resolve to the sentinel and get reported.
type Stats struct {
	Fact          string
	Rows          int
	UnmatchedKeys map[string]int
}

func newStats(fact string) *Stats {
	return &Stats{Fact: fact, UnmatchedKeys: make(map[string]int)}
}

// Unmatched returns the total number of sentinel substitutions
func (s *Stats) Unmatched() int {
	total := 0
	for _, n := range s.UnmatchedKeys {
		total += n
	}
	return total
}

// Builder materializes fact rows from the staged transactional entities and
// the resolved dimension key indexes. Every staged row becomes exactly one
// fact row; dimension completeness never drops a transaction.
type Builder struct {
	sentinel  int64
	tiers     []models.SeverityTier
	buildTime time.Time
}

// NewBuilder creates a fact builder. buildTime stamps every emitted row, so
// one run produces one consistent timestamp.
func NewBuilder(cfg models.Pipeline, buildTime time.Time) *Builder {
	tiers := make([]models.SeverityTier, len(cfg.SeverityTiers))
	copy(tiers, cfg.SeverityTiers)
	// Highest-first so boundary scores classify into the higher tier
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinScore > tiers[j].MinScore })

	return &Builder{
		sentinel:  cfg.SentinelKey,
		tiers:     tiers,
		buildTime: buildTime,
	}
}

// resolve performs the left-outer lookup for one foreign key. An unmatched
// natural key substitutes the sentinel and bumps the per-column metric.
func (b *Builder) resolve(index *dimension.KeyIndex, naturalKey string, column string, stats *Stats) int64 {
	if key, ok := index.Resolve(naturalKey); ok {
		return key
	}
	stats.UnmatchedKeys[column]++
	return b.sentinel
}

// resolveDate is resolve for the generated date dimension
func (b *Builder) resolveDate(index *dimension.KeyIndex, t time.Time, column string, stats *Stats) int64 {
	if key, ok := dimension.DateIndexFor(index, t); ok {
		return key
	}
	stats.UnmatchedKeys[column]++
	return b.sentinel
}
