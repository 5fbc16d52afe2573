package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// Model is one named node of the build graph: a staging view, a dimension or
// a fact table. Dependencies are declared statically by upstream name, the
// dbt ref graph made explicit.
type Model struct {
	Name      string
	Schema    string
	DependsOn []string
	Run       func(ctx context.Context) (*ModelResult, error)
}

// ModelResult is the outcome of one model build
type ModelResult struct {
	Name      string
	RowsIn    int
	Dropped   int
	RowsOut   int
	Unmatched map[string]int
	Reasons   map[string]int
	Duration  time.Duration
	Table     *models.Table
}

// Graph is the static model dependency graph, topologically sorted at build
// start
type Graph struct {
	models []*Model
	byName map[string]*Model
}

// NewGraph validates the declared models: unique names, known upstreams
func NewGraph(graphModels ...*Model) (*Graph, error) {
	byName := make(map[string]*Model, len(graphModels))
	for _, m := range graphModels {
		if _, exists := byName[m.Name]; exists {
			return nil, errors.New(errors.ErrCodeModelGraphInvalid,
				fmt.Sprintf("Model %q declared twice", m.Name))
		}
		byName[m.Name] = m
	}
	for _, m := range graphModels {
		for _, dep := range m.DependsOn {
			if _, exists := byName[dep]; !exists {
				return nil, errors.New(errors.ErrCodeModelGraphInvalid,
					fmt.Sprintf("Model %q depends on unknown model %q", m.Name, dep))
			}
		}
	}
	return &Graph{models: graphModels, byName: byName}, nil
}

// Levels returns the models grouped by dependency depth (Kahn's algorithm).
// Models within one level have no dependency on each other and may build in
// parallel; each level must complete before the next starts. Level order is
// deterministic: names are sorted within a level.
func (g *Graph) Levels() ([][]*Model, error) {
	indegree := make(map[string]int, len(g.models))
	dependents := make(map[string][]string, len(g.models))

	for _, m := range g.models {
		indegree[m.Name] = len(m.DependsOn)
		for _, dep := range m.DependsOn {
			dependents[dep] = append(dependents[dep], m.Name)
		}
	}

	var levels [][]*Model
	resolved := 0

	for resolved < len(g.models) {
		var ready []string
		for name, deg := range indegree {
			if deg == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			return nil, errors.New(errors.ErrCodeModelGraphInvalid, "Model graph contains a cycle").
				WithContext("unresolved", len(g.models)-resolved)
		}
		sort.Strings(ready)

		level := make([]*Model, 0, len(ready))
		for _, name := range ready {
			level = append(level, g.byName[name])
			delete(indegree, name)
			for _, dependent := range dependents[name] {
				indegree[dependent]--
			}
		}
		levels = append(levels, level)
		resolved += len(level)
	}

	return levels, nil
}

// Order returns the flattened topological order of model names
func (g *Graph) Order() ([]string, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, level := range levels {
		for _, m := range level {
			order = append(order, m.Name)
		}
	}
	return order, nil
}

// Model returns a declared model by name
func (g *Graph) Model(name string) (*Model, bool) {
	m, ok := g.byName[name]
	return m, ok
}

// Len returns the number of declared models
func (g *Graph) Len() int {
	return len(g.models)
}
