// Package graph orders a container's binding graph for presentation:
// heaviest dependency subtrees first, registration order breaking ties.
package graph

import (
	"sort"
	"strings"

	"github.com/km-arc/go-ioc/framework/container"
)

// Registry is the read-only view of bindings the engine walks.
// *container.Registry satisfies it.
type Registry interface {
	Names() []string
	Lookup(name string) (container.Binding, bool)
}

// Visitor is called for every node of a traversal. parent is empty for
// top-level services.
type Visitor func(node, parent string, depth int)

// Engine computes dependency weights over one snapshot of a registry. Build
// a new Engine after the registry changes; weights are never invalidated.
type Engine struct {
	registry Registry
	names    []string
	index    map[string]int
	weights  map[string]int
}

// New snapshots the registration order of r.
func New(r Registry) *Engine {
	names := r.Names()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &Engine{
		registry: r,
		names:    names,
		index:    index,
		weights:  make(map[string]int),
	}
}

// TopLevelServices returns, in registration order, the registered names no
// binding requires.
func (e *Engine) TopLevelServices() []string {
	required := make(map[string]bool)
	for _, name := range e.names {
		b, _ := e.registry.Lookup(name)
		for _, dep := range b.Requires {
			required[dep] = true
		}
	}

	roots := make([]string, 0, len(e.names))
	for _, name := range e.names {
		if !required[name] {
			roots = append(roots, name)
		}
	}
	return roots
}

// WeightOf returns the size of name's dependency subtree, itself included.
// Names without a binding weigh 1. Repeated requirements count every time.
func (e *Engine) WeightOf(name string) (int, error) {
	return e.weigh(name, nil)
}

func (e *Engine) weigh(name string, path []string) (int, error) {
	if w, ok := e.weights[name]; ok {
		return w, nil
	}
	for i, active := range path {
		if active == name {
			cycle := append(append([]string(nil), path[i:]...), name)
			return 0, &container.CycleError{Path: cycle}
		}
	}

	sum := 1
	if b, ok := e.registry.Lookup(name); ok {
		path = append(path, name)
		for _, dep := range b.Requires {
			w, err := e.weigh(dep, path)
			if err != nil {
				return 0, err
			}
			sum += w
		}
	}

	e.weights[name] = sum
	return sum, nil
}

// RegistrationIndex returns the registration position of name. Names
// without a binding sort after every registered name.
func (e *Engine) RegistrationIndex(name string) int {
	if i, ok := e.index[name]; ok {
		return i
	}
	return len(e.names)
}

// SortScore ranks name among siblingCount siblings: weight dominates and
// registration order breaks near-ties.
func (e *Engine) SortScore(name string, siblingCount int) (int, error) {
	w, err := e.WeightOf(name)
	if err != nil {
		return 0, err
	}
	return w*siblingCount - e.RegistrationIndex(name), nil
}

// Sort returns a copy of names ordered by descending SortScore, using
// len(names) as the sibling count. Equal scores keep their input order.
func (e *Engine) Sort(names []string) ([]string, error) {
	type scored struct {
		name  string
		score int
	}

	items := make([]scored, len(names))
	for i, name := range names {
		score, err := e.SortScore(name, len(names))
		if err != nil {
			return nil, err
		}
		items[i] = scored{name: name, score: score}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	sorted := make([]string, len(items))
	for i, item := range items {
		sorted[i] = item.name
	}
	return sorted, nil
}

// Traverse walks the graph depth-first from the sorted top-level services,
// visiting each node before its sorted requirements. A service required by
// several parents is visited once per parent.
func (e *Engine) Traverse(visit Visitor) error {
	return e.traverse(visit, e.TopLevelServices(), "", 0)
}

func (e *Engine) traverse(visit Visitor, nodes []string, parent string, depth int) error {
	sorted, err := e.Sort(nodes)
	if err != nil {
		return err
	}

	for _, node := range sorted {
		visit(node, parent, depth)

		b, ok := e.registry.Lookup(node)
		if !ok || len(b.Requires) == 0 {
			continue
		}
		if err := e.traverse(visit, b.Requires, node, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// SimpleGraph renders the traversal as one line per visit, indented four
// spaces per depth level.
//
//	_foo
//	    _bar
func (e *Engine) SimpleGraph() (string, error) {
	var sb strings.Builder
	err := e.Traverse(func(node, _ string, depth int) {
		sb.WriteString(strings.Repeat("    ", depth))
		sb.WriteString(node)
		sb.WriteByte('\n')
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SimpleGraph renders r with a fresh Engine.
func SimpleGraph(r Registry) (string, error) {
	return New(r).SimpleGraph()
}
