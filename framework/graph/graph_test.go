package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/graph"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newService() any { return &struct{ container.Slots }{} }

// registry builds a registry from (name, requires...) declarations in order.
func registry(t *testing.T, decls ...[]string) *container.Registry {
	t.Helper()
	r := container.NewRegistry()
	for _, d := range decls {
		require.NoError(t, r.Register(container.Binding{
			Name:     d[0],
			Service:  newService,
			Requires: d[1:],
		}))
	}
	return r
}

// countingRegistry counts Lookup calls.
type countingRegistry struct {
	*container.Registry
	lookups int
}

func (c *countingRegistry) Lookup(name string) (container.Binding, bool) {
	c.lookups++
	return c.Registry.Lookup(name)
}

// layered is log ← db ← repo ← api, cache ← repo, log ← api, log ← cli.
func layered(t *testing.T) *container.Registry {
	return registry(t,
		[]string{"log"},
		[]string{"db", "log"},
		[]string{"cache"},
		[]string{"repo", "db", "cache"},
		[]string{"api", "repo", "log"},
		[]string{"cli", "log"},
	)
}

// ── TopLevelServices ─────────────────────────────────────────────────────────

func TestTopLevelServices(t *testing.T) {
	e := graph.New(registry(t, []string{"_bar"}, []string{"_foo", "_bar"}))
	assert.Equal(t, []string{"_foo"}, e.TopLevelServices())
}

func TestTopLevelServices_IndependentOfRegistrationOrder(t *testing.T) {
	e := graph.New(registry(t, []string{"_foo", "_bar"}, []string{"_bar"}))
	assert.Equal(t, []string{"_foo"}, e.TopLevelServices())
}

func TestTopLevelServices_Layered(t *testing.T) {
	assert.Equal(t, []string{"api", "cli"}, graph.New(layered(t)).TopLevelServices())
}

func TestTopLevelServices_Empty(t *testing.T) {
	assert.Empty(t, graph.New(container.NewRegistry()).TopLevelServices())
}

// ── WeightOf ─────────────────────────────────────────────────────────────────

func TestWeightOf(t *testing.T) {
	e := graph.New(registry(t, []string{"_bar"}, []string{"_foo", "_bar"}))

	tests := []struct {
		name string
		want int
	}{
		{"_foo", 2},
		{"_bar", 1},
		{"unregistered", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.WeightOf(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeightOf_TwoLeaves(t *testing.T) {
	e := graph.New(registry(t, []string{"A", "B", "C"}, []string{"B"}, []string{"C"}))

	w, err := e.WeightOf("A")
	require.NoError(t, err)
	assert.Equal(t, 3, w)
}

func TestWeightOf_CountsRepeatedRequirements(t *testing.T) {
	e := graph.New(registry(t, []string{"a", "b", "b"}, []string{"b", "c"}))

	w, err := e.WeightOf("a")
	require.NoError(t, err)
	assert.Equal(t, 5, w)
}

func TestWeightOf_Layered(t *testing.T) {
	e := graph.New(layered(t))
	want := map[string]int{"log": 1, "db": 2, "cache": 1, "repo": 4, "api": 6, "cli": 2}
	for name, weight := range want {
		got, err := e.WeightOf(name)
		require.NoError(t, err)
		assert.Equal(t, weight, got, name)
	}
}

func TestWeightOf_Memoized(t *testing.T) {
	r := &countingRegistry{Registry: layered(t)}
	e := graph.New(r)

	_, err := e.WeightOf("api")
	require.NoError(t, err)
	after := r.lookups

	_, err = e.WeightOf("api")
	require.NoError(t, err)
	_, err = e.WeightOf("repo")
	require.NoError(t, err)
	assert.Equal(t, after, r.lookups)
}

func TestWeightOf_Cycle(t *testing.T) {
	e := graph.New(registry(t, []string{"a", "b"}, []string{"b", "a"}))

	_, err := e.WeightOf("a")
	require.ErrorIs(t, err, container.ErrCyclicDependency)

	var cycle *container.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
}

// ── Scores ───────────────────────────────────────────────────────────────────

func TestRegistrationIndex(t *testing.T) {
	e := graph.New(layered(t))
	assert.Equal(t, 0, e.RegistrationIndex("log"))
	assert.Equal(t, 5, e.RegistrationIndex("cli"))
	assert.Equal(t, 6, e.RegistrationIndex("unregistered"))
}

func TestSortScore(t *testing.T) {
	e := graph.New(layered(t))

	score, err := e.SortScore("api", 2)
	require.NoError(t, err)
	assert.Equal(t, 6*2-4, score)

	score, err = e.SortScore("cli", 2)
	require.NoError(t, err)
	assert.Equal(t, 2*2-5, score)
}

func TestSort_HeavierFirst(t *testing.T) {
	e := graph.New(layered(t))

	sorted, err := e.Sort([]string{"cache", "db"})
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "cache"}, sorted)
}

func TestSort_RegistrationOrderBreaksTies(t *testing.T) {
	e := graph.New(registry(t, []string{"a"}, []string{"b"}, []string{"c"}))

	sorted, err := e.Sort([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sorted)
}

func TestSort_NearTieFavoursEarlierRegistration(t *testing.T) {
	// q outweighs p by one, but p was registered three positions earlier:
	// with three siblings both score 3 and input order decides.
	e := graph.New(registry(t, []string{"p"}, []string{"z"}, []string{"y"}, []string{"q", "z"}))

	sorted, err := e.Sort([]string{"p", "y", "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q", "y"}, sorted)
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	e := graph.New(layered(t))
	in := []string{"cache", "db"}

	_, err := e.Sort(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "db"}, in)
}

// ── Traverse ─────────────────────────────────────────────────────────────────

type visit struct {
	node, parent string
	depth        int
}

func TestTraverse_VisitsParentsAndDepths(t *testing.T) {
	e := graph.New(registry(t, []string{"_bar"}, []string{"_foo", "_bar"}))

	var visits []visit
	require.NoError(t, e.Traverse(func(node, parent string, depth int) {
		visits = append(visits, visit{node, parent, depth})
	}))

	assert.Equal(t, []visit{
		{"_foo", "", 0},
		{"_bar", "_foo", 1},
	}, visits)
}

func TestTraverse_RevisitsSharedDependencies(t *testing.T) {
	e := graph.New(layered(t))

	count := 0
	require.NoError(t, e.Traverse(func(node, _ string, _ int) {
		if node == "log" {
			count++
		}
	}))
	assert.Equal(t, 3, count)
}

func TestTraverse_CycleBelowRoot(t *testing.T) {
	e := graph.New(registry(t, []string{"root", "a"}, []string{"a", "b"}, []string{"b", "a"}))

	err := e.Traverse(func(string, string, int) {})
	assert.ErrorIs(t, err, container.ErrCyclicDependency)
}

// ── SimpleGraph ──────────────────────────────────────────────────────────────

func TestSimpleGraph_TwoLevels(t *testing.T) {
	got, err := graph.SimpleGraph(registry(t, []string{"A", "B"}, []string{"B"}))
	require.NoError(t, err)
	assert.Equal(t, "A\n    B\n", got)
}

func TestSimpleGraph_Layered(t *testing.T) {
	got, err := graph.SimpleGraph(layered(t))
	require.NoError(t, err)

	want := "" +
		"api\n" +
		"    repo\n" +
		"        db\n" +
		"            log\n" +
		"        cache\n" +
		"    log\n" +
		"cli\n" +
		"    log\n"
	assert.Equal(t, want, got)
}

func TestSimpleGraph_UnregisteredLeaf(t *testing.T) {
	got, err := graph.SimpleGraph(registry(t, []string{"app", "clock", "store"}, []string{"store"}))
	require.NoError(t, err)
	assert.Equal(t, "app\n    store\n    clock\n", got)
}

func TestSimpleGraph_Empty(t *testing.T) {
	got, err := graph.SimpleGraph(container.NewRegistry())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSimpleGraph_FromContainer(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(container.Binding{Name: "_bar", Service: newService}))
	require.NoError(t, c.Register(container.Binding{Name: "_foo", Service: newService, Requires: []string{"_bar"}}))

	got, err := graph.SimpleGraph(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, "_foo\n    _bar\n", got)
}
