package inspect_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/inspect"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type service struct{ container.Slots }

func newService() any { return &service{} }

func fooBar(t *testing.T) *container.Container {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Register(container.Binding{Name: "_bar", Service: newService, Singleton: true}))
	require.NoError(t, c.Register(container.Binding{
		Name:       "_foo",
		Service:    newService,
		Requires:   []string{"_bar"},
		Parameters: []container.Parameter{container.Param("retries")},
	}))
	return c
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

// ── /services ────────────────────────────────────────────────────────────────

func TestServices_ListsInRegistrationOrder(t *testing.T) {
	c := fooBar(t)
	_, err := c.Load("_bar")
	require.NoError(t, err)

	rec := get(t, inspect.New(c, nil), "/services")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	services := decode[[]inspect.Service](t, rec)
	require.Len(t, services, 2)

	assert.Equal(t, "_bar", services[0].Name)
	assert.Equal(t, 0, services[0].Index)
	assert.True(t, services[0].Singleton)
	assert.True(t, services[0].Resolved)

	assert.Equal(t, "_foo", services[1].Name)
	assert.Equal(t, []string{"_bar"}, services[1].Requires)
	assert.Equal(t, []string{"retries"}, services[1].Parameters)
	require.NotNil(t, services[1].Weight)
	assert.Equal(t, 2, *services[1].Weight)
	assert.False(t, services[1].Resolved)
}

func TestService_Found(t *testing.T) {
	rec := get(t, inspect.New(fooBar(t), nil), "/services/_foo")
	require.Equal(t, http.StatusOK, rec.Code)

	s := decode[inspect.Service](t, rec)
	assert.Equal(t, "_foo", s.Name)
	assert.Equal(t, 1, s.Index)
}

func TestService_NotFound(t *testing.T) {
	rec := get(t, inspect.New(fooBar(t), nil), "/services/_nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Service _nope is not registered.")
}

func TestDescribe_ReportsCycle(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(container.Binding{Name: "a", Service: newService, Requires: []string{"b"}}))
	require.NoError(t, c.Register(container.Binding{Name: "b", Service: newService, Requires: []string{"a"}}))

	s, ok := inspect.New(c, nil).Describe("a")
	require.True(t, ok)
	assert.Nil(t, s.Weight)
	assert.Equal(t, "cyclic dependency: a -> b -> a", s.Error)
}

// ── /graph ───────────────────────────────────────────────────────────────────

func TestGraph_SimpleGraph(t *testing.T) {
	rec := get(t, inspect.New(fooBar(t), nil), "/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "_foo\n    _bar\n", rec.Body.String())
}

func TestGraph_CycleIsServerError(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(container.Binding{Name: "root", Service: newService, Requires: []string{"a"}}))
	require.NoError(t, c.Register(container.Binding{Name: "a", Service: newService, Requires: []string{"b"}}))
	require.NoError(t, c.Register(container.Binding{Name: "b", Service: newService, Requires: []string{"a"}}))

	rec := get(t, inspect.New(c, nil), "/graph")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "cyclic dependency")
}

func TestGraph_Dot(t *testing.T) {
	rec := get(t, inspect.New(fooBar(t), nil), "/graph.dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph {\n")
	assert.Contains(t, rec.Body.String(), `_foo [ shape="record", label="_foo" ]; _foo -> _bar`)
}

// ── middleware ───────────────────────────────────────────────────────────────

func TestRequestsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := inspect.New(fooBar(t), zap.New(core))

	get(t, h, "/graph")

	entries := logs.FilterMessage("inspector request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/graph", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, inspect.New(fooBar(t), nil), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
