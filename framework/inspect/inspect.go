// Package inspect serves read-only views of a container over HTTP.
//
//	GET /services          registered services in registration order
//	GET /services/{name}   one service, 404 when unbound
//	GET /graph             SimpleGraph indentation text
//	GET /graph.dot         GraphViz rendering
package inspect

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/graph"
	"github.com/km-arc/go-ioc/framework/graph/graphviz"
)

// Service describes one binding.
type Service struct {
	Name          string   `json:"name"`
	Index         int      `json:"index"`
	Weight        *int     `json:"weight,omitempty"`
	Requires      []string `json:"requires"`
	Parameters    []string `json:"parameters"`
	Singleton     bool     `json:"singleton"`
	Resolved      bool     `json:"resolved"`
	EventSource   []string `json:"eventSource,omitempty"`
	EventListener []string `json:"eventListener,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Inspector is an http.Handler over a container.
type Inspector struct {
	ioc    *container.Container
	mux    chi.Router
	logger *zap.Logger
}

// New creates an Inspector with request logging and panic recovery.
func New(c *container.Container, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Inspector{ioc: c, mux: chi.NewRouter(), logger: logger}

	i.mux.Use(middleware.RequestID)
	i.mux.Use(middleware.RealIP)
	i.mux.Use(requestLogger(logger))
	i.mux.Use(middleware.Recoverer)

	i.mux.Get("/services", i.services)
	i.mux.Get("/services/{name}", i.service)
	i.mux.Get("/graph", i.simpleGraph)
	i.mux.Get("/graph.dot", i.dot)
	return i
}

// ServeHTTP implements http.Handler.
func (i *Inspector) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	i.mux.ServeHTTP(w, req)
}

// Describe returns the description of name. A weight that cannot be
// computed is reported in Error.
func (i *Inspector) Describe(name string) (Service, bool) {
	b, ok := i.ioc.Lookup(name)
	if !ok {
		return Service{}, false
	}
	return i.describe(graph.New(i.ioc.Registry()), b), true
}

func (i *Inspector) describe(engine *graph.Engine, b container.Binding) Service {
	s := Service{
		Name:          b.Name,
		Index:         engine.RegistrationIndex(b.Name),
		Requires:      append([]string{}, b.Requires...),
		Parameters:    make([]string, 0, len(b.Parameters)),
		Singleton:     b.Singleton,
		Resolved:      i.ioc.Resolved(b.Name),
		EventSource:   b.EventSource,
		EventListener: b.EventListener,
	}
	for _, p := range b.Parameters {
		s.Parameters = append(s.Parameters, p.Name)
	}
	if w, err := engine.WeightOf(b.Name); err != nil {
		s.Error = err.Error()
	} else {
		s.Weight = &w
	}
	return s
}

func (i *Inspector) services(w http.ResponseWriter, _ *http.Request) {
	engine := graph.New(i.ioc.Registry())
	names := i.ioc.Names()
	out := make([]Service, 0, len(names))
	for _, name := range names {
		b, _ := i.ioc.Lookup(name)
		out = append(out, i.describe(engine, b))
	}
	NewResponse(w).Success(out)
}

func (i *Inspector) service(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s, ok := i.Describe(name)
	if !ok {
		NewResponse(w).NotFound("Service " + name + " is not registered.")
		return
	}
	NewResponse(w).Success(s)
}

func (i *Inspector) simpleGraph(w http.ResponseWriter, _ *http.Request) {
	out, err := graph.SimpleGraph(i.ioc.Registry())
	if err != nil {
		i.logger.Warn("graph rendering failed", zap.Error(err))
		NewResponse(w).ServerError(err.Error())
		return
	}
	NewResponse(w).Text(http.StatusOK, "text/plain; charset=utf-8", out)
}

func (i *Inspector) dot(w http.ResponseWriter, _ *http.Request) {
	NewResponse(w).Text(http.StatusOK, "text/vnd.graphviz; charset=utf-8", graphviz.Render(i.ioc.Registry()))
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("inspector request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}
