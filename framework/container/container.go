package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Container resolves named services from a Registry of bindings, caches
// singletons and brokers events between sources and listeners.
//
// Every operation runs synchronously to completion. The internal maps are
// guarded, but resolution is not designed for concurrent callers mutating
// the same container.
type Container struct {
	mu sync.RWMutex

	registry *Registry

	// name → singleton or pre-bound instance
	instances map[string]any

	// names bound through RegisterInstance
	prebound map[string]bool

	// service → parameter → configured value
	configured map[string]map[string]any

	// event → listeners in wiring order
	listeners map[string][]listener

	afterLoading []func(name string, instance any)

	// missing is consulted when a loaded name has no binding; it may
	// register one (deferred providers).
	missing func(name string) (bool, error)

	logger *zap.Logger
}

// listener is one wired (instance, event) pair.
type listener struct {
	service  string
	instance any
	handler  Handler
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration, resolution and
// dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		registry:   NewRegistry(),
		instances:  make(map[string]any),
		prebound:   make(map[string]bool),
		configured: make(map[string]map[string]any),
		listeners:  make(map[string][]listener),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds a binding. A binding with an existing name replaces it.
//
//	c.Register(container.Binding{
//	    Name:     "_foo",
//	    Service:  func() any { return &Foo{} },
//	    Requires: []string{"_bar"},
//	})
func (c *Container) Register(b Binding) error {
	if err := c.registry.Register(b); err != nil {
		return err
	}
	c.logger.Debug("service registered",
		zap.String("service", b.Name),
		zap.Strings("requires", b.Requires),
		zap.Bool("singleton", b.Singleton),
	)
	return nil
}

// RegisterInstance binds name to a pre-built object. Load(name) returns it
// without construction or wiring.
func (c *Container) RegisterInstance(name string, instance any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prebound[name] {
		return NewServiceError(name, "register instance", ErrDuplicateInstance)
	}
	c.prebound[name] = true
	c.instances[name] = instance
	c.logger.Debug("instance registered", zap.String("service", name))
	return nil
}

// ── Configuration ─────────────────────────────────────────────────────────────

// Configure stores value for the first declared parameter of name. It is
// used by every later Load that does not pass the parameter directly.
func (c *Container) Configure(name string, value any) error {
	b, ok, err := c.lookupOrProvide(name)
	if err != nil {
		return NewServiceError(name, "provide", err)
	}
	if !ok {
		return undefinedService("configure", name)
	}
	if len(b.Parameters) == 0 {
		return NewServiceError(name, "configure",
			fmt.Errorf("%w: service %q declares no parameters", ErrInvalidParameter, name))
	}
	return c.configure(b, b.Parameters[0], value)
}

// ConfigureParameter stores value for the named parameter of name.
func (c *Container) ConfigureParameter(name, param string, value any) error {
	b, ok, err := c.lookupOrProvide(name)
	if err != nil {
		return NewServiceError(name, "provide", err)
	}
	if !ok {
		return undefinedService("configure", name)
	}
	for _, p := range b.Parameters {
		if p.Name == param {
			return c.configure(b, p, value)
		}
	}
	return NewServiceError(name, "configure",
		fmt.Errorf("%w: service %q declares no parameter %q", ErrInvalidParameter, name, param))
}

func (c *Container) configure(b Binding, p Parameter, value any) error {
	if !p.Validate(value) {
		return invalidParameter("configure", b.Name, p.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configured[b.Name] == nil {
		c.configured[b.Name] = make(map[string]any)
	}
	c.configured[b.Name][p.Name] = value
	return nil
}

// Configured returns the value configured for a service parameter.
func (c *Container) Configured(name, param string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.configured[name][param]
	return v, ok
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Load resolves name into a fully wired instance. params are positional
// values for the binding's declared parameters; a missing or nil argument
// falls back to the configured value.
//
// Nothing a Load produces is visible until the whole graph is wired: on
// failure no singleton is cached and no listener is registered.
func (c *Container) Load(name string, params ...any) (any, error) {
	res := newResolution()
	instance, err := c.load(res, name, nil, params)
	if err != nil {
		return nil, err
	}
	c.commit(res)
	return instance, nil
}

// MustLoad is like Load but panics on error.
func (c *Container) MustLoad(name string, params ...any) any {
	instance, err := c.Load(name, params...)
	if err != nil {
		panic(err)
	}
	return instance
}

// resolution collects what one top-level Load produced until it commits.
type resolution struct {
	singletons map[string]any
	listeners  map[string][]listener
	events     []string // listener events in wiring order
	loaded     []loaded
}

type loaded struct {
	name     string
	instance any
	depth    int
}

func newResolution() *resolution {
	return &resolution{
		singletons: make(map[string]any),
		listeners:  make(map[string][]listener),
	}
}

// commit publishes res: singletons are cached, listeners registered, and
// AfterLoading callbacks fired in construction order.
func (c *Container) commit(res *resolution) {
	c.mu.Lock()
	for _, event := range res.events {
		c.listeners[event] = append(c.listeners[event], res.listeners[event]...)
		res.listeners[event] = nil
	}
	for name, instance := range res.singletons {
		c.instances[name] = instance
	}
	callbacks := c.afterLoading
	c.mu.Unlock()

	for _, l := range res.loaded {
		c.logger.Debug("service loaded", zap.String("service", l.name), zap.Int("depth", l.depth))
		for _, cb := range callbacks {
			cb(l.name, l.instance)
		}
	}
}

// load resolves name into res; path holds the services currently being
// resolved by this call and detects cycles.
func (c *Container) load(res *resolution, name string, path []string, params []any) (any, error) {
	if pending, ok := res.singletons[name]; ok {
		return pending, nil
	}
	c.mu.RLock()
	cached, ok := c.instances[name]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	b, ok, err := c.lookupOrProvide(name)
	if err != nil {
		return nil, NewServiceError(name, "provide", err)
	}
	if !ok {
		return nil, undefinedService("load", name)
	}

	for _, active := range path {
		if active == name {
			return nil, NewServiceError(name, "load", newCycleError(path, name))
		}
	}
	path = append(path, name)

	values, err := c.parameterValues(b, params)
	if err != nil {
		return nil, err
	}

	instance := b.Service()
	if instance == nil {
		return nil, NewServiceError(name, "construct", errors.New("constructor returned nil"))
	}

	for _, dep := range b.Requires {
		resolved, err := c.load(res, dep, path, nil)
		if err != nil {
			return nil, err
		}
		if err := Assign(instance, dep, resolved); err != nil {
			return nil, NewServiceError(name, "inject", err)
		}
	}

	for _, p := range b.Parameters {
		value, ok := values[p.Name]
		if !ok {
			continue
		}
		if err := Assign(instance, p.Name, value); err != nil {
			return nil, NewServiceError(name, "inject", err)
		}
	}

	for _, event := range b.EventSource {
		if err := Assign(instance, NotifierSlot(event), c.notifier(event)); err != nil {
			return nil, NewServiceError(name, "inject", err)
		}
	}

	for _, event := range b.EventListener {
		if len(res.listeners[event]) == 0 {
			res.events = append(res.events, event)
		}
		res.listeners[event] = append(res.listeners[event], listener{
			service:  name,
			instance: instance,
			handler:  b.On[event],
		})
	}
	if b.Singleton {
		res.singletons[name] = instance
	}
	res.loaded = append(res.loaded, loaded{name: name, instance: instance, depth: len(path) - 1})
	return instance, nil
}

func (c *Container) lookupOrProvide(name string) (Binding, bool, error) {
	if b, ok := c.registry.Lookup(name); ok {
		return b, true, nil
	}
	c.mu.RLock()
	missing := c.missing
	c.mu.RUnlock()
	if missing == nil {
		return Binding{}, false, nil
	}
	provided, err := missing(name)
	if err != nil || !provided {
		return Binding{}, false, err
	}
	b, ok := c.registry.Lookup(name)
	return b, ok, nil
}

// parameterValues picks, validates and returns the value of every declared
// parameter that has one.
func (c *Container) parameterValues(b Binding, params []any) (map[string]any, error) {
	values := make(map[string]any, len(b.Parameters))
	for i, p := range b.Parameters {
		var value any
		if i < len(params) {
			value = params[i]
		}
		if value == nil {
			configured, ok := c.Configured(b.Name, p.Name)
			if !ok {
				continue
			}
			value = configured
		}
		if !p.Validate(value) {
			return nil, invalidParameter("load", b.Name, p.Name)
		}
		values[p.Name] = value
	}
	return values, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// Binding returns the binding for name, registering its deferred provider
// first when needed.
func (c *Container) Binding(name string) (Binding, error) {
	b, ok, err := c.lookupOrProvide(name)
	if err != nil {
		return Binding{}, NewServiceError(name, "provide", err)
	}
	if !ok {
		return Binding{}, undefinedService("lookup", name)
	}
	return b, nil
}

// Registry returns the binding registry the container resolves from.
func (c *Container) Registry() *Registry { return c.registry }

// Lookup returns the binding for name.
func (c *Container) Lookup(name string) (Binding, bool) { return c.registry.Lookup(name) }

// LookupByService returns the binding whose constructor is service.
func (c *Container) LookupByService(service Constructor) (Binding, error) {
	return c.registry.LookupByService(service)
}

// Names returns registered service names in registration order.
func (c *Container) Names() []string { return c.registry.Names() }

// Bound reports whether name has a binding or a pre-bound instance.
func (c *Container) Bound(name string) bool {
	if _, ok := c.registry.Lookup(name); ok {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prebound[name]
}

// Resolved reports whether name has a cached singleton or pre-bound
// instance.
func (c *Container) Resolved(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[name]
	return ok
}

// Instance returns the cached singleton or pre-bound instance of name
// without resolving anything.
func (c *Container) Instance(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.instances[name]
	return v, ok
}

// AfterLoading registers a callback fired after a service is constructed
// and wired. Cached instances do not fire it.
func (c *Container) AfterLoading(cb func(name string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterLoading = append(c.afterLoading, cb)
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve loads name and type-asserts the result.
//
//	foo, err := container.Resolve[*Foo](c, "_foo")
func Resolve[T any](c *Container, name string, params ...any) (T, error) {
	var zero T
	instance, err := c.Load(name, params...)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, NewServiceError(name, "resolve", fmt.Errorf("resolved to %T, not %s", instance, reflect.TypeOf((*T)(nil)).Elem()))
	}
	return typed, nil
}
