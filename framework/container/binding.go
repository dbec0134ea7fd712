package container

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"github.com/km-arc/go-ioc/framework/validation"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Constructor builds a bare, unwired instance of a service.
type Constructor func() any

// Handler receives an event on behalf of a listener instance.
type Handler func(instance any, args ...any) error

// Notifier is assigned to event sources under the slot "_notify<Event>".
// Calling it dispatches to every listener of the event.
type Notifier func(args ...any) error

// HandlerFor adapts a typed method expression to a Handler.
//
//	On: map[string]container.Handler{
//	    "Initialize": container.HandlerFor((*Listener).OnInitialize),
//	}
func HandlerFor[T any](fn func(T, ...any) error) Handler {
	return func(instance any, args ...any) error {
		typed, ok := instance.(T)
		if !ok {
			return fmt.Errorf("container: handler expects %s, got %T", reflect.TypeOf((*T)(nil)).Elem(), instance)
		}
		return fn(typed, args...)
	}
}

// Parameter declares a configuration value a service receives on load.
type Parameter struct {
	Name string

	// Validator, when set, must accept the value.
	Validator func(value any) bool

	// Rules is an optional pipe-separated rule string checked by the
	// validation package, e.g. "required|integer|gte:1".
	Rules string
}

// Param declares a parameter without validation.
func Param(name string) Parameter { return Parameter{Name: name} }

// Validate reports whether value is acceptable for p. A parameter without a
// validator or rules accepts everything.
func (p Parameter) Validate(value any) bool {
	if p.Validator != nil && !p.Validator(value) {
		return false
	}
	if p.Rules != "" && validation.Value(p.Name, value, p.Rules) != nil {
		return false
	}
	return true
}

// Binding is the recipe for constructing and wiring one named service.
type Binding struct {
	Name    string
	Service Constructor

	// Requires lists dependency names in injection order; each resolved
	// dependency is assigned to the slot of the same name.
	Requires []string

	Parameters []Parameter
	Singleton  bool

	// EventSource lists events the service raises through "_notify<Event>".
	EventSource []string

	// EventListener lists events the service responds to. The handler for
	// each comes from On; events without a handler are skipped on dispatch.
	EventListener []string
	On            map[string]Handler
}

// listens reports whether b declares event as a listener event.
func (b Binding) listens(event string) bool {
	for _, e := range b.EventListener {
		if e == event {
			return true
		}
	}
	return false
}

func (b Binding) validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: Register must be called with string parameter 'name'", ErrRegistration)
	}
	if b.Service == nil {
		return fmt.Errorf("%w: Register must be called with function parameter 'service'", ErrRegistration)
	}
	for _, p := range b.Parameters {
		if p.Name == "" {
			return fmt.Errorf("%w: service %q declares a parameter without a name", ErrRegistration, b.Name)
		}
	}
	for event := range b.On {
		if !b.listens(event) {
			return fmt.Errorf("%w: service %q has a handler for undeclared event %q", ErrRegistration, b.Name, event)
		}
	}
	return nil
}

func (b Binding) clone() Binding {
	b.Requires = append([]string(nil), b.Requires...)
	b.Parameters = append([]Parameter(nil), b.Parameters...)
	b.EventSource = append([]string(nil), b.EventSource...)
	b.EventListener = append([]string(nil), b.EventListener...)
	if b.On != nil {
		on := make(map[string]Handler, len(b.On))
		for k, v := range b.On {
			on[k] = v
		}
		b.On = on
	}
	return b
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry stores bindings by name and remembers registration order.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register stores b. Registering an existing name replaces its binding and
// keeps its original position.
func (r *Registry) Register(b Binding) error {
	if err := b.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[b.Name]; !exists {
		r.order = append(r.order, b.Name)
	}
	r.bindings[b.Name] = b.clone()
	return nil
}

// Lookup returns the binding registered under name.
func (r *Registry) Lookup(name string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[name]
	return b, ok
}

// LookupByService returns the first binding, in registration order, whose
// constructor is service. Closures are told apart by value, so two
// closures from the same factory match only their own bindings; pass the
// func value that was registered, not a re-evaluated method value.
func (r *Registry) LookupByService(service Constructor) (Binding, error) {
	if service != nil {
		want := funcIdentity(service)

		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, name := range r.order {
			b := r.bindings[name]
			if funcIdentity(b.Service) == want {
				return b, nil
			}
		}
	}
	return Binding{}, fmt.Errorf("%w: no binding for constructor %s", ErrUnknownService, describe(service))
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Index returns the registration position of name, or -1.
func (r *Registry) Index(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// funcIdentity returns the func value's closure pointer. Unlike
// reflect.Value.Pointer, which yields the shared code pointer, it differs
// between closures created from one function literal.
func funcIdentity(fn Constructor) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&fn))
}

func describe(service Constructor) string {
	if service == nil {
		return "<nil>"
	}
	if fn := runtime.FuncForPC(reflect.ValueOf(service).Pointer()); fn != nil {
		return fn.Name()
	}
	return "<func>"
}
