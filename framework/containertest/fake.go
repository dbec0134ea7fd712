// Package containertest loads a service from a container with its
// dependencies replaced by test doubles.
//
//	fake := containertest.New(c)
//	fake.Policy = containertest.MockPolicy
//
//	foo, err := fake.Load(NewFoo)            // _bar becomes a *Double
//	double, _ := fake.LoadTestDouble("_bar")
//
//	// keep _bar real, but its own dependencies are doubles
//	foo, err = fake.IncludeReal("_bar").Load(NewFoo)
//
// A double is assigned through the same slots as the real dependency, so
// services that want typed doubles register them first:
//
//	fake.RegisterInstance("_bar", &stubBar{})
package containertest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/km-arc/go-ioc/framework/container"
)

var (
	// ErrDuplicateTestDefinition is returned when a name already has a
	// registered test instance.
	ErrDuplicateTestDefinition = errors.New("service already has a test definition")

	// ErrUnexpectedCall is returned by MockPolicy behaviors.
	ErrUnexpectedCall = errors.New("unexpected call")

	// ErrUnknownMember is returned when a double is called with a member the
	// real service does not have.
	ErrUnknownMember = errors.New("unknown member")
)

// Behavior is what a double does when one of its members is called.
type Behavior func(args ...any) (any, error)

// Policy builds the behavior of member on the double of dependency.
type Policy func(dependency, member string) Behavior

// StubPolicy makes every member a no-op.
func StubPolicy(_, _ string) Behavior {
	return func(...any) (any, error) { return nil, nil }
}

// MockPolicy makes every member fail with ErrUnexpectedCall.
func MockPolicy(dependency, member string) Behavior {
	return func(args ...any) (any, error) {
		return nil, fmt.Errorf("%w: Unexpected call to %s.%s() with %d parameters",
			ErrUnexpectedCall, dependency, member, len(args))
	}
}

// Fake substitutes test doubles for the dependencies of services bound in a
// container. The container itself is never modified.
type Fake struct {
	// Policy decides the behavior of newly created doubles. Defaults to
	// StubPolicy.
	Policy Policy

	ioc       *container.Container
	preloaded map[string]any
	included  map[string]bool
}

// New creates a Fake over c.
func New(c *container.Container) *Fake {
	return &Fake{
		Policy:    StubPolicy,
		ioc:       c,
		preloaded: make(map[string]any),
		included:  make(map[string]bool),
	}
}

// Load constructs the service bound to service. Each dependency is a test
// double unless included through IncludeReal; params are assigned
// positionally without validation; event sources get policy notifiers.
func (f *Fake) Load(service container.Constructor, params ...any) (any, error) {
	b, err := f.ioc.LookupByService(service)
	if err != nil {
		return nil, err
	}

	result := b.Service()

	for _, dep := range b.Requires {
		var value any
		if f.included[dep] {
			binding, ok := f.ioc.Lookup(dep)
			if !ok {
				return nil, container.NewServiceError(dep, "fake load", container.ErrUnknownService)
			}
			value, err = f.Load(binding.Service)
		} else {
			value, err = f.LoadTestDouble(dep)
		}
		if err != nil {
			return nil, err
		}
		if err := container.Assign(result, dep, value); err != nil {
			return nil, container.NewServiceError(b.Name, "fake inject", err)
		}
	}

	for i, p := range b.Parameters {
		if i >= len(params) || params[i] == nil {
			continue
		}
		if err := container.Assign(result, p.Name, params[i]); err != nil {
			return nil, container.NewServiceError(b.Name, "fake inject", err)
		}
	}

	for _, event := range b.EventSource {
		slot := container.NotifierSlot(event)
		behavior := f.policy()(b.Name, slot)
		var notify container.Notifier = func(args ...any) error {
			_, err := behavior(args...)
			return err
		}
		if err := container.Assign(result, slot, notify); err != nil {
			return nil, container.NewServiceError(b.Name, "fake inject", err)
		}
	}

	return result, nil
}

// LoadTestDouble returns the double used for name: a registered instance,
// or a *Double cloned from the container's singleton or a fresh instance.
// The same double is returned on every call.
func (f *Fake) LoadTestDouble(name string) (any, error) {
	if double, ok := f.preloaded[name]; ok {
		return double, nil
	}

	source, ok := f.ioc.Instance(name)
	if !ok {
		b, bound := f.ioc.Lookup(name)
		if !bound {
			return nil, container.NewServiceError(name, "fake load",
				fmt.Errorf("%w: no binding to build a test double from", container.ErrUnknownService))
		}
		source = b.Service()
	}

	double := f.CloneAsTestDouble(source, name)
	f.preloaded[name] = double
	return double, nil
}

// LoadTestDoubleOf is LoadTestDouble for the service bound to service.
func (f *Fake) LoadTestDoubleOf(service container.Constructor) (any, error) {
	b, err := f.ioc.LookupByService(service)
	if err != nil {
		return nil, err
	}
	return f.LoadTestDouble(b.Name)
}

// RegisterInstance makes instance the double for name.
func (f *Fake) RegisterInstance(name string, instance any) error {
	if _, ok := f.preloaded[name]; ok {
		return container.NewServiceError(name, "register test instance", ErrDuplicateTestDefinition)
	}
	f.preloaded[name] = instance
	return nil
}

// IncludeReal lists dependencies to load for real (themselves faked) in the
// next Load of the returned Inclusion.
func (f *Fake) IncludeReal(names ...string) *Inclusion {
	return &Inclusion{fake: f, names: names}
}

// Inclusion is a pending Load with real dependencies.
type Inclusion struct {
	fake  *Fake
	names []string
}

// Load runs Fake.Load with the included dependencies.
func (i *Inclusion) Load(service container.Constructor, params ...any) (any, error) {
	for _, name := range i.names {
		i.fake.included[name] = true
	}
	defer func() { i.fake.included = make(map[string]bool) }()
	return i.fake.Load(service, params...)
}

// CloneAsTestDouble builds a Double with one member per exported method of
// obj, excluding methods promoted from container.Slots.
func (f *Fake) CloneAsTestDouble(obj any, name string) *Double {
	d := &Double{Name: name, behaviors: make(map[string]Behavior)}
	policy := f.policy()

	t := reflect.TypeOf(obj)
	if t == nil {
		return d
	}
	for i := 0; i < t.NumMethod(); i++ {
		member := t.Method(i).Name
		if slotsMethods[member] {
			continue
		}
		d.behaviors[member] = policy(name, member)
	}
	return d
}

func (f *Fake) policy() Policy {
	if f.Policy == nil {
		return StubPolicy
	}
	return f.Policy
}

var slotsMethods = func() map[string]bool {
	t := reflect.TypeOf(&container.Slots{})
	m := make(map[string]bool, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		m[t.Method(i).Name] = true
	}
	return m
}()

// ── Double ────────────────────────────────────────────────────────────────────

// Call is one recorded invocation of a double.
type Call struct {
	Member string
	Args   []any
}

// Double stands in for a service. Its members mirror the real service's
// exported methods.
type Double struct {
	Name      string
	behaviors map[string]Behavior
	calls     []Call
}

// Members returns the double's member names, sorted.
func (d *Double) Members() []string {
	members := make([]string, 0, len(d.behaviors))
	for m := range d.behaviors {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

// Call invokes member, recording the call.
func (d *Double) Call(member string, args ...any) (any, error) {
	behavior, ok := d.behaviors[member]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMember, d.Name, member)
	}
	d.calls = append(d.calls, Call{Member: member, Args: args})
	return behavior(args...)
}

// On replaces the behavior of member.
func (d *Double) On(member string, behavior Behavior) {
	d.behaviors[member] = behavior
}

// Calls returns the recorded calls in order.
func (d *Double) Calls() []Call {
	return append([]Call(nil), d.calls...)
}
