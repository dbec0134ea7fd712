// Package container provides an IoC (Inversion of Control) container that
// maps service names to construction recipes, resolves dependency graphs on
// demand and brokers events between services.
//
// # Overview
//
// Every service is described by an explicit Binding: a constructor for the
// bare instance, the names of the services it requires, the parameters it is
// configured with, whether it is a singleton, and the events it raises or
// listens to. Nothing is discovered by reflection; the container only wires
// what a binding declares.
//
// # Bindings
//
//	c := container.New(container.WithLogger(logger))
//
//	c.Register(container.Binding{
//	    Name:    "_bar",
//	    Service: func() any { return &Bar{} },
//	})
//
//	c.Register(container.Binding{
//	    Name:       "_foo",
//	    Service:    func() any { return &Foo{} },
//	    Requires:   []string{"_bar"},
//	    Parameters: []container.Parameter{{Name: "_level", Rules: "required|integer"}},
//	    Singleton:  true,
//	})
//
//	// Pre-built value
//	c.RegisterInstance("clock", realClock{})
//
// # Slots
//
// Dependencies, parameters and notifiers are assigned to the new instance by
// slot name. A service either implements Assigner (embedding Slots does
// this) or exposes struct fields tagged with the slot name:
//
//	type Foo struct {
//	    Bar   *Bar `ioc:"_bar"`
//	    Level int  `ioc:"_level"`
//	}
//
// Scalar fields accept any value spf13/cast can convert, so a level
// configured as the string "3" lands in an int field as 3.
//
// # Resolving
//
//	raw, err := c.Load("_foo", 5)            // 5 → _level
//	foo, err := container.Resolve[*Foo](c, "_foo")
//
// Parameters come from the Load arguments first, then from Configure:
//
//	c.Configure("_foo", 5)                   // first declared parameter
//	c.ConfigureParameter("_foo", "_level", 5)
//
// A dependency cycle fails the load with a *CycleError instead of recursing.
//
// # Events
//
// A source declares the events it raises and receives a Notifier in the
// slot "_notify<Event>". A listener declares the events it handles and the
// Handler for each:
//
//	c.Register(container.Binding{
//	    Name:        "_source",
//	    Service:     func() any { return &Source{} },
//	    EventSource: []string{"Initialize"},
//	})
//	c.Register(container.Binding{
//	    Name:          "_listener",
//	    Service:       func() any { return &Listener{} },
//	    EventListener: []string{"Initialize"},
//	    On: map[string]container.Handler{
//	        "Initialize": container.HandlerFor((*Listener).OnInitialize),
//	    },
//	})
//
//	source.NotifyInitialize(1, 2, 3)         // via the _notifyInitialize slot
//	c.NotifyEvent("Initialize", 1, 2, 3)     // same dispatch
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Register(container.Binding{Name: "mailer", Service: newMailer})
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// Deferred providers (IsDeferred true) register only when one of the
// services they provide is first loaded or configured.
package container
