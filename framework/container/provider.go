package container

import "go.uber.org/zap"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the bindings of one feature.
//
// Register is called when the provider is added (or, for deferred
// providers, when one of its services is first loaded). Boot runs after all
// eager providers are registered, so it may load any service.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) error {
//	    return app.Register(container.Binding{
//	        Name:       "mailer",
//	        Service:    func() any { return &SMTPMailer{} },
//	        Parameters: []container.Parameter{{Name: "host", Rules: "required"}},
//	        Singleton:  true,
//	    })
//	}
type ServiceProvider interface {
	// Register adds bindings. Do not load services here.
	Register(app *Container) error

	// Boot is called after all eager providers are registered.
	Boot(app *Container) error

	// Provides lists the services a deferred provider registers.
	Provides() []string

	// IsDeferred reports whether Register waits until one of Provides() is
	// first loaded.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op implementation of Boot, Provides and
// IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one
// container, including deferred providers.
type ProviderRegistry struct {
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // service → provider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app. Loading a service
// owned by a deferred provider registers that provider first.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	r := &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
	}
	app.mu.Lock()
	app.missing = r.registerDeferred
	app.mu.Unlock()
	return r
}

// Register adds a provider and calls its Register method unless it is
// deferred. Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, name := range provider.Provides() {
			r.deferred[name] = provider
		}
		return nil
	}

	if err := provider.Register(r.app); err != nil {
		return err
	}
	r.eager = append(r.eager, provider)

	// Late providers boot immediately.
	if r.booted {
		return provider.Boot(r.app)
	}
	return nil
}

// registerDeferred registers the deferred provider owning name. It reports
// whether a provider was found.
func (r *ProviderRegistry) registerDeferred(name string) (bool, error) {
	provider, ok := r.deferred[name]
	if !ok {
		return false, nil
	}
	for _, n := range provider.Provides() {
		delete(r.deferred, n)
	}

	r.app.logger.Debug("registering deferred provider", zap.String("service", name))
	if err := provider.Register(r.app); err != nil {
		return false, err
	}
	if r.booted {
		if err := provider.Boot(r.app); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Boot calls Boot on every eager provider once.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.eager {
		if err := provider.Boot(r.app); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }

// Deferred returns the names still waiting on a deferred provider.
func (r *ProviderRegistry) Deferred() []string {
	names := make([]string, 0, len(r.deferred))
	for name := range r.deferred {
		names = append(names, name)
	}
	return names
}
