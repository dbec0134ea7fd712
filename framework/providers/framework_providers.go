package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/inspect"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration and, on boot,
// applies the parameters file named by IOC_PARAMETERS_FILE.
//
// Bound services:
//   - "config"  → *config.Config
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg := p.Config
	return app.Register(container.Binding{
		Name:      "config",
		Service:   func() any { return cfg },
		Singleton: true,
	})
}

// Boot runs after every eager provider registered its bindings, so the
// parameters file may configure any of them.
func (p *ConfigServiceProvider) Boot(app *container.Container) error {
	if p.Config.IOC.ParametersFile == "" {
		return nil
	}
	params, err := config.LoadParameters(p.Config.IOC.ParametersFile)
	if err != nil {
		return err
	}
	return config.ApplyParameters(app, params)
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider binds the application logger.
//
// Bound services:
//   - "logger"  → *zap.Logger
type LogServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LogServiceProvider) Register(app *container.Container) error {
	logger := p.Logger
	return app.Register(container.Binding{
		Name:      "logger",
		Service:   func() any { return logger },
		Singleton: true,
	})
}

// ── InspectorServiceProvider ──────────────────────────────────────────────────

// InspectorServiceProvider is deferred: the inspector is only bound once
// something loads it.
//
// Bound services:
//   - "inspector"  → *inspect.Inspector
type InspectorServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *InspectorServiceProvider) Register(app *container.Container) error {
	logger := p.Logger
	return app.Register(container.Binding{
		Name:      "inspector",
		Service:   func() any { return inspect.New(app, logger) },
		Singleton: true,
	})
}

func (p *InspectorServiceProvider) Provides() []string { return []string{"inspector"} }
func (p *InspectorServiceProvider) IsDeferred() bool   { return true }
