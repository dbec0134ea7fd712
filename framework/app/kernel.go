package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/inspect"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/providers"
)

// Application is the top-level application container. It embeds the IoC
// Container so user code can call app.Register(), app.Load() directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
	Config    *config.Config
	Logger    *zap.Logger
}

// New loads configuration from the environment and assembles the
// application.
func New(envFiles ...string) (*Application, error) {
	return Build(config.Load(envFiles...), nil)
}

// Build assembles the application from cfg. A nil logger is built from
// cfg.Log.
func Build(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		func(cfg *config.Config) *zap.Logger {
			if logger != nil {
				return logger
			}
			return logging.New(cfg)
		},
		func(logger *zap.Logger) *container.Container {
			return container.New(container.WithLogger(logger.Named("ioc")))
		},
		container.NewProviderRegistry,
		newApplication,
	}
	for _, constructor := range constructors {
		if err := d.Provide(constructor); err != nil {
			return nil, err
		}
	}

	var app *Application
	err := d.Invoke(func(a *Application) { app = a })
	if err != nil {
		return nil, err
	}
	return app, nil
}

type kernel struct {
	dig.In

	Config    *config.Config
	Logger    *zap.Logger
	Container *container.Container
	Providers *container.ProviderRegistry
}

// newApplication registers the framework providers in order: config,
// logging, then the deferred inspector.
func newApplication(k kernel) (*Application, error) {
	app := &Application{
		Container: k.Container,
		Providers: k.Providers,
		Config:    k.Config,
		Logger:    k.Logger,
	}

	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: k.Config},
		&providers.LogServiceProvider{Logger: k.Logger},
		&providers.InspectorServiceProvider{Logger: k.Logger},
	} {
		if err := app.RegisterProvider(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// RegisterProvider adds a ServiceProvider to the application.
func (a *Application) RegisterProvider(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Inspector loads the HTTP inspector.
func (a *Application) Inspector() (*inspect.Inspector, error) {
	return container.Resolve[*inspect.Inspector](a.Container, "inspector")
}

// Run boots the application (if needed) and serves the inspector on
// APP_PORT until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}
	inspector, err := a.Inspector()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + a.Config.App.Port,
		Handler:           inspector,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("inspector listening",
			zap.String("app", a.Config.App.Name),
			zap.String("addr", "http://localhost"+server.Addr),
			zap.String("env", a.Environment()),
			zap.Bool("debug", a.IsDebug()),
			zap.String("version", a.Version()),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.Logger.Info("inspector stopped")
	return nil
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config.App.Env }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
