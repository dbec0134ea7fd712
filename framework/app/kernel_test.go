package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Env: "testing", Port: "0"},
		Log: config.LogConfig{Level: "error"},
	}
}

func build(t *testing.T, cfg *config.Config) *app.Application {
	t.Helper()
	a, err := app.Build(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

type greeter struct{ container.Slots }

type greeterProvider struct{ container.BaseProvider }

func (p *greeterProvider) Register(c *container.Container) error {
	return c.Register(container.Binding{
		Name:       "greeter",
		Service:    func() any { return &greeter{} },
		Requires:   []string{"config"},
		Parameters: []container.Parameter{{Name: "greeting", Rules: "required|min:2"}},
		Singleton:  true,
	})
}

func TestBuild_BindsFrameworkServices(t *testing.T) {
	cfg := testConfig()
	a := build(t, cfg)

	got, err := container.Resolve[*config.Config](a.Container, "config")
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	logger, err := container.Resolve[*zap.Logger](a.Container, "logger")
	require.NoError(t, err)
	assert.Same(t, a.Logger, logger)

	assert.Equal(t, []string{"config", "logger"}, a.Names())
	assert.True(t, a.IsTesting())
	assert.False(t, a.IsProduction())
}

func TestBuild_BuildsLoggerFromConfig(t *testing.T) {
	a, err := app.Build(testConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Logger)
}

func TestBoot_AppliesParametersToUserProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parameters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeter:\n  greeting: hello\n"), 0o600))

	cfg := testConfig()
	cfg.IOC.ParametersFile = path
	a := build(t, cfg)
	require.NoError(t, a.RegisterProvider(&greeterProvider{}))
	require.NoError(t, a.Boot())

	g, err := container.Resolve[*greeter](a.Container, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.String("greeting"))
	assert.Same(t, cfg, g.Slot("config"))
}

func TestInspector_ServesApplicationGraph(t *testing.T) {
	a := build(t, testConfig())
	require.NoError(t, a.RegisterProvider(&greeterProvider{}))

	inspector, err := a.Inspector()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	inspector.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "greeter\n    config\nlogger\ninspector\n", rec.Body.String())
}

func TestRun_StopsWithContext(t *testing.T) {
	a := build(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))
	assert.True(t, a.Providers.Booted())
}

func TestRun_LogsEnvironment(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := testConfig()
	cfg.App.Debug = true
	a, err := app.Build(cfg, zap.New(core))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))

	entries := logs.FilterMessage("inspector listening").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "testing", fields["env"])
	assert.Equal(t, true, fields["debug"])
	assert.Equal(t, a.Version(), fields["version"])
}
