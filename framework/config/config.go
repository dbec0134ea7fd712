package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/validation"
)

// Config is the central typed configuration struct.
type Config struct {
	App AppConfig
	Log LogConfig
	IOC IOCConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level     string // debug | info | warn | error
	File      string // empty logs to stderr
	MaxSizeMB int
}

type IOCConfig struct {
	// ParametersFile is a YAML document of per-service parameter values.
	ParametersFile string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "go-ioc"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:     env("LOG_LEVEL", "info"),
			File:      env("LOG_FILE", ""),
			MaxSizeMB: GetInt("LOG_MAX_SIZE_MB", 100),
		},
		IOC: IOCConfig{
			ParametersFile: env("IOC_PARAMETERS_FILE", ""),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── Parameters ──────────────────────────────────────────────────────────────

// Parameters maps a service name to its parameter values:
//
//	_mailer:
//	  host: smtp.local
//	  port: 2525
type Parameters map[string]map[string]any

// LoadParameters reads a YAML parameters file.
func LoadParameters(path string) (Parameters, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}
	params := Parameters{}
	if err := yaml.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("parse parameters %s: %w", path, err)
	}
	return params, nil
}

// ApplyParameters configures every value in params on c, in service then
// parameter name order. A service's values are first checked together
// against its parameters' rules, so rules may compare sibling parameters
// (same, different, confirmed); a service with a failing rule is skipped
// as a whole. Every service is attempted; failures are combined.
func ApplyParameters(c *container.Container, params Parameters) error {
	var errs error
	for _, service := range sortedKeys(params) {
		values := params[service]
		b, err := c.Binding(service)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := checkRules(b, values); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, param := range sortedKeys(values) {
			errs = multierr.Append(errs, c.ConfigureParameter(service, param, values[param]))
		}
	}
	return errs
}

// checkRules validates the supplied values of b's parameters as one input
// set. Parameters absent from values are left to Load.
func checkRules(b container.Binding, values map[string]any) error {
	rules := validation.Rules{}
	for _, p := range b.Parameters {
		if _, ok := values[p.Name]; ok && p.Rules != "" {
			rules[p.Name] = p.Rules
		}
	}

	v := validation.Make(values, rules)
	if v.Passes() {
		return nil
	}
	var errs error
	bag := v.Errors()
	for _, field := range sortedKeys(bag.Bag) {
		errs = multierr.Append(errs, container.NewServiceError(b.Name, "configure",
			fmt.Errorf("%w %q for service %q: %s", container.ErrInvalidParameter, field, b.Name, bag.First(field))))
	}
	return errs
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
