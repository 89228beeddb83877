// Package config loads harness settings from defaults, an optional
// apiharness.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/filter"
	"github.com/studiowebux/apiharness/internal/oauth"
	"github.com/studiowebux/apiharness/internal/stresstest"
	"github.com/studiowebux/apiharness/internal/types"
)

const (
	// EnvEndpoint names the base URL of the API under test. Unset means skip.
	EnvEndpoint = "API_ENDPOINT"
	// EnvToken names the optional bearer token
	EnvToken = "API_TOKEN"
	// EnvPrefix prefixes every other environment override
	EnvPrefix = "APIHARNESS"

	// FileName is the config file looked up in the working directory
	FileName = "apiharness"

	DefaultUnitCommand    = "go test ./..."
	DefaultCleanupTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
)

// ScenarioSettings overrides one catalog scenario. Zero values keep the
// scenario defaults.
type ScenarioSettings struct {
	Requests         int           `mapstructure:"requests"`
	Workers          int           `mapstructure:"workers"`
	MaxMeanLatency   time.Duration `mapstructure:"max_mean_latency"`
	MaxSingleLatency time.Duration `mapstructure:"max_single_latency"`
}

// Settings is the resolved harness configuration
type Settings struct {
	Endpoint       string                      `mapstructure:"endpoint"`
	Token          string                      `mapstructure:"token"`
	Workers        int                         `mapstructure:"workers"`
	RequestTimeout time.Duration               `mapstructure:"request_timeout"`
	CleanupTimeout time.Duration               `mapstructure:"cleanup_timeout"`
	LogLevel       string                      `mapstructure:"log_level"`
	UnitCommand    string                      `mapstructure:"unit_command"`
	IDField        string                      `mapstructure:"id_field"`
	MetricsFile    string                      `mapstructure:"metrics_file"`
	TLS            types.TLSConfig             `mapstructure:"tls"`
	OAuth          oauth.Config                `mapstructure:"oauth"`
	Scenarios      map[string]ScenarioSettings `mapstructure:"scenarios"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "")
	v.SetDefault("token", "")
	v.SetDefault("workers", 0)
	v.SetDefault("request_timeout", executor.DefaultRequestTimeout)
	v.SetDefault("cleanup_timeout", DefaultCleanupTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("unit_command", DefaultUnitCommand)
	v.SetDefault("id_field", "userid")
	v.SetDefault("metrics_file", "")
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.ca_file", "")
	v.SetDefault("tls.insecure_skip_verify", false)
	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.scopes", []string{})
	v.SetDefault("oauth.audience", "")
}

// Load resolves settings. An empty path looks for apiharness.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The endpoint and token keep their conventional unprefixed names
	if err := v.BindEnv("endpoint", EnvEndpoint); err != nil {
		return nil, err
	}
	if err := v.BindEnv("token", EnvToken, EnvPrefix+"_TOKEN"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	settings.Endpoint = strings.TrimSpace(settings.Endpoint)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	if s.Workers < 0 || s.Workers > stresstest.MaxConcurrentConns {
		return fmt.Errorf("workers must be between 0 and %d", stresstest.MaxConcurrentConns)
	}
	if s.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	if s.CleanupTimeout < 0 {
		return fmt.Errorf("cleanup_timeout cannot be negative")
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", s.LogLevel, err)
	}
	if len(strings.Fields(s.UnitCommand)) == 0 {
		return fmt.Errorf("unit_command cannot be empty")
	}
	if !filter.IsValidJMESPath(s.IDField) {
		return fmt.Errorf("id_field %q is not a valid JMESPath expression", s.IDField)
	}
	if !s.OAuth.IsZero() {
		if err := s.OAuth.Validate(); err != nil {
			return err
		}
	}
	for name, sc := range s.Scenarios {
		if sc.Requests < 0 || sc.Workers < 0 || sc.MaxMeanLatency < 0 || sc.MaxSingleLatency < 0 {
			return fmt.Errorf("scenario %s: values cannot be negative", name)
		}
		if sc.Workers > stresstest.MaxConcurrentConns {
			return fmt.Errorf("scenario %s: workers cannot exceed %d", name, stresstest.MaxConcurrentConns)
		}
	}
	return nil
}

// HasEndpoint reports whether live suites can run
func (s *Settings) HasEndpoint() bool {
	return s.Endpoint != ""
}

// Scenario returns the overrides for a named scenario
func (s *Settings) Scenario(name string) ScenarioSettings {
	return s.Scenarios[name]
}

// ExecutorOptions maps the settings onto the HTTP client options
func (s *Settings) ExecutorOptions() executor.Options {
	opts := executor.Options{
		MaxConns:  s.PoolSize(),
		Timeout:   s.RequestTimeout,
		Token:     s.Token,
		UserAgent: "apiharness",
	}
	if !s.TLS.IsZero() {
		tls := s.TLS
		opts.TLSConfig = &tls
	}
	return opts
}

// PoolSize returns the largest worker count any scenario may run with, so the
// shared transport keeps one idle connection per worker
func (s *Settings) PoolSize() int {
	size := max(s.Workers, executor.DefaultMaxConns)
	for _, sc := range s.Scenarios {
		size = max(size, sc.Workers)
	}
	return size
}

// Level returns the parsed log level, defaulting to info
func (s *Settings) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
