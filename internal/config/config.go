// Package config loads and validates the trust broker's configuration from
// CLI flags, environment variables, and a free-form key/value dictionary
// passed to agent factories, following the CLI contract in the external
// interfaces section.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/trustbrokerd/trustbroker/internal/store"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
)

// LocalAgentKind selects which terminal agent answers a cache miss locally.
type LocalAgentKind string

const (
	// LocalAgentMir delegates to the prompt UI (internal/prompt.PromptAgent).
	LocalAgentMir LocalAgentKind = "MirAgent"
	// LocalAgentTerminal is a stub that always grants; useful for headless
	// development and integration tests.
	LocalAgentTerminal LocalAgentKind = "TerminalAgent"
)

// RemoteAgentKind selects the remote transport implementation.
type RemoteAgentKind string

// RemoteAgentUnixDomainSocket is currently the only supported transport.
const RemoteAgentUnixDomainSocket RemoteAgentKind = "UnixDomainSocketRemoteAgent"

// Config holds the fields common to the broker daemon and the connector:
// neither one drives a local agent by itself, so LocalAgent lives only on
// ConnectorConfig below, which is the CLI that actually consults one.
type Config struct {
	// ForService names the host service this broker instance answers
	// decisions for; it also selects the store's database file.
	ForService string `mapstructure:"for-service" validate:"required"`

	// RemoteAgent selects the remote transport the broker exposes to
	// connector processes.
	RemoteAgent RemoteAgentKind `mapstructure:"remote-agent" validate:"required,oneof=UnixDomainSocketRemoteAgent"`

	// TrustedMirSocket is the filesystem path the listener binds to.
	TrustedMirSocket string `mapstructure:"trusted-mir-socket" validate:"required"`

	// Endpoint is the unix socket path the daemon binds the
	// store-exposure endpoint to.
	Endpoint string `mapstructure:"endpoint"`

	// DescriptionPattern is a format string with a %1$s placeholder for
	// the application id, shown to the user by the prompt UI.
	DescriptionPattern string `mapstructure:"description-pattern" validate:"required"`

	// Store configures the persistent decision cache.
	Store store.Config `mapstructure:"store"`

	// WhitelistIDsFile, if set, is hot-reloaded via fsnotify and its
	// contents (one application id per line) become the whitelist
	// predicate's configured id set.
	WhitelistIDsFile string `mapstructure:"whitelist-ids-file"`

	// AdminHTTP configures the optional localhost diagnostic surface.
	AdminHTTP AdminHTTPConfig `mapstructure:"admin-http"`

	// WorkerPoolSize is the runtime's fixed worker pool size.
	WorkerPoolSize int `mapstructure:"worker-pool-size" validate:"omitempty,gt=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"omitempty,gt=0"`
}

// ConnectorConfig is the connector CLI's configuration: the fields common
// to both binaries, plus LocalAgent, the terminal agent the connector
// consults on a cache miss. The daemon never reaches this field: it
// forwards decision requests to whichever connector is registered for
// the caller's uid and never builds an agent chain itself.
type ConnectorConfig struct {
	Config `mapstructure:",squash"`

	// LocalAgent selects the terminal agent consulted on a cache miss.
	LocalAgent LocalAgentKind `mapstructure:"local-agent" validate:"required,oneof=MirAgent TerminalAgent"`
}

// AdminHTTPConfig configures the chi-based admin/diagnostic HTTP surface.
type AdminHTTPConfig struct {
	// Enabled turns the surface on. Off by default.
	Enabled bool `mapstructure:"enabled"`
	// Addr is the listen address; always bound to localhost regardless
	// of what's configured here (only the port is honored).
	Addr string `mapstructure:"addr"`
	// AuthSecret, if set, requires an HS256 bearer token signed with it
	// on every route except /healthz. Optional: the surface is
	// localhost-only by default, this is a second layer for operators
	// who put it behind a reverse proxy.
	AuthSecret string `mapstructure:"auth-secret"`
}

// DefaultWorkerPoolSize matches the runtime's default fixed pool size.
const DefaultWorkerPoolSize = 2

// DefaultShutdownTimeout bounds how long graceful shutdown waits for
// in-flight work before the process exits anyway.
const DefaultShutdownTimeout = 10 * time.Second

// Load builds the daemon's Config from CLI flags (already bound into v),
// environment variables, and defaults, then validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := unmarshal(v, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConnector builds the connector's ConnectorConfig the same way Load
// does, additionally requiring and validating LocalAgent.
func LoadConnector(v *viper.Viper) (*ConnectorConfig, error) {
	var cfg ConnectorConfig
	if err := unmarshal(v, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg.Config)
	if err := ValidateConnector(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func unmarshal(v *viper.Viper, out interface{}) error {
	v.SetEnvPrefix("TRUSTBROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(out, viper.DecodeHook(hook)); err != nil {
		return fmt.Errorf("%w: unmarshaling configuration: %v", trusterr.ErrConfiguration, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Store.ServiceName == "" {
		cfg.Store.ServiceName = cfg.ForService
	}
	cfg.Store.ApplyDefaults()
}

// Validate checks cfg's struct tags and the description pattern's
// placeholder, wrapping every failure as trusterr.ErrConfiguration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", trusterr.ErrConfiguration, err)
	}
	return validateCommon(cfg)
}

// ValidateConnector validates cfg's struct tags (including the
// connector-only LocalAgent field) plus the shared store/description
// checks Validate runs for the daemon.
func ValidateConnector(cfg *ConnectorConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", trusterr.ErrConfiguration, err)
	}
	return validateCommon(&cfg.Config)
}

func validateCommon(cfg *Config) error {
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	return validateDescriptionPattern(cfg.DescriptionPattern)
}

func validateDescriptionPattern(pattern string) error {
	if !strings.Contains(pattern, "%1$s") {
		return fmt.Errorf("%w: description-pattern %q has no %%1$s placeholder", trusterr.ErrConfiguration, pattern)
	}
	if strings.Contains(strings.ReplaceAll(pattern, "%1$s", ""), "%") {
		return fmt.Errorf("%w: description-pattern %q has a placeholder other than %%1$s", trusterr.ErrConfiguration, pattern)
	}
	return nil
}
