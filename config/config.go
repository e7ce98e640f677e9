package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"remit-scout/quotes/provider"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	defaultListenAddr      = "0.0.0.0:7272"
	defaultSrvWriteTimeout = 15 * time.Second
	defaultSrvReadTimeout  = 15 * time.Second
	defaultProviderTimeout = 30 * time.Second
	defaultHistoryDb       = "quotes.db"
	defaultMaxAmount       = "1000000"
	defaultRateLimit       = 10.0
	defaultRateBurst       = 20

	defaultQuoteTTL    = 1800
	defaultCorridorTTL = 43200
	defaultProviderTTL = 86400
	defaultJitterMax   = 300

	// Environment override names; values in seconds unless noted.
	envQuoteTTL        = "QUOTE_CACHE_TTL"
	envCorridorTTL     = "CORRIDOR_CACHE_TTL"
	envProviderTTL     = "PROVIDER_CACHE_TTL"
	envJitterMax       = "JITTER_MAX_SECONDS"
	envProviderTimeout = "PER_PROVIDER_TIMEOUT_MS"
	envMaxWorkers      = "AGGREGATOR_MAX_WORKERS"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")

	// SupportedProviders defines a lookup table of all the supported
	// remittance providers.
	SupportedProviders = map[provider.Name]struct{}{
		provider.ProviderRemitbee:   {},
		provider.ProviderRemitGuru:  {},
		provider.ProviderWise:       {},
		provider.ProviderXE:         {},
		provider.ProviderRia:        {},
		provider.ProviderKoronaPay:  {},
		provider.ProviderPaysend:    {},
		provider.ProviderWireBarley: {},
		provider.ProviderMukuru:     {},
		provider.ProviderRewire:     {},
		provider.ProviderOrbitRemit: {},
		provider.ProviderDahabshiil: {},
		provider.ProviderAlAnsari:   {},
		provider.ProviderIntermex:   {},
		provider.ProviderPlacid:     {},
		provider.ProviderTransferGo: {},
		provider.ProviderSendwave:   {},
		provider.ProviderMock:       {},
	}

	// sessionProviders need browser-captured credentials and stay disabled
	// unless a config entry enables them explicitly.
	sessionProviders = map[provider.Name]struct{}{
		provider.ProviderPaysend:    {},
		provider.ProviderWireBarley: {},
		provider.ProviderIntermex:   {},
	}
)

type (
	// Config defines all necessary quote aggregator configuration parameters.
	Config struct {
		Server     Server             `toml:"server"`
		Cache      Cache              `toml:"cache"`
		Aggregator Aggregator         `toml:"aggregator"`
		Providers  []ProviderConfig   `toml:"providers" validate:"dive"`
		Telemetry  Telemetry          `toml:"telemetry"`
		HistoryDb  string             `toml:"history_db"`
	}

	// Server defines the API server configuration.
	Server struct {
		ListenAddr     string   `toml:"listen_addr"`
		WriteTimeout   string   `toml:"write_timeout"`
		ReadTimeout    string   `toml:"read_timeout"`
		VerboseCORS    bool     `toml:"verbose_cors"`
		AllowedOrigins []string `toml:"allowed_origins"`

		// RateLimit is requests per second per process; RateBurst the burst
		// allowance. Zero RateLimit disables client-facing limiting.
		RateLimit float64 `toml:"rate_limit"`
		RateBurst int     `toml:"rate_burst"`
	}

	// Cache selects the cache backend and its TTLs, all in seconds.
	Cache struct {
		Backend       string `toml:"backend" validate:"omitempty,oneof=memory redis"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       int    `toml:"redis_db"`

		QuoteTTL         int `toml:"quote_ttl"`
		CorridorTTL      int `toml:"corridor_ttl"`
		ProviderTTL      int `toml:"provider_ttl"`
		JitterMaxSeconds int `toml:"jitter_max_seconds"`
	}

	// Aggregator tunes the fan-out.
	Aggregator struct {
		ProviderTimeout string `toml:"provider_timeout"`
		MaxWorkers      int    `toml:"max_workers"`
		MaxAmount       string `toml:"max_amount"`
	}

	// ProviderConfig enables a provider and optionally overrides its REST
	// host.
	ProviderConfig struct {
		Name    provider.Name `toml:"name" validate:"required"`
		Rest    string        `toml:"rest"`
		Enabled *bool         `toml:"enabled"`
	}

	// Telemetry defines the configuration options for application telemetry.
	Telemetry struct {
		ServiceName string `toml:"service_name" mapstructure:"service-name"`

		// Enabled enables the application telemetry functionality. When
		// enabled, an in-memory sink is installed by default.
		Enabled bool `toml:"enabled" mapstructure:"enabled"`

		// PrometheusRetentionTime, when positive, enables a Prometheus
		// metrics sink. It defines the retention duration in seconds.
		PrometheusRetentionTime int64 `toml:"prometheus_retention" mapstructure:"prometheus-retention-time"`
	}
)

// providerValidation is custom validation for the ProviderConfig struct.
func providerValidation(sl validator.StructLevel) {
	pc := sl.Current().Interface().(ProviderConfig)

	if len(pc.Name) < 1 {
		sl.ReportError(pc, "name", "Name", "name is empty", "")
	}
	if _, ok := SupportedProviders[pc.Name]; !ok {
		sl.ReportError(pc.Name, "name", "Name", "unsupportedProvider", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	validate.RegisterStructValidation(providerValidation, ProviderConfig{})
	return validate.Struct(c)
}

// ProviderEnabled resolves the effective enabled state for a provider:
// explicit config wins; otherwise session-bound providers and the mock stay
// off and everything else is on.
func (c Config) ProviderEnabled(name provider.Name) bool {
	for _, pc := range c.Providers {
		if pc.Name == name && pc.Enabled != nil {
			return *pc.Enabled
		}
	}
	if _, ok := sessionProviders[name]; ok {
		return false
	}
	return name != provider.ProviderMock
}

// Endpoint returns the configured endpoint override for a provider, if any.
func (c Config) Endpoint(name provider.Name) provider.Endpoint {
	for _, pc := range c.Providers {
		if pc.Name == name {
			return provider.Endpoint{Name: name, Rest: pc.Rest}
		}
	}
	return provider.Endpoint{Name: name}
}

// ProviderTimeout parses the per-provider timeout.
func (c Config) ProviderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Aggregator.ProviderTimeout)
	if err != nil || d <= 0 {
		return defaultProviderTimeout
	}
	return d
}

// DefaultConfig returns a runnable configuration with every default applied,
// used when no config file is given.
func DefaultConfig() Config {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg
}

// ParseConfig attempts to read and parse configuration from the given file
// path. An error is returned if reading or parsing the config fails.
func ParseConfig(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		return cfg, ErrEmptyConfigPath
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(configData), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if len(cfg.Server.WriteTimeout) == 0 {
		cfg.Server.WriteTimeout = defaultSrvWriteTimeout.String()
	}
	if len(cfg.Server.ReadTimeout) == 0 {
		cfg.Server.ReadTimeout = defaultSrvReadTimeout.String()
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = defaultRateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = defaultRateBurst
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.QuoteTTL == 0 {
		cfg.Cache.QuoteTTL = defaultQuoteTTL
	}
	if cfg.Cache.CorridorTTL == 0 {
		cfg.Cache.CorridorTTL = defaultCorridorTTL
	}
	if cfg.Cache.ProviderTTL == 0 {
		cfg.Cache.ProviderTTL = defaultProviderTTL
	}
	if cfg.Cache.JitterMaxSeconds == 0 {
		cfg.Cache.JitterMaxSeconds = defaultJitterMax
	}
	if len(cfg.Aggregator.ProviderTimeout) == 0 {
		cfg.Aggregator.ProviderTimeout = defaultProviderTimeout.String()
	}
	if cfg.Aggregator.MaxAmount == "" {
		cfg.Aggregator.MaxAmount = defaultMaxAmount
	}
	if cfg.HistoryDb == "" {
		cfg.HistoryDb = defaultHistoryDb
	}
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt(envQuoteTTL); ok {
		cfg.Cache.QuoteTTL = v
	}
	if v, ok := envInt(envCorridorTTL); ok {
		cfg.Cache.CorridorTTL = v
	}
	if v, ok := envInt(envProviderTTL); ok {
		cfg.Cache.ProviderTTL = v
	}
	if v, ok := envInt(envJitterMax); ok {
		cfg.Cache.JitterMaxSeconds = v
	}
	if v, ok := envInt(envProviderTimeout); ok {
		cfg.Aggregator.ProviderTimeout = (time.Duration(v) * time.Millisecond).String()
	}
	if v, ok := envInt(envMaxWorkers); ok {
		cfg.Aggregator.MaxWorkers = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
