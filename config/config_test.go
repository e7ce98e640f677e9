package config_test

import (
	"os"
	"testing"
	"time"

	"remit-scout/config"
	"remit-scout/quotes/provider"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	validConfig := func() config.Config {
		return config.Config{
			Server: config.Server{
				ListenAddr:     "0.0.0.0:7272",
				VerboseCORS:    false,
				AllowedOrigins: []string{},
			},
			Cache: config.Cache{
				Backend: "memory",
			},
			Providers: []config.ProviderConfig{
				{Name: provider.ProviderWise},
				{Name: provider.ProviderXE, Rest: "https://launchpad-api.xe.com"},
			},
			Telemetry: config.Telemetry{
				ServiceName:             "remit-scout",
				Enabled:                 true,
				PrometheusRetentionTime: 120,
			},
		}
	}

	require.NoError(t, validConfig().Validate())

	unknownProvider := validConfig()
	unknownProvider.Providers = append(unknownProvider.Providers, config.ProviderConfig{Name: "westernunion"})
	require.Error(t, unknownProvider.Validate())

	emptyProviderName := validConfig()
	emptyProviderName.Providers = append(emptyProviderName.Providers, config.ProviderConfig{})
	require.Error(t, emptyProviderName.Validate())

	badBackend := validConfig()
	badBackend.Cache.Backend = "memcached"
	require.Error(t, badBackend.Validate())
}

func TestParseConfig_Valid(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "remit-scout*.toml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	content := []byte(`
history_db = "/tmp/quotes-test.db"

[server]
listen_addr = "0.0.0.0:9999"
read_timeout = "20s"
rate_limit = 25.0

[cache]
backend = "redis"
redis_addr = "localhost:6379"
quote_ttl = 600

[aggregator]
provider_timeout = "10s"
max_workers = 8

[[providers]]
name = "wise"

[[providers]]
name = "paysend"
enabled = true

[[providers]]
name = "mukuru"
enabled = false

[telemetry]
service_name = "remit-scout"
enabled = true
`)
	_, err = tmpFile.Write(content)
	require.NoError(t, err)

	cfg, err := config.ParseConfig(tmpFile.Name())
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9999", cfg.Server.ListenAddr)
	require.Equal(t, "20s", cfg.Server.ReadTimeout)
	require.Equal(t, 25.0, cfg.Server.RateLimit)
	require.Equal(t, "redis", cfg.Cache.Backend)
	require.Equal(t, 600, cfg.Cache.QuoteTTL)
	require.Equal(t, 10*time.Second, cfg.ProviderTimeout())
	require.Equal(t, 8, cfg.Aggregator.MaxWorkers)
	require.Equal(t, "/tmp/quotes-test.db", cfg.HistoryDb)

	// unset fields fall back to defaults
	require.Equal(t, "15s", cfg.Server.WriteTimeout)
	require.Equal(t, 43200, cfg.Cache.CorridorTTL)
	require.Equal(t, 300, cfg.Cache.JitterMaxSeconds)
}

func TestParseConfig_InvalidProvider(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "remit-scout*.toml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.Write([]byte(`
[[providers]]
name = "moneygram"
`))
	require.NoError(t, err)

	_, err = config.ParseConfig(tmpFile.Name())
	require.Error(t, err)
}

func TestParseConfig_MissingOrMalformed(t *testing.T) {
	_, err := config.ParseConfig("")
	require.ErrorIs(t, err, config.ErrEmptyConfigPath)

	_, err = config.ParseConfig("/nonexistent/remit-scout.toml")
	require.Error(t, err)

	tmpFile, err := os.CreateTemp("", "remit-scout*.toml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	_, err = tmpFile.Write([]byte(`server = not toml`))
	require.NoError(t, err)

	_, err = config.ParseConfig(tmpFile.Name())
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Equal(t, "0.0.0.0:7272", cfg.Server.ListenAddr)
	require.Equal(t, "memory", cfg.Cache.Backend)
	require.Equal(t, 1800, cfg.Cache.QuoteTTL)
	require.Equal(t, 86400, cfg.Cache.ProviderTTL)
	require.Equal(t, 30*time.Second, cfg.ProviderTimeout())
	require.Equal(t, "1000000", cfg.Aggregator.MaxAmount)
	require.Equal(t, "quotes.db", cfg.HistoryDb)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUOTE_CACHE_TTL", "900")
	t.Setenv("JITTER_MAX_SECONDS", "0")
	t.Setenv("PER_PROVIDER_TIMEOUT_MS", "2500")
	t.Setenv("AGGREGATOR_MAX_WORKERS", "4")

	cfg := config.DefaultConfig()
	require.Equal(t, 900, cfg.Cache.QuoteTTL)
	require.Equal(t, 0, cfg.Cache.JitterMaxSeconds)
	require.Equal(t, 2500*time.Millisecond, cfg.ProviderTimeout())
	require.Equal(t, 4, cfg.Aggregator.MaxWorkers)

	t.Run("garbage_ignored", func(t *testing.T) {
		t.Setenv("QUOTE_CACHE_TTL", "soon")
		t.Setenv("PROVIDER_CACHE_TTL", "-5")
		cfg := config.DefaultConfig()
		require.Equal(t, 1800, cfg.Cache.QuoteTTL)
		require.Equal(t, 86400, cfg.Cache.ProviderTTL)
	})
}

func TestProviderEnabled(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("regular_providers_default_on", func(t *testing.T) {
		require.True(t, cfg.ProviderEnabled(provider.ProviderWise))
		require.True(t, cfg.ProviderEnabled(provider.ProviderXE))
	})

	t.Run("session_bound_default_off", func(t *testing.T) {
		require.False(t, cfg.ProviderEnabled(provider.ProviderPaysend))
		require.False(t, cfg.ProviderEnabled(provider.ProviderWireBarley))
		require.False(t, cfg.ProviderEnabled(provider.ProviderIntermex))
	})

	t.Run("mock_default_off", func(t *testing.T) {
		require.False(t, cfg.ProviderEnabled(provider.ProviderMock))
	})

	t.Run("explicit_config_wins", func(t *testing.T) {
		on, off := true, false
		cfg := cfg
		cfg.Providers = []config.ProviderConfig{
			{Name: provider.ProviderPaysend, Enabled: &on},
			{Name: provider.ProviderWise, Enabled: &off},
		}
		require.True(t, cfg.ProviderEnabled(provider.ProviderPaysend))
		require.False(t, cfg.ProviderEnabled(provider.ProviderWise))
	})
}

func TestEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers = []config.ProviderConfig{
		{Name: provider.ProviderXE, Rest: "https://xe.example.test"},
	}

	override := cfg.Endpoint(provider.ProviderXE)
	require.Equal(t, provider.ProviderXE, override.Name)
	require.Equal(t, "https://xe.example.test", override.Rest)

	plain := cfg.Endpoint(provider.ProviderWise)
	require.Equal(t, provider.ProviderWise, plain.Name)
	require.Empty(t, plain.Rest)
}

func TestEveryRegisteredProviderIsSupported(t *testing.T) {
	for _, name := range provider.AllNames {
		_, ok := config.SupportedProviders[name]
		require.True(t, ok, "provider %s missing from the supported set", name)
	}
	require.Len(t, config.SupportedProviders, len(provider.AllNames))
}
