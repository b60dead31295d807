// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Networks  []NetworkConfig `mapstructure:"networks"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ProviderConfig holds the wallet provider transport configuration. An empty
// HTTPURL means no provider is available, which is a supported state: the
// bridge runs disconnected until one is configured.
type ProviderConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WSURL          string        `mapstructure:"ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// WalletConfig holds connection controller tuning.
type WalletConfig struct {
	BalanceRefreshRPM int  `mapstructure:"balance_refresh_rpm"`
	TUIMode           bool `mapstructure:"-"` // Set at runtime, not from config file
}

// NetworkConfig describes one supported network. Entries extend or override
// the built-in catalog defaults.
type NetworkConfig struct {
	ID               string `mapstructure:"id"`
	ChainID          uint64 `mapstructure:"chain_id"`
	Name             string `mapstructure:"name"`
	CurrencyName     string `mapstructure:"currency_name"`
	CurrencySymbol   string `mapstructure:"currency_symbol"`
	CurrencyDecimals uint8  `mapstructure:"currency_decimals"`
	RPCURL           string `mapstructure:"rpc_url"`
	ExplorerURL      string `mapstructure:"explorer_url"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("WB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Config file is optional, env vars and defaults suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "WB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "WB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "WB_LOG_LEVEL", "LOG_LEVEL")

	// Provider
	v.BindEnv("provider.http_url", "WB_PROVIDER_HTTP_URL", "PROVIDER_HTTP_URL")
	v.BindEnv("provider.ws_url", "WB_PROVIDER_WS_URL", "PROVIDER_WS_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "WB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "WB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "WB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "wallet-bridge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Provider defaults
	v.SetDefault("provider.request_timeout", "15s")
	v.SetDefault("provider.initial_backoff", "1s")
	v.SetDefault("provider.max_backoff", "30s")

	// Wallet defaults
	v.SetDefault("wallet.balance_refresh_rpm", 60)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "wallet-bridge")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Provider.WSURL != "" && c.Provider.HTTPURL == "" {
		return fmt.Errorf("provider.http_url is required when provider.ws_url is set")
	}
	if c.Wallet.BalanceRefreshRPM <= 0 {
		return fmt.Errorf("wallet.balance_refresh_rpm must be positive")
	}

	seen := make(map[uint64]string, len(c.Networks))
	for _, n := range c.Networks {
		if n.ID == "" {
			return fmt.Errorf("network entry missing id")
		}
		if n.ChainID == 0 {
			return fmt.Errorf("network %q missing chain_id", n.ID)
		}
		if prev, ok := seen[n.ChainID]; ok {
			return fmt.Errorf("networks %q and %q share chain_id %d", prev, n.ID, n.ChainID)
		}
		seen[n.ChainID] = n.ID
	}

	return nil
}
