// Package config loads the engine configuration from config.yaml with
// TRADE_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HTTPConfig holds the listener settings.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CORSConfig is the explicitly injected cross-origin policy. It is resolved
// once at startup and passed into the HTTP boundary, never read from the
// environment at request time.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// AllowsOrigin resolves the Access-Control-Allow-Origin value for a request
// origin: "*" when wildcarded, the origin itself when allow-listed, empty
// otherwise.
func (c CORSConfig) AllowsOrigin(origin string) string {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin && origin != "" {
			return origin
		}
	}
	return ""
}

// OracleConfig holds the spot-price service settings.
type OracleConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Fallback string        `mapstructure:"fallback"` // "raw_balance" or "zero"
}

// TradingConfig holds the settlement parameters.
type TradingConfig struct {
	SettlementCurrency string  `mapstructure:"settlement_currency"`
	DefaultWinRate     float64 `mapstructure:"default_win_rate"`
}

// Config is the root configuration.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	LogLevel    string        `mapstructure:"log_level"`
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	CORS        CORSConfig    `mapstructure:"cors"`
	Oracle      OracleConfig  `mapstructure:"oracle"`
	Trading     TradingConfig `mapstructure:"trading"`
}

// Load reads configuration from path (default config.yaml). A missing file
// is not an error; defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Trading.DefaultWinRate < 0 || cfg.Trading.DefaultWinRate > 1 {
		return nil, fmt.Errorf("trading.default_win_rate must be in [0,1], got %v", cfg.Trading.DefaultWinRate)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "trade-engine")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("oracle.base_url", "https://min-api.cryptocompare.com")
	v.SetDefault("oracle.timeout", 3*time.Second)
	v.SetDefault("oracle.fallback", "raw_balance")
	v.SetDefault("trading.settlement_currency", "USD")
	v.SetDefault("trading.default_win_rate", 0.5)
}
