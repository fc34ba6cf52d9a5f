package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}

	if cfg.ServiceName != "trade-engine" {
		t.Errorf("service_name = %q", cfg.ServiceName)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("http.port = %d", cfg.HTTP.Port)
	}
	if cfg.Oracle.Fallback != "raw_balance" {
		t.Errorf("oracle.fallback = %q", cfg.Oracle.Fallback)
	}
	if cfg.Oracle.Timeout != 3*time.Second {
		t.Errorf("oracle.timeout = %v", cfg.Oracle.Timeout)
	}
	if cfg.Trading.SettlementCurrency != "USD" {
		t.Errorf("trading.settlement_currency = %q", cfg.Trading.SettlementCurrency)
	}
	if cfg.Trading.DefaultWinRate != 0.5 {
		t.Errorf("trading.default_win_rate = %v", cfg.Trading.DefaultWinRate)
	}
	if got := cfg.CORS.AllowsOrigin("https://app.example.com"); got != "*" {
		t.Errorf("default CORS must be wildcard, got %q", got)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
log_level: debug
http:
  port: 9090
cors:
  allowed_origins:
    - https://app.example.com
trading:
  default_win_rate: 0.25
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("http.port = %d", cfg.HTTP.Port)
	}
	if cfg.Trading.DefaultWinRate != 0.25 {
		t.Errorf("trading.default_win_rate = %v", cfg.Trading.DefaultWinRate)
	}
	// File values override only what they set; the rest keep defaults.
	if cfg.Oracle.BaseURL != "https://min-api.cryptocompare.com" {
		t.Errorf("oracle.base_url = %q", cfg.Oracle.BaseURL)
	}
}

func TestLoad_InvalidWinRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("trading:\n  default_win_rate: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("win rate above 1 must be rejected")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TRADE_HTTP_PORT", "7070")
	t.Setenv("TRADE_ORACLE_FALLBACK", "zero")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("env override ignored, http.port = %d", cfg.HTTP.Port)
	}
	if cfg.Oracle.Fallback != "zero" {
		t.Errorf("env override ignored, oracle.fallback = %q", cfg.Oracle.Fallback)
	}
}

func TestCORSAllowsOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "https://a.example.com", "*"},
		{"listed", []string{"https://a.example.com", "https://b.example.com"}, "https://b.example.com", "https://b.example.com"},
		{"unlisted", []string{"https://a.example.com"}, "https://evil.example.com", ""},
		{"empty origin", []string{"https://a.example.com"}, "", ""},
		{"no origins configured", nil, "https://a.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CORSConfig{AllowedOrigins: tt.origins}
			if got := c.AllowsOrigin(tt.origin); got != tt.want {
				t.Errorf("AllowsOrigin(%q) = %q, want %q", tt.origin, got, tt.want)
			}
		})
	}
}
