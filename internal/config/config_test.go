package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFile, filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()
	if cfg.AppPort != defaultAppPort {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, defaultAppPort)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Fatalf("HTTPTimeout = %s, want %s", cfg.HTTPTimeout, defaultHTTPTimeout)
	}
	if cfg.WarmCronSpec != defaultWarmCronSpec {
		t.Fatalf("WarmCronSpec = %q, want %q", cfg.WarmCronSpec, defaultWarmCronSpec)
	}
	if !cfg.WarmEnabled {
		t.Fatalf("WarmEnabled = false, want true")
	}
	if cfg.AIXBTAPIKey != "" {
		t.Fatalf("AIXBTAPIKey = %q, want empty", cfg.AIXBTAPIKey)
	}
	if cfg.CoinGeckoInterval != defaultCoinGeckoInterval {
		t.Fatalf("CoinGeckoInterval = %s, want %s", cfg.CoinGeckoInterval, defaultCoinGeckoInterval)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv(ConfigFile, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(AppPort, "1234")
	t.Setenv(HTTPTimeout, "3s")
	t.Setenv(WarmEnabled, "false")
	t.Setenv(AIXBTAPIKey, "secret")
	t.Setenv(CoinGeckoInterval, "0s")

	cfg := Load()
	if cfg.AppPort != "1234" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "1234")
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("HTTPTimeout = %s, want 3s", cfg.HTTPTimeout)
	}
	if cfg.WarmEnabled {
		t.Fatalf("WarmEnabled = true, want false")
	}
	if cfg.AIXBTAPIKey != "secret" {
		t.Fatalf("AIXBTAPIKey = %q, want %q", cfg.AIXBTAPIKey, "secret")
	}
	if cfg.CoinGeckoInterval != 0 {
		t.Fatalf("CoinGeckoInterval = %s, want 0", cfg.CoinGeckoInterval)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("APP_PORT=7777\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(ConfigFile, path)

	cfg := Load()
	if cfg.AppPort != "7777" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "7777")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}
