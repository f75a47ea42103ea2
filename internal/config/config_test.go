package config

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.App.Name != "visor-crypto" || cfg.App.Env != "test" {
		t.Fatalf("unexpected app section: %+v", cfg.App)
	}
	if cfg.App.MetricsAddr != ":9091" || cfg.App.APIAddr != ":8080" {
		t.Fatalf("unexpected addresses: %+v", cfg.App)
	}
	if len(cfg.Stream.Symbols) != 2 || cfg.Stream.Symbols[0] != "BTCUSDT" {
		t.Fatalf("unexpected stream symbols: %v", cfg.Stream.Symbols)
	}
	if cfg.Stream.BackoffSecs != 5 {
		t.Fatalf("unexpected backoff: %d", cfg.Stream.BackoffSecs)
	}
	if cfg.Paper.InitialBalance != 10000 {
		t.Fatalf("unexpected initial balance: %.2f", cfg.Paper.InitialBalance)
	}
	if cfg.Risk.MaxNotionalPerTrade != 250 {
		t.Fatalf("unexpected risk limit: %.2f", cfg.Risk.MaxNotionalPerTrade)
	}
	if cfg.Signals.Mode != "notification" {
		t.Fatalf("unexpected signals mode: %q", cfg.Signals.Mode)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("VISOR_METRICS_ADDR", ":19091")
	t.Setenv("VISOR_API_ADDR", ":18080")
	t.Setenv("VISOR_LOG_LEVEL", "debug")

	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.App.MetricsAddr != ":19091" || cfg.App.APIAddr != ":18080" || cfg.App.LogLevel != "debug" {
		t.Fatalf("environment overrides not applied: %+v", cfg.App)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	if back.App != cfg.App || back.Paper != cfg.Paper || back.Signals != cfg.Signals {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, cfg)
	}

	if err := Save(path, nil); err == nil {
		t.Fatalf("nil config must be rejected")
	}
}
