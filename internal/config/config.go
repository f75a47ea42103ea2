// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, and addresses.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	APIAddr     string `yaml:"api_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Stream describes the market-data subscription parameters.
type Stream struct {
	BaseURL     string   `yaml:"base_url"`
	Symbols     []string `yaml:"symbols"`
	BackoffSecs int      `yaml:"backoff_secs"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	InitialBalance float64 `yaml:"initial_balance"`
	ReportsPath    string  `yaml:"reports_path"`
}

// Risk encodes guard-rails for automatic order placement.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
}

// Signals selects what happens when a crossover fires.
type Signals struct {
	Mode string `yaml:"mode"` // notification | auto
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Stream  Stream  `yaml:"stream"`
	Paper   Paper   `yaml:"paper"`
	Risk    Risk    `yaml:"risk"`
	Signals Signals `yaml:"signals"`
}

// Load reads a YAML file from disk and hydrates a Config struct, applying
// environment overrides for addresses and log level.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VISOR_METRICS_ADDR"); v != "" {
		c.App.MetricsAddr = v
	}
	if v := os.Getenv("VISOR_API_ADDR"); v != "" {
		c.App.APIAddr = v
	}
	if v := os.Getenv("VISOR_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
