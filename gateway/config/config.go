package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the read-only REST gateway.
type Config struct {
	ListenAddress  string
	ServiceName    string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// rawConfig is the YAML shape; durations are Go duration strings ("10s").
type rawConfig struct {
	ListenAddress  string   `yaml:"listen"`
	ServiceName    string   `yaml:"serviceName"`
	Environment    string   `yaml:"environment"`
	ReadTimeout    string   `yaml:"readTimeout"`
	WriteTimeout   string   `yaml:"writeTimeout"`
	IdleTimeout    string   `yaml:"idleTimeout"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Default returns the gateway configuration used when no file is supplied.
func Default() Config {
	return Config{
		ListenAddress: ":8081",
		ServiceName:   "omen-gateway",
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
	}
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

// Load reads a YAML gateway configuration, filling unset fields from the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read gateway config: %w", err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse gateway config: %w", err)
	}
	if strings.TrimSpace(raw.ListenAddress) != "" {
		cfg.ListenAddress = raw.ListenAddress
	}
	if strings.TrimSpace(raw.ServiceName) != "" {
		cfg.ServiceName = raw.ServiceName
	}
	cfg.Environment = raw.Environment
	cfg.AllowedOrigins = raw.AllowedOrigins
	if cfg.ReadTimeout, err = parseDuration(raw.ReadTimeout, cfg.ReadTimeout); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = parseDuration(raw.WriteTimeout, cfg.WriteTimeout); err != nil {
		return cfg, err
	}
	if cfg.IdleTimeout, err = parseDuration(raw.IdleTimeout, cfg.IdleTimeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}
