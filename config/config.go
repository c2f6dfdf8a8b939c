// Package config loads daemon settings from a YAML file with ${VAR}
// environment substitution, then applies a small set of env overrides for
// the fields operators most often change per host.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ClockConfig struct {
	FrequencyMHz float64 `yaml:"frequency_mhz" validate:"gt=0"`
}

// FrequencyHz converts the configured MHz to Hz for timestamp math.
func (c ClockConfig) FrequencyHz() float64 {
	return c.FrequencyMHz * 1_000_000
}

// PeriodNs returns the cycle period in nanoseconds.
func (c ClockConfig) PeriodNs() float64 {
	return 1000.0 / c.FrequencyMHz
}

type AnalysisConfig struct {
	WindowSeconds       float64 `yaml:"window_seconds" validate:"gt=0"`
	BucketSeconds       float64 `yaml:"bucket_seconds" validate:"gt=0"`
	AnomalyZScore       float64 `yaml:"anomaly_zscore" validate:"gt=0"`
	MaxAnomaliesTracked int     `yaml:"max_anomalies_tracked" validate:"gt=0"`
}

type UDPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
	Format  string `yaml:"format" validate:"oneof=v1.0 v1.1 v1.2"`
}

type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

type WebsocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
}

type LiveConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds float64 `yaml:"interval_seconds" validate:"gte=0"`
}

type Config struct {
	Version   int              `yaml:"version" validate:"gte=1"`
	Clock     ClockConfig      `yaml:"clock"`
	Analysis  AnalysisConfig   `yaml:"analysis"`
	UDP       UDPConfig        `yaml:"udp"`
	Prom      PrometheusConfig `yaml:"prometheus"`
	API       APIConfig        `yaml:"api"`
	Websocket WebsocketConfig  `yaml:"websocket"`
	Live      LiveConfig       `yaml:"live"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Version: 1,
		Clock:   ClockConfig{FrequencyMHz: 100},
		Analysis: AnalysisConfig{
			WindowSeconds:       60,
			BucketSeconds:       1,
			AnomalyZScore:       3.0,
			MaxAnomaliesTracked: 1000,
		},
		UDP:  UDPConfig{Enabled: true, Addr: "0.0.0.0:9999", Format: "v1.1"},
		Prom: PrometheusConfig{Enabled: true, Addr: ":9090"},
		API:  APIConfig{Enabled: true, Addr: ":8080"},
		Live: LiveConfig{Enabled: true, IntervalSeconds: 30},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR} references in the raw YAML before
// unmarshalling. Unset variables are left as written.
func substituteEnvVars(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := string(m[2 : len(m)-1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		return m
	})
}

// Load reads and validates the config at path. An empty path falls back to
// the standard search locations, then to Default.
func Load(path string) (Config, error) {
	if path == "" {
		path = findConfig()
	}
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(substituteEnvVars(raw), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

func findConfig() string {
	candidates := []string{
		"./sentinel.yml",
		"./sentinel.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".sentinel", "config.yml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides lets operators retarget listeners without editing the
// file. Only address-like fields are overridable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_UDP_ADDR"); v != "" {
		cfg.UDP.Addr = v
	}
	if v := os.Getenv("SENTINEL_PROM_ADDR"); v != "" {
		cfg.Prom.Addr = v
	}
	if v := os.Getenv("SENTINEL_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("SENTINEL_WS_URL"); v != "" {
		cfg.Websocket.URL = v
		cfg.Websocket.Enabled = true
	}
}
