// Package config loads mcprice run settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-mcprice/internal/logging"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "mcprice.yaml"

// Config is the complete run configuration.
type Config struct {
	Backend     string `yaml:"backend"`
	DeviceIndex int    `yaml:"device_index"`

	Kernel     KernelConfig     `yaml:"kernel"`
	Simulation SimulationConfig `yaml:"simulation"`
	Host       HostConfig       `yaml:"host"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// KernelConfig selects the program and entry point.
type KernelConfig struct {
	// Path is the kernel source file. Empty uses the embedded source for the backend.
	Path         string `yaml:"path"`
	EntryPoint   string `yaml:"entry_point"`
	BuildOptions string `yaml:"build_options"`
}

// SimulationConfig holds the option parameters and the sample target.
type SimulationConfig struct {
	TotalSamples int64   `yaml:"total_samples"`
	InitialPrice float32 `yaml:"initial_price"`
	Maturity     float32 `yaml:"maturity"`
	Rate         float32 `yaml:"rate"`
	Volatility   float32 `yaml:"volatility"`
	Strike       float32 `yaml:"strike"`
}

// HostConfig tunes the CPU backend.
type HostConfig struct {
	WorkgroupSize int    `yaml:"workgroup_size"`
	Workers       int    `yaml:"workers"` // 0 = GOMAXPROCS
	Seed          uint64 `yaml:"seed"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the reference run: host backend, S0=100, T=5,
// r=0.05, sigma=0.2, K=70, 1e9 samples.
func DefaultConfig() *Config {
	return &Config{
		Backend: "host",
		Kernel: KernelConfig{
			EntryPoint: "price_option",
		},
		Simulation: SimulationConfig{
			TotalSamples: 1_000_000_000,
			InitialPrice: 100,
			Maturity:     5,
			Rate:         0.05,
			Volatility:   0.2,
			Strike:       70,
		},
		Host: HostConfig{
			WorkgroupSize: 256,
			Seed:          0x5eed,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies MCPRICE_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("MCPRICE_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("MCPRICE_KERNEL"); v != "" {
		c.Kernel.Path = v
	}
	if v := os.Getenv("MCPRICE_SAMPLES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MCPRICE_SAMPLES %q: %w", v, err)
		}
		c.Simulation.TotalSamples = n
	}
	if v := os.Getenv("MCPRICE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks values that cannot be caught by the pipeline itself.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("backend not configured")
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("invalid device_index: %d", c.DeviceIndex)
	}
	if c.Simulation.TotalSamples <= 0 {
		return fmt.Errorf("invalid simulation.total_samples: %d", c.Simulation.TotalSamples)
	}
	if c.Host.WorkgroupSize < 0 {
		return fmt.Errorf("invalid host.workgroup_size: %d", c.Host.WorkgroupSize)
	}
	if c.Host.Workers < 0 {
		return fmt.Errorf("invalid host.workers: %d", c.Host.Workers)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// LoggingOptions converts the logging section for logging.New.
func (c *Config) LoggingOptions() logging.Config {
	return logging.Config{Level: c.Logging.Level, JSON: c.Logging.JSON}
}
