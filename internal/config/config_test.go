package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MCPRICE_BACKEND", "MCPRICE_KERNEL", "MCPRICE_SAMPLES", "MCPRICE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "host", cfg.Backend)
	assert.Equal(t, "price_option", cfg.Kernel.EntryPoint)
	assert.Equal(t, int64(1_000_000_000), cfg.Simulation.TotalSamples)
	assert.Equal(t, float32(100), cfg.Simulation.InitialPrice)
	assert.Equal(t, float32(5), cfg.Simulation.Maturity)
	assert.Equal(t, float32(0.05), cfg.Simulation.Rate)
	assert.Equal(t, float32(0.2), cfg.Simulation.Volatility)
	assert.Equal(t, float32(70), cfg.Simulation.Strike)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "mcprice.yaml")

	cfg := DefaultConfig()
	cfg.Backend = "opencl"
	cfg.DeviceIndex = 1
	cfg.Kernel.Path = "kernel.cl"
	cfg.Kernel.BuildOptions = "-cl-fast-relaxed-math"
	cfg.Simulation.Strike = 90
	cfg.Host.Workers = 3
	cfg.Logging.JSON = true

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mcprice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  strike: 110\nhost:\n  workgroup_size: 64\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float32(110), cfg.Simulation.Strike)
	assert.Equal(t, float32(100), cfg.Simulation.InitialPrice)
	assert.Equal(t, 64, cfg.Host.WorkgroupSize)
	assert.Equal(t, "host", cfg.Backend)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "mcprice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: [1, 2"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MCPRICE_BACKEND", "webgpu")
	t.Setenv("MCPRICE_KERNEL", "/tmp/k.wgsl")
	t.Setenv("MCPRICE_SAMPLES", "4096")
	t.Setenv("MCPRICE_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "webgpu", cfg.Backend)
	assert.Equal(t, "/tmp/k.wgsl", cfg.Kernel.Path)
	assert.Equal(t, int64(4096), cfg.Simulation.TotalSamples)
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("MCPRICE_SAMPLES", "many")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "MCPRICE_SAMPLES")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":   func(c *Config) { c.Backend = "" },
		"device":    func(c *Config) { c.DeviceIndex = -1 },
		"samples":   func(c *Config) { c.Simulation.TotalSamples = 0 },
		"workgroup": func(c *Config) { c.Host.WorkgroupSize = -4 },
		"workers":   func(c *Config) { c.Host.Workers = -1 },
		"level":     func(c *Config) { c.Logging.Level = "chatty" },
	}

	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
