package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dertin/rsapar/pkg/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RSAPAR_SCHEMA", "RSAPAR_TEMPLATE", "RSAPAR_DB", "RSAPAR_OUTPUT",
		"RSAPAR_LOG_LEVEL", "RSAPAR_LOG_FORMAT", "RSAPAR_COUNT", "RSAPAR_WORKERS", "RSAPAR_SEED",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, generate.DefaultConfig(), gen)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "rsapar.yaml")

	cfg := DefaultConfig()
	cfg.Generate.Count = 250
	cfg.Generate.Newline = `\r\n`
	cfg.Parse.Distinct = []string{"Detail.Email"}
	cfg.Logging.Format = "json"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	gen, err := loaded.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, "\r\n", gen.Newline)
	assert.Equal(t, 250, gen.Count)
}

func TestLoad_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rsapar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generate:\n  count: 5\n  seed: 9\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Generate.Count)
	assert.Equal(t, int64(9), cfg.Generate.Seed)
	assert.Equal(t, generate.DefaultHeader, cfg.Generate.Header)
	assert.Equal(t, "rsapar.db", cfg.Store.DatabasePath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rsapar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generate: [\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RSAPAR_SCHEMA", "/tmp/schema.xml")
	t.Setenv("RSAPAR_DB", "/tmp/x.db")
	t.Setenv("RSAPAR_COUNT", "1234")
	t.Setenv("RSAPAR_WORKERS", "3")
	t.Setenv("RSAPAR_SEED", "77")
	t.Setenv("RSAPAR_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())
	assert.Equal(t, "/tmp/schema.xml", cfg.Parse.Schema)
	assert.Equal(t, "/tmp/x.db", cfg.Store.DatabasePath)
	assert.Equal(t, 1234, cfg.Generate.Count)
	assert.Equal(t, 3, cfg.Parse.Workers)
	assert.Equal(t, int64(77), cfg.Generate.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("RSAPAR_COUNT", "many")
	assert.Error(t, cfg.applyEnvOverrides())
}

func TestConfig_Validate(t *testing.T) {
	cases := map[string]func(*Config){
		"log level":  func(c *Config) { c.Logging.Level = "loud" },
		"log format": func(c *Config) { c.Logging.Format = "xml" },
		"workers":    func(c *Config) { c.Parse.Workers = -1 },
		"amount max": func(c *Config) { c.Generate.AmountMax = "lots" },
		"count":      func(c *Config) { c.Generate.Count = 100000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_GetDebounce(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "200ms", cfg.GetDebounce().String())

	cfg.Parse.Debounce = "1s"
	assert.Equal(t, "1s", cfg.GetDebounce().String())

	cfg.Parse.Debounce = "soon"
	assert.Equal(t, "200ms", cfg.GetDebounce().String())
}
