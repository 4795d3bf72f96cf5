// Package config holds the rsapar settings read from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dertin/rsapar/pkg/decimal"
	"github.com/dertin/rsapar/pkg/generate"
	"github.com/dertin/rsapar/pkg/schema"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "rsapar.yaml"

// Config holds all rsapar configuration.
type Config struct {
	Generate GenerateConfig `yaml:"generate"`
	Parse    ParseConfig    `yaml:"parse"`
	Convert  ConvertConfig  `yaml:"convert"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GenerateConfig configures the synthetic file generator.
type GenerateConfig struct {
	Output       string `yaml:"output"`
	Count        int    `yaml:"count"`
	IDWidth      int    `yaml:"id_width"`
	AmountWidth  int    `yaml:"amount_width"`
	EmailWidth   int    `yaml:"email_width"`
	AmountMax    string `yaml:"amount_max"` // two decimals, e.g. 999999.99
	UserLength   int    `yaml:"user_length"`
	DomainLength int    `yaml:"domain_length"`
	TLD          string `yaml:"tld"`
	Header       string `yaml:"header"`
	Footer       string `yaml:"footer"`
	Newline      string `yaml:"newline"` // escaped, e.g. \n or \r\n
	Seed         int64  `yaml:"seed"`
	UniqueEmails bool   `yaml:"unique_emails"`
}

// ParseConfig configures reading and validating files.
type ParseConfig struct {
	Schema    string   `yaml:"schema"`
	Workers   int      `yaml:"workers"`
	BatchSize int      `yaml:"batch_size"`
	Distinct  []string `yaml:"distinct"`  // LineType.Cell keys
	Debounce  string   `yaml:"debounce"`  // validate --watch
	PlotPath  string   `yaml:"plot_path"` // empty disables the timing plot
}

// ConvertConfig configures template rendering.
type ConvertConfig struct {
	Template string `yaml:"template"`
	Output   string `yaml:"output"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	gen := generate.DefaultConfig()
	return &Config{
		Generate: GenerateConfig{
			Output:       "fixedwidth_data.txt",
			Count:        gen.Count,
			IDWidth:      gen.IDWidth,
			AmountWidth:  gen.AmountWidth,
			EmailWidth:   gen.EmailWidth,
			AmountMax:    "999999.99",
			UserLength:   gen.UserLength,
			DomainLength: gen.DomainLength,
			TLD:          gen.TLD,
			Header:       gen.Header,
			Footer:       gen.Footer,
			Newline:      `\n`,
		},
		Parse: ParseConfig{
			Workers:   0,
			BatchSize: 512,
			Debounce:  "200ms",
		},
		Convert: ConvertConfig{
			Output: "report.txt",
		},
		Store: StoreConfig{
			DatabasePath: "rsapar.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
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
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies RSAPAR_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("RSAPAR_SCHEMA"); v != "" {
		c.Parse.Schema = v
	}
	if v := os.Getenv("RSAPAR_TEMPLATE"); v != "" {
		c.Convert.Template = v
	}
	if v := os.Getenv("RSAPAR_DB"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("RSAPAR_OUTPUT"); v != "" {
		c.Generate.Output = v
	}
	if v := os.Getenv("RSAPAR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RSAPAR_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	ints := map[string]*int{
		"RSAPAR_COUNT":   &c.Generate.Count,
		"RSAPAR_WORKERS": &c.Parse.Workers,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
	}
	if v := os.Getenv("RSAPAR_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RSAPAR_SEED=%q: %w", v, err)
		}
		c.Generate.Seed = n
	}
	return nil
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Parse.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

// GeneratorConfig converts the generate section into a generator config.
func (c *Config) GeneratorConfig() (generate.Config, error) {
	g := c.Generate
	amountMax, err := decimal.ParseCents(g.AmountMax)
	if err != nil {
		return generate.Config{}, fmt.Errorf("%w: amount_max: %v", generate.ErrInvalidConfig, err)
	}

	cfg := generate.Config{
		Count:        g.Count,
		IDWidth:      g.IDWidth,
		AmountWidth:  g.AmountWidth,
		EmailWidth:   g.EmailWidth,
		AmountMax:    amountMax,
		UserLength:   g.UserLength,
		DomainLength: g.DomainLength,
		TLD:          g.TLD,
		Header:       g.Header,
		Footer:       g.Footer,
		Newline:      schema.Unescape(g.Newline),
		Seed:         g.Seed,
		UniqueEmails: g.UniqueEmails,
	}
	return cfg, cfg.Validate()
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.GeneratorConfig(); err != nil {
		return err
	}
	if c.Parse.Workers < 0 {
		return fmt.Errorf("invalid workers: %d", c.Parse.Workers)
	}
	if c.Parse.BatchSize < 0 {
		return fmt.Errorf("invalid batch size: %d", c.Parse.BatchSize)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}
