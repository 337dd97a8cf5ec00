package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable that overrides the file.
const EnvPrefix = "FLOWSPECTRA_"

// InputConfig describes the flow file and how it is read.
type InputConfig struct {
	Path             string `yaml:"path"`
	MaxRecords       int    `yaml:"max_records"`
	MaxMalformedRows int    `yaml:"max_malformed_rows"`
	MissingToken     string `yaml:"missing_token"`
	Delimiter        string `yaml:"delimiter"`
}

// AnalysisConfig holds the knobs of a single analysis run.
type AnalysisConfig struct {
	LowerBound      uint64 `yaml:"lower_bound"`
	Address         string `yaml:"address"`
	MinRecords      int    `yaml:"min_records"`
	NumWorkers      int    `yaml:"num_workers"`
	FeatureOverview bool   `yaml:"feature_overview"`
	Diagnostics     bool   `yaml:"diagnostics"`
}

// FileWriterConfig holds the configuration for the JSON file writer.
type FileWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// NATSConfig holds the connection details for the NATS writer.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RedisConfig holds the connection details for the Redis writer.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// WriterDef defines a single writer from the config file. Only the block
// matching Type is used.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	File       FileWriterConfig `yaml:"file"`
	NATS       NATSConfig       `yaml:"nats"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Writers  []WriterDef    `yaml:"writers"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
}

// Default returns a configuration holding only default values.
func Default() *Config {
	cfg := seed()
	cfg.applyDefaults()
	return cfg
}

// seed holds the defaults of fields for which 0 is a meaningful value. They
// are set before the file is read so that an explicit 0 survives.
func seed() *Config {
	return &Config{
		Input:    InputConfig{MaxMalformedRows: 1000},
		Analysis: AnalysisConfig{LowerBound: 200, MinRecords: 1},
	}
}

// New returns a configuration built from defaults and the environment only.
func New() (*Config, error) {
	cfg := seed()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads the configuration from a YAML file, overlays the
// environment and fills in defaults. The result is not validated, since
// command line flags may still change it; call Validate once they have been
// applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := seed()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in fields for which 0 or "" is never meaningful.
func (c *Config) applyDefaults() {
	if c.Input.MissingToken == "" {
		c.Input.MissingToken = "?"
	}
	if c.Input.Delimiter == "" {
		c.Input.Delimiter = ","
	}
	if c.Analysis.NumWorkers <= 0 {
		c.Analysis.NumWorkers = 4
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}

	for i := range c.Writers {
		w := &c.Writers[i]
		switch w.Type {
		case "file":
			if w.File.RootPath == "" {
				w.File.RootPath = "./output"
			}
		case "nats":
			if w.NATS.Subject == "" {
				w.NATS.Subject = "flowspectra"
			}
		case "redis":
			if w.Redis.Channel == "" {
				w.Redis.Channel = "flowspectra"
			}
		case "clickhouse":
			if w.ClickHouse.Port == 0 {
				w.ClickHouse.Port = 9000
			}
			if w.ClickHouse.Table == "" {
				w.ClickHouse.Table = "address_summary"
			}
		}
	}
}

// applyEnv overrides file values with FLOWSPECTRA_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("INPUT", &c.Input.Path)
	str("ADDRESS", &c.Analysis.Address)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.FilePath)
	str("API_ADDR", &c.API.ListenAddr)

	if v, ok := lookup(EnvPrefix + "LOWER_BOUND"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sLOWER_BOUND %q: %w", EnvPrefix, v, err)
		}
		c.Analysis.LowerBound = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_RECORDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_RECORDS %q: %w", EnvPrefix, v, err)
		}
		c.Input.MaxRecords = n
	}
	if v, ok := lookup(EnvPrefix + "OUTPUT"); ok && v != "" {
		c.SetOutputRoot(v)
	}

	// Connection settings of writers already declared in the file.
	for i := range c.Writers {
		w := &c.Writers[i]
		switch w.Type {
		case "nats":
			str("NATS_URL", &w.NATS.URL)
		case "redis":
			str("REDIS_ADDR", &w.Redis.Addr)
			str("REDIS_PASSWORD", &w.Redis.Password)
		case "clickhouse":
			str("CLICKHOUSE_HOST", &w.ClickHouse.Host)
			str("CLICKHOUSE_PASSWORD", &w.ClickHouse.Password)
		}
	}
	return nil
}

// SetOutputRoot points the file writer at path, adding and enabling one if
// the configuration has none.
func (c *Config) SetOutputRoot(path string) {
	for i := range c.Writers {
		if c.Writers[i].Type == "file" {
			c.Writers[i].Enabled = true
			c.Writers[i].File.RootPath = path
			return
		}
	}
	c.Writers = append(c.Writers, WriterDef{Type: "file", Enabled: true, File: FileWriterConfig{RootPath: path}})
}

// Validate checks the configuration once every override has been applied.
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if c.Input.MaxRecords < 0 {
		return fmt.Errorf("input.max_records must not be negative")
	}
	if len([]rune(c.Input.Delimiter)) != 1 {
		return fmt.Errorf("input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	if c.Analysis.MinRecords < 0 {
		return fmt.Errorf("analysis.min_records must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for i, w := range c.Writers {
		if !w.Enabled {
			continue
		}
		switch w.Type {
		case "file", "nats", "redis", "clickhouse":
		default:
			return fmt.Errorf("writers[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}

// DelimiterRune returns the input delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Input.Delimiter {
		return r
	}
	return ','
}
