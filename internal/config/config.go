// File: internal/config/config.go
package config

import (
	"fmt"
	"runtime"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Engine() EngineConfig
	Output() OutputConfig
	Evaluation() EvaluationConfig
	Cache() CacheConfig
	Datasets() map[string]DatasetConfig
	Formats() []FormatConfig
	RunCases() []RunCaseConfig

	// Setters for values the CLI flags may override.
	SetEngineWorkerConcurrency(int)
	SetOutputPath(string)
	SetOutputFormat(string)
	SetOutputDiagnostics(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig             `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg   DatabaseConfig           `mapstructure:"database" yaml:"database"`
	EngineCfg     EngineConfig             `mapstructure:"engine" yaml:"engine"`
	OutputCfg     OutputConfig             `mapstructure:"output" yaml:"output"`
	EvaluationCfg EvaluationConfig         `mapstructure:"evaluation" yaml:"evaluation"`
	CacheCfg      CacheConfig              `mapstructure:"cache" yaml:"cache"`
	DatasetsCfg   map[string]DatasetConfig `mapstructure:"datasets" yaml:"datasets"`
	FormatsCfg    []FormatConfig           `mapstructure:"formats" yaml:"formats"`
	RunCasesCfg   []RunCaseConfig          `mapstructure:"runcases" yaml:"runcases"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig               { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig           { return c.DatabaseCfg }
func (c *Config) Engine() EngineConfig               { return c.EngineCfg }
func (c *Config) Output() OutputConfig               { return c.OutputCfg }
func (c *Config) Evaluation() EvaluationConfig       { return c.EvaluationCfg }
func (c *Config) Cache() CacheConfig                 { return c.CacheCfg }
func (c *Config) Datasets() map[string]DatasetConfig { return c.DatasetsCfg }
func (c *Config) Formats() []FormatConfig            { return c.FormatsCfg }
func (c *Config) RunCases() []RunCaseConfig          { return c.RunCasesCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEngineWorkerConcurrency(w int) { c.EngineCfg.WorkerConcurrency = w }
func (c *Config) SetOutputPath(p string)           { c.OutputCfg.Path = p }
func (c *Config) SetOutputFormat(f string)         { c.OutputCfg.Format = f }
func (c *Config) SetOutputDiagnostics(b bool)      { c.OutputCfg.Diagnostics = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the optional result store connection details.
// An empty URL disables the store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EngineConfig configures the run case worker pool.
type EngineConfig struct {
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
}

// OutputConfig controls where run results are archived.
type OutputConfig struct {
	// Path of the results file; empty prints to stdout.
	Path        string `mapstructure:"path" yaml:"path"`
	Format      string `mapstructure:"format" yaml:"format"`
	Diagnostics bool   `mapstructure:"diagnostics" yaml:"diagnostics"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// EvaluationConfig tunes the evaluation core.
type EvaluationConfig struct {
	RoundDigits int `mapstructure:"round_digits" yaml:"round_digits"`
}

// CacheConfig locates the persisted similarity cache. An empty path keeps
// the cache in memory only.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	// SkipWords are ignored by the bag-of-words technique in addition to
	// the English stop words. They are merged into the persisted list.
	SkipWords []string `mapstructure:"skip_words" yaml:"skip_words"`
}

// Dataset types understood by the corpus loaders.
const (
	DatasetSeFiLa     = "sefila"
	DatasetSnapshot   = "snapshot"
	DatasetAggregated = "aggregated"
)

// DatasetConfig describes one dataset and how its text is normalized.
type DatasetConfig struct {
	Type                    string `mapstructure:"type" yaml:"type"`
	Path                    string `mapstructure:"path" yaml:"path"`
	RemoveStopwords         bool   `mapstructure:"remove_stopwords" yaml:"remove_stopwords"`
	RemoveLinebreaks        bool   `mapstructure:"remove_linebreaks" yaml:"remove_linebreaks"`
	RemoveSpecialCharacters bool   `mapstructure:"remove_special_characters" yaml:"remove_special_characters"`

	// Aggregated datasets join the texts of the Target dataset for findings
	// sharing the same KeyFormat text in the Key dataset.
	Key       string `mapstructure:"key" yaml:"key"`
	KeyFormat string `mapstructure:"key_format" yaml:"key_format"`
	Target    string `mapstructure:"target" yaml:"target"`
}

// FormatConfig selects which fields of which tool make up a corpus entry.
type FormatConfig struct {
	Name      string       `mapstructure:"name" yaml:"name"`
	Separator string       `mapstructure:"separator" yaml:"separator"`
	Tools     []ToolConfig `mapstructure:"tools" yaml:"tools"`
}

// ToolConfig lists the fields used for one scanner.
type ToolConfig struct {
	Tool     string        `mapstructure:"tool" yaml:"tool"`
	Fields   []FieldConfig `mapstructure:"fields" yaml:"fields"`
	Required bool          `mapstructure:"required" yaml:"required"`
}

// FieldConfig names a finding field, an optional gjson path into its value
// and an optional registered transform.
type FieldConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Path      string `mapstructure:"path" yaml:"path"`
	Transform string `mapstructure:"transform" yaml:"transform"`
}

// RunCaseConfig declares one technique applied to one corpus with a list of
// parameter sets.
type RunCaseConfig struct {
	Title     string           `mapstructure:"title" yaml:"title"`
	Dataset   string           `mapstructure:"dataset" yaml:"dataset"`
	Format    string           `mapstructure:"format" yaml:"format"`
	Technique string           `mapstructure:"technique" yaml:"technique"`
	Params    []schemas.Params `mapstructure:"params" yaml:"params"`
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshalling defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "finding-dedup")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", runtime.NumCPU())

	// -- Output --
	v.SetDefault("output.path", "")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.diagnostics", false)
	v.SetDefault("output.metrics_file", "")

	// -- Evaluation --
	v.SetDefault("evaluation.round_digits", 3)

	// -- Cache --
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.skip_words", []string{})

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The store credentials are commonly injected through the environment.
	_ = v.BindEnv("database.url", "DEDUP_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every configured file path.
func (c *Config) expandPaths() error {
	paths := []*string{&c.OutputCfg.Path, &c.OutputCfg.MetricsFile, &c.CacheCfg.Path, &c.LoggerCfg.LogFile}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	for name, ds := range c.DatasetsCfg {
		expanded, err := homedir.Expand(ds.Path)
		if err != nil {
			return fmt.Errorf("failed to expand path of dataset %q: %w", name, err)
		}
		ds.Path = expanded
		c.DatasetsCfg[name] = ds
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.EvaluationCfg.RoundDigits < 0 || c.EvaluationCfg.RoundDigits > 15 {
		return fmt.Errorf("evaluation.round_digits must be between 0 and 15")
	}
	switch c.OutputCfg.Format {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("output.format must be one of json, yaml, text (got %q)", c.OutputCfg.Format)
	}

	for name, ds := range c.DatasetsCfg {
		if err := ds.Validate(); err != nil {
			return fmt.Errorf("datasets.%s: %w", name, err)
		}
		if ds.Type == DatasetAggregated {
			if _, ok := c.DatasetsCfg[ds.Key]; !ok {
				return fmt.Errorf("datasets.%s: unknown key dataset %q", name, ds.Key)
			}
			if _, ok := c.DatasetsCfg[ds.Target]; !ok {
				return fmt.Errorf("datasets.%s: unknown target dataset %q", name, ds.Target)
			}
			if !c.hasFormat(ds.KeyFormat) {
				return fmt.Errorf("datasets.%s: unknown key format %q", name, ds.KeyFormat)
			}
		}
	}

	seenFormats := make(map[string]bool, len(c.FormatsCfg))
	for _, f := range c.FormatsCfg {
		if f.Name == "" {
			return fmt.Errorf("formats: every format needs a name")
		}
		if seenFormats[f.Name] {
			return fmt.Errorf("formats: duplicate format %q", f.Name)
		}
		seenFormats[f.Name] = true
		if len(f.Tools) == 0 {
			return fmt.Errorf("formats.%s: at least one tool is required", f.Name)
		}
	}

	for i, rc := range c.RunCasesCfg {
		if rc.Title == "" {
			return fmt.Errorf("runcases[%d]: title is required", i)
		}
		if rc.Technique == "" {
			return fmt.Errorf("runcases[%d] (%s): technique is required", i, rc.Title)
		}
		// Viper lower-cases map keys, so dataset references are matched that way too.
		if _, ok := c.DatasetsCfg[rc.Dataset]; !ok {
			return fmt.Errorf("runcases[%d] (%s): unknown dataset %q", i, rc.Title, rc.Dataset)
		}
		if !c.hasFormat(rc.Format) {
			return fmt.Errorf("runcases[%d] (%s): unknown format %q", i, rc.Title, rc.Format)
		}
		for j, p := range rc.Params {
			if t := p.Threshold; t != nil && (*t < 0 || *t > 1) {
				return fmt.Errorf("runcases[%d] (%s): params[%d].threshold must be between 0.0 and 1.0", i, rc.Title, j)
			}
		}
	}
	return nil
}

// Validate checks a single dataset entry.
func (d *DatasetConfig) Validate() error {
	switch d.Type {
	case DatasetSeFiLa, DatasetSnapshot:
		if d.Path == "" {
			return fmt.Errorf("path is required for %s datasets", d.Type)
		}
	case DatasetAggregated:
		if d.Key == "" || d.KeyFormat == "" || d.Target == "" {
			return fmt.Errorf("key, key_format and target are required for aggregated datasets")
		}
	default:
		return fmt.Errorf("unsupported dataset type %q", d.Type)
	}
	return nil
}

// FindFormat returns the format with the given name.
func (c *Config) FindFormat(name string) (FormatConfig, bool) {
	for _, f := range c.FormatsCfg {
		if f.Name == name {
			return f, true
		}
	}
	return FormatConfig{}, false
}

func (c *Config) hasFormat(name string) bool {
	_, ok := c.FindFormat(name)
	return ok
}
