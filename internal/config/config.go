// Package config loads claims-cli configuration from config.yaml and CLAIMS_* environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Loader    LoaderConfig    `yaml:"loader" mapstructure:"loader"`
	Analytics AnalyticsConfig `yaml:"analytics" mapstructure:"analytics"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LoaderConfig configures input discovery and normalization.
type LoaderConfig struct {
	AliasesFile string `yaml:"aliases_file" mapstructure:"aliases_file"`
	ExtractZIP  bool   `yaml:"extract_zip" mapstructure:"extract_zip"`
	XLSX        bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// AnalyticsConfig configures the ranked views.
type AnalyticsConfig struct {
	TopChains     int `yaml:"top_chains" mapstructure:"top_chains"`
	TopQuantities int `yaml:"top_quantities" mapstructure:"top_quantities"`
}

// OutputConfig toggles the optional output sinks. JSON is always written.
type OutputConfig struct {
	Parquet bool `yaml:"parquet" mapstructure:"parquet"`
	SQLite  bool `yaml:"sqlite" mapstructure:"sqlite"`
}

// MetricsConfig configures the run metrics textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// Output is "stdout" or "stderr".
	Output string `yaml:"output" mapstructure:"output"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("loader.aliases_file", "")
	v.SetDefault("loader.extract_zip", true)
	v.SetDefault("loader.xlsx", true)
	v.SetDefault("analytics.top_chains", 2)
	v.SetDefault("analytics.top_quantities", 5)
	v.SetDefault("output.parquet", false)
	v.SetDefault("output.sqlite", false)
	v.SetDefault("metrics.textfile", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return eris.Errorf("config: unknown log.format %q (want console or json)", c.Log.Format)
	}
	switch c.Log.Output {
	case "", "stdout", "stderr":
	default:
		return eris.Errorf("config: unknown log.output %q (want stdout or stderr)", c.Log.Output)
	}
	if c.Analytics.TopChains <= 0 {
		return eris.Errorf("config: analytics.top_chains must be positive, got %d", c.Analytics.TopChains)
	}
	if c.Analytics.TopQuantities <= 0 {
		return eris.Errorf("config: analytics.top_quantities must be positive, got %d", c.Analytics.TopQuantities)
	}
	return nil
}

// InitLogger initializes the global zap logger. Messages go to stdout unless
// cfg.Output says otherwise.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	zapCfg.OutputPaths = []string{output}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
