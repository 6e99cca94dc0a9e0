// Package config loads settings from defaults, a YAML file, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. INGEST_DEDUP_LOOKBACK_DAYS.
const EnvPrefix = "INGEST"

// Config is the resolved configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Validation ValidationConfig `mapstructure:"validation"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DedupConfig struct {
	SimilarityThreshold int `mapstructure:"similarity_threshold"`
	LookbackDays        int `mapstructure:"lookback_days"`
}

type ValidationConfig struct {
	MaxAmount string `mapstructure:"max_amount"`
}

type PipelineConfig struct {
	Workers   int `mapstructure:"workers"`
	MaxErrors int `mapstructure:"max_errors"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	// Path of the SQLite file. Empty keeps records in memory.
	Path string `mapstructure:"path"`
}

// MaxAmountDecimal parses Validation.MaxAmount.
func (c *Config) MaxAmountDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Validation.MaxAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var defaults = map[string]any{
	"log.level":                  "info",
	"dedup.similarity_threshold": 80,
	"dedup.lookback_days":        90,
	"validation.max_amount":      "1000000",
	"pipeline.workers":           4,
	"pipeline.max_errors":        50,
	"server.addr":                ":8080",
	"database.path":              "",
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"threshold": "dedup.similarity_threshold",
	"lookback":  "dedup.lookback_days",
	"workers":   "pipeline.workers",
	"addr":      "server.addr",
	"db":        "database.path",
}

// Load resolves the configuration. cfgFile may be empty, in which case
// statement-ingest.yaml is looked up in the working directory and
// ~/.config/statement-ingest; a missing file is not an error. A .env file in
// the working directory is loaded first. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("statement-ingest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/statement-ingest")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dedup.SimilarityThreshold < 1 || c.Dedup.SimilarityThreshold > 100 {
		return fmt.Errorf("dedup.similarity_threshold must be between 1 and 100, got %d", c.Dedup.SimilarityThreshold)
	}
	if c.Dedup.LookbackDays < 1 {
		return fmt.Errorf("dedup.lookback_days must be positive, got %d", c.Dedup.LookbackDays)
	}
	if !c.MaxAmountDecimal().IsPositive() {
		return fmt.Errorf("validation.max_amount must be a positive number, got %q", c.Validation.MaxAmount)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxErrors < 0 {
		return fmt.Errorf("pipeline.max_errors cannot be negative")
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
