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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Adapter  AdapterConfig  `yaml:"adapter" mapstructure:"adapter"`
	Gate     GateConfig     `yaml:"gate" mapstructure:"gate"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the evidence ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AdapterConfig configures the research adapter.
type AdapterConfig struct {
	// Mode selects the adapter: "http" for the research API, "static" for a
	// JSON fixture file (offline mode).
	Mode        string  `yaml:"mode" mapstructure:"mode"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	FixturePath string  `yaml:"fixture_path" mapstructure:"fixture_path"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// GateConfig configures the quality gate.
type GateConfig struct {
	MinConfidence         int    `yaml:"min_confidence" mapstructure:"min_confidence"`
	RequireOfficialSource bool   `yaml:"require_official_source" mapstructure:"require_official_source"`
	PolicyPath            string `yaml:"policy_path" mapstructure:"policy_path"`
}

// PipelineConfig configures the run loop.
type PipelineConfig struct {
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	LookupTimeoutSecs int `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("adapter.mode", "http")
	v.SetDefault("adapter.timeout_secs", 30)
	v.SetDefault("adapter.rate_per_sec", 2)
	v.SetDefault("adapter.max_retries", 3)
	v.SetDefault("gate.min_confidence", 70)
	v.SetDefault("gate.require_official_source", true)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.lookup_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger initializes the global zap logger.
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

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
