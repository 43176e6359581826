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
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Preprocess PreprocessConfig `yaml:"preprocess" mapstructure:"preprocess"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FetchConfig configures the open.canada.ca CKAN client.
type FetchConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	DatasetID   string  `yaml:"dataset_id" mapstructure:"dataset_id"`
	ResourceID  string  `yaml:"resource_id" mapstructure:"resource_id"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
}

// PreprocessConfig configures the cleaning pipeline.
type PreprocessConfig struct {
	ChunkSize      int  `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxWorkers     int  `yaml:"max_workers" mapstructure:"max_workers"`
	DetailedReport bool `yaml:"detailed_report" mapstructure:"detailed_report"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// OutputConfig configures where snapshots and processed files land.
type OutputConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
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
	v.SetEnvPrefix("TRIAGENCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fetch.base_url", "https://open.canada.ca/data/api/action")
	v.SetDefault("fetch.dataset_id", "432527ab-7aac-45b5-81d6-7597107a7013")
	v.SetDefault("fetch.resource_id", "1d15a62f-5656-49ad-8c88-f40ce689d831")
	v.SetDefault("fetch.user_agent", "triagency/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 5)
	v.SetDefault("fetch.page_size", 1000)
	v.SetDefault("preprocess.chunk_size", 100000)
	v.SetDefault("preprocess.max_workers", 1)
	v.SetDefault("preprocess.detailed_report", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "grants.db")
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.compress", false)
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
