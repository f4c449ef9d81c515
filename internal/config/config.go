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
	Convert ConvertConfig `yaml:"convert" mapstructure:"convert"`
	CRS     CRSConfig     `yaml:"crs" mapstructure:"crs"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ConvertConfig configures the import pipeline.
type ConvertConfig struct {
	SourceCRS string `yaml:"source_crs" mapstructure:"source_crs"`
	TargetCRS string `yaml:"target_crs" mapstructure:"target_crs"`
	Workers   int    `yaml:"workers" mapstructure:"workers"`
}

// CRSConfig configures the coordinate system manager.
type CRSConfig struct {
	// DefinitionsFile points at an optional YAML file of extra CRS
	// registrations loaded on startup.
	DefinitionsFile string `yaml:"definitions_file" mapstructure:"definitions_file"`
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
	v.SetEnvPrefix("GEOLOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("convert.workers", 4)
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

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Convert.Workers < 1 || c.Convert.Workers > 64 {
		problems = append(problems, "convert.workers must be between 1 and 64")
	}
	if c.Convert.TargetCRS != "" && c.Convert.TargetCRS == c.Convert.SourceCRS {
		problems = append(problems, "convert.target_crs equals convert.source_crs")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
