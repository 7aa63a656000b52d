// Package config resolves settings from flags, BEREAL_* environment
// variables, an optional .env file and an optional config file, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "BEREAL"

// Keys shared by flag binding and the config file.
const (
	KeyMaxInputMB       = "ingest.max_input_mb"
	KeyBatchSize        = "ingest.batch_size"
	KeyParallelism      = "ingest.parallelism"
	KeyProgressInterval = "ingest.progress_interval"
	KeyTimezone         = "export.timezone"
	KeyServerAddr       = "server.addr"
	KeyLogLevel         = "log.level"
	KeyLogDevelopment   = "log.development"
)

type IngestConfig struct {
	MaxInputMB       int `mapstructure:"max_input_mb"`
	BatchSize        int `mapstructure:"batch_size"`
	Parallelism      int `mapstructure:"parallelism"`
	ProgressInterval int `mapstructure:"progress_interval"`
}

// MaxInputBytes is the per-file size limit.
func (c IngestConfig) MaxInputBytes() int64 {
	return int64(c.MaxInputMB) << 20
}

type ExportConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Ingest IngestConfig `mapstructure:"ingest"`
	Export ExportConfig `mapstructure:"export"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	// derived
	Location *time.Location `mapstructure:"-"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyMaxInputMB, 500)
	v.SetDefault(KeyBatchSize, 100)
	v.SetDefault(KeyParallelism, runtime.GOMAXPROCS(0))
	v.SetDefault(KeyProgressInterval, 5)
	v.SetDefault(KeyTimezone, "Local")
	v.SetDefault(KeyServerAddr, "127.0.0.1:8787")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads the given .env files (".env" when none) into the process
// environment. Missing files are not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, filename := range filenames {
		if loadErr := godotenv.Load(filename); loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", filename, loadErr)
		}
	}
	return nil
}

// Load reads configFile when given, then decodes and validates v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if readErr := v.ReadInConfig(); readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", configFile, readErr)
		}
	}
	var cfg Config
	if unmarshalErr := v.Unmarshal(&cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("decode config: %w", unmarshalErr)
	}
	if validateErr := cfg.validate(); validateErr != nil {
		return nil, validateErr
	}
	location, locationErr := time.LoadLocation(cfg.Export.Timezone)
	if locationErr != nil {
		return nil, fmt.Errorf("%s %q: %w", KeyTimezone, cfg.Export.Timezone, locationErr)
	}
	cfg.Location = location
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Ingest.MaxInputMB <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxInputMB, c.Ingest.MaxInputMB)
	case c.Ingest.BatchSize <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyBatchSize, c.Ingest.BatchSize)
	case c.Ingest.Parallelism <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyParallelism, c.Ingest.Parallelism)
	case c.Ingest.ProgressInterval <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyProgressInterval, c.Ingest.ProgressInterval)
	}
	return nil
}
