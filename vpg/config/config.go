package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/virtual-photogrid/vpg"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Grid    GridConfig    `mapstructure:"grid"`
	Library LibraryConfig `mapstructure:"library"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Search  SearchConfig  `mapstructure:"search"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// GridConfig stores timeline layout and loading settings.
type GridConfig struct {
	PageSize           int     `mapstructure:"pageSize"`
	BucketSize         string  `mapstructure:"bucketSize"`
	ThumbnailHeight    float64 `mapstructure:"thumbnailHeight"`
	AspectRatio        float64 `mapstructure:"aspectRatio"`
	RowFill            float64 `mapstructure:"rowFill"`
	DebitPrunedBuckets bool    `mapstructure:"debitPrunedBuckets"`
}

// LibraryConfig stores asset database details.
type LibraryConfig struct {
	DSN          string `mapstructure:"dsn"`
	ThumbnailDir string `mapstructure:"thumbnailDir"`
}

// JobsConfig stores upload pipeline worker settings.
type JobsConfig struct {
	Workers       int `mapstructure:"workers"`
	QueueCapacity int `mapstructure:"queueCapacity"`
}

// SearchConfig stores search index settings.
type SearchConfig struct {
	Provider   string `mapstructure:"provider"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ServerConfig stores the paging API listener settings.
type ServerConfig struct {
	Address               string `mapstructure:"address"`
	RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("grid.pageSize", internal.DefaultPageSize)
	v.SetDefault("grid.bucketSize", "month")
	v.SetDefault("grid.thumbnailHeight", internal.DefaultThumbnailHeight)
	v.SetDefault("grid.aspectRatio", internal.DefaultAspectRatio)
	v.SetDefault("grid.rowFill", internal.DefaultRowFill)
	v.SetDefault("grid.debitPrunedBuckets", false)

	v.SetDefault("library.dsn", internal.DefaultLibraryDSN)
	v.SetDefault("library.thumbnailDir", internal.DefaultThumbnailDir)

	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.queueCapacity", 256)

	v.SetDefault("search.provider", "hash")
	v.SetDefault("search.dimensions", 384)

	v.SetDefault("server.address", internal.DefaultServerAddress)
	v.SetDefault("server.requestTimeoutSeconds", 30)

	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // grid.pageSize becomes VPG_GRID_PAGESIZE

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the timeline cannot work with.
func (c *Config) Validate() error {
	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("grid.pageSize must be positive, got %d", c.Grid.PageSize)
	}
	switch strings.ToLower(c.Grid.BucketSize) {
	case "month", "day":
	default:
		return fmt.Errorf("grid.bucketSize must be month or day, got %q", c.Grid.BucketSize)
	}
	if c.Grid.ThumbnailHeight <= 0 {
		return fmt.Errorf("grid.thumbnailHeight must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	return nil
}
