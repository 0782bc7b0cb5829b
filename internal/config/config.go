// Package config loads anvilctl's layered configuration: coded defaults, an optional YAML
// file, then ANVILCTL_-prefixed environment variables, in that order of increasing
// precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Worlds  WorldsConfig  `mapstructure:"worlds" json:"worlds"`
	Index   IndexConfig   `mapstructure:"index" json:"index"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
	Scan    ScanConfig    `mapstructure:"scan" json:"scan"`
	Backup  BackupConfig  `mapstructure:"backup" json:"backup"`
}

// WorldsConfig points at the directory tree that gets walked for Minecraft world saves.
type WorldsConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

// IndexConfig controls the persistent scan-result cache.
type IndexConfig struct {
	DBPath          string `mapstructure:"db_path" json:"db_path"`
	MaxConnections  int    `mapstructure:"max_connections" json:"max_connections"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// ScanConfig bounds how aggressively the world scanner walks and reopens region files.
type ScanConfig struct {
	Concurrency   int `mapstructure:"concurrency" json:"concurrency"`
	RescanSeconds int `mapstructure:"rescan_seconds" json:"rescan_seconds"`
	HeaderTTL     int `mapstructure:"header_ttl_seconds" json:"header_ttl_seconds"`
}

type BackupConfig struct {
	OutputDir string `mapstructure:"output_dir" json:"output_dir"`
}

// Load reads configPath (a directory to search for config.yaml) layered over defaults and
// ANVILCTL_-prefixed environment variables. A missing config file is not an error: the
// defaults and environment stand on their own.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/anvilctl")

	setDefaults(v)

	v.SetEnvPrefix("ANVILCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dataDir, err := filepath.Abs("./worlds")
	if err != nil {
		panic("unable to resolve default worlds directory")
	}
	v.SetDefault("worlds.data_dir", dataDir)

	v.SetDefault("index.db_path", "./data/anvilctl-index.db")
	v.SetDefault("index.max_connections", 10)
	v.SetDefault("index.max_idle_conns", 2)
	v.SetDefault("index.conn_max_lifetime", 300)

	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.file_path", "./data/anvilctl.log")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.rescan_seconds", 300)
	v.SetDefault("scan.header_ttl_seconds", 60)

	v.SetDefault("backup.output_dir", "./backups")
}

func validateConfig(cfg *Config) error {
	var err error
	cfg.Worlds.DataDir, err = filepath.Abs(cfg.Worlds.DataDir)
	if err != nil {
		return fmt.Errorf("invalid worlds data directory: %w", err)
	}
	cfg.Index.DBPath, err = filepath.Abs(cfg.Index.DBPath)
	if err != nil {
		return fmt.Errorf("invalid index db path: %w", err)
	}
	cfg.Backup.OutputDir, err = filepath.Abs(cfg.Backup.OutputDir)
	if err != nil {
		return fmt.Errorf("invalid backup output directory: %w", err)
	}
	if cfg.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan concurrency must be positive")
	}
	return nil
}
