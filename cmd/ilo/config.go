package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigFile = "ILO_CONFIG"

// Config is the optional config file (~/.config/ilo-pi-ante-toki/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Threshold    *float64 `yaml:"threshold"`
	Boundary     string   `yaml:"boundary"`
	IDWidth      *int     `yaml:"id_width"`
	MaxMerges    *int     `yaml:"max_merges"`
	MaxTableSize *int     `yaml:"max_table_size"`
	CacheDir     string   `yaml:"cache_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress   string   `yaml:"server_address"`
	RateLimit       *float64 `yaml:"rate_limit"`
	EncodeCacheSize *int     `yaml:"encode_cache_size"`
}

func configPath() string {
	if p := os.Getenv(envConfigFile); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDirName, "config.yaml")
}

// LoadConfig reads the config file at path. A missing file is an empty Config;
// a file that does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLogConfig fills logging flags the user did not pass.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTrainConfig fills training flags the user did not pass.
func applyTrainConfig(c *cli.Command, cfg Config, threshold *float64, maxMerges, maxTableSize, idWidth *int) {
	if cfg.Threshold != nil && !c.IsSet("threshold") {
		*threshold = *cfg.Threshold
	}
	if cfg.MaxMerges != nil && !c.IsSet("max-merges") {
		*maxMerges = *cfg.MaxMerges
	}
	if cfg.MaxTableSize != nil && !c.IsSet("max-table-size") {
		*maxTableSize = *cfg.MaxTableSize
	}
	applyVocabConfig(c, cfg, idWidth)
}

// applyVocabConfig covers the flags shared by every command that reads or
// writes vocabularies.
func applyVocabConfig(c *cli.Command, cfg Config, idWidth *int) {
	if cfg.Boundary != "" && !c.IsSet("boundary") {
		boundaryName = cfg.Boundary
	}
	if cfg.CacheDir != "" && !c.IsSet("cache-dir") {
		cacheDir = cfg.CacheDir
	}
	if idWidth != nil && cfg.IDWidth != nil && !c.IsSet("id-width") {
		*idWidth = *cfg.IDWidth
	}
}

// applyServeConfig fills serve flags the user did not pass.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rateLimit *float64, cacheSize *int) {
	applyVocabConfig(c, cfg, nil)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	if cfg.EncodeCacheSize != nil && !c.IsSet("cache-size") {
		*cacheSize = *cfg.EncodeCacheSize
	}
}
