package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Matching defaults
	StrThresh     float64 `mapstructure:"str_thresh" yaml:"str_thresh"`
	NumThresh     float64 `mapstructure:"num_thresh" yaml:"num_thresh"`
	AllowMissing  bool    `mapstructure:"allow_missing" yaml:"allow_missing"`
	CaseSensitive bool    `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	DefaultAgg    string  `mapstructure:"default_agg" yaml:"default_agg"`
	Workers       int     `mapstructure:"workers" yaml:"workers"`

	// Nearest-neighbour ranking
	ChunkSize      int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	NumMatches     int    `mapstructure:"num_matches" yaml:"num_matches"`
	DistanceMetric string `mapstructure:"distance_metric" yaml:"distance_metric"`

	// CSV input
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter"`
	NAValues  []string `mapstructure:"na_values" yaml:"na_values"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.reclink.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".reclink"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.reclink/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RECLINK")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("str_thresh", 0.9)
	v.SetDefault("num_thresh", 1.0)
	v.SetDefault("allow_missing", false)
	v.SetDefault("case_sensitive", false)
	v.SetDefault("default_agg", "mode")
	v.SetDefault("workers", 1)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("num_matches", 10)
	v.SetDefault("distance_metric", "haversine")
	v.SetDefault("delimiter", "")
	v.SetDefault("na_values", []string{"NA", "NaN", "null"})
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
