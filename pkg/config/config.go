// Package config loads sortd configuration from viper (config file,
// environment, flags) into a typed Config, applying defaults and merging
// command-line overrides on top of file values.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LLMConfig configures the language-model client. BaseURL may point at any
// OpenAI-compatible server, including a local one.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// VisionConfig configures the vision-model client. It shares the LLM
// endpoint unless overridden.
type VisionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScannerConfig configures file discovery.
type ScannerConfig struct {
	Exclude     []string `mapstructure:"exclude"`
	MaxFileSize int64    `mapstructure:"max_file_size"`
}

// AnalyzerConfig configures the analysis stage.
type AnalyzerConfig struct {
	Workers      int `mapstructure:"workers"`
	PreviewBytes int `mapstructure:"preview_bytes"`
}

// RankingConfig holds the preference-ranking weights.
type RankingConfig struct {
	ConfidenceWeight float64 `mapstructure:"confidence_weight"`
	PreferenceWeight float64 `mapstructure:"preference_weight"`
}

// Config is the root sortd configuration.
type Config struct {
	LogLevel  string         `mapstructure:"log_level"`
	LogFormat string         `mapstructure:"log_format"`
	LLM       LLMConfig      `mapstructure:"llm"`
	Vision    VisionConfig   `mapstructure:"vision"`
	Scanner   ScannerConfig  `mapstructure:"scanner"`
	Analyzer  AnalyzerConfig `mapstructure:"analyzer"`
	Ranking   RankingConfig  `mapstructure:"ranking"`
	PrefsPath string         `mapstructure:"prefs_path"`
}

const (
	defaultBaseURL     = "http://localhost:11434/v1"
	defaultModel       = "llama3.2:3b"
	defaultVisionModel = "llava:7b"
	defaultTimeout     = 120 * time.Second
	defaultMaxFileSize = 500 * 1024 * 1024
	defaultWorkers     = 4
	defaultPreview     = 1000
)

// GetConfigFromViper builds the configuration from the current viper state,
// filling in defaults for anything unset.
func GetConfigFromViper() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = defaultTimeout
	}
	if cfg.Vision.BaseURL == "" {
		cfg.Vision.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.Vision.APIKey == "" {
		cfg.Vision.APIKey = cfg.LLM.APIKey
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = defaultVisionModel
	}
	if cfg.Vision.Timeout == 0 {
		cfg.Vision.Timeout = cfg.LLM.Timeout
	}
	if cfg.Scanner.MaxFileSize == 0 {
		cfg.Scanner.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Analyzer.Workers <= 0 {
		cfg.Analyzer.Workers = defaultWorkers
	}
	if cfg.Analyzer.PreviewBytes <= 0 {
		cfg.Analyzer.PreviewBytes = defaultPreview
	}
	if cfg.Ranking.ConfidenceWeight == 0 && cfg.Ranking.PreferenceWeight == 0 {
		cfg.Ranking.ConfidenceWeight = 0.7
		cfg.Ranking.PreferenceWeight = 0.3
	}
	if cfg.PrefsPath == "" {
		cfg.PrefsPath = defaultPrefsPath()
	}
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sortd", "preferences.json")
	}
	return filepath.Join(home, ".sortd", "preferences.json")
}

// ApplyOverrides merges non-zero override values on top of the base config.
// Zero values in the override map are skipped so file settings survive.
func ApplyOverrides(cfg *Config, overrides map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create override decoder")
	}
	if err := decoder.Decode(overrides); err != nil {
		return errors.Wrap(err, "failed to apply overrides")
	}
	return nil
}
