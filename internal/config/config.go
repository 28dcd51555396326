// Package config loads runtime settings for the dispatch pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Kernel  KernelConfig  `mapstructure:"kernel"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DeviceConfig selects the adapter and the features requested from it.
// With BestEffort set, requested features the adapter lacks are dropped
// instead of failing acquisition.
type DeviceConfig struct {
	PowerPreference  string `mapstructure:"power_preference"`
	TimestampQuery   bool   `mapstructure:"timestamp_query"`
	SPIRVPassthrough bool   `mapstructure:"spirv_passthrough"`
	BestEffort       bool   `mapstructure:"best_effort"`
}

// KernelConfig locates the compiled kernel. An empty Path means the embedded
// source is compiled at startup.
type KernelConfig struct {
	Path       string `mapstructure:"path"`
	EntryPoint string `mapstructure:"entry_point"`
}

// LoggingConfig controls the logrus logger set up by logging.Init.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			PowerPreference: "default",
			TimestampQuery:  true,
		},
		Kernel: KernelConfig{
			EntryPoint: "main_cs",
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Console: true,
		},
	}
}

// Load reads configuration from file, environment and defaults, in
// increasing order of precedence: defaults, file, INVSQRT_* variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".invsqrt"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("invsqrt")
	}

	v.SetEnvPrefix("INVSQRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Kernel.Path = expandPath(cfg.Kernel.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validPrefs := []string{"default", "low-power", "high-performance"}
	if !slices.Contains(validPrefs, c.Device.PowerPreference) {
		return fmt.Errorf("device.power_preference must be one of: %v", validPrefs)
	}

	if strings.TrimSpace(c.Kernel.EntryPoint) == "" {
		return errors.New("kernel.entry_point must not be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.power_preference", cfg.Device.PowerPreference)
	v.SetDefault("device.timestamp_query", cfg.Device.TimestampQuery)
	v.SetDefault("device.spirv_passthrough", cfg.Device.SPIRVPassthrough)
	v.SetDefault("device.best_effort", cfg.Device.BestEffort)

	v.SetDefault("kernel.path", cfg.Kernel.Path)
	v.SetDefault("kernel.entry_point", cfg.Kernel.EntryPoint)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
