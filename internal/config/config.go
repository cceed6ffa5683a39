// Package config loads gowinmd settings from defaults, a YAML file, a .env
// file, GOWINMD_ environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gowinmd/internal/logging"
	"gowinmd/internal/metadata"
)

const envPrefix = "GOWINMD"

// Config holds the settings shared by the gowinmd commands.
type Config struct {
	MetadataPath string `mapstructure:"metadata_path"`
	PackageName  string `mapstructure:"package_name"`
	OutputPath   string `mapstructure:"output_path"`
	Architecture string `mapstructure:"architecture"`
	CacheSize    int    `mapstructure:"cache_size"`
	LogLevel     string `mapstructure:"log_level"`
	ForceClean   bool   `mapstructure:"force_clean"`
	Input        string `mapstructure:"input"`

	// Arch is Architecture parsed by Load.
	Arch metadata.Architecture `mapstructure:"-"`
}

var defaults = map[string]any{
	"metadata_path": "Windows.Win32.winmd",
	"package_name":  "PInvoke",
	"output_path":   "./output/",
	"architecture":  "x64",
	"cache_size":    16,
	"log_level":     "info",
	"force_clean":   false,
	"input":         "",
}

type loadOptions struct {
	flags   *pflag.FlagSet
	envFile string
}

type Option func(*loadOptions)

// WithFlags binds flags whose names match the keys with '-' for '_'. Only
// flags set on the command line override other sources.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *loadOptions) { o.flags = fs }
}

// WithEnvFile loads variables from path instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// Load reads the configuration. An empty path looks for gowinmd.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string, opts ...Option) (*Config, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if o.flags != nil {
		for key := range defaults {
			if f := o.flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gowinmd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	arch, err := metadata.ParseArchitecture(c.Architecture)
	if err != nil {
		return fmt.Errorf("architecture: %w", err)
	}
	c.Arch = arch

	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if strings.TrimSpace(c.PackageName) == "" {
		return errors.New("package_name must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
