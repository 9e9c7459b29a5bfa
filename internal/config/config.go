// Package config loads epubterm settings from defaults, an optional YAML
// file and EPUBTERM_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/yuanying/epubterm/internal/paginate"
)

const (
	AppName   = "epubterm"
	EnvPrefix = "EPUBTERM"
)

// Config holds every tunable setting.
type Config struct {
	WPM          int           `yaml:"words_per_minute" envconfig:"WPM" validate:"gt=0,lte=5000"`
	ProgressFile string        `yaml:"progress_file" envconfig:"PROGRESS_FILE" validate:"required"`
	Workers      int           `yaml:"workers" envconfig:"WORKERS" validate:"gte=0,lte=1024"`
	Logging      LoggingConfig `yaml:"logging" envconfig:"LOG"`

	// WPMSet is true when WPM came from the file, the environment or a flag
	// rather than the default.
	WPMSet bool `yaml:"-" ignored:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WPM:          paginate.DefaultWPM,
		ProgressFile: filepath.Join(userDir(os.UserConfigDir), AppName, "progress.yaml"),
		Logging: LoggingConfig{
			Level:       "normal",
			Destination: filepath.Join(userDir(os.UserCacheDir), AppName, AppName+".log"),
			Mode:        "append",
		},
	}
}

func userDir(fn func() (string, error)) string {
	dir, err := fn()
	if err != nil || dir == "" {
		return os.TempDir()
	}
	return dir
}

// Load superimposes the YAML file at path (if any) and the environment on
// top of Default, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Only fields we defined are accepted, so yaml.Unmarshal is not used.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}

		var explicit struct {
			WPM *int `yaml:"words_per_minute"`
		}
		if err := yaml.Unmarshal(data, &explicit); err == nil && explicit.WPM != nil {
			cfg.WPMSet = true
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "_WPM"); ok && v != "" {
		cfg.WPMSet = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
