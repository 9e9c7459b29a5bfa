package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig configures the file logger. There is no console logger:
// the terminal belongs to the reader while it runs.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" envconfig:"FILE" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" envconfig:"MODE" validate:"omitempty,oneof=append overwrite"`
}

// Prepare returns the program logger. Level "none" yields a no-op logger.
// When the destination cannot be opened the log goes to a temporary file
// and the first entry says where.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	var level zapcore.Level
	switch conf.Level {
	case "debug":
		level = zap.DebugLevel
	case "normal":
		level = zap.InfoLevel
	default:
		return zap.NewNop(), nil
	}

	opener := func(fname, mode string) (*os.File, error) {
		if err := os.MkdirAll(filepath.Dir(fname), 0o755); err != nil {
			return nil, err
		}
		flags := os.O_CREATE | os.O_WRONLY
		if mode == "overwrite" {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		return os.OpenFile(fname, flags, 0o644)
	}

	var redirected string
	f, err := opener(conf.Destination, conf.Mode)
	if err != nil {
		if f, err = os.CreateTemp("", AppName+".*.log"); err != nil {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.Destination, err)
		}
		redirected = f.Name()
	}

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(f), zap.NewAtomicLevelAt(level))
	log := zap.New(core, zap.AddCaller()).Named(AppName)
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log, nil
}
