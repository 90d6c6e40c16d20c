// Package log configures the process-wide slog logger: stderr plus a rotating file.
package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
)

const (
	defaultPattern      = "cvstore-%Y-%m-%d.log"
	defaultRotationTime = 24 * time.Hour
	defaultMaxAge       = 7 * 24 * time.Hour
)

// Config 日志配置，除 path 外均可留空使用默认值
type Config struct {
	Path           string `toml:"path"`
	RotationTime   string `toml:"rotation_time"`
	MaxAge         string `toml:"max_age"`
	DefaultPattern string `toml:"default_pattern"`
	Level          string `toml:"level"`
	Format         string `toml:"format"` // text 或 json
	Quiet          bool   `toml:"quiet"`  // 只写文件，不写 stderr
}

// Validate 验证配置
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Path) == "" {
		return errors.New("path is required")
	}
	if _, err := cfg.rotationTime(); err != nil {
		return errors.Wrap(err, "rotation_time is invalid")
	}
	if _, err := cfg.maxAge(); err != nil {
		return errors.Wrap(err, "max_age is invalid")
	}
	if _, err := cfg.level(); err != nil {
		return errors.Errorf("invalid level: %s", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "json":
	default:
		return errors.Errorf("invalid format: %s", cfg.Format)
	}
	return nil
}

func (cfg *Config) rotationTime() (time.Duration, error) {
	return durationOr(cfg.RotationTime, defaultRotationTime)
}

func (cfg *Config) maxAge() (time.Duration, error) {
	return durationOr(cfg.MaxAge, defaultMaxAge)
}

func (cfg *Config) pattern() string {
	if strings.TrimSpace(cfg.DefaultPattern) == "" {
		return defaultPattern
	}
	return cfg.DefaultPattern
}

// level accepts the slog names (debug, info, warn, error) in any case, empty means info.
func (cfg *Config) level() (slog.Level, error) {
	var l slog.Level
	if cfg.Level == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(cfg.Level))
	return l, err
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// Init 初始化日志系统
func Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	fileWriter, err := newFileWriter(cfg)
	if err != nil {
		return errors.WithMessage(err, "failed to configure file logger")
	}

	out := io.Writer(fileWriter)
	if !cfg.Quiet {
		out = io.MultiWriter(os.Stderr, fileWriter)
	}

	level, _ := cfg.level()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func newFileWriter(cfg Config) (io.Writer, error) {
	rotationTime, _ := cfg.rotationTime()
	maxAge, _ := cfg.maxAge()

	return rotatelogs.New(
		filepath.Join(cfg.Path, cfg.pattern()),
		rotatelogs.WithRotationTime(rotationTime),
		rotatelogs.WithMaxAge(maxAge),
	)
}

// Logger 返回带 module 字段的 logger
func Logger(module string) *slog.Logger {
	return slog.Default().With("module", module)
}
