// Package logging provides config-driven categorized logging for bmad-kiro.
// Every subsystem gets a named child of one zap logger; categories can be
// switched off individually in the config file.
package logging

import (
	"fmt"
	"strings"

	"bmadkiro/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategoryDiscovery Category = "discovery" // Module discovery and artifact collection
	CategoryExtract   Category = "extract"   // Tag extraction from compiled agents
	CategoryWriter    Category = "writer"    // Generated file pairs
	CategoryCleanup   Category = "cleanup"   // Selective removal of generated files
	CategoryInstall   Category = "install"   // Orchestration and summary
	CategoryProbe     Category = "probe"     // Host CLI availability checks
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategoryDiscovery, CategoryExtract, CategoryWriter,
	CategoryCleanup, CategoryInstall, CategoryProbe,
}

// Logger pairs a base zap logger with the category toggles it was built from.
type Logger struct {
	base *zap.Logger
	cfg  config.LoggingConfig
}

// New builds a logger from cfg. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	var zc zap.Config
	if cfg.IsJSON() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.TimeKey = ""
		zc.DisableStacktrace = true
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	base, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Logger{base: base, cfg: cfg}, nil
}

// Wrap adopts an existing zap logger, e.g. zaptest or observer loggers.
func Wrap(base *zap.Logger, cfg config.LoggingConfig) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base, cfg: cfg}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return Wrap(zap.NewNop(), config.LoggingConfig{})
}

// Get returns the named logger for category, or a no-op logger when the
// category is disabled.
func (l *Logger) Get(category Category) *zap.Logger {
	if l == nil || !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return l.base.Named(string(category))
}

// Base returns the uncategorized logger.
func (l *Logger) Base() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.base
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.base.Sync()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
