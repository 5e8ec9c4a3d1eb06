// Package logging provides categorized, config-driven logging for owlrules.
// Every category is a named child of one zap logger. Until Initialize runs
// with debug mode or a level at or below the message level, logging is a
// silent no-op.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryBridge   Category = "bridge"   // Fixpoint loop, passes, materialization
	CategoryEngine   Category = "engine"   // Rule engine execution
	CategoryBuiltin  Category = "builtin"  // Built-in evaluation
	CategoryResolver Category = "resolver" // Term interning and resets
	CategoryReasoner Category = "reasoner" // Structural entailment
	CategoryLoader   Category = "loader"   // Document loading
	CategoryWatch    Category = "watch"    // File watching
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // console or json
	DebugMode  bool            // forces debug level
	Categories map[string]bool // nil enables every category
	OutputPath string          // "stderr" when empty
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the root zap logger from opts. It replaces any logger
// installed earlier.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}
	if opts.DebugMode {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	if opts.Format == "console" || opts.Format == "" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !opts.DebugMode
	out := opts.OutputPath
	if out == "" {
		out = "stderr"
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logging: build logger: %w", err)
	}
	Replace(l, opts.Categories)

	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", level, cfg.Encoding)
	return nil
}

// Replace installs l as the root logger. Tests use it with an observer core.
func Replace(l *zap.Logger, enabled map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
	categories = enabled
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	return !exists || enabled
}

// Logger is a printf-style logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	enabled := IsCategoryEnabled(category)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	base := root
	if !enabled {
		base = zap.NewNop()
	}
	l = &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying additional structured fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the root logger (call at shutdown).
func Sync() {
	mu.RLock()
	l := root
	mu.RUnlock()
	_ = l.Sync()
}

// WithRunID creates a run-scoped logger so every line of one inference run
// can be correlated.
func WithRunID(category Category, runID string) *Logger {
	return Get(category).With("run_id", runID)
}

// Timer helps measure operation duration
type Timer struct {
	logger *Logger
	op     string
	start  time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{logger: Get(category), op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		t.logger.Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
