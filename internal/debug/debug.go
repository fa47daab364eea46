// Package debug provides a centralized, categorized logging system backed by zap.
//
// Category messages (Log) are emitted at debug level and only for enabled categories.
// Warn and Error always reach the logger regardless of category state.
package debug

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a debug logging category
type Category string

const (
	// Core categories
	APP    Category = "APP"    // Session, navigation, selection
	FS     Category = "FS"     // Directory listing, stat, platform helpers
	SEARCH Category = "SEARCH" // Query parsing, matching
	OPS    Category = "OPS"    // Background tasks (copy, search, archives)
	STORE  Category = "STORE"  // Database operations
	WATCH  Category = "WATCH"  // Filesystem watcher bridge
	CLI    Category = "CLI"    // Command line front end

	// Detailed subcategories (use sparingly - can be verbose)
	FS_ENTRY Category = "FS_ENTRY" // Individual entry processing
	FS_WALK  Category = "FS_WALK"  // Recursive walks during copy/search
)

var (
	enabledCategories = map[Category]bool{
		APP:    true,
		FS:     true,
		SEARCH: true,
		OPS:    true,
		STORE:  true,
		WATCH:  true,
		CLI:    true,
		// Verbose categories disabled by default
		FS_ENTRY: false,
		FS_WALK:  false,
	}
	categoryMu sync.RWMutex

	logger atomic.Pointer[zap.SugaredLogger]
)

// Options configures the process-wide logger.
type Options struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool   // console encoder instead of JSON
	Categories  string // same syntax as CHEX_DEBUG
}

func init() {
	logger.Store(build(false, zapcore.WarnLevel).Sugar())

	// Format: CHEX_DEBUG=APP,FS,SEARCH or CHEX_DEBUG=all or CHEX_DEBUG=none
	if env := os.Getenv("CHEX_DEBUG"); env != "" {
		applyCategories(env)
		logger.Store(build(true, zapcore.DebugLevel).Sugar())
	}
}

// Init replaces the process logger. An empty level keeps warn.
func Init(opts Options) error {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("debug: invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	if opts.Categories != "" {
		applyCategories(opts.Categories)
	}
	old := logger.Swap(build(opts.Development, level).Sugar())
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

func build(development bool, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encoding := "json"
	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
		if isatty.IsTerminal(os.Stderr.Fd()) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       development,
		Encoding:          encoding,
		EncoderConfig:     encCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !development,
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func applyCategories(list string) {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	list = strings.ToUpper(strings.TrimSpace(list))
	switch list {
	case "ALL":
		for cat := range enabledCategories {
			enabledCategories[cat] = true
		}
	case "NONE":
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
	default:
		// Disable all first, then enable specified
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
		for _, cat := range strings.Split(list, ",") {
			cat = strings.TrimSpace(cat)
			if cat != "" {
				enabledCategories[Category(cat)] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	if !IsEnabled(cat) {
		return
	}
	logger.Load().Debugw(fmt.Sprintf(format, args...), "cat", string(cat))
}

// Warn logs a warning regardless of category state.
func Warn(cat Category, format string, args ...interface{}) {
	logger.Load().Warnw(fmt.Sprintf(format, args...), "cat", string(cat))
}

// Error logs an error regardless of category state.
func Error(cat Category, format string, args ...interface{}) {
	logger.Load().Errorw(fmt.Sprintf(format, args...), "cat", string(cat))
}

// Logger exposes the underlying zap logger for callers that want structured fields.
func Logger() *zap.Logger {
	return logger.Load().Desugar()
}

// Sync flushes buffered log entries.
func Sync() error {
	return logger.Load().Sync()
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}

// ListEnabled returns the currently enabled categories in name order.
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })
	return enabled
}
