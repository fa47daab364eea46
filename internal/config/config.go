package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/justyntemme/chex/internal/debug"
	"github.com/justyntemme/chex/internal/fs"
)

// EnvPrefix prefixes every environment override, e.g. CHEX_WORKERS.
const EnvPrefix = "chex"

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	FileList   FileListConfig   `json:"fileList"`
	Watcher    WatcherConfig    `json:"watcher"`
	Operations OperationsConfig `json:"operations"`
	Search     SearchConfig     `json:"search"`
	Store      StoreConfig      `json:"store"`
	Logging    LoggingConfig    `json:"logging"`
}

// FileListConfig holds directory listing defaults
type FileListConfig struct {
	ShowHidden    bool   `json:"showHidden"`
	DefaultSort   string `json:"defaultSort"` // "name" | "size" | "modified" | "type" | "created"
	SortAscending bool   `json:"sortAscending"`
}

// WatcherConfig controls live directory updates
type WatcherConfig struct {
	Enabled bool `json:"enabled"`
}

// OperationsConfig sizes the background task pool
type OperationsConfig struct {
	Workers        int `json:"workers"`
	ProgressBuffer int `json:"progressBuffer"` // per-task event buffer
}

// SearchConfig holds search-related settings
type SearchConfig struct {
	MaxContentBytes int64 `json:"maxContentBytes"`
	DefaultDepth    int   `json:"defaultDepth"` // 0 = unlimited
}

// StoreConfig locates the database
type StoreConfig struct {
	Path string `json:"path"` // empty = user config dir
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level      string `json:"level"`      // "debug" | "info" | "warn" | "error"
	Categories string `json:"categories"` // comma separated, "ALL" for everything
}

// envOverrides are applied on top of the file. Unset variables leave the
// field nil.
type envOverrides struct {
	ShowHidden      *bool   `envconfig:"SHOW_HIDDEN"`
	DefaultSort     *string `envconfig:"DEFAULT_SORT"`
	SortAscending   *bool   `envconfig:"SORT_ASCENDING"`
	Watch           *bool   `envconfig:"WATCH"`
	Workers         *int    `envconfig:"WORKERS"`
	ProgressBuffer  *int    `envconfig:"PROGRESS_BUFFER"`
	MaxContentBytes *int64  `envconfig:"MAX_CONTENT_BYTES"`
	SearchDepth     *int    `envconfig:"SEARCH_DEPTH"`
	StorePath       *string `envconfig:"STORE_PATH"`
	LogLevel        *string `envconfig:"LOG_LEVEL"`
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for path; empty uses ConfigPath.
func NewManager(path string) *Manager {
	if path == "" {
		path = ConfigPath()
	}
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		FileList: FileListConfig{
			ShowHidden:    false,
			DefaultSort:   "name",
			SortAscending: true,
		},
		Watcher: WatcherConfig{
			Enabled: true,
		},
		Operations: OperationsConfig{
			Workers:        4,
			ProgressBuffer: 64,
		},
		Search: SearchConfig{
			MaxContentBytes: 10 << 20,
			DefaultDepth:    0,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/chex/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "chex", "config.json")
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
// Environment overrides are applied last.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		debug.Warn(debug.APP, "config: failed to create directory %s: %v", configDir, err)
		return err
	}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		debug.Log(debug.APP, "config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if err := m.saveUnlocked(); err != nil {
			debug.Warn(debug.APP, "config: failed to save default config: %v", err)
			return err
		}
	case err != nil:
		debug.Warn(debug.APP, "config: failed to read %s: %v", m.path, err)
		return err
	default:
		// Sections missing from the file keep their defaults.
		cfg := DefaultConfig()
		if err := json.Unmarshal(data, cfg); err != nil {
			debug.Warn(debug.APP, "config: JSON parse error: %v", err)
			m.parseErr = err
			cfg = DefaultConfig()
		} else {
			debug.Log(debug.APP, "config: loaded from %s", m.path)
		}
		m.config = cfg
	}

	return applyEnv(m.config)
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if env.ShowHidden != nil {
		cfg.FileList.ShowHidden = *env.ShowHidden
	}
	if env.DefaultSort != nil {
		cfg.FileList.DefaultSort = *env.DefaultSort
	}
	if env.SortAscending != nil {
		cfg.FileList.SortAscending = *env.SortAscending
	}
	if env.Watch != nil {
		cfg.Watcher.Enabled = *env.Watch
	}
	if env.Workers != nil {
		cfg.Operations.Workers = *env.Workers
	}
	if env.ProgressBuffer != nil {
		cfg.Operations.ProgressBuffer = *env.ProgressBuffer
	}
	if env.MaxContentBytes != nil {
		cfg.Search.MaxContentBytes = *env.MaxContentBytes
	}
	if env.SearchDepth != nil {
		cfg.Search.DefaultDepth = *env.SearchDepth
	}
	if env.StorePath != nil {
		cfg.Store.Path = *env.StorePath
	}
	if env.LogLevel != nil {
		cfg.Logging.Level = *env.LogLevel
	}
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetShowHidden updates the show hidden setting
func (m *Manager) SetShowHidden(show bool) error {
	m.mu.Lock()
	m.config.FileList.ShowHidden = show
	m.mu.Unlock()
	return m.Save()
}

// SetSort updates the default sort key and direction
func (m *Manager) SetSort(key fs.SortKey, order fs.SortOrder) error {
	m.mu.Lock()
	m.config.FileList.DefaultSort = key.String()
	m.config.FileList.SortAscending = order == fs.Ascending
	m.mu.Unlock()
	return m.Save()
}

// ListOptions converts the file list section into listing options.
func (c Config) ListOptions() (fs.ListOptions, error) {
	key, err := fs.ParseSortKey(c.FileList.DefaultSort)
	if err != nil {
		return fs.ListOptions{}, err
	}
	order := fs.Ascending
	if !c.FileList.SortAscending {
		order = fs.Descending
	}
	return fs.ListOptions{ShowHidden: c.FileList.ShowHidden, SortKey: key, Order: order}, nil
}

// GenerateConfig backs up the existing config at path and writes a fresh
// default one. It returns the backup path, or "" when there was nothing to
// back up.
func GenerateConfig(path string) (backupPath string, err error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(path), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
