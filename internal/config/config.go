package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	// Locale is the language tag handed to the speech recognizer.
	Locale string `json:"locale" yaml:"locale"`

	// PolishProvider selects the polish backend: "ollama" or "openai"
	// (any OpenAI-compatible endpoint, e.g. LM Studio).
	PolishProvider string `json:"polish_provider" yaml:"polish_provider"`

	// PolishURL is the base URL of the polish service. Empty means the
	// provider default.
	PolishURL string `json:"polish_url,omitempty" yaml:"polish_url,omitempty"`

	// PolishModel is the model name passed to the polish service.
	PolishModel string `json:"polish_model,omitempty" yaml:"polish_model,omitempty"`

	// PolishAPIKey is sent as a bearer token to OpenAI-compatible endpoints.
	PolishAPIKey string `json:"polish_api_key,omitempty" yaml:"polish_api_key,omitempty"`

	// PolishTemperature is the sampling temperature for polish requests.
	// Kept low so the model favors fidelity over creativity. Nil means
	// unset; an explicit 0 is honored.
	PolishTemperature *float64 `json:"polish_temperature,omitempty" yaml:"polish_temperature,omitempty"`

	// AllowedPaths is an allowlist of directories for backup files.
	// Paths outside ~/.authorsvoice/backups require either being in this list
	// or AllowUnsafePaths=true. Relative paths are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for backup files.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Locale:            "en-US",
		PolishProvider:    "ollama",
		PolishTemperature: float64Ptr(0.2),
		LogLevel:          "info",
	}
}

// Load loads configuration from baseDir/config.json, falling back to
// baseDir/config.yaml. Returns default config if neither exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.authorsvoice.
func Load(baseDir string) (*Config, error) {
	path := filepath.Join(baseDir, "config.json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = filepath.Join(baseDir, "config.yaml")
	}
	return loadFile(path)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Locale = firstNonEmpty(overlay.Locale, base.Locale)
	result.PolishProvider = firstNonEmpty(overlay.PolishProvider, base.PolishProvider)
	result.PolishURL = firstNonEmpty(overlay.PolishURL, base.PolishURL)
	result.PolishModel = firstNonEmpty(overlay.PolishModel, base.PolishModel)
	result.PolishAPIKey = firstNonEmpty(overlay.PolishAPIKey, base.PolishAPIKey)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)

	result.PolishTemperature = base.PolishTemperature
	if overlay.PolishTemperature != nil {
		result.PolishTemperature = overlay.PolishTemperature
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func float64Ptr(f float64) *float64 { return &f }

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
