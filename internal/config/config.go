package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment variable overrides (e.g. SHADOWSCRIPT_LOG_LEVEL).
const EnvPrefix = "SHADOWSCRIPT"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds application configuration.
// Every field can be set in config.json or through a SHADOWSCRIPT_* environment variable.
type Config struct {
	// SaveDebounceMS is the quiet window before a burst of filesystem mutations is persisted.
	SaveDebounceMS int `json:"save_debounce_ms,omitempty" envconfig:"SAVE_DEBOUNCE_MS"`

	// StorageQuotaBytes caps the total file content the filesystem will persist.
	StorageQuotaBytes int64 `json:"storage_quota_bytes,omitempty" envconfig:"STORAGE_QUOTA_BYTES"`

	// ReadCacheTTLMS is how long a read stays cached.
	ReadCacheTTLMS int `json:"read_cache_ttl_ms,omitempty" envconfig:"READ_CACHE_TTL_MS"`

	// RewriteCacheTTLMS and RewriteCacheMax bound the message rewriter cache.
	RewriteCacheTTLMS int `json:"rewrite_cache_ttl_ms,omitempty" envconfig:"REWRITE_CACHE_TTL_MS"`
	RewriteCacheMax   int `json:"rewrite_cache_max,omitempty" envconfig:"REWRITE_CACHE_MAX"`

	// MutationMinIntervalMS and MutationMaxIntervalMS bound the random haunting cadence.
	MutationMinIntervalMS int `json:"mutation_min_interval_ms,omitempty" envconfig:"MUTATION_MIN_INTERVAL_MS"`
	MutationMaxIntervalMS int `json:"mutation_max_interval_ms,omitempty" envconfig:"MUTATION_MAX_INTERVAL_MS"`

	// GhostMinIntervalMS and GhostMaxIntervalMS bound the ghost agent's chatter cadence.
	GhostMinIntervalMS int `json:"ghost_min_interval_ms,omitempty" envconfig:"GHOST_MIN_INTERVAL_MS"`
	GhostMaxIntervalMS int `json:"ghost_max_interval_ms,omitempty" envconfig:"GHOST_MAX_INTERVAL_MS"`

	// PaintMinIntervalMS and PaintMaxIntervalMS bound how often the ghost corrupts the latest artwork.
	PaintMinIntervalMS int `json:"paint_min_interval_ms,omitempty" envconfig:"PAINT_MIN_INTERVAL_MS"`
	PaintMaxIntervalMS int `json:"paint_max_interval_ms,omitempty" envconfig:"PAINT_MAX_INTERVAL_MS"`

	// GhostPersonality is the ghost's starting mood: playful, mischievous or ominous.
	GhostPersonality string `json:"ghost_personality,omitempty" envconfig:"GHOST_PERSONALITY"`

	// WebAddr is the listen address of the web viewer.
	WebAddr string `json:"web_addr,omitempty" envconfig:"WEB_ADDR"`

	// HauntPatterns are doublestar patterns; newly created files matching any of them
	// are registered for haunting.
	HauntPatterns []string `json:"haunt_patterns,omitempty" envconfig:"HAUNT_PATTERNS"`

	// StorageBackend selects where the filesystem is persisted: sqlite, memory or redis.
	StorageBackend string `json:"storage_backend,omitempty" envconfig:"STORAGE_BACKEND"`

	// RedisAddr is the redis address used when StorageBackend is "redis".
	RedisAddr string `json:"redis_addr,omitempty" envconfig:"REDIS_ADDR"`

	// AllowedPaths is an allowlist of host directories for snapshot export/import.
	// Paths outside ~/.shadowscript/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty" envconfig:"ALLOWED_PATHS"`

	// AllowUnsafePaths disables directory restrictions for snapshot export/import.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" envconfig:"ALLOW_UNSAFE_PATHS"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" envconfig:"DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" envconfig:"DB_MAX_IDLE_CONNS"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" envconfig:"LOG_LEVEL"`

	// LogDevelopment switches to the human-readable console encoder.
	LogDevelopment bool `json:"log_development,omitempty" envconfig:"LOG_DEV"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" envconfig:"DISABLED_TOOLS"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "fs", "haunt", "message", "ghost", "mail", "paint", "snapshot".
	DisabledTypes []string `json:"disabled_types,omitempty" envconfig:"DISABLED_TYPES"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SaveDebounceMS:        300,
		StorageQuotaBytes:     10 * 1024 * 1024,
		ReadCacheTTLMS:        5000,
		RewriteCacheTTLMS:     60000,
		RewriteCacheMax:       100,
		MutationMinIntervalMS: 30000,
		MutationMaxIntervalMS: 180000,
		GhostMinIntervalMS:    30000,
		GhostMaxIntervalMS:    120000,
		PaintMinIntervalMS:    45000,
		PaintMaxIntervalMS:    90000,
		GhostPersonality:      "playful",
		WebAddr:               "127.0.0.1:8666",
		HauntPatterns:         []string{"/**"},
		StorageBackend:        BackendSQLite,
		RedisAddr:             "localhost:6379",
		LogLevel:              "info",
	}
}

// SaveDebounce returns SaveDebounceMS as a duration.
func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMS) * time.Millisecond
}

// ReadCacheTTL returns ReadCacheTTLMS as a duration.
func (c *Config) ReadCacheTTL() time.Duration {
	return time.Duration(c.ReadCacheTTLMS) * time.Millisecond
}

// RewriteCacheTTL returns RewriteCacheTTLMS as a duration.
func (c *Config) RewriteCacheTTL() time.Duration {
	return time.Duration(c.RewriteCacheTTLMS) * time.Millisecond
}

// MutationInterval returns the random haunting bounds.
func (c *Config) MutationInterval() (time.Duration, time.Duration) {
	return time.Duration(c.MutationMinIntervalMS) * time.Millisecond,
		time.Duration(c.MutationMaxIntervalMS) * time.Millisecond
}

// GhostInterval returns the ghost chatter bounds.
func (c *Config) GhostInterval() (time.Duration, time.Duration) {
	return time.Duration(c.GhostMinIntervalMS) * time.Millisecond,
		time.Duration(c.GhostMaxIntervalMS) * time.Millisecond
}

// PaintInterval returns the artwork corruption bounds.
func (c *Config) PaintInterval() (time.Duration, time.Duration) {
	return time.Duration(c.PaintMinIntervalMS) * time.Millisecond,
		time.Duration(c.PaintMaxIntervalMS) * time.Millisecond
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.StorageQuotaBytes <= 0 {
		return fmt.Errorf("storage_quota_bytes must be positive")
	}
	if c.MutationMinIntervalMS > c.MutationMaxIntervalMS {
		return fmt.Errorf("mutation_min_interval_ms (%d) exceeds mutation_max_interval_ms (%d)",
			c.MutationMinIntervalMS, c.MutationMaxIntervalMS)
	}
	if c.GhostMinIntervalMS > c.GhostMaxIntervalMS {
		return fmt.Errorf("ghost_min_interval_ms (%d) exceeds ghost_max_interval_ms (%d)",
			c.GhostMinIntervalMS, c.GhostMaxIntervalMS)
	}
	if c.PaintMinIntervalMS > c.PaintMaxIntervalMS {
		return fmt.Errorf("paint_min_interval_ms (%d) exceeds paint_max_interval_ms (%d)",
			c.PaintMinIntervalMS, c.PaintMaxIntervalMS)
	}
	switch c.GhostPersonality {
	case "", "playful", "mischievous", "ominous":
	default:
		return fmt.Errorf("unknown ghost_personality %q (want playful, mischievous or ominous)", c.GhostPersonality)
	}
	switch c.StorageBackend {
	case BackendSQLite, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown storage_backend %q (want sqlite, memory or redis)", c.StorageBackend)
	}
	return nil
}

// Load loads configuration from baseDir/config.json, then applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.shadowscript.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return applyEnv(cfg)
}

// LoadWithRepo loads configuration from both global (~/.shadowscript) and project (.shadowscript)
// directories. The project config is found by walking upward from startDir.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment overrides are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return applyEnv(Merge(Merge(DefaultConfig(), global), repo))
}

// FindRepoConfig walks upward from startDir to find the nearest .shadowscript/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".shadowscript", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// applyEnv overlays SHADOWSCRIPT_* environment variables on cfg.
func applyEnv(cfg *Config) (*Config, error) {
	env := &Config{}
	if err := envconfig.Process(EnvPrefix, env); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	return Merge(cfg, env), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
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
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except HauntPatterns where a non-empty overlay replaces the base.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.SaveDebounceMS = pickInt(overlay.SaveDebounceMS, base.SaveDebounceMS)
	result.StorageQuotaBytes = overlay.StorageQuotaBytes
	if result.StorageQuotaBytes == 0 {
		result.StorageQuotaBytes = base.StorageQuotaBytes
	}
	result.ReadCacheTTLMS = pickInt(overlay.ReadCacheTTLMS, base.ReadCacheTTLMS)
	result.RewriteCacheTTLMS = pickInt(overlay.RewriteCacheTTLMS, base.RewriteCacheTTLMS)
	result.RewriteCacheMax = pickInt(overlay.RewriteCacheMax, base.RewriteCacheMax)
	result.MutationMinIntervalMS = pickInt(overlay.MutationMinIntervalMS, base.MutationMinIntervalMS)
	result.MutationMaxIntervalMS = pickInt(overlay.MutationMaxIntervalMS, base.MutationMaxIntervalMS)
	result.GhostMinIntervalMS = pickInt(overlay.GhostMinIntervalMS, base.GhostMinIntervalMS)
	result.GhostMaxIntervalMS = pickInt(overlay.GhostMaxIntervalMS, base.GhostMaxIntervalMS)
	result.PaintMinIntervalMS = pickInt(overlay.PaintMinIntervalMS, base.PaintMinIntervalMS)
	result.PaintMaxIntervalMS = pickInt(overlay.PaintMaxIntervalMS, base.PaintMaxIntervalMS)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.StorageBackend = pickString(overlay.StorageBackend, base.StorageBackend)
	result.RedisAddr = pickString(overlay.RedisAddr, base.RedisAddr)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.GhostPersonality = pickString(overlay.GhostPersonality, base.GhostPersonality)
	result.WebAddr = pickString(overlay.WebAddr, base.WebAddr)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.LogDevelopment = base.LogDevelopment || overlay.LogDevelopment

	result.HauntPatterns = mergeStringSlice(nil, overlay.HauntPatterns)
	if result.HauntPatterns == nil {
		result.HauntPatterns = mergeStringSlice(nil, base.HauntPatterns)
	}

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
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
