package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for go-control-deps
type Config struct {
	// Languages enabled for extraction and warming
	Languages []string `yaml:"languages" env:"GCD_LANGUAGES"`

	// CacheDir is the directory for persisted graphs and dirty state
	CacheDir string `yaml:"cache_dir" env:"GCD_CACHE_DIR"`

	// Cache sizing
	CacheMaxEntries int   `yaml:"cache_max_entries" env:"GCD_CACHE_MAX_ENTRIES"`
	CacheMaxBytes   int64 `yaml:"cache_max_bytes" env:"GCD_CACHE_MAX_BYTES"`

	// MaxBlocks caps the CFG size a build will accept (0 = unlimited)
	MaxBlocks int `yaml:"max_blocks" env:"GCD_MAX_BLOCKS"`

	// RawGraph skips region compaction when building graphs
	RawGraph bool `yaml:"raw_graph" env:"GCD_RAW_GRAPH"`

	// Socket path for IPC communication
	SocketPath string `yaml:"socket_path" env:"GCD_SOCKET_PATH"`

	// Logging
	Verbose bool `yaml:"verbose" env:"GCD_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Languages:       []string{"go", "python"},
		CacheDir:        ".gcd/cache",
		CacheMaxEntries: 1024,
		CacheMaxBytes:   64 * 1024 * 1024,
		MaxBlocks:       10000,
		RawGraph:        false,
		SocketPath:      "/tmp/gcd.sock",
		Verbose:         false,
	}
}

// globalConfigFilePath returns the global config file path (~/.gcd/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gcd/config.yaml"
	}
	return filepath.Join(home, ".gcd", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.gcd/config.yaml)
func projectConfigFilePath() string {
	return ".gcd/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Project-level config (./.gcd/config.yaml)
// 2. Environment variables
// 3. Global config (~/.gcd/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// 1. Load global config (~/.gcd/config.yaml)
	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	// 2. Load project-level config (./.gcd/config.yaml) - overrides global
	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	// 3. Override with environment variables
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write to file with 0644 permissions
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GCD_LANGUAGES"); v != "" {
		var langs []string
		for _, lang := range strings.Split(v, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				langs = append(langs, lang)
			}
		}
		if len(langs) > 0 {
			cfg.Languages = langs
		}
	}
	if v := os.Getenv("GCD_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("GCD_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxEntries = i
		}
	}
	if v := os.Getenv("GCD_CACHE_MAX_BYTES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxBytes = int64(i)
		}
	}
	if v := os.Getenv("GCD_MAX_BLOCKS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxBlocks = i
		}
	}
	if v := os.Getenv("GCD_RAW_GRAPH"); v != "" {
		cfg.RawGraph = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("GCD_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("GCD_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		return fmt.Errorf("languages must not be empty")
	}
	for _, lang := range c.Languages {
		switch lang {
		case "go", "python":
			// Valid
		default:
			return fmt.Errorf("invalid language: %s (must be 'go' or 'python')", lang)
		}
	}

	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	if c.CacheMaxBytes <= 0 {
		return fmt.Errorf("cache_max_bytes must be positive")
	}
	if c.MaxBlocks < 0 {
		return fmt.Errorf("max_blocks must be non-negative")
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}

	return nil
}

// LanguageEnabled reports whether the given language is enabled.
func (c *Config) LanguageEnabled(lang string) bool {
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
