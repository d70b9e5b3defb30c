// Package config loads and validates RepoWhisper configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/repowhisper/config.yaml)
//  3. Project config (.repowhisper.yaml in the working directory)
//  4. Environment variables (REPOWHISPER_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete RepoWhisper configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	DataDir     string            `yaml:"data_dir" json:"data_dir"`
	Discovery   DiscoveryConfig   `yaml:"discovery" json:"discovery"`
	Chunking    ChunkingConfig    `yaml:"chunking" json:"chunking"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Advisor     AdvisorConfig     `yaml:"advisor" json:"advisor"`
	Security    SecurityConfig    `yaml:"security" json:"security"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// DiscoveryConfig configures file discovery.
type DiscoveryConfig struct {
	// GuidedPatterns are the glob patterns used when guided mode is
	// invoked without explicit patterns.
	GuidedPatterns []string `yaml:"guided_patterns" json:"guided_patterns"`
	// FullExtensions is the extension allowlist for full-scan mode.
	FullExtensions []string `yaml:"full_extensions" json:"full_extensions"`
	// MaxFileSizeKB skips files larger than this during discovery (0 = no limit).
	MaxFileSizeKB int `yaml:"max_file_size_kb" json:"max_file_size_kb"`
}

// ChunkingConfig configures the code chunker.
type ChunkingConfig struct {
	// MaxChunkSize is the soft character limit per chunk.
	MaxChunkSize int `yaml:"max_chunk_size" json:"max_chunk_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// SearchConfig configures semantic search.
type SearchConfig struct {
	// MaxResults is the default result limit per query.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// OverFetchFactor controls how many ANN candidates are fetched per
	// requested result before tenant filtering.
	OverFetchFactor int `yaml:"over_fetch_factor" json:"over_fetch_factor"`
}

// AdvisorConfig configures the meeting advisor LLM.
type AdvisorConfig struct {
	// Enabled enables LLM-backed advice generation. When disabled or when
	// the model is unreachable, the rule-based fallback is used.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Model is the Ollama model used for advice generation.
	Model string `yaml:"model" json:"model"`
	// OllamaHost overrides the embeddings Ollama host for the advisor.
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// Timeout is the per-request timeout (e.g. "30s").
	Timeout string `yaml:"timeout" json:"timeout"`
}

// SecurityConfig configures path access control.
type SecurityConfig struct {
	// AllowlistFile is a JSON file listing directories that may be indexed.
	// Empty disables allowlist enforcement. When set but missing or empty,
	// all paths are rejected.
	AllowlistFile string `yaml:"allowlist_file" json:"allowlist_file"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
	// EmbedCacheSize is the LRU capacity of the embedding cache.
	EmbedCacheSize int `yaml:"embed_cache_size" json:"embed_cache_size"`
	// MaxUserStores is the LRU capacity of the open per-user store registry.
	MaxUserStores int `yaml:"max_user_stores" json:"max_user_stores"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// defaultFullExtensions is the extension allowlist for full-scan mode.
var defaultFullExtensions = []string{
	".py", ".swift", ".ts", ".tsx", ".js", ".jsx",
	".go", ".rs", ".java", ".kt", ".rb", ".php",
	".c", ".cpp", ".h", ".hpp", ".cs", ".m",
	".sh", ".md", ".yaml", ".yml", ".json", ".toml",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Discovery: DiscoveryConfig{
			GuidedPatterns: []string{"*.py", "*.swift", "*.ts"},
			FullExtensions: defaultFullExtensions,
			MaxFileSizeKB:  512,
		},
		Chunking: ChunkingConfig{
			MaxChunkSize: 1000,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 0, // auto-detect from the embedder
			BatchSize:  32,
			OllamaHost: "", // empty uses http://localhost:11434
		},
		Search: SearchConfig{
			MaxResults:      10,
			OverFetchFactor: 3,
		},
		Advisor: AdvisorConfig{
			Enabled: true,
			Model:   "qwen3:0.6b",
			Timeout: "30s",
		},
		Security: SecurityConfig{
			AllowlistFile: "",
		},
		Performance: PerformanceConfig{
			IndexWorkers:   runtime.NumCPU(),
			WatchDebounce:  "500ms",
			EmbedCacheSize: 1000,
			MaxUserStores:  16,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultDataDir returns the default per-user data root.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".repowhisper", "data")
	}
	return filepath.Join(home, ".repowhisper", "data")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/repowhisper/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/repowhisper/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "repowhisper", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "repowhisper", "config.yaml")
	}
	return filepath.Join(home, ".config", "repowhisper", "config.yaml")
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the given project directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .repowhisper.yaml or .repowhisper.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".repowhisper.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".repowhisper.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}

	// Discovery
	if len(other.Discovery.GuidedPatterns) > 0 {
		c.Discovery.GuidedPatterns = other.Discovery.GuidedPatterns
	}
	if len(other.Discovery.FullExtensions) > 0 {
		c.Discovery.FullExtensions = other.Discovery.FullExtensions
	}
	if other.Discovery.MaxFileSizeKB != 0 {
		c.Discovery.MaxFileSizeKB = other.Discovery.MaxFileSizeKB
	}

	// Chunking
	if other.Chunking.MaxChunkSize != 0 {
		c.Chunking.MaxChunkSize = other.Chunking.MaxChunkSize
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}

	// Search
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.OverFetchFactor != 0 {
		c.Search.OverFetchFactor = other.Search.OverFetchFactor
	}

	// Advisor
	// Enabled is boolean, only merge when any advisor field was set
	if other.Advisor.Model != "" || other.Advisor.OllamaHost != "" || other.Advisor.Timeout != "" {
		c.Advisor.Enabled = other.Advisor.Enabled
	}
	if other.Advisor.Model != "" {
		c.Advisor.Model = other.Advisor.Model
	}
	if other.Advisor.OllamaHost != "" {
		c.Advisor.OllamaHost = other.Advisor.OllamaHost
	}
	if other.Advisor.Timeout != "" {
		c.Advisor.Timeout = other.Advisor.Timeout
	}

	// Security
	if other.Security.AllowlistFile != "" {
		c.Security.AllowlistFile = other.Security.AllowlistFile
	}

	// Performance
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}
	if other.Performance.EmbedCacheSize != 0 {
		c.Performance.EmbedCacheSize = other.Performance.EmbedCacheSize
	}
	if other.Performance.MaxUserStores != 0 {
		c.Performance.MaxUserStores = other.Performance.MaxUserStores
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies REPOWHISPER_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("REPOWHISPER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("REPOWHISPER_MAX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.MaxChunkSize = n
		}
	}
	if v := os.Getenv("REPOWHISPER_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("REPOWHISPER_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("REPOWHISPER_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("REPOWHISPER_ALLOWLIST_FILE"); v != "" {
		c.Security.AllowlistFile = v
	}
	if v := os.Getenv("REPOWHISPER_ADVISOR_MODEL"); v != "" {
		c.Advisor.Model = v
	}
	if v := os.Getenv("REPOWHISPER_ADVISOR_ENABLED"); v != "" {
		c.Advisor.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("REPOWHISPER_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("REPOWHISPER_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
}

// Validate checks the final configuration for invalid values.
func (c *Config) Validate() error {
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("chunking.max_chunk_size must be positive, got %d", c.Chunking.MaxChunkSize)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama' or 'static', got %s", c.Embeddings.Provider)
		}
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.OverFetchFactor <= 0 {
		return fmt.Errorf("search.over_fetch_factor must be positive, got %d", c.Search.OverFetchFactor)
	}

	if c.Performance.MaxUserStores <= 0 {
		return fmt.Errorf("performance.max_user_stores must be positive, got %d", c.Performance.MaxUserStores)
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be debug, info, warn, or error, got %s", c.Server.LogLevel)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
