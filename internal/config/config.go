// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Collection CollectionConfig `yaml:"collection"`
	Document   DocumentConfig   `yaml:"document"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// KeywordIndexDisabled as keyword_index_path turns keyword lookup off.
const KeywordIndexDisabled = "none"

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// KeywordEnabled reports whether a keyword index is configured.
func (s *StorageConfig) KeywordEnabled() bool {
	return s.KeywordIndexPath != "" && s.KeywordIndexPath != KeywordIndexDisabled
}

// CollectionConfig names the vector store collection and its metric.
type CollectionConfig struct {
	Name   string `yaml:"name"`
	Metric string `yaml:"metric"`
}

// DocumentConfig points at the single document served by ingestion.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// ChunkingConfig holds recursive splitter settings.
type ChunkingConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
}

// ProviderConfig is shared by the hosted embedding and chat models.
type ProviderConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// APIKey reads the key from the configured environment variable.
func (p *ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// EmbeddingConfig holds hosted embedding model settings.
type EmbeddingConfig struct {
	ProviderConfig `yaml:",inline"`
	Dimensions     int `yaml:"dimensions"`

	// CacheSize bounds the in-process embedding cache. Zero disables it.
	CacheSize int `yaml:"cache_size"`
}

// GenerationConfig holds hosted chat model settings.
type GenerationConfig struct {
	ProviderConfig `yaml:",inline"`
	Temperature    float64 `yaml:"temperature"`
	Seed           *int    `yaml:"seed"`
	TopK           int     `yaml:"top_k"`
}

// SeedOrDefault returns the configured seed, or DefaultSeed when unset.
func (g *GenerationConfig) SeedOrDefault() int {
	if g.Seed != nil {
		return *g.Seed
	}
	return DefaultSeed
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.KeywordEnabled() {
		cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	}
	cfg.Document.Path = expandPath(cfg.Document.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv loads .env files from the config directory and the working
// directory. Missing files are skipped and variables already set win.
func LoadEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	seen := make(map[string]bool)
	var files []string
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err == nil {
			files = append(files, abs)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Collection.Metric != MetricInnerProduct {
		return fmt.Errorf("unsupported collection metric %q: only %q is supported", c.Collection.Metric, MetricInnerProduct)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap must be >= 0 and < chunk_size")
	}
	if c.Generation.TopK <= 0 {
		return fmt.Errorf("generation top_k must be positive")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding cache_size must not be negative")
	}
	if !knownProvider(c.Embedding.Provider) {
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if !knownProvider(c.Generation.Provider) {
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	return nil
}

func knownProvider(name string) bool {
	switch name {
	case ProviderCohere, ProviderOpenAI, ProviderMock:
		return true
	}
	return false
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
