package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"repologic/internal/domain"
)

// Config holds all configuration for repologic.
type Config struct {
	DataDir    string           `yaml:"data_dir"` // relative paths resolve against the repository root (--dir)
	Chunk      ChunkConfig      `yaml:"chunk"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkConfig holds segmenting configuration.
type ChunkConfig struct {
	Size            int `yaml:"size"`              // lines per segment
	Overlap         int `yaml:"overlap"`           // lines repeated from the previous segment
	MaxSegmentChars int `yaml:"max_segment_chars"` // 0 = unlimited
}

// IndexConfig holds file selection configuration.
type IndexConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "deepseek", "jina", "ollama", "mock"
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url"`
	Dimension         int     `yaml:"dimension"` // used by the mock provider
	BatchSize         int     `yaml:"batch_size"`
	Concurrency       int     `yaml:"concurrency"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	CacheSize         int     `yaml:"cache_size"`
	CacheTTLMinutes   int     `yaml:"cache_ttl_minutes"`
}

// GenerationConfig holds text generation configuration.
type GenerationConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "deepseek", "ollama", "mock"
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	ExtraK int `yaml:"extra_k"` // related segments for selections
	TopK   int `yaml:"top_k"`   // segments for questions
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".repologic",
		Chunk: ChunkConfig{
			Size:    50,
			Overlap: 10,
		},
		Index: IndexConfig{
			Includes: []string{
				"**/*.py", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx", "**/*.java", "**/*.kt",
				"**/*.go", "**/*.rs", "**/*.c", "**/*.h", "**/*.cpp", "**/*.cc", "**/*.hpp", "**/*.cs",
				"**/*.rb", "**/*.php", "**/*.swift", "**/*.scala", "**/*.sh", "**/*.sql",
				"**/*.md", "**/*.yaml", "**/*.yml", "**/*.toml", "**/*.json", "**/*.html", "**/*.css",
			},
			Excludes: []string{
				"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/__pycache__/**", "**/.venv/**", "**/venv/**",
				"**/dist/**", "**/build/**", "**/target/**", "**/.idea/**", "**/.vscode/**", "**/.repologic/**",
				"**/*.min.js", "**/package-lock.json",
			},
			MaxFileBytes: 1_000_000,
		},
		Embedding: EmbeddingConfig{
			Provider:        "openai",
			Model:           "text-embedding-3-small",
			APIKeyEnv:       "OPENAI_API_KEY",
			Dimension:       1536,
			BatchSize:       100,
			Concurrency:     4,
			TimeoutSeconds:  60,
			MaxRetries:      3,
			Burst:           1,
			CacheSize:       1000,
			CacheTTLMinutes: 30,
		},
		Generation: GenerationConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
			MaxRetries:     2,
		},
		Retrieve: RetrieveConfig{
			ExtraK: 3,
			TopK:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first invalid setting as a domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("%w: chunk.size must be positive, got %d", domain.ErrConfiguration, c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("%w: chunk.overlap must be in [0, %d), got %d", domain.ErrConfiguration, c.Chunk.Size, c.Chunk.Overlap)
	}
	if c.Chunk.MaxSegmentChars < 0 {
		return fmt.Errorf("%w: chunk.max_segment_chars must not be negative", domain.ErrConfiguration)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", domain.ErrConfiguration)
	}
	if c.Embedding.Concurrency <= 0 {
		return fmt.Errorf("%w: embedding.concurrency must be positive", domain.ErrConfiguration)
	}
	switch c.Embedding.Provider {
	case "openai", "deepseek", "jina", "ollama", "mock":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "openai", "deepseek", "ollama", "mock":
	default:
		return fmt.Errorf("%w: unknown generation provider %q", domain.ErrConfiguration, c.Generation.Provider)
	}
	if c.Retrieve.ExtraK < 0 {
		return fmt.Errorf("%w: retrieve.extra_k must not be negative", domain.ErrConfiguration)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("%w: retrieve.top_k must be positive", domain.ErrConfiguration)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json", domain.ErrConfiguration)
	}
	return nil
}

func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// LoadFromDir loads repologic.yaml or .repologic/config.yaml from dir.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "repologic.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".repologic", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveDataDir returns the data directory, joining a relative DataDir
// onto root. The CLI passes the repository root even when --config points
// elsewhere.
func (c *Config) ResolveDataDir(root string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(root, c.DataDir)
}

// ChunkDBPath returns the path of the segment database.
func ChunkDBPath(dataDir string) string {
	return filepath.Join(dataDir, "chunks.db")
}

// IndexDir returns the directory holding per-repository vector indexes.
func IndexDir(dataDir string) string {
	return filepath.Join(dataDir, "indexes")
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir(dataDir string) error {
	return os.MkdirAll(dataDir, 0755)
}
