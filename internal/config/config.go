package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recommender configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Recommend RecommendConfig `yaml:"recommend"`
	Storage   StorageConfig   `yaml:"storage"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider         string               `yaml:"provider"` // openai, gemini (default: openai)
	APIKey           string               `yaml:"api_key"`
	BaseURL          string               `yaml:"base_url"`
	Model            string               `yaml:"model"`
	Dimensions       int                  `yaml:"dimensions"`
	QueryInstruction string               `yaml:"query_instruction"`
	TimeoutSec       int                  `yaml:"timeout_sec"`
	RateLimitRPS     float64              `yaml:"rate_limit_rps"` // 0 = unlimited
	MaxBatchSize     int                  `yaml:"max_batch_size"`
	Cache            EmbeddingCacheToggle `yaml:"cache"`
}

// EmbeddingCacheToggle switches the Redis embedding cache on.
type EmbeddingCacheToggle struct {
	Enabled bool `yaml:"enabled"`
}

// CacheConfig holds the embedding cache store connection.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds index artifact and retrieval settings.
type IndexConfig struct {
	Artifact       string `yaml:"artifact"` // directory or s3://bucket/prefix
	Metric         string `yaml:"metric"`   // overrides the manifest metric when set
	EagerLoad      bool   `yaml:"eager_load"`
	CandidateCount int    `yaml:"candidate_count"`
	WorkingSet     int    `yaml:"working_set"`
}

// RecommendConfig holds caller-facing limits.
type RecommendConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// StorageConfig holds object storage settings for s3:// artifacts.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible endpoint settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// EmbedTimeout returns the per-call embedding timeout.
func (e EmbeddingConfig) EmbedTimeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// TTL returns the embedding cache TTL.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 64
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Index.Artifact == "" {
		c.Index.Artifact = "data/index"
	}
	if c.Index.CandidateCount <= 0 {
		c.Index.CandidateCount = 20
	}
	if c.Index.WorkingSet <= 0 {
		c.Index.WorkingSet = 20
	}
	if c.Recommend.DefaultTopK <= 0 {
		c.Recommend.DefaultTopK = 10
	}
	if c.Recommend.MaxTopK <= 0 {
		c.Recommend.MaxTopK = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderGemini, c.Embedding.Provider)
	}
	if c.Embedding.RateLimitRPS < 0 {
		return fmt.Errorf("embedding.rate_limit_rps must not be negative, got %v", c.Embedding.RateLimitRPS)
	}
	if c.Embedding.Cache.Enabled {
		if c.Cache.Driver != "redis" {
			return fmt.Errorf("cache.driver must be \"redis\", got %q", c.Cache.Driver)
		}
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required when embedding.cache.enabled is true")
		}
	}
	switch c.Index.Metric {
	case "", "l2", "cosine", "inner_product":
	default:
		return fmt.Errorf("index.metric must be one of l2, cosine, inner_product, got %q", c.Index.Metric)
	}
	if c.Recommend.DefaultTopK > c.Recommend.MaxTopK {
		return fmt.Errorf("recommend.default_top_k (%d) exceeds recommend.max_top_k (%d)",
			c.Recommend.DefaultTopK, c.Recommend.MaxTopK)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
