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

	"github.com/kailas-cloud/vecsync/internal/domain"
)

// Config holds the vecsync configuration.
type Config struct {
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Ops       OpsConfig       `yaml:"ops"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI         string   `yaml:"uri"`
	Database    string   `yaml:"database"`
	Collections []string `yaml:"collections"` // empty = discover via listCollections
}

// RedisConfig holds kv store settings (embedding cache, watch cursors).
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"` // empty = cache and cursor persistence disabled
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Similarity string `yaml:"similarity"` // cosine, dotProduct, euclidean
	CacheTTLH  int    `yaml:"cache_ttl_hours"`
}

// PipelineConfig holds sync pipeline settings. The freshness and quiescence
// windows are heuristics; both are tunable rather than load-bearing constants.
type PipelineConfig struct {
	PageSize          int `yaml:"page_size"`
	Workers           int `yaml:"workers"`
	QueueSize         int `yaml:"queue_size"`
	MaxAttempts       int `yaml:"max_attempts"`
	CallIntervalMs    int `yaml:"call_interval_ms"`
	FreshnessWindow   int `yaml:"freshness_window_sec"`
	QuiescenceWindow  int `yaml:"quiescence_window_sec"`
	ReconnectDelaySec int `yaml:"reconnect_delay_sec"`
	ShutdownGraceSec  int `yaml:"shutdown_grace_sec"`
}

// OpsConfig holds the operational HTTP endpoint settings.
type OpsConfig struct {
	Port int `yaml:"port"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.Similarity == "" {
		c.Embedding.Similarity = domain.SimilarityCosine
	}
	if c.Embedding.CacheTTLH <= 0 {
		c.Embedding.CacheTTLH = 24 * 30
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Pipeline.PageSize <= 0 {
		c.Pipeline.PageSize = 50
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.QueueSize <= 0 {
		c.Pipeline.QueueSize = 256
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.CallIntervalMs <= 0 {
		c.Pipeline.CallIntervalMs = 200
	}
	if c.Pipeline.FreshnessWindow <= 0 {
		c.Pipeline.FreshnessWindow = 7 * 24 * 3600
	}
	if c.Pipeline.QuiescenceWindow <= 0 {
		c.Pipeline.QuiescenceWindow = 60
	}
	if c.Pipeline.ReconnectDelaySec <= 0 {
		c.Pipeline.ReconnectDelaySec = 5
	}
	if c.Pipeline.ShutdownGraceSec <= 0 {
		c.Pipeline.ShutdownGraceSec = 30
	}
	if c.Ops.Port <= 0 {
		c.Ops.Port = 9402
	}
}

// Validate checks the configuration for correctness. Configuration errors are
// the only fatal startup conditions; everything downstream degrades instead.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	switch c.Embedding.Similarity {
	case domain.SimilarityCosine, domain.SimilarityDotProduct, domain.SimilarityEuclidean:
	default:
		return fmt.Errorf("embedding.similarity must be cosine, dotProduct or euclidean, got %q", c.Embedding.Similarity)
	}
	if c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be below 65536, got %d", c.Ops.Port)
	}
	return nil
}

// FreshnessWindow returns the embedding freshness window as a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Pipeline.FreshnessWindow) * time.Second
}

// QuiescenceWindow returns the loop-prevention window as a duration.
func (c *Config) QuiescenceWindow() time.Duration {
	return time.Duration(c.Pipeline.QuiescenceWindow) * time.Second
}

// CallInterval returns the per-worker inter-call delay as a duration.
func (c *Config) CallInterval() time.Duration {
	return time.Duration(c.Pipeline.CallIntervalMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
