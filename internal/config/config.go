package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/skinlab/internal/domain"
)

// Config holds the skinlab configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	GCP       GCPConfig       `yaml:"gcp"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Auth      AuthConfig      `yaml:"auth"`
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

// DatabaseConfig holds catalog database settings.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// CacheConfig holds the embedding cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GCPConfig holds service-account settings for Vertex AI.
type GCPConfig struct {
	ProjectID          string `yaml:"project_id"` // default: project_id from the service account
	Location           string `yaml:"location"`
	ServiceAccountJSON string `yaml:"service_account_json"`
	TokenURL           string `yaml:"token_url"`
	Scope              string `yaml:"scope"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // vertex, openai
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelayMs int    `yaml:"base_delay_ms"`
	APIKey      string `yaml:"api_key"`  // openai only
	BaseURL     string `yaml:"base_url"` // openai only
}

// LLMConfig holds generative model settings.
type LLMConfig struct {
	BaseURL         string   `yaml:"base_url"`
	PlanningModel   string   `yaml:"planning_model"`
	SynthesisModel  string   `yaml:"synthesis_model"`
	Temperature     *float64 `yaml:"temperature"`
	TopP            *float64 `yaml:"top_p"`
	TopK            *int     `yaml:"top_k"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	MaxStreamBytes  int64    `yaml:"max_stream_bytes"`
}

// SearchConfig holds product search settings.
type SearchConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	MatchCount     int     `yaml:"match_count"`
	MaxAttempts    int     `yaml:"max_attempts"`
	BaseDelayMs    int     `yaml:"base_delay_ms"`
}

// StorageConfig holds image storage settings.
type StorageConfig struct {
	Driver         string `yaml:"driver"` // http, fs
	BaseURL        string `yaml:"base_url"`
	Bucket         string `yaml:"bucket"`
	ServiceKey     string `yaml:"service_key"`
	Root           string `yaml:"root"`
	MaxObjectBytes int64  `yaml:"max_object_bytes"`
}

// PromptConfig holds prompt rendering settings.
type PromptConfig struct {
	MaxLength int `yaml:"max_length"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.GCP.Location == "" {
		c.GCP.Location = "us-central1"
	}
	if c.GCP.TokenURL == "" {
		c.GCP.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.GCP.Scope == "" {
		c.GCP.Scope = "https://www.googleapis.com/auth/cloud-platform"
	}
	c.applyEmbeddingDefaults()
	c.applyLLMDefaults()
	if c.Search.MatchThreshold <= 0 {
		c.Search.MatchThreshold = 0.5
	}
	if c.Search.MatchCount <= 0 {
		c.Search.MatchCount = 5
	}
	if c.Search.MaxAttempts <= 0 {
		c.Search.MaxAttempts = 3
	}
	if c.Search.BaseDelayMs <= 0 {
		c.Search.BaseDelayMs = 1000
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "http"
	}
	if c.Storage.MaxObjectBytes <= 0 {
		c.Storage.MaxObjectBytes = 20 << 20
	}
	if c.Prompt.MaxLength <= 0 {
		c.Prompt.MaxLength = 60000
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "vertex"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "gemini-embedding-001"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = domain.EmbeddingDimensions
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Embedding.MaxAttempts <= 0 {
		c.Embedding.MaxAttempts = 3
	}
	if c.Embedding.BaseDelayMs <= 0 {
		c.Embedding.BaseDelayMs = 1000
	}
}

func (c *Config) applyLLMDefaults() {
	if c.LLM.PlanningModel == "" {
		c.LLM.PlanningModel = "gemini-2.5-flash"
	}
	if c.LLM.SynthesisModel == "" {
		c.LLM.SynthesisModel = c.LLM.PlanningModel
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = 8192
	}
	if c.LLM.MaxStreamBytes <= 0 {
		c.LLM.MaxStreamBytes = 8 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	if c.GCP.ServiceAccountJSON == "" {
		return fmt.Errorf("gcp.service_account_json is required")
	}
	switch c.Embedding.Provider {
	case "vertex":
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for provider openai")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"vertex\" or \"openai\", got %q", c.Embedding.Provider)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *t)
	}
	if p := c.LLM.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("llm.top_p must be between 0 and 1, got %v", *p)
	}
	if c.Search.MatchThreshold > 1 {
		return fmt.Errorf("search.match_threshold must be at most 1, got %v", c.Search.MatchThreshold)
	}
	switch c.Storage.Driver {
	case "http":
		if c.Storage.BaseURL == "" || c.Storage.Bucket == "" {
			return fmt.Errorf("storage.base_url and storage.bucket are required for driver http")
		}
	case "fs":
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for driver fs")
		}
	default:
		return fmt.Errorf("storage.driver must be \"http\" or \"fs\", got %q", c.Storage.Driver)
	}
	return nil
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
