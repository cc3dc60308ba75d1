package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"datapipe/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	AI        AIConfig
	Paths     PathConfig
	Profiling ProfilingConfig
	Pipeline  PipelineConfig
	Server    ServerConfig
}

// DatabaseConfig holds database connection settings. Database names are not
// fixed here; the pipeline derives them from the CSV files it loads.
type DatabaseConfig struct {
	User      string
	Password  string
	Host      string
	Port      int
	SSLMode   string
	AdminName string
}

// AIConfig holds AI/LLM related settings
type AIConfig struct {
	AnthropicKey string
	Model        string
	BaseURL      string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	PromptsDir   string

	// RequestsPerMinute caps calls across all files of a run; zero disables it
	RequestsPerMinute int
}

// PathConfig holds file system paths
type PathConfig struct {
	DataDir   string
	OutputDir string
	LLMLogDir string
}

// ProfilingConfig holds CSV profiler settings
type ProfilingConfig struct {
	SampleSize int
	ChunkSize  int
}

// PipelineConfig holds per-run pipeline settings
type PipelineConfig struct {
	Concurrency       int
	Visualize         bool
	HighNullThreshold float64
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port string
}

// Profiling defaults: ten sample rows and chunks of 10000 KiB
const (
	DefaultSampleSize = 10
	DefaultChunkSize  = 10000 * 1024
	DefaultModel      = "claude-3-5-sonnet-20240620"
)

// Load reads configuration from environment variables. It does not validate
// secrets; call Validate before running the full pipeline.
func Load() (*Config, error) {
	config := &Config{
		Database:  *loadDatabaseConfig(),
		AI:        *loadAIConfig(),
		Paths:     *loadPathConfig(),
		Profiling: *loadProfilingConfig(),
		Pipeline:  *loadPipelineConfig(),
		Server:    *loadServerConfig(),
	}

	if config.Profiling.SampleSize <= 0 {
		return nil, errors.ConfigInvalid("PROFILE_SAMPLE_SIZE must be positive")
	}
	if config.Profiling.ChunkSize <= 0 {
		return nil, errors.ConfigInvalid("PROFILE_CHUNK_SIZE must be positive")
	}
	if config.Pipeline.Concurrency <= 0 {
		return nil, errors.ConfigInvalid("PIPELINE_CONCURRENCY must be positive")
	}

	return config, nil
}

// Validate checks the settings the full pipeline cannot run without
func (c *Config) Validate() error {
	if c.AI.AnthropicKey == "" {
		return errors.ConfigInvalid("ANTHROPIC_API_KEY is not set in the environment")
	}
	if c.Database.Password == "" {
		return errors.ConfigInvalid("DB_PASS is not set in the environment")
	}
	return nil
}

// DSN builds a lib/pq connection URL for the named database
func (d DatabaseConfig) DSN(dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + dbName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		User:      getEnvOrDefault("DB_USER", "postgres"),
		Password:  getEnvOrDefault("DB_PASS", ""),
		Host:      getEnvOrDefault("DB_HOST", "localhost"),
		Port:      getEnvIntOrDefault("DB_PORT", 5432),
		SSLMode:   getEnvOrDefault("SSL_MODE", "disable"),
		AdminName: getEnvOrDefault("DB_ADMIN_NAME", "postgres"),
	}
}

func loadAIConfig() *AIConfig {
	return &AIConfig{
		AnthropicKey: getEnvOrDefault("ANTHROPIC_API_KEY", ""),
		Model:        getEnvOrDefault("LLM_MODEL", DefaultModel),
		BaseURL:      getEnvOrDefault("LLM_BASE_URL", ""),
		MaxTokens:    getEnvIntOrDefault("LLM_MAX_TOKENS", 1024),
		Temperature:  getEnvFloatOrDefault("LLM_TEMPERATURE", 0),
		Timeout:      getEnvDurationOrDefault("LLM_TIMEOUT", 120*time.Second),
		PromptsDir:   getEnvOrDefault("PROMPTS_DIR", ""),

		RequestsPerMinute: getEnvIntOrDefault("LLM_REQUESTS_PER_MINUTE", 50),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataDir:   getEnvOrDefault("DATA_DIR", "dataset"),
		OutputDir: getEnvOrDefault("OUTPUT_DIR", "visualizations"),
		LLMLogDir: getEnvOrDefault("LLM_LOG_DIR", "llm_logs"),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		SampleSize: getEnvIntOrDefault("PROFILE_SAMPLE_SIZE", DefaultSampleSize),
		ChunkSize:  getEnvIntOrDefault("PROFILE_CHUNK_SIZE", DefaultChunkSize),
	}
}

func loadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Concurrency:       getEnvIntOrDefault("PIPELINE_CONCURRENCY", 4),
		Visualize:         getEnvBoolOrDefault("VISUALIZE", true),
		HighNullThreshold: getEnvFloatOrDefault("HIGH_NULL_THRESHOLD", 50),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
