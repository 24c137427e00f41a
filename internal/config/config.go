package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Generation GenerationConfig
	Upload     UploadConfig
	Pipeline   PipelineConfig
	Retry      RetryConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	Level  string
	Format string
}

type GenerationConfig struct {
	Provider        string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	Temperature     float32
	MaxOutputTokens int32
}

type UploadConfig struct {
	MaxFileSize int64
}

type PipelineConfig struct {
	ConcurrentSummaries bool
	StageTimeout        time.Duration
	ExtractTimeout      time.Duration
	RunTimeout          time.Duration
	MaxConcurrentRuns   int
}

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment and default values.")
	}

	env := getEnv("ENV", "development")
	logFormat := "console"
	if env != "development" {
		logFormat = "json"
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  env,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", logFormat),
		},
		Generation: GenerationConfig{
			Provider:        strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderGemini)),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:     getEnvAsFloat32("GENERATION_TEMPERATURE", 0.3),
			MaxOutputTokens: int32(getEnvAsInt("GENERATION_MAX_OUTPUT_TOKENS", 4096)),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Pipeline: PipelineConfig{
			ConcurrentSummaries: getEnvAsBool("PIPELINE_CONCURRENT_SUMMARIES", false),
			StageTimeout:        getEnvAsDuration("PIPELINE_STAGE_TIMEOUT", "60s"),
			ExtractTimeout:      getEnvAsDuration("PIPELINE_EXTRACT_TIMEOUT", "15s"),
			RunTimeout:          getEnvAsDuration("PIPELINE_RUN_TIMEOUT", "3m"),
			MaxConcurrentRuns:   getEnvAsInt("PIPELINE_MAX_CONCURRENT_RUNS", 3),
		},
		Retry: RetryConfig{
			MaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 1),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", "20s"),
		},
	}
}

// Validate reports configuration the process cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Generation.Provider {
	case ProviderGemini:
		if c.Generation.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.Generation.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GENERATION_PROVIDER %q", c.Generation.Provider))
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if c.Pipeline.MaxConcurrentRuns <= 0 {
		errs = append(errs, errors.New("PIPELINE_MAX_CONCURRENT_RUNS must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
