package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Language model
	LLMProvider       string // "ollama" | "gemini"
	OllamaAPIURL      string
	OllamaModel       string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiConcurrency int
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMStopToken      string
	LLMConnectTimeout time.Duration
	LLMReadTimeout    time.Duration

	// TMDB catalog
	TMDBAPIKey       string
	TMDBBaseURL      string
	TMDBTimeout      time.Duration
	TMDBRegion       string
	CatalogCacheTTL  time.Duration
	VerifyTrailers   bool
	TrendingInPrompt int

	// Formatter
	CorrectionsFile string

	// Limits and workers
	ChatRateLimitPerMin int
	APIRateLimitPerMin  int
	WorkerCount         int
	ChatHistoryTurns    int

	// Logging
	LogLevel  string
	LogFormat string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		LLMProvider:       getEnvOrDefault("LLM_PROVIDER", "ollama"),
		OllamaAPIURL:      getEnvOrDefault("OLLAMA_API_URL", "http://localhost:11434"),
		OllamaModel:       getEnvOrDefault("OLLAMA_MODEL", "llama3:8b"),
		GeminiAPIKey:      getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrency: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		LLMTemperature:    getEnvAsFloatOrDefault("LLM_TEMPERATURE", 0.9),
		LLMMaxTokens:      getEnvAsIntOrDefault("LLM_MAX_TOKENS", 1024),
		LLMStopToken:      getEnvOrDefault("LLM_STOP_TOKEN", ""),
		LLMConnectTimeout: getEnvAsDurationOrDefault("LLM_CONNECT_TIMEOUT", 30*time.Second),
		LLMReadTimeout:    getEnvAsDurationOrDefault("LLM_READ_TIMEOUT", 2*time.Minute),

		TMDBAPIKey:       mustGetEnv("TMDB_API_KEY"),
		TMDBBaseURL:      getEnvOrDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBTimeout:      getEnvAsDurationOrDefault("TMDB_TIMEOUT", 10*time.Second),
		TMDBRegion:       getEnvOrDefault("TMDB_REGION", "US"),
		CatalogCacheTTL:  getEnvAsDurationOrDefault("CATALOG_CACHE_TTL", 15*time.Minute),
		VerifyTrailers:   getEnvAsBoolOrDefault("VERIFY_TRAILERS", false),
		TrendingInPrompt: getEnvAsIntOrDefault("TRENDING_IN_PROMPT", 5),

		CorrectionsFile: getEnvOrDefault("CORRECTIONS_FILE", ""),

		ChatRateLimitPerMin: getEnvAsIntOrDefault("CHAT_RATE_LIMIT_PER_MIN", 20),
		APIRateLimitPerMin:  getEnvAsIntOrDefault("API_RATE_LIMIT_PER_MIN", 120),
		WorkerCount:         getEnvAsIntOrDefault("WORKER_COUNT", 3),
		ChatHistoryTurns:    getEnvAsIntOrDefault("CHAT_HISTORY_TURNS", 20),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.LLMProvider == "gemini" && cfg.GeminiAPIKey == "" {
		panic("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go durations ("90s", "2m") or a bare
// number of seconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
