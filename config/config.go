package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Define   DefineConfig
	Cache    CacheConfig
	Realtime RealtimeConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// LLMConfig holds the definition provider credentials and model.
type LLMConfig struct {
	APIKey string
	Model  string
}

// DefineConfig bounds the definition request queue.
type DefineConfig struct {
	Concurrency     int           // max simultaneous in-flight provider calls
	Timeout         time.Duration // hard per-job timeout
	QueueDepth      int           // pending submissions beyond the in-flight set
	ContextMaxChars int           // trailing context window passed to the provider
}

// CacheConfig controls the optional definition cache.
type CacheConfig struct {
	Enabled  bool
	Capacity int
	TTL      time.Duration
}

// RealtimeConfig holds WebSocket lifecycle settings.
type RealtimeConfig struct {
	MaxConnections int
	PingInterval   time.Duration
	PongWait       time.Duration
}

// RedisConfig selects the Redis-backed cache store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment, with optional .env file.
// Every value has a default so a local run needs no configuration beyond
// the provider API key.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		LLM: LLMConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Define: DefineConfig{
			Concurrency:     getEnvInt("DEFINE_CONCURRENCY", 8),
			Timeout:         time.Duration(getEnvInt("DEFINE_TIMEOUT_SEC", 18)) * time.Second,
			QueueDepth:      getEnvInt("DEFINE_QUEUE_DEPTH", 128),
			ContextMaxChars: getEnvInt("CONTEXT_MAX_CHARS", 280),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", true),
			Capacity: getEnvInt("CACHE_CAPACITY", 512),
			TTL:      time.Duration(getEnvInt("CACHE_TTL_MIN", 60)) * time.Minute,
		},
		Realtime: RealtimeConfig{
			MaxConnections: getEnvInt("MAX_CONNECTIONS", 100),
			PingInterval:   time.Duration(getEnvInt("PING_INTERVAL_SEC", 30)) * time.Second,
			PongWait:       time.Duration(getEnvInt("PONG_WAIT_SEC", 60)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
