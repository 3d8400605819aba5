package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Server      ServerConfig
	Limits      LimitsConfig
	Compression CompressionConfig
	RateLimit   RateLimitConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// LimitsConfig holds the externally visible admission and intake limits.
type LimitsConfig struct {
	ImageRequestsPerWindow    int
	DocumentRequestsPerWindow int
	Window                    time.Duration
	MaxBatchFiles             int
	MaxImageFileSize          int64
	MaxDocumentFileSize       int64
	DocumentRemoteThreshold   int64
}

type CompressionConfig struct {
	DefaultQuality int
	MinQuality     int
	QualityStep    float64
	MaxAttempts    int
	Workers        int
	// DocumentImageQuality re-encodes JPEGs inside remotely optimized PDFs; 0 disables it.
	DocumentImageQuality int
}

type RateLimitConfig struct {
	Backend string // "memory" or "redis"
	Prefix  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL        string
	Queue      string
	RPCTimeout time.Duration
	Prefetch   int
	// MaxPerSecond paces how fast a worker takes remote jobs.
	MaxPerSecond float64
}

const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 90*time.Second),
			BatchTimeout: getDuration("BATCH_TIMEOUT", 60*time.Second),
		},
		Limits: LimitsConfig{
			ImageRequestsPerWindow:    getEnvAsInt("IMAGE_RATE_LIMIT", 60),
			DocumentRequestsPerWindow: getEnvAsInt("DOCUMENT_RATE_LIMIT", 10),
			Window:                    getDuration("RATE_LIMIT_WINDOW", time.Hour),
			MaxBatchFiles:             getEnvAsInt("MAX_BATCH_FILES", 10),
			MaxImageFileSize:          getEnvAsInt64("MAX_IMAGE_FILE_SIZE", 25<<20),    // 25MB
			MaxDocumentFileSize:       getEnvAsInt64("MAX_DOCUMENT_FILE_SIZE", 15<<20), // 15MB
			DocumentRemoteThreshold:   getEnvAsInt64("DOCUMENT_REMOTE_THRESHOLD", 5<<20),
		},
		Compression: CompressionConfig{
			DefaultQuality: getEnvAsInt("DEFAULT_QUALITY", 80),
			MinQuality:     getEnvAsInt("MIN_QUALITY", 5),
			QualityStep:    getEnvAsFloat("QUALITY_STEP", 0.85),
			MaxAttempts:    getEnvAsInt("MAX_ATTEMPTS", 6),
			Workers:        getEnvAsInt("COMPRESSION_WORKERS", 4),

			DocumentImageQuality: getEnvAsInt("DOCUMENT_IMAGE_QUALITY", 75),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitMemory)),
			Prefix:  getEnv("RATE_LIMIT_PREFIX", "mediacompress:ratelimit"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:          getEnv("RABBITMQ_URL", ""),
			Queue:        getEnv("RABBITMQ_QUEUE", "document_optimization"),
			RPCTimeout:   getDuration("RABBITMQ_RPC_TIMEOUT", 45*time.Second),
			Prefetch:     getEnvAsInt("RABBITMQ_PREFETCH", 2),
			MaxPerSecond: getEnvAsFloat("WORKER_MAX_PER_SECOND", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Limits.ImageRequestsPerWindow <= 0 || c.Limits.DocumentRequestsPerWindow <= 0:
		return fmt.Errorf("rate limits must be positive")
	case c.Limits.Window <= 0:
		return fmt.Errorf("rate limit window must be positive")
	case c.Limits.MaxBatchFiles <= 0:
		return fmt.Errorf("max batch files must be positive")
	case c.Limits.MaxImageFileSize <= 0 || c.Limits.MaxDocumentFileSize <= 0:
		return fmt.Errorf("per-file ceilings must be positive")
	case c.Compression.MinQuality < 1 || c.Compression.MinQuality > c.Compression.DefaultQuality:
		return fmt.Errorf("min quality %d must be within 1..%d", c.Compression.MinQuality, c.Compression.DefaultQuality)
	case c.Compression.DefaultQuality > 100:
		return fmt.Errorf("default quality %d exceeds 100", c.Compression.DefaultQuality)
	case c.Compression.QualityStep <= 0 || c.Compression.QualityStep >= 1:
		return fmt.Errorf("quality step must be in (0,1)")
	case c.Compression.DocumentImageQuality < 0 || c.Compression.DocumentImageQuality > 100:
		return fmt.Errorf("document image quality must be within 0..100")
	case c.Compression.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be at least 1")
	case c.Server.BatchTimeout <= 0:
		return fmt.Errorf("batch timeout must be positive")
	case c.RateLimit.Backend != RateLimitMemory && c.RateLimit.Backend != RateLimitRedis:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
