package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/internal/logutil"
)

// Config holds application configuration
type Config struct {
	Port             int
	MaxUploadMB      int
	TargetSizeKB     float64
	HardCeilingBytes int
	MaxDimension     int
	OutputFormat     codec.Format
	MaxConcurrent    int
	RateLimitPerSec  int
	RateLimitBurst   int
	WorkerCount      int
	NetworksFile     string

	NATSURL       string
	JobSubject    string
	ResultSubject string
	WorkerQueue   string

	LogLevel string
	LogDev   bool
	LogFile  string
}

// Load reads a .env file if present, then configuration from environment
// variables with defaults. Variables already set in the environment win over
// the .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvInt("PORT", 8080),
		MaxUploadMB:      getEnvInt("MAX_UPLOAD_MB", 10),
		TargetSizeKB:     getEnvFloat("TARGET_SIZE_KB", 43),
		HardCeilingBytes: getEnvInt("HARD_CEILING_BYTES", compressor.DefaultHardCeilingBytes),
		MaxDimension:     getEnvInt("MAX_DIMENSION", 2048),
		OutputFormat:     codec.ParseFormat(getEnv("OUTPUT_FORMAT", string(codec.DefaultFormat))),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 50),
		RateLimitPerSec:  getEnvInt("RATE_LIMIT", 10),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),
		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		NetworksFile:     getEnv("NETWORKS_FILE", ""),

		NATSURL:       getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		JobSubject:    getEnv("JOB_SUBJECT", "artpress.compress"),
		ResultSubject: getEnv("RESULT_SUBJECT", "artpress.compress.done"),
		WorkerQueue:   getEnv("WORKER_QUEUE", "artpress-workers"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDev:   getEnvBool("LOG_DEV", false),
		LogFile:  getEnv("LOG_FILE", ""),
	}
	return cfg
}

// CompressorOptions returns the default request options derived from cfg.
func (c *Config) CompressorOptions() compressor.Options {
	return compressor.Options{
		PreferredFormat:  c.OutputFormat,
		MaxDimension:     c.MaxDimension,
		TargetSizeKB:     c.TargetSizeKB,
		HardCeilingBytes: c.HardCeilingBytes,
	}
}

// LoggerOptions returns the logger settings derived from cfg.
func (c *Config) LoggerOptions() logutil.Options {
	opts := logutil.Options{Level: c.LogLevel, Development: c.LogDev}
	if c.LogFile != "" {
		opts.File = logutil.FileOptions{
			Filename:   c.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			Compress:   true,
		}
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}
