// Package config loads runtime configuration for the manager and worker
// binaries from the environment, with defaults suitable for a single-node
// deployment.
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

// Alphabet is the fixed 36-character candidate alphabet: lowercase letters
// followed by digits, matching the indexing scheme in the generator.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Config holds everything both binaries need. Workers ignore the Mongo/API
// fields; the manager ignores WorkerID and MetricsPort.
type Config struct {
	// Broker
	RabbitMQHost string
	RabbitMQPort int
	RabbitMQUser string
	RabbitMQPass string

	// State store
	MongoHost string
	MongoPort int
	MongoURI  string

	// API
	APIHost string
	APIPort int

	// Worker identity and metrics
	WorkerID    string
	MetricsPort int

	// Partitioning and bounds
	TaskSize         uint64
	MinAllowedLength int
	MaxAllowedLength int
	MaxHashLength    int

	// Retry/sweeper tuning
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryBackoffMult float64
	SweeperInterval  time.Duration
}

// Load reads configuration from the environment, optionally backed by a
// .env file, applying the defaults spec.md §6 names.
func Load() Config {
	loadDotEnv()

	cfg := Config{
		RabbitMQHost: getEnv("RABBITMQ_HOST", "rabbitmq"),
		RabbitMQPort: getEnvInt("RABBITMQ_PORT", 5672),
		RabbitMQUser: getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPass: getEnv("RABBITMQ_PASS", "guest"),

		MongoHost: getEnv("MONGO_HOST", "mongodb"),
		MongoPort: getEnvInt("MONGO_PORT", 27017),

		APIHost: getEnv("API_HOST", "0.0.0.0"),
		APIPort: getEnvInt("API_PORT", 5055),

		WorkerID:    getEnv("WORKER_ID", fmt.Sprintf("worker-%d", os.Getpid())),
		MetricsPort: getEnvInt("METRICS_PORT", 8000),

		TaskSize:         uint64(getEnvInt("TASK_SIZE", 100000)),
		MinAllowedLength: getEnvInt("MIN_ALLOWED_LENGTH", 1),
		MaxAllowedLength: getEnvInt("MAX_ALLOWED_LENGTH", 8),
		MaxHashLength:    getEnvInt("MAX_HASH_LENGTH", 32),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 5),
		RetryBaseDelay:   time.Duration(getEnvInt("RETRY_BASE_DELAY_SEC", 2)) * time.Second,
		RetryBackoffMult: getEnvFloat("RETRY_BACKOFF_MULTIPLIER", 1.5),
		SweeperInterval:  time.Duration(getEnvInt("SWEEPER_INTERVAL_SEC", 30)) * time.Second,
	}

	cfg.MongoURI = getEnv("MONGO_URI", fmt.Sprintf("mongodb://%s:%d/?replicaSet=rs0", cfg.MongoHost, cfg.MongoPort))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	return cfg
}

// Validate rejects configurations that would make the bound checks in the
// submission path meaningless.
func (c *Config) Validate() error {
	if c.MinAllowedLength < 1 {
		return fmt.Errorf("MIN_ALLOWED_LENGTH must be >= 1")
	}
	if c.MaxAllowedLength < c.MinAllowedLength {
		return fmt.Errorf("MAX_ALLOWED_LENGTH must be >= MIN_ALLOWED_LENGTH")
	}
	if c.TaskSize == 0 {
		return fmt.Errorf("TASK_SIZE must be positive")
	}
	return nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env file")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}
