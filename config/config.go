package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                string
	Env                 string
	ScratchDir          string
	OutputDir           string
	RedisAddr           string
	KafkaBrokers        string
	KafkaTopic          string
	MaxUploadSize       int64
	MaxActiveJobs       int
	JobTTL              time.Duration
	FetchConnectTimeout time.Duration
	FetchReadTimeout    time.Duration
}

func Load() *Config {
	return &Config{
		Port:                getEnv("SERVICE_PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		ScratchDir:          getEnv("SCRATCH_DIR", "downloads"),
		OutputDir:           getEnv("OUTPUT_DIR", "converted"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		KafkaBrokers:        getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "transcode_events"),
		MaxUploadSize:       getEnvAsInt64("MAX_UPLOAD_SIZE", 800*1024*1024),
		MaxActiveJobs:       getEnvAsInt("MAX_ACTIVE_JOBS", 4),
		JobTTL:              time.Duration(getEnvAsInt("JOB_TTL_MINUTES", 24*60)) * time.Minute,
		FetchConnectTimeout: time.Duration(getEnvAsInt("FETCH_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		FetchReadTimeout:    time.Duration(getEnvAsInt("FETCH_READ_TIMEOUT_SECONDS", 300)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
