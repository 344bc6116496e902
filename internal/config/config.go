package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL string
	Token     string
	UserID    string
	ChannelID string
	DiagAddr  string
	LogLevel  string

	// MaxMeetingDuration is the allotted duration after which a tracked
	// meeting is forcibly ended.
	MaxMeetingDuration time.Duration
}

// Load reads configuration from environment variables, with a .env file as
// fallback for development.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerURL:          getEnv("GATHER_SERVER_URL", "ws://localhost:8080/ws"),
		Token:              getEnv("GATHER_TOKEN", ""),
		UserID:             getEnv("GATHER_USER_ID", ""),
		ChannelID:          getEnv("GATHER_CHANNEL_ID", ""),
		DiagAddr:           getEnv("GATHER_DIAG_ADDR", ":9090"),
		LogLevel:           getEnv("GATHER_LOG_LEVEL", "info"),
		MaxMeetingDuration: time.Duration(getEnvInt("GATHER_MAX_MEETING_DURATION", 3600)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
