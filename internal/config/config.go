package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string

	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPPassword string

	TextProviderURL   string
	TextProviderToken string

	// UnknownTypeDeleteAfterAttempts is how many send attempts a notification
	// with an unregistered template/task type survives before it is deleted as
	// poison.
	UnknownTypeDeleteAfterAttempts int

	// SweepBatchSize caps how many queued notifications one sweep visits.
	SweepBatchSize int
}

// LoadConfig reads configuration from a .env file (if present) and the process
// environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:    getEnv("DB_NAME", "notification_engine"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPSender:   getEnv("SMTP_SENDER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		TextProviderURL:   getEnv("TEXT_PROVIDER_URL", ""),
		TextProviderToken: getEnv("TEXT_PROVIDER_TOKEN", ""),

		UnknownTypeDeleteAfterAttempts: getEnvInt("UNKNOWN_TYPE_DELETE_AFTER_ATTEMPTS", 5),
		SweepBatchSize:                 getEnvInt("SWEEP_BATCH_SIZE", 100),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, fallback)
		return fallback
	}
	return parsed
}
