package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost             string
	HTTPPort             string
	MySQLDSN             string
	JWTSecret            string
	JWTExpiration        string
	JWTExpirationRefresh string
	ResendCooldown       time.Duration
	CodeLength           int
	CodeAlphabet         string
	ClientBaseURL        string
	LogLevel             string
	SMTP                 SMTPConfig
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// DefaultCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L,
// B/8, D/O, 3/E, 6/G).
const DefaultCodeAlphabet = "ACEFGHJKQRSTUVWXYZ245789"

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost:             getEnv("HTTP_HOST", ""),
		HTTPPort:             getEnv("HTTP_PORT", "8181"),
		MySQLDSN:             mysqlDSN,
		JWTSecret:            jwtSecret,
		JWTExpiration:        getEnv("JWT_EXPIRATION", "2h"),
		JWTExpirationRefresh: getEnv("JWT_EXPIRATION_REFRESH", "3M"),
		ResendCooldown:       getSecondsEnv("RESEND_COOLDOWN_SECONDS", 7*time.Second),
		CodeLength:           getIntEnv("CODE_LENGTH", 4),
		CodeAlphabet:         getEnv("CODE_ALPHABET", DefaultCodeAlphabet),
		ClientBaseURL:        getEnv("CLIENT_BASE_URL", "http://localhost:8080/#"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port: getIntEnv("SMTP_PORT", 465),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
