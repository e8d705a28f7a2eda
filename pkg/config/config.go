// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Server  ServerConfig
	JWT     JWTConfig
	Email   EmailConfig
	Upload  UploadConfig
	OTP     OTPConfig
}

// APIConfig points the client at the LaunchKart backend.
type APIConfig struct {
	BaseURL string
	// Zero means no client-side timeout; requests still honour context cancellation.
	Timeout time.Duration
}

type SessionConfig struct {
	Backend string // memory | redis
	TTL     time.Duration
	Key     string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// ServerConfig is used by the development backend only.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

type UploadConfig struct {
	MaxImageBytes int64
}

type OTPConfig struct {
	Issuer string
	// Delay of the simulated send step.
	Delay time.Duration
}

// Load reads an optional .env file and then the process environment.
// Values already present in the environment win over the file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env: getEnv("APP_ENV", "production"),
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("LAUNCHKART_API_URL", "http://localhost:8000/api"), "/"),
			Timeout: getDurationEnv("LAUNCHKART_API_TIMEOUT", 0),
		},
		Session: SessionConfig{
			Backend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
			TTL:     getDurationEnv("SESSION_TTL", 12*time.Hour),
			Key:     getEnv("SESSION_KEY", "launchkart:session"),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 12*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", ""),
			SMTPUseTLS:   getBoolEnv("SMTP_USE_TLS", true),
		},
		Upload: UploadConfig{
			MaxImageBytes: int64(getIntEnv("UPLOAD_MAX_IMAGE_BYTES", 5*1024*1024)),
		},
		OTP: OTPConfig{
			Issuer: getEnv("OTP_ISSUER", "LaunchKart"),
			Delay:  getDurationEnv("OTP_SIMULATED_DELAY", time.Second),
		},
	}
}

// IsDevelopment reports whether APP_ENV selects development defaults.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
