// ==============================================================================
// DEVELOPMENT BACKEND CONFIGURATION - pkg/config/mock_config.go
// ==============================================================================
// Settings read only by cmd/kycmock
// ==============================================================================

package config

import (
	"strings"
	"time"
)

// MockConfig extends the main config with development backend settings
type MockConfig struct {
	// Seed data
	DemoPassword string `json:"demo_password" env:"MOCK_DEMO_PASSWORD" default:"launchkart-demo"`

	// Adjudication
	AutoApprove bool          `json:"auto_approve" env:"MOCK_AUTO_APPROVE" default:"false"`
	SessionTTL  time.Duration `json:"session_ttl" env:"MOCK_VIDEO_SESSION_TTL" default:"30m"`

	// Links handed to the user
	PublicURL           string        `json:"public_url" env:"MOCK_PUBLIC_URL" default:"http://localhost:8000/api"`
	VideoBaseURL        string        `json:"video_base_url" env:"MOCK_VIDEO_BASE_URL" default:"https://video.launchkart.dev/session"`
	VerificationTimeout time.Duration `json:"verification_timeout" env:"MOCK_VERIFICATION_TIMEOUT" default:"24h"`

	// Rate limiting of the verification endpoints, backed by Redis
	RateLimitEnabled bool          `json:"rate_limit_enabled" env:"MOCK_RATE_LIMIT_ENABLED" default:"false"`
	VerifyAttempts   int           `json:"verify_attempts" env:"MOCK_VERIFY_ATTEMPTS" default:"5"`
	VerifyWindow     time.Duration `json:"verify_window" env:"MOCK_VERIFY_WINDOW" default:"1m"`

	// HTTP surface
	CORSOrigins    []string `json:"cors_origins" env:"MOCK_CORS_ORIGINS" default:""`
	MetricsEnabled bool     `json:"metrics_enabled" env:"MOCK_METRICS_ENABLED" default:"true"`
}

// LoadMockConfig loads development backend configuration from environment
func LoadMockConfig() *MockConfig {
	return &MockConfig{
		DemoPassword: getEnv("MOCK_DEMO_PASSWORD", "launchkart-demo"),

		AutoApprove: getBoolEnv("MOCK_AUTO_APPROVE", false),
		SessionTTL:  getDurationEnv("MOCK_VIDEO_SESSION_TTL", 30*time.Minute),

		PublicURL:           strings.TrimRight(getEnv("MOCK_PUBLIC_URL", "http://localhost:8000/api"), "/"),
		VideoBaseURL:        getEnv("MOCK_VIDEO_BASE_URL", "https://video.launchkart.dev/session"),
		VerificationTimeout: getDurationEnv("MOCK_VERIFICATION_TIMEOUT", 24*time.Hour),

		RateLimitEnabled: getBoolEnv("MOCK_RATE_LIMIT_ENABLED", false),
		VerifyAttempts:   getIntEnv("MOCK_VERIFY_ATTEMPTS", 5),
		VerifyWindow:     getDurationEnv("MOCK_VERIFY_WINDOW", time.Minute),

		CORSOrigins:    splitList(getEnv("MOCK_CORS_ORIGINS", "")),
		MetricsEnabled: getBoolEnv("MOCK_METRICS_ENABLED", true),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
