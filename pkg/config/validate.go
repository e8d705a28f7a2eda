// Package config loads and validates client and development-backend configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateClient ensures the wizard has what it needs to reach the backend.
func (c *Config) ValidateClient() error {
	var missing []string

	if strings.TrimSpace(c.API.BaseURL) == "" {
		missing = append(missing, "LAUNCHKART_API_URL")
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid LAUNCHKART_API_URL: %q", c.API.BaseURL)
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Redis.URL) == "" {
			missing = append(missing, "REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q (want memory or redis)", c.Session.Backend)
	}

	if c.Upload.MaxImageBytes <= 0 {
		missing = append(missing, "UPLOAD_MAX_IMAGE_BYTES")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// ValidateServer ensures the development backend can start.
func (c *Config) ValidateServer() error {
	var missing []string

	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.JWT.Secret == "change-this-secret" && !c.IsDevelopment() {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
