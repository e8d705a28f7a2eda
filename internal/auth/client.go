// ==============================================================================
// AUTH CLIENT - internal/auth/client.go
// ==============================================================================
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"launchkart/internal/session"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"

	"github.com/google/uuid"
)

const (
	pathLogin              = "auth/login"
	pathResendVerification = "auth/resend-verification"
)

// Error is a non-2xx response from an auth endpoint.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("auth: status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth: status %d: %s", e.StatusCode, e.Detail)
}

// Client logs the user in against the backend and records the result in the
// session manager.
type Client struct {
	baseURL   string
	http      *http.Client
	sessions  *session.Manager
	validator *validator.Validator
	logger    logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, sessions *session.Manager, v *validator.Validator, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		sessions:  sessions,
		validator: v,
		logger:    log,
	}
}

// Login exchanges credentials for a token and starts a session. The email is
// remembered even when login fails so that a verification resend can follow.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	req := &domain.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if fields := c.validator.ValidateStructured(req); fields != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrValidation, formatFields(fields))
	}

	if err := c.sessions.RememberEmail(ctx, req.Email); err != nil {
		c.logger.Warn("Failed to remember email", map[string]interface{}{"error": err.Error()})
	}

	var resp domain.LoginResponse
	if err := c.post(ctx, pathLogin, req, &resp); err != nil {
		var authErr *Error
		if errors.As(err, &authErr) && authErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", errors.ErrInvalidCredentials, authErr.Detail)
		}
		return nil, err
	}

	return c.sessions.Start(ctx, resp.AccessToken, resp.User)
}

// ResendVerification asks the backend to send a new verification mail to the
// email last used by a login attempt.
func (c *Client) ResendVerification(ctx context.Context) error {
	email, err := c.sessions.LastEmail(ctx)
	if err != nil {
		return err
	}

	req := &domain.ResendVerificationRequest{Email: email}
	if fields := c.validator.ValidateStructured(req); fields != nil {
		return fmt.Errorf("%w: no email to send verification to", errors.ErrValidation)
	}
	return c.post(ctx, pathResendVerification, req, nil)
}

// Logout forgets the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.Clear(ctx)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	c.logger.Info("Auth request", map[string]interface{}{
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e domain.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		return &Error{StatusCode: resp.StatusCode, Detail: e.Detail}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnexpectedResponse, err)
	}
	return nil
}

func formatFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, k := range []string{"email", "password"} {
		if msg, ok := fields[k]; ok {
			parts = append(parts, k+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}
