// ==============================================================================
// KYC API CLIENT - internal/kyc/client.go
// ==============================================================================
// REST client for the LaunchKart KYC endpoints. Every call carries the bearer
// credential supplied by the session collaborator and a fresh X-Request-ID.
// No call is retried.
// ==============================================================================

package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"

	"github.com/google/uuid"
)

const (
	pathStatus           = "kyc/status"
	pathBasic            = "kyc/basic"
	pathVerifyAadhaar    = "kyc/tier1/verify-aadhaar"
	pathVerifyPAN        = "kyc/tier1/verify-pan"
	pathVerifyEmiratesID = "kyc/tier1/verify-emirates-id"
	pathInitiateFull     = "kyc/tier2/initiate"

	maxResponseBytes = 1 << 20
)

// Authorizer attaches credentials to an outgoing request.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// Client talks to the KYC backend.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authorizer
	logger  logger.Logger
}

// NewClient creates a client rooted at baseURL (e.g. https://api.launchkart.in/api).
// A nil httpClient selects a client without timeout; cancellation comes from
// the request context.
func NewClient(baseURL string, httpClient *http.Client, auth Authorizer, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		auth:    auth,
		logger:  log,
	}
}

// ==============================================================================
// ENDPOINTS
// ==============================================================================

// FetchStatus retrieves the current verification state.
func (c *Client) FetchStatus(ctx context.Context) (*domain.KYCStatusInfo, error) {
	var resp domain.KYCStatusResponse
	if err := c.do(ctx, "fetch_status", http.MethodGet, pathStatus, nil, "", &resp); err != nil {
		return nil, err
	}
	info := resp.ToInfo()
	if !info.Level.Valid() || !info.Status.Valid() {
		return nil, &APIError{
			Op:         "fetch_status",
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("%w: level=%q status=%q", errors.ErrUnexpectedResponse, info.Level, info.Status),
		}
	}
	return info, nil
}

// SubmitBasic uploads the generic document form.
func (c *Client) SubmitBasic(ctx context.Context, s *BasicSubmission) error {
	body, contentType, err := buildMultipart(
		[]formField{
			{"document_type", string(s.DocumentType)},
			{"document_number", strings.TrimSpace(s.DocumentNumber)},
		},
		[]fileField{{"document_file", s.DocumentFile}},
	)
	if err != nil {
		return err
	}
	return c.do(ctx, "submit_basic", http.MethodPost, pathBasic, body, contentType, nil)
}

// VerifyAadhaar submits the Aadhaar number together with the OTP.
func (c *Client) VerifyAadhaar(ctx context.Context, number, otp string) (*domain.VerificationResponse, error) {
	body, contentType, err := buildMultipart(
		[]formField{{"aadhaar_number", number}, {"otp", otp}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return c.verify(ctx, "verify_aadhaar", pathVerifyAadhaar, body, contentType)
}

// VerifyPAN uploads the PAN card image.
func (c *Client) VerifyPAN(ctx context.Context, image *Upload) (*domain.VerificationResponse, error) {
	body, contentType, err := buildMultipart(nil, []fileField{{"pan_image", image}})
	if err != nil {
		return nil, err
	}
	return c.verify(ctx, "verify_pan", pathVerifyPAN, body, contentType)
}

// VerifyEmiratesID uploads the Emirates ID image and a selfie.
func (c *Client) VerifyEmiratesID(ctx context.Context, idImage, selfie *Upload) (*domain.VerificationResponse, error) {
	body, contentType, err := buildMultipart(nil, []fileField{
		{"emirates_id_image", idImage},
		{"selfie_image", selfie},
	})
	if err != nil {
		return nil, err
	}
	return c.verify(ctx, "verify_emirates_id", pathVerifyEmiratesID, body, contentType)
}

// InitiateFullKYC asks the backend for a video-KYC session.
func (c *Client) InitiateFullKYC(ctx context.Context) (*domain.FullKYCSession, error) {
	var resp domain.FullKYCSessionResponse
	if err := c.do(ctx, "initiate_full_kyc", http.MethodPost, pathInitiateFull, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.SessionURL == "" {
		return nil, &APIError{
			Op:         "initiate_full_kyc",
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("%w: missing session_url", errors.ErrUnexpectedResponse),
		}
	}
	return &domain.FullKYCSession{
		SessionID:    resp.SessionID,
		SessionURL:   resp.SessionURL,
		ExpiresAt:    resp.ExpiresAt,
		Instructions: resp.Instructions,
	}, nil
}

func (c *Client) verify(ctx context.Context, op, path string, body io.Reader, contentType string) (*domain.VerificationResponse, error) {
	var resp domain.VerificationResponse
	if err := c.do(ctx, op, http.MethodPost, path, body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ==============================================================================
// TRANSPORT
// ==============================================================================

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.auth != nil {
		if err := c.auth.Authorize(req); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("KYC request failed", map[string]interface{}{
			"op":          op,
			"method":      method,
			"path":        path,
			"request_id":  requestID,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return &APIError{
			Op:        op,
			RequestID: requestID,
			Err:       fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Op: op, StatusCode: resp.StatusCode, RequestID: requestID, Err: err}
	}

	c.logger.Info("KYC request", map[string]interface{}{
		"op":          op,
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"request_id":  requestID,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(raw),
			RequestID:  requestID,
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Err:        fmt.Errorf("%w: %v", errors.ErrUnexpectedResponse, err),
		}
	}
	return nil
}

// errorDetail extracts the server message from an error body. FastAPI-style
// validation errors put a list under "detail"; those fall back to the
// generic message.
func errorDetail(raw []byte) string {
	var body struct {
		Detail       json.RawMessage `json:"detail"`
		ErrorMessage string          `json:"error_message"`
		Message      string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	if body.ErrorMessage != "" {
		return body.ErrorMessage
	}
	return body.Message
}

// ==============================================================================
// MULTIPART
// ==============================================================================

type formField struct {
	name  string
	value string
}

type fileField struct {
	name string
	file *Upload
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipart(fields []formField, files []fileField) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", errors.Wrap(err, "failed to write form field")
		}
	}

	for _, f := range files {
		if f.file == nil {
			return nil, "", fmt.Errorf("%w: %s", errors.ErrFileRequired, f.name)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.name), quoteEscaper.Replace(f.file.Name)))
		ct := f.file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to create file part")
		}
		if _, err := part.Write(f.file.Data); err != nil {
			return nil, "", errors.Wrap(err, "failed to write file part")
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to finalize multipart body")
	}
	return body, w.FormDataContentType(), nil
}
