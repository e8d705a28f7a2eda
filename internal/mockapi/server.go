// ==============================================================================
// MOCK KYC BACKEND - internal/mockapi/server.go
// ==============================================================================
package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"launchkart/internal/auth"
	"launchkart/internal/middleware"
	"launchkart/internal/virusscan"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sender delivers verification mail. *mailer.Mailer implements it.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options tunes the mock backend.
type Options struct {
	JWTSecret string
	JWTExpiry time.Duration

	// AutoApprove marks generic document submissions verified instead of
	// pending review.
	AutoApprove bool

	MaxUploadBytes int64
	Scanner        virusscan.Scanner // nil selects the signature scanner
	VideoBaseURL   string
	SessionTTL     time.Duration

	// PublicURL is used in verification links.
	PublicURL           string
	VerificationTimeout time.Duration
	Mailer              Sender // nil logs the link instead

	CORSOrigins []string
	Registry    *prometheus.Registry    // nil disables /metrics
	RateLimiter *middleware.RateLimiter // nil disables limiting of verify endpoints
}

func (o *Options) defaults() {
	if o.JWTExpiry <= 0 {
		o.JWTExpiry = 12 * time.Hour
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 5 * 1024 * 1024
	}
	if o.VideoBaseURL == "" {
		o.VideoBaseURL = "https://video.launchkart.dev/session"
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
	if o.PublicURL == "" {
		o.PublicURL = "http://localhost:8000/api"
	}
	if o.VerificationTimeout <= 0 {
		o.VerificationTimeout = 24 * time.Hour
	}
}

// Server wires the store and the auth service behind HTTP handlers.
type Server struct {
	store     *Store
	auth      *auth.Service
	scanner   virusscan.Scanner
	validator *validator.Validator
	logger    logger.Logger
	opts      Options
	now       func() time.Time
}

func New(store *Store, opts Options, v *validator.Validator, log logger.Logger) *Server {
	opts.defaults()
	scanner := opts.Scanner
	if scanner == nil {
		scanner = virusscan.NewSignatureScanner(log)
	}
	return &Server{
		store:     store,
		auth:      auth.NewService(store, opts.JWTSecret, opts.JWTExpiry),
		scanner:   scanner,
		validator: v,
		logger:    log,
		opts:      opts,
		now:       time.Now,
	}
}

// Router builds the HTTP routes. Paths mirror the production API under /api.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.CORS(s.opts.CORSOrigins))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(s.logger).Log)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(s.logger))
	if s.opts.Registry != nil {
		r.Use(middleware.NewMetrics(s.opts.Registry).Instrument)
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/resend-verification", s.resendVerification).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/verify", s.verifyEmail).Methods(http.MethodGet)

	authMW := middleware.NewAuthMiddleware(s.opts.JWTSecret)
	kyc := api.PathPrefix("/kyc").Subrouter()
	kyc.Use(authMW.Authenticate)
	kyc.HandleFunc("/status", s.status).Methods(http.MethodGet)
	kyc.HandleFunc("/basic", s.submitBasic).Methods(http.MethodPost)
	kyc.HandleFunc("/tier2/initiate", s.initiateFullKYC).Methods(http.MethodPost)
	kyc.HandleFunc("/tier2/sessions/{session_id}/complete", s.completeFullKYC).Methods(http.MethodPost)

	verify := kyc.PathPrefix("/tier1").Subrouter()
	if s.opts.RateLimiter != nil {
		verify.Use(s.opts.RateLimiter.Limit)
	}
	verify.HandleFunc("/verify-aadhaar", s.verifyAadhaar).Methods(http.MethodPost)
	verify.HandleFunc("/verify-pan", s.verifyPAN).Methods(http.MethodPost)
	verify.HandleFunc("/verify-emirates-id", s.verifyEmiratesID).Methods(http.MethodPost)

	return r
}

// ==============================================================================
// HELPER METHODS
// ==============================================================================

// respondJSON sends a JSON response with proper content type and status code
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":  err.Error(),
			"status": status,
		})
	}
}

// respondError sends the {"detail": ...} error body the client displays verbatim.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "kycmock"})
}
