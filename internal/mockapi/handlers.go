package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"launchkart/internal/auth"
	"launchkart/internal/kyc"
	"launchkart/internal/middleware"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// minReadableBytes is the smallest image the adjudicator treats as legible.
const minReadableBytes = 1024

// rejectedOTP is always refused so the failure path can be exercised.
const rejectedOTP = "000000"

var (
	errAlreadyVerified = errors.New("basic kyc already completed")
	errBasicRequired   = errors.New("basic kyc required")
	errFullCompleted   = errors.New("full kyc already completed")
	errInfected        = errors.New("file failed security scan")
)

// ==============================================================================
// AUTH
// ==============================================================================

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if fields := s.validator.ValidateStructured(req); fields != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "Please enter a valid email and password")
		return
	}

	resp, err := s.auth.Login(r.Context(), &req)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, auth.ErrEmailNotVerified):
		s.respondError(w, http.StatusForbidden, "Please verify your email before logging in")
	case errors.Is(err, errors.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		s.logger.Error("Login failed", map[string]interface{}{"error": err.Error()})
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// resendVerification always answers 200 so the endpoint does not reveal which
// addresses are registered.
func (s *Server) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if fields := s.validator.ValidateStructured(req); fields != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "Please enter a valid email address")
		return
	}

	if token, ok := s.store.issueVerification(req.Email, s.opts.VerificationTimeout, s.now()); ok {
		link := fmt.Sprintf("%s/auth/verify?token=%s", strings.TrimRight(s.opts.PublicURL, "/"), token)
		if s.opts.Mailer == nil {
			s.logger.Info("Verification link issued", map[string]interface{}{
				"email": req.Email,
				"link":  link,
			})
		} else {
			body := fmt.Sprintf("Welcome to LaunchKart.\n\nConfirm your email address by opening:\n%s\n\nThe link expires in %s.\n",
				link, s.opts.VerificationTimeout)
			if err := s.opts.Mailer.Send(r.Context(), req.Email, "Verify your LaunchKart email", body); err != nil {
				s.logger.Error("Failed to send verification email", map[string]interface{}{
					"email": req.Email,
					"error": err.Error(),
				})
			}
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a verification email has been sent",
	})
}

func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || !s.store.confirmVerification(token, s.now()) {
		s.respondError(w, http.StatusBadRequest, "Invalid or expired verification link")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

// ==============================================================================
// KYC STATUS
// ==============================================================================

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	p, ok := s.store.profile(userID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "User not found")
		return
	}
	s.respondJSON(w, http.StatusOK, statusResponse(p))
}

func statusResponse(p profile) domain.KYCStatusResponse {
	basicDone := p.Level == domain.KYCLevelBasic && p.Status == domain.KYCStatusVerified
	fullDone := p.Level == domain.KYCLevelFull && p.Status == domain.KYCStatusVerified

	resp := domain.KYCStatusResponse{
		KYCLevel:  p.Level,
		KYCStatus: p.Status,
		FeaturesUnlocked: map[string]bool{
			domain.FeatureDashboardAccess: p.Level != domain.KYCLevelNone,
			domain.FeatureFreeServices:    basicDone || p.Level == domain.KYCLevelFull,
			domain.FeatureInvestmentTools: fullDone,
			domain.FeatureFundingAccess:   fullDone,
		},
	}

	switch {
	case p.Level == domain.KYCLevelNone:
		resp.NextSteps = []string{"Complete basic KYC by submitting a government ID"}
	case p.Status == domain.KYCStatusRejected:
		resp.NextSteps = []string{"Your last submission was rejected", "Contact support to resubmit your documents"}
	case p.Status == domain.KYCStatusPending && p.Level == domain.KYCLevelBasic:
		resp.NextSteps = []string{"Your documents are under review", "You can start full KYC meanwhile"}
	case p.Level == domain.KYCLevelBasic:
		resp.NextSteps = []string{"Complete full KYC via video call to unlock investment tools and funding"}
	case p.Status == domain.KYCStatusPending:
		resp.NextSteps = []string{"Your video KYC is under review"}
	default:
		resp.NextSteps = []string{}
	}
	return resp
}

// ==============================================================================
// TIER 1
// ==============================================================================

func (s *Server) submitBasic(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r) {
		return
	}
	country, _ := middleware.CountryFromContext(r.Context())

	file, err := s.readUpload(r, "document_file")
	if err != nil && !errors.Is(err, errors.ErrFileRequired) {
		s.respondUploadError(w, err)
		return
	}
	if file.Size() > s.opts.MaxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(s.opts.MaxUploadBytes))
		return
	}

	sub := kyc.BasicSubmission{
		DocumentType:   domain.DocumentType(r.FormValue("document_type")),
		DocumentNumber: r.FormValue("document_number"),
		DocumentFile:   file,
	}
	if err := sub.Validate(s.validator, country); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errors.ErrUnsupportedDocument) {
			status = http.StatusForbidden
		}
		s.respondError(w, status, kyc.UserMessage(err))
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	err = s.store.update(userID, func(p *profile) error {
		if p.Level != domain.KYCLevelNone && p.Status != domain.KYCStatusRejected {
			return errAlreadyVerified
		}
		p.Level = domain.KYCLevelBasic
		p.Status = domain.KYCStatusPending
		if s.opts.AutoApprove {
			p.Status = domain.KYCStatusVerified
		}
		p.Document = sub.DocumentType
		return nil
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.logger.Info("Basic KYC submitted", map[string]interface{}{
		"user_id":       userID,
		"document_type": sub.DocumentType,
		"size":          file.Size(),
	})
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Basic KYC submitted"})
}

func (s *Server) verifyAadhaar(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocument(w, r, domain.DocumentTypeAadhaar) || !s.parseMultipart(w, r) {
		return
	}

	number := r.FormValue("aadhaar_number")
	otp := r.FormValue("otp")
	if len(number) != kyc.AadhaarLength || kyc.SanitizeAadhaar(number) != number {
		s.respondError(w, http.StatusUnprocessableEntity, "Invalid Aadhaar number format")
		return
	}
	if len(otp) != kyc.OTPLength || kyc.SanitizeOTP(otp) != otp {
		s.respondError(w, http.StatusUnprocessableEntity, "Invalid OTP format")
		return
	}
	if otp == rejectedOTP {
		s.reject(w, r, domain.DocumentTypeAadhaar, "Invalid OTP")
		return
	}
	s.approve(w, r, domain.DocumentTypeAadhaar)
}

func (s *Server) verifyPAN(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocument(w, r, domain.DocumentTypePAN) || !s.parseMultipart(w, r) {
		return
	}

	image, err := s.readImage(r, "pan_image")
	if err != nil {
		s.respondUploadError(w, err)
		return
	}
	if image.Size() < minReadableBytes {
		s.reject(w, r, domain.DocumentTypePAN, "PAN card image is unreadable. Please upload a clearer photo")
		return
	}
	s.approve(w, r, domain.DocumentTypePAN)
}

func (s *Server) verifyEmiratesID(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocument(w, r, domain.DocumentTypeEmiratesID) || !s.parseMultipart(w, r) {
		return
	}

	idImage, err := s.readImage(r, "emirates_id_image")
	if err != nil {
		s.respondUploadError(w, err)
		return
	}
	selfie, err := s.readImage(r, "selfie_image")
	if err != nil {
		s.respondUploadError(w, err)
		return
	}
	if idImage.Size() < minReadableBytes {
		s.reject(w, r, domain.DocumentTypeEmiratesID, "Emirates ID image is unreadable. Please upload a clearer photo")
		return
	}
	if selfie.Size() < minReadableBytes {
		s.reject(w, r, domain.DocumentTypeEmiratesID, "Selfie does not match the Emirates ID photo")
		return
	}
	s.approve(w, r, domain.DocumentTypeEmiratesID)
}

// requireDocument rejects document types not offered in the caller's country.
func (s *Server) requireDocument(w http.ResponseWriter, r *http.Request, dt domain.DocumentType) bool {
	country, _ := middleware.CountryFromContext(r.Context())
	for _, allowed := range domain.DocumentTypesFor(country) {
		if allowed == dt {
			return true
		}
	}
	s.respondError(w, http.StatusForbidden, fmt.Sprintf("%s verification is not available for your country", dt.Label()))
	return false
}

// approve records an instant Tier-1 verification.
func (s *Server) approve(w http.ResponseWriter, r *http.Request, dt domain.DocumentType) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	err := s.store.update(userID, func(p *profile) error {
		if p.Level != domain.KYCLevelNone && p.Status != domain.KYCStatusRejected {
			return errAlreadyVerified
		}
		p.Level = domain.KYCLevelBasic
		p.Status = domain.KYCStatusVerified
		p.Document = dt
		return nil
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.logger.Info("Tier-1 verification approved", map[string]interface{}{
		"user_id":       userID,
		"document_type": dt,
	})
	s.respondJSON(w, http.StatusOK, domain.VerificationResponse{Success: true})
}

// reject answers 200 with success=false. The profile is left untouched so the
// user can retry.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, dt domain.DocumentType, reason string) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	s.logger.Info("Tier-1 verification rejected", map[string]interface{}{
		"user_id":       userID,
		"document_type": dt,
		"reason":        reason,
	})
	s.respondJSON(w, http.StatusOK, domain.VerificationResponse{Success: false, ErrorMessage: reason})
}

// ==============================================================================
// TIER 2
// ==============================================================================

func (s *Server) initiateFullKYC(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	now := s.now().UTC()

	var session domain.FullKYCSession
	err := s.store.update(userID, func(p *profile) error {
		switch p.Level {
		case domain.KYCLevelFull:
			return errFullCompleted
		case domain.KYCLevelBasic:
		default:
			return errBasicRequired
		}
		id := uuid.NewString()
		session = domain.FullKYCSession{
			SessionID:    id,
			SessionURL:   strings.TrimRight(s.opts.VideoBaseURL, "/") + "/" + id,
			ExpiresAt:    now.Add(s.opts.SessionTTL),
			Instructions: videoInstructions(),
		}
		cp := session
		p.Session = &cp
		return nil
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.logger.Info("Video KYC session created", map[string]interface{}{
		"user_id":    userID,
		"session_id": session.SessionID,
		"expires_at": session.ExpiresAt,
	})
	s.respondJSON(w, http.StatusOK, domain.FullKYCSessionResponse{
		SessionID:    session.SessionID,
		SessionURL:   session.SessionURL,
		ExpiresAt:    session.ExpiresAt,
		Instructions: session.Instructions,
	})
}

// completeFullKYC stands in for the video agent closing the session.
func (s *Server) completeFullKYC(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	sessionID := mux.Vars(r)["session_id"]

	found := true
	err := s.store.update(userID, func(p *profile) error {
		if p.Session == nil || p.Session.SessionID != sessionID {
			found = false
			return nil
		}
		p.Level = domain.KYCLevelFull
		p.Status = domain.KYCStatusPending
		if s.opts.AutoApprove {
			p.Status = domain.KYCStatusVerified
		}
		p.Session = nil
		return nil
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Video KYC completed"})
}

func videoInstructions() map[string][]string {
	return map[string][]string{
		string(domain.CountryIndia): {
			"Keep your original PAN card and Aadhaar ready",
			"Sit in a well lit room with a stable connection",
			"The agent will ask you to read out a random code",
		},
		string(domain.CountryUAE): {
			"Keep your original Emirates ID ready",
			"Sit in a well lit room with a stable connection",
			"The agent will ask you to turn your head left and right",
		},
		"default": {
			"Keep a government-issued photo ID ready",
			"Sit in a well lit room with a stable connection",
		},
	}
}

// ==============================================================================
// REQUEST HELPERS
// ==============================================================================

// parseMultipart bounds the body to two images plus form overhead.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	limit := 2*s.opts.MaxUploadBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(s.opts.MaxUploadBytes))
			return false
		}
		s.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return false
	}
	return true
}

// readUpload loads a form file. The declared Content-Type is ignored and the
// type is sniffed from content.
func (s *Server) readUpload(r *http.Request, field string) (*kyc.Upload, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errors.ErrFileRequired
		}
		return nil, errors.Wrap(err, "failed to read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, errors.ErrFileRequired
	}

	result, err := s.scanner.ScanBuffer(r.Context(), header.Filename, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan upload")
	}
	if !result.Clean {
		return nil, errInfected
	}
	return kyc.NewUpload(header.Filename, "", data), nil
}

func (s *Server) readImage(r *http.Request, field string) (*kyc.Upload, error) {
	u, err := s.readUpload(r, field)
	if err != nil && !errors.Is(err, errors.ErrFileRequired) {
		return nil, err
	}
	if err := kyc.ValidateImage(field, u, s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Server) respondUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInfected) {
		s.respondError(w, http.StatusUnprocessableEntity, "File failed security scan")
		return
	}
	s.respondError(w, uploadStatus(err), kyc.UserMessage(err))
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errors.ErrFileTypeNotAllowed):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errors.ErrFileRequired):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File size must be less than %dMB", limit/(1024*1024))
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errAlreadyVerified):
		s.respondError(w, http.StatusConflict, "Basic KYC already completed")
	case errors.Is(err, errBasicRequired):
		s.respondError(w, http.StatusForbidden, "Complete basic KYC first")
	case errors.Is(err, errFullCompleted):
		s.respondError(w, http.StatusConflict, "Full KYC already completed")
	case errors.Is(err, errors.ErrNotAuthenticated):
		s.respondError(w, http.StatusNotFound, "User not found")
	default:
		s.logger.Error("Store update failed", map[string]interface{}{"error": err.Error()})
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
