// ==============================================================================
// KYC WIZARD - internal/kyc/wizard.go
// ==============================================================================
// Client-side state machine mirroring the backend verification tiers. The
// wizard owns the ephemeral form state, the cached status and the current step.
// Views read it through Snapshot; user actions call the operations below.
// ==============================================================================

package kyc

import (
	"context"
	"fmt"
	"sync"

	"launchkart/internal/notification"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"
)

// API is the backend surface the wizard needs. *Client implements it.
type API interface {
	FetchStatus(ctx context.Context) (*domain.KYCStatusInfo, error)
	SubmitBasic(ctx context.Context, s *BasicSubmission) error
	VerifyAadhaar(ctx context.Context, number, otp string) (*domain.VerificationResponse, error)
	VerifyPAN(ctx context.Context, image *Upload) (*domain.VerificationResponse, error)
	VerifyEmiratesID(ctx context.Context, idImage, selfie *Upload) (*domain.VerificationResponse, error)
	InitiateFullKYC(ctx context.Context) (*domain.FullKYCSession, error)
}

// Flow names one independently submitted action. It doubles as the
// notification source.
type Flow string

const (
	FlowStatus   Flow = "fetch_status"
	FlowBasic    Flow = "submit_basic"
	FlowOTP      Flow = "send_otp"
	FlowAadhaar  Flow = "verify_aadhaar"
	FlowPAN      Flow = "verify_pan"
	FlowEmirates Flow = "verify_emirates_id"
	FlowTier2    Flow = "initiate_full_kyc"
)

// Rejection fallbacks for success=false responses without error_message.
const (
	aadhaarRejected  = "Aadhaar verification failed"
	panRejected      = "PAN verification failed"
	emiratesRejected = "Emirates ID verification failed"
)

// WizardConfig carries per-user settings.
type WizardConfig struct {
	Country       domain.Country
	MaxImageBytes int64
}

// Wizard drives the KYC steps for one user.
type Wizard struct {
	api       API
	otp       OTPSender
	notifier  notification.Notifier
	validator *validator.Validator
	logger    logger.Logger
	country   domain.Country
	maxBytes  int64

	// lifetime context; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	step     domain.WizardStep
	status   *domain.KYCStatusInfo
	session  *domain.FullKYCSession
	basic    BasicSubmission
	aadhaar  AadhaarForm
	pan      PANForm
	emirates EmiratesForm
	loading  map[Flow]bool
	messages map[Flow]string
	fields   map[Flow]map[string]string
}

// NewWizard creates a wizard on the initial status step.
func NewWizard(api API, otp OTPSender, notifier notification.Notifier, v *validator.Validator, cfg WizardConfig, log logger.Logger) *Wizard {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = MaxImageBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Wizard{
		api:       api,
		otp:       otp,
		notifier:  notifier,
		validator: v,
		logger:    log,
		country:   cfg.Country,
		maxBytes:  cfg.MaxImageBytes,
		ctx:       ctx,
		cancel:    cancel,
		step:      domain.StepStatus,
		loading:   make(map[Flow]bool),
		messages:  make(map[Flow]string),
		fields:    make(map[Flow]map[string]string),
	}
}

// Close cancels every in-flight request. Results that arrive afterwards are
// discarded and the operations return ErrClosed.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.cancel()
}

// ==============================================================================
// REQUEST BOOKKEEPING
// ==============================================================================

// begin marks flow as loading and returns a context cancelled by either the
// caller or Close. Caller holds w.mu.
func (w *Wizard) begin(parent context.Context, flow Flow) (context.Context, func(), error) {
	if w.closed {
		return nil, nil, errors.ErrClosed
	}
	if w.loading[flow] {
		return nil, nil, errors.ErrBusy
	}
	w.loading[flow] = true
	delete(w.messages, flow)
	delete(w.fields, flow)

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(w.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// finish clears the loading flag. It reports false when the wizard was closed
// while the request was in flight. Caller holds w.mu.
func (w *Wizard) finish(flow Flow) bool {
	delete(w.loading, flow)
	return !w.closed
}

// fail records err for flow. Validation errors and rejections stay inline;
// transport and server errors become a single notification. Caller holds w.mu.
func (w *Wizard) fail(flow Flow, err error) error {
	var vErr *ValidationError
	var rErr *RejectedError
	switch {
	case errors.As(err, &vErr):
		w.messages[flow] = vErr.Message
		if len(vErr.Fields) > 0 {
			w.fields[flow] = vErr.Fields
		}
	case errors.As(err, &rErr):
		w.messages[flow] = rErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// abandoned by the caller; nobody is left to show it to
	default:
		w.notifier.Push(notification.LevelError, string(flow), UserMessage(err))
	}
	return err
}

func (w *Wizard) setStep(step domain.WizardStep) {
	if w.step == step {
		return
	}
	w.logger.Debug("Wizard step changed", map[string]interface{}{
		"from": w.step.String(),
		"to":   step.String(),
	})
	w.step = step
}

// ==============================================================================
// STATUS RESOLVER
// ==============================================================================

// Refresh fetches the status and re-derives the step. On failure the last
// good status stays in place and one notification is raised.
func (w *Wizard) Refresh(parent context.Context) error {
	w.mu.Lock()
	ctx, release, err := w.begin(parent, FlowStatus)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	info, err := w.api.FetchStatus(ctx)
	release()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(FlowStatus) {
		return errors.ErrClosed
	}
	if err != nil {
		return w.fail(FlowStatus, err)
	}

	w.status = info
	w.setStep(DeriveStep(*info))
	w.logger.Info("KYC status loaded", map[string]interface{}{
		"level":  string(info.Level),
		"status": string(info.Status),
		"step":   w.step.String(),
	})
	return nil
}

// refreshAfter runs after a successful submission. Its failure is already
// surfaced as a notification and does not undo the submission.
func (w *Wizard) refreshAfter(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil && !errors.Is(err, errors.ErrBusy) {
		w.logger.Debug("Status refresh after submission failed", map[string]interface{}{"error": err.Error()})
	}
}

// ==============================================================================
// TIER-1: GENERIC DOCUMENT
// ==============================================================================

// SetDocumentType selects the document type of the basic form.
func (w *Wizard) SetDocumentType(dt domain.DocumentType) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.country != "" && !documentAllowed(w.country, dt) {
		return w.fail(FlowBasic, newValidationError("Document type not available for your country",
			errors.ErrUnsupportedDocument, map[string]string{"document_type": "Choose one of the listed document types"}))
	}
	w.basic.DocumentType = dt
	return nil
}

// SetDocumentNumber sets the document number of the basic form.
func (w *Wizard) SetDocumentNumber(number string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.basic.DocumentNumber = number
}

// SelectDocumentFile attaches the scanned document of the basic form.
func (w *Wizard) SelectDocumentFile(u *Upload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.basic.DocumentFile = u
}

// SubmitBasic submits the generic document form. Missing fields are rejected
// without a request.
func (w *Wizard) SubmitBasic(parent context.Context) error {
	w.mu.Lock()
	if err := w.basic.Validate(w.validator, w.country); err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowBasic, err)
	}
	ctx, release, err := w.begin(parent, FlowBasic)
	submission := w.basic
	w.mu.Unlock()
	if err != nil {
		return err
	}

	err = w.api.SubmitBasic(ctx, &submission)
	release()

	w.mu.Lock()
	if !w.finish(FlowBasic) {
		w.mu.Unlock()
		return errors.ErrClosed
	}
	if err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowBasic, err)
	}
	w.basic = BasicSubmission{}
	w.setStep(domain.StepTier1Complete)
	w.notifier.Push(notification.LevelSuccess, string(FlowBasic), "Basic KYC submitted successfully")
	w.mu.Unlock()

	w.refreshAfter(parent)
	return nil
}

// ==============================================================================
// TIER-1: AADHAAR + OTP
// ==============================================================================

// SetAadhaarNumber filters raw input and stores the result, which it returns.
func (w *Wizard) SetAadhaarNumber(raw string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aadhaar.Number = SanitizeAadhaar(raw)
	return w.aadhaar.Number
}

// SetOTP filters raw input and stores the result, which it returns.
func (w *Wizard) SetOTP(raw string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aadhaar.OTP = SanitizeOTP(raw)
	return w.aadhaar.OTP
}

// SendOTP asks the OTP sender for a code. No backend call is made.
func (w *Wizard) SendOTP(parent context.Context) error {
	w.mu.Lock()
	if err := w.aadhaar.validateNumber(w.validator); err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowOTP, err)
	}
	ctx, release, err := w.begin(parent, FlowOTP)
	number := w.aadhaar.Number
	w.mu.Unlock()
	if err != nil {
		return err
	}

	dispatch, err := w.otp.SendOTP(ctx, number)
	release()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(FlowOTP) {
		return errors.ErrClosed
	}
	if err != nil {
		return w.fail(FlowOTP, err)
	}
	w.aadhaar.OTPSent = true
	w.aadhaar.OTP = ""
	w.aadhaar.Reference = dispatch.Reference
	w.aadhaar.DevCode = dispatch.DevCode
	w.notifier.Push(notification.LevelInfo, string(FlowOTP), "OTP sent to your Aadhaar-linked mobile number")
	return nil
}

// VerifyAadhaar submits the number and OTP.
func (w *Wizard) VerifyAadhaar(parent context.Context) error {
	w.mu.Lock()
	if err := w.aadhaar.validateOTP(w.validator); err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowAadhaar, err)
	}
	ctx, release, err := w.begin(parent, FlowAadhaar)
	number, otp := w.aadhaar.Number, w.aadhaar.OTP
	w.mu.Unlock()
	if err != nil {
		return err
	}

	resp, err := w.api.VerifyAadhaar(ctx, number, otp)
	release()

	return w.completeVerification(parent, FlowAadhaar, resp, err, aadhaarRejected, func() {
		w.aadhaar = AadhaarForm{}
	})
}

// ==============================================================================
// TIER-1: PAN / EMIRATES ID
// ==============================================================================

// SelectPANImage validates and attaches the PAN image. A rejected file is not kept.
func (w *Wizard) SelectPANImage(u *Upload) error {
	return w.selectImage(FlowPAN, "pan_image", u, &w.pan.Image)
}

// SelectEmiratesIDImage validates and attaches the Emirates ID image.
func (w *Wizard) SelectEmiratesIDImage(u *Upload) error {
	return w.selectImage(FlowEmirates, "emirates_id_image", u, &w.emirates.IDImage)
}

// SelectSelfieImage validates and attaches the selfie.
func (w *Wizard) SelectSelfieImage(u *Upload) error {
	return w.selectImage(FlowEmirates, "selfie_image", u, &w.emirates.Selfie)
}

func (w *Wizard) selectImage(flow Flow, field string, u *Upload, dst **Upload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ValidateImage(field, u, w.maxBytes); err != nil {
		*dst = nil
		return w.fail(flow, err)
	}
	delete(w.messages, flow)
	delete(w.fields, flow)
	*dst = u
	return nil
}

// VerifyPAN submits the PAN image.
func (w *Wizard) VerifyPAN(parent context.Context) error {
	w.mu.Lock()
	if err := ValidateImage("pan_image", w.pan.Image, w.maxBytes); err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowPAN, err)
	}
	ctx, release, err := w.begin(parent, FlowPAN)
	image := w.pan.Image
	w.mu.Unlock()
	if err != nil {
		return err
	}

	resp, err := w.api.VerifyPAN(ctx, image)
	release()

	return w.completeVerification(parent, FlowPAN, resp, err, panRejected, func() {
		w.pan = PANForm{}
	})
}

// VerifyEmiratesID submits both Emirates images. Either one missing is
// rejected without a request.
func (w *Wizard) VerifyEmiratesID(parent context.Context) error {
	w.mu.Lock()
	if err := w.emirates.Validate(w.maxBytes); err != nil {
		defer w.mu.Unlock()
		return w.fail(FlowEmirates, err)
	}
	ctx, release, err := w.begin(parent, FlowEmirates)
	idImage, selfie := w.emirates.IDImage, w.emirates.Selfie
	w.mu.Unlock()
	if err != nil {
		return err
	}

	resp, err := w.api.VerifyEmiratesID(ctx, idImage, selfie)
	release()

	return w.completeVerification(parent, FlowEmirates, resp, err, emiratesRejected, func() {
		w.emirates = EmiratesForm{}
	})
}

// completeVerification applies the outcome shared by the three verify
// endpoints: success moves to tier1-complete and refreshes, success=false
// stays on the step with an inline message.
func (w *Wizard) completeVerification(parent context.Context, flow Flow, resp *domain.VerificationResponse, err error, rejected string, reset func()) error {
	w.mu.Lock()
	if !w.finish(flow) {
		w.mu.Unlock()
		return errors.ErrClosed
	}
	if err == nil && !resp.Success {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = rejected
		}
		err = &RejectedError{Op: string(flow), Message: msg}
	}
	if err != nil {
		defer w.mu.Unlock()
		return w.fail(flow, err)
	}

	reset()
	w.setStep(domain.StepTier1Complete)
	w.notifier.Push(notification.LevelSuccess, string(flow), "Verification successful")
	w.mu.Unlock()

	w.refreshAfter(parent)
	return nil
}

// ==============================================================================
// TIER-2
// ==============================================================================

// InitiateFullKYC requests a video-KYC session and shows it. The status is not
// refreshed: completion of the external session is discovered on a later fetch.
func (w *Wizard) InitiateFullKYC(parent context.Context) error {
	w.mu.Lock()
	ctx, release, err := w.begin(parent, FlowTier2)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	session, err := w.api.InitiateFullKYC(ctx)
	release()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.finish(FlowTier2) {
		return errors.ErrClosed
	}
	if err != nil {
		return w.fail(FlowTier2, err)
	}
	w.session = session
	w.setStep(domain.StepTier2Video)
	w.logger.Info("Video KYC session created", map[string]interface{}{
		"session_id": session.SessionID,
		"expires_at": session.ExpiresAt,
	})
	return nil
}

// ==============================================================================
// NAVIGATION
// ==============================================================================

var documentSteps = map[domain.DocumentType]domain.WizardStep{
	domain.DocumentTypeAadhaar:    domain.StepTier1Aadhaar,
	domain.DocumentTypePAN:        domain.StepTier1PAN,
	domain.DocumentTypeEmiratesID: domain.StepTier1Emirates,
}

// GoTo performs a user-triggered transition.
func (w *Wizard) GoTo(to domain.WizardStep) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrClosed
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %s", errors.ErrInvalidStep, to)
	}
	if to == w.step {
		return nil
	}

	if to == domain.StepStatus {
		w.setStep(to)
		return nil
	}
	if w.step == domain.StepStatus {
		if w.status == nil {
			return errors.ErrNoStatus
		}
		if to != DeriveStep(*w.status) {
			return w.invalidTransition(to)
		}
		w.setStep(to)
		return nil
	}

	if w.allowed(w.step, to) {
		w.setStep(to)
		return nil
	}
	return w.invalidTransition(to)
}

func (w *Wizard) allowed(from, to domain.WizardStep) bool {
	switch from {
	case domain.StepTier1Initiate:
		return w.documentStepAllowed(to)
	case domain.StepTier1Aadhaar, domain.StepTier1PAN, domain.StepTier1Emirates:
		return to == domain.StepTier1Initiate
	case domain.StepTier1Complete:
		return to == domain.StepTier2Initiate
	case domain.StepTier2Initiate:
		return to == domain.StepTier1Complete
	case domain.StepTier2Video:
		return to == domain.StepTier2Initiate
	}
	return false
}

func (w *Wizard) documentStepAllowed(to domain.WizardStep) bool {
	for dt, step := range documentSteps {
		if step != to {
			continue
		}
		return w.country == "" || documentAllowed(w.country, dt)
	}
	return false
}

func (w *Wizard) invalidTransition(to domain.WizardStep) error {
	return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidStep, w.step, to)
}

// DocumentSteps lists the Tier-1 steps offered to the user's country.
func (w *Wizard) DocumentSteps() []domain.WizardStep {
	var steps []domain.WizardStep
	for _, dt := range domain.DocumentTypesFor(w.country) {
		steps = append(steps, documentSteps[dt])
	}
	return steps
}

// ==============================================================================
// SNAPSHOT
// ==============================================================================

// Snapshot is a read-only copy of the wizard state for rendering.
type Snapshot struct {
	Step          domain.WizardStep
	Status        *domain.KYCStatusInfo
	Country       domain.Country
	DocumentTypes []domain.DocumentType
	Basic         BasicSubmission
	Aadhaar       AadhaarForm
	PAN           PANForm
	Emirates      EmiratesForm
	Session       *domain.FullKYCSession
	Progress      [4]Stage
	Messages      map[Flow]string
	FieldErrors   map[Flow]map[string]string
	Loading       map[Flow]bool
}

// Snapshot copies the current state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	level := domain.KYCLevelNone
	if w.status != nil {
		level = w.status.Level
	}

	s := Snapshot{
		Step:          w.step,
		Status:        cloneStatus(w.status),
		Country:       w.country,
		DocumentTypes: domain.DocumentTypesFor(w.country),
		Basic:         w.basic,
		Aadhaar:       w.aadhaar,
		PAN:           w.pan,
		Emirates:      w.emirates,
		Session:       w.session,
		Progress:      Progress(level),
		Messages:      make(map[Flow]string, len(w.messages)),
		FieldErrors:   make(map[Flow]map[string]string, len(w.fields)),
		Loading:       make(map[Flow]bool, len(w.loading)),
	}
	for k, v := range w.messages {
		s.Messages[k] = v
	}
	for k, v := range w.fields {
		inner := make(map[string]string, len(v))
		for f, msg := range v {
			inner[f] = msg
		}
		s.FieldErrors[k] = inner
	}
	for k, v := range w.loading {
		s.Loading[k] = v
	}
	return s
}

// Step returns the current step.
func (w *Wizard) Step() domain.WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func cloneStatus(s *domain.KYCStatusInfo) *domain.KYCStatusInfo {
	if s == nil {
		return nil
	}
	c := *s
	c.FeaturesUnlocked = make(map[string]bool, len(s.FeaturesUnlocked))
	for k, v := range s.FeaturesUnlocked {
		c.FeaturesUnlocked[k] = v
	}
	c.NextSteps = append([]string(nil), s.NextSteps...)
	return &c
}

// CanSubmitBasic reports whether the basic submit control is enabled.
func (s Snapshot) CanSubmitBasic() bool {
	return !s.Loading[FlowBasic] && s.Basic.DocumentType != "" &&
		trimmedNonEmpty(s.Basic.DocumentNumber) && s.Basic.DocumentFile != nil
}

// CanSendOTP reports whether the send OTP control is enabled.
func (s Snapshot) CanSendOTP() bool {
	return !s.Loading[FlowOTP] && s.Aadhaar.CanSendOTP()
}

// CanVerifyAadhaar reports whether the verify OTP control is enabled.
func (s Snapshot) CanVerifyAadhaar() bool {
	return !s.Loading[FlowAadhaar] && s.Aadhaar.CanVerify()
}

// CanVerifyPAN reports whether the PAN submit control is enabled.
func (s Snapshot) CanVerifyPAN() bool {
	return !s.Loading[FlowPAN] && s.PAN.Image != nil
}

// CanVerifyEmiratesID reports whether the Emirates submit control is enabled.
// The operation itself still explains which image is missing.
func (s Snapshot) CanVerifyEmiratesID() bool {
	return !s.Loading[FlowEmirates]
}

// CanInitiateFullKYC reports whether the Tier-2 start control is enabled.
func (s Snapshot) CanInitiateFullKYC() bool {
	return !s.Loading[FlowTier2]
}
