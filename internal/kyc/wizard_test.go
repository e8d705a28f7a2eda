package kyc

import (
	"context"
	"net/http"
	"testing"
	"time"

	"launchkart/internal/notification"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchStatus(ctx context.Context) (*domain.KYCStatusInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KYCStatusInfo), args.Error(1)
}

func (m *MockAPI) SubmitBasic(ctx context.Context, s *BasicSubmission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockAPI) VerifyAadhaar(ctx context.Context, number, otp string) (*domain.VerificationResponse, error) {
	args := m.Called(ctx, number, otp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResponse), args.Error(1)
}

func (m *MockAPI) VerifyPAN(ctx context.Context, image *Upload) (*domain.VerificationResponse, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResponse), args.Error(1)
}

func (m *MockAPI) VerifyEmiratesID(ctx context.Context, idImage, selfie *Upload) (*domain.VerificationResponse, error) {
	args := m.Called(ctx, idImage, selfie)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationResponse), args.Error(1)
}

func (m *MockAPI) InitiateFullKYC(ctx context.Context) (*domain.FullKYCSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FullKYCSession), args.Error(1)
}

// --- Helpers ---

func statusOf(level domain.KYCLevel, status domain.KYCStatus) *domain.KYCStatusInfo {
	return &domain.KYCStatusInfo{
		Level:            level,
		Status:           status,
		FeaturesUnlocked: map[string]bool{domain.FeatureDashboardAccess: true},
		NextSteps:        []string{"Complete basic KYC"},
	}
}

func newTestWizard(api API, country domain.Country) (*Wizard, *notification.Center) {
	center := notification.NewCenter(logger.NewNop())
	w := NewWizard(api, NewSimulatedOTPSender("LaunchKart", 0, logger.NewNop()), center,
		validator.New(), WizardConfig{Country: country}, logger.NewNop())
	return w, center
}

var anyCtx = mock.Anything

// --- Status resolver ---

func TestWizard_InitialStep(t *testing.T) {
	w, _ := newTestWizard(new(MockAPI), domain.CountryIndia)
	snap := w.Snapshot()
	assert.Equal(t, domain.StepStatus, snap.Step)
	assert.Nil(t, snap.Status)
	assert.Equal(t, 0, CompletedStages(snap.Progress))
}

func TestWizard_RefreshFailureKeepsLastStatus(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelBasic, domain.KYCStatusVerified), nil).Once()
	api.On("FetchStatus", anyCtx).Return(nil, &APIError{Op: "fetch_status", Err: errors.ErrBackendUnavailable}).Once()

	w, center := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()

	require.NoError(t, w.Refresh(ctx))
	require.Error(t, w.Refresh(ctx))

	snap := w.Snapshot()
	require.NotNil(t, snap.Status)
	assert.Equal(t, domain.KYCLevelBasic, snap.Status.Level)
	assert.Equal(t, domain.StepTier1Complete, snap.Step)

	pending := center.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, notification.LevelError, pending[0].Level)
	assert.Equal(t, string(FlowStatus), pending[0].Source)
	assert.Equal(t, FallbackMessage, pending[0].Message)
}

func TestWizard_RefreshFailureBeforeFirstFetch(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(nil, &APIError{Op: "fetch_status", StatusCode: http.StatusServiceUnavailable, Detail: "Maintenance"})

	w, center := newTestWizard(api, domain.CountryIndia)
	require.Error(t, w.Refresh(context.Background()))

	snap := w.Snapshot()
	assert.Nil(t, snap.Status)
	assert.Equal(t, domain.StepStatus, snap.Step)
	require.Len(t, center.Pending(), 1)
	assert.Equal(t, "Maintenance", center.Pending()[0].Message)
}

// --- Tier-1 flows ---

func TestWizard_BasicSubmissionFlow(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelNone, domain.KYCStatusUnverified), nil).Once()
	api.On("SubmitBasic", anyCtx, mock.MatchedBy(func(s *BasicSubmission) bool {
		return s.DocumentType == domain.DocumentTypeAadhaar && s.DocumentNumber == "123456789012"
	})).Return(nil).Once()
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelBasic, domain.KYCStatusPending), nil).Once()

	w, center := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()

	require.NoError(t, w.Refresh(ctx))
	assert.Equal(t, domain.StepTier1Initiate, w.Step())

	require.NoError(t, w.SetDocumentType(domain.DocumentTypeAadhaar))
	w.SetDocumentNumber("123456789012")
	w.SelectDocumentFile(pngUpload("aadhaar.png", 64))
	assert.True(t, w.Snapshot().CanSubmitBasic())

	require.NoError(t, w.SubmitBasic(ctx))

	snap := w.Snapshot()
	assert.Equal(t, domain.StepTier1Complete, snap.Step)
	assert.Equal(t, domain.KYCLevelBasic, snap.Status.Level)
	assert.Equal(t, BasicSubmission{}, snap.Basic)
	assert.Equal(t, 2, CompletedStages(snap.Progress))
	api.AssertExpectations(t)

	require.Len(t, center.Pending(), 1)
	assert.Equal(t, notification.LevelSuccess, center.Pending()[0].Level)
}

func TestWizard_BasicSubmissionRejectedLocally(t *testing.T) {
	api := new(MockAPI)
	w, center := newTestWizard(api, domain.CountryIndia)

	require.NoError(t, w.SetDocumentType(domain.DocumentTypePAN))
	w.SetDocumentNumber("ABCDE1234F")

	err := w.SubmitBasic(context.Background())
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, "Please fill in all fields", w.Snapshot().Messages[FlowBasic])
	assert.Contains(t, w.Snapshot().FieldErrors[FlowBasic], "document_file")
	assert.Empty(t, center.Pending())
	api.AssertNotCalled(t, "SubmitBasic", mock.Anything, mock.Anything)
}

func TestWizard_DocumentTypeConstrainedByCountry(t *testing.T) {
	w, _ := newTestWizard(new(MockAPI), domain.CountryUAE)

	assert.ErrorIs(t, w.SetDocumentType(domain.DocumentTypeAadhaar), errors.ErrUnsupportedDocument)
	assert.NoError(t, w.SetDocumentType(domain.DocumentTypeEmiratesID))
	assert.Equal(t, []domain.WizardStep{domain.StepTier1Emirates}, w.DocumentSteps())
}

func TestWizard_AadhaarOTPFlow(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelNone, domain.KYCStatusUnverified), nil).Once()

	w, _ := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()
	require.NoError(t, w.Refresh(ctx))
	require.NoError(t, w.GoTo(domain.StepTier1Aadhaar))

	assert.Equal(t, "12345678901", w.SetAadhaarNumber("1234-5678-901"))
	assert.False(t, w.Snapshot().CanSendOTP())
	assert.ErrorIs(t, w.SendOTP(ctx), errors.ErrValidation)

	w.SetAadhaarNumber("123456789012")
	assert.True(t, w.Snapshot().CanSendOTP())
	require.NoError(t, w.SendOTP(ctx))

	snap := w.Snapshot()
	assert.True(t, snap.Aadhaar.OTPSent)
	assert.NotEmpty(t, snap.Aadhaar.Reference)

	w.SetOTP("12345")
	assert.False(t, w.Snapshot().CanVerifyAadhaar())
	w.SetOTP("123456")
	assert.True(t, w.Snapshot().CanVerifyAadhaar())

	api.On("VerifyAadhaar", anyCtx, "123456789012", "123456").
		Return(&domain.VerificationResponse{Success: true}, nil).Once()
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelBasic, domain.KYCStatusVerified), nil).Once()

	require.NoError(t, w.VerifyAadhaar(ctx))
	snap = w.Snapshot()
	assert.Equal(t, domain.StepTier1Complete, snap.Step)
	assert.False(t, snap.Aadhaar.OTPSent)
	api.AssertExpectations(t)
}

func TestWizard_VerifyAadhaarBeforeSend(t *testing.T) {
	api := new(MockAPI)
	w, _ := newTestWizard(api, domain.CountryIndia)

	w.SetAadhaarNumber("123456789012")
	w.SetOTP("123456")
	assert.ErrorIs(t, w.VerifyAadhaar(context.Background()), errors.ErrOTPNotSent)
	api.AssertNotCalled(t, "VerifyAadhaar", mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_PANRejectedStaysOnStep(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelNone, domain.KYCStatusUnverified), nil).Once()
	api.On("VerifyPAN", anyCtx, mock.Anything).Return(&domain.VerificationResponse{Success: false}, nil).Once()

	w, center := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()
	require.NoError(t, w.Refresh(ctx))
	require.NoError(t, w.GoTo(domain.StepTier1PAN))

	require.NoError(t, w.SelectPANImage(pngUpload("pan.png", 64)))
	err := w.VerifyPAN(ctx)
	assert.ErrorIs(t, err, errors.ErrVerificationRejected)

	snap := w.Snapshot()
	assert.Equal(t, domain.StepTier1PAN, snap.Step)
	assert.Equal(t, panRejected, snap.Messages[FlowPAN])
	assert.NotNil(t, snap.PAN.Image, "user may retry with the same file")
	assert.Empty(t, center.Pending())
}

func TestWizard_PANSelectRejectsInvalidFile(t *testing.T) {
	api := new(MockAPI)
	w, _ := newTestWizard(api, domain.CountryIndia)

	err := w.SelectPANImage(&Upload{Name: "pan.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	assert.ErrorIs(t, err, errors.ErrFileTypeNotAllowed)
	snap := w.Snapshot()
	assert.Nil(t, snap.PAN.Image)
	assert.False(t, snap.CanVerifyPAN())

	assert.ErrorIs(t, w.VerifyPAN(context.Background()), errors.ErrFileRequired)
	api.AssertNotCalled(t, "VerifyPAN", mock.Anything, mock.Anything)
}

func TestWizard_EmiratesOnlySelfie(t *testing.T) {
	api := new(MockAPI)
	w, _ := newTestWizard(api, domain.CountryUAE)

	require.NoError(t, w.SelectSelfieImage(pngUpload("selfie.png", 64)))
	err := w.VerifyEmiratesID(context.Background())
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, BothImagesMessage, w.Snapshot().Messages[FlowEmirates])
	api.AssertNotCalled(t, "VerifyEmiratesID", mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_EmiratesTransportErrorNotifies(t *testing.T) {
	api := new(MockAPI)
	api.On("VerifyEmiratesID", anyCtx, mock.Anything, mock.Anything).
		Return(nil, &APIError{Op: "verify_emirates_id", StatusCode: http.StatusBadRequest, Detail: "Selfie does not match"}).Once()

	w, center := newTestWizard(api, domain.CountryUAE)
	require.NoError(t, w.SelectEmiratesIDImage(pngUpload("id.png", 64)))
	require.NoError(t, w.SelectSelfieImage(pngUpload("selfie.png", 64)))

	require.Error(t, w.VerifyEmiratesID(context.Background()))
	require.Len(t, center.Pending(), 1)
	assert.Equal(t, "Selfie does not match", center.Pending()[0].Message)
	assert.Empty(t, w.Snapshot().Messages[FlowEmirates])
}

// --- Tier-2 ---

func TestWizard_InitiateFullKYC(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelBasic, domain.KYCStatusVerified), nil).Once()
	api.On("InitiateFullKYC", anyCtx).Return(nil, &APIError{Op: "initiate_full_kyc", StatusCode: http.StatusForbidden, Detail: "Complete basic KYC first"}).Once()
	api.On("InitiateFullKYC", anyCtx).Return(&domain.FullKYCSession{
		SessionID:    "sess-1",
		SessionURL:   "https://video.example.com/sess-1",
		Instructions: map[string][]string{"default": {"Find a quiet room"}},
	}, nil).Once()

	w, center := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()
	require.NoError(t, w.Refresh(ctx))
	require.NoError(t, w.GoTo(domain.StepTier2Initiate))

	require.Error(t, w.InitiateFullKYC(ctx))
	assert.Equal(t, domain.StepTier2Initiate, w.Step())
	require.Len(t, center.Pending(), 1)

	require.NoError(t, w.InitiateFullKYC(ctx))
	snap := w.Snapshot()
	assert.Equal(t, domain.StepTier2Video, snap.Step)
	assert.Equal(t, []string{"Find a quiet room"}, snap.Session.InstructionsFor(domain.CountryIndia))
	// no status refetch after initiation
	api.AssertNumberOfCalls(t, "FetchStatus", 1)
}

// --- Navigation ---

func TestWizard_GoTo(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(statusOf(domain.KYCLevelNone, domain.KYCStatusUnverified), nil).Once()

	w, _ := newTestWizard(api, domain.CountryIndia)
	assert.ErrorIs(t, w.GoTo(domain.StepTier1Initiate), errors.ErrNoStatus)

	require.NoError(t, w.Refresh(context.Background()))

	assert.ErrorIs(t, w.GoTo(domain.StepTier1Emirates), errors.ErrInvalidStep)
	assert.ErrorIs(t, w.GoTo(domain.StepTier2Complete), errors.ErrInvalidStep)
	assert.ErrorIs(t, w.GoTo(domain.WizardStep(42)), errors.ErrInvalidStep)

	require.NoError(t, w.GoTo(domain.StepTier1PAN))
	require.NoError(t, w.GoTo(domain.StepTier1Initiate))
	require.NoError(t, w.GoTo(domain.StepStatus))
	require.NoError(t, w.GoTo(domain.StepTier1Initiate))
	assert.Equal(t, domain.StepTier1Initiate, w.Step())
}

// --- Concurrency ---

func TestWizard_BusyWhileInFlight(t *testing.T) {
	api := new(MockAPI)
	release := make(chan struct{})
	api.On("InitiateFullKYC", anyCtx).Run(func(mock.Arguments) { <-release }).
		Return(&domain.FullKYCSession{SessionID: "s", SessionURL: "https://video.example.com/s"}, nil).Once()

	w, _ := newTestWizard(api, domain.CountryIndia)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.InitiateFullKYC(ctx) }()

	require.Eventually(t, func() bool {
		return w.Snapshot().Loading[FlowTier2]
	}, time.Second, 5*time.Millisecond)
	assert.False(t, w.Snapshot().CanInitiateFullKYC())

	assert.ErrorIs(t, w.InitiateFullKYC(ctx), errors.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, w.Snapshot().Loading[FlowTier2])
	api.AssertNumberOfCalls(t, "InitiateFullKYC", 1)
}

func TestWizard_CloseCancelsInFlight(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.Canceled).Once()

	w, center := newTestWizard(api, domain.CountryIndia)

	done := make(chan error, 1)
	go func() { done <- w.Refresh(context.Background()) }()

	require.Eventually(t, func() bool {
		return w.Snapshot().Loading[FlowStatus]
	}, time.Second, 5*time.Millisecond)

	w.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("refresh did not return after Close")
	}
	assert.Nil(t, w.Snapshot().Status)
	assert.Empty(t, center.Pending())
	assert.ErrorIs(t, w.Refresh(context.Background()), errors.ErrClosed)
}

func TestWizard_CallerCancelDoesNotNotify(t *testing.T) {
	api := new(MockAPI)
	api.On("FetchStatus", anyCtx).Return(nil, context.Canceled).Once()

	w, center := newTestWizard(api, domain.CountryIndia)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Refresh(ctx), context.Canceled)
	assert.Empty(t, center.Pending())
}
