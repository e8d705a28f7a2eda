package kyc

import (
	"context"
	"time"

	"launchkart/pkg/errors"
	"launchkart/pkg/logger"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
)

// OTPDispatch describes an OTP that was sent to the Aadhaar-linked phone.
type OTPDispatch struct {
	Reference string
	SentAt    time.Time
	// DevCode is only populated by the simulated sender.
	DevCode string
}

// OTPSender sends the Aadhaar OTP. The backend has no send endpoint yet, so
// the wizard is wired to SimulatedOTPSender; a real UIDAI integration plugs in
// here.
type OTPSender interface {
	SendOTP(ctx context.Context, aadhaarNumber string) (*OTPDispatch, error)
}

// SimulatedOTPSender fakes the send step without any network call. It mints a
// TOTP code so the value looks like a real OTP in logs and the terminal UI.
type SimulatedOTPSender struct {
	issuer string
	delay  time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewSimulatedOTPSender(issuer string, delay time.Duration, log logger.Logger) *SimulatedOTPSender {
	if issuer == "" {
		issuer = "LaunchKart"
	}
	return &SimulatedOTPSender{
		issuer: issuer,
		delay:  delay,
		logger: log,
		now:    time.Now,
	}
}

func (s *SimulatedOTPSender) SendOTP(ctx context.Context, aadhaarNumber string) (*OTPDispatch, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: MaskAadhaar(aadhaarNumber),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate otp secret")
	}

	now := s.now()
	code, err := totp.GenerateCode(key.Secret(), now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate otp")
	}

	d := &OTPDispatch{
		Reference: uuid.NewString(),
		SentAt:    now,
		DevCode:   code,
	}

	s.logger.Info("Simulated Aadhaar OTP sent", map[string]interface{}{
		"aadhaar":   MaskAadhaar(aadhaarNumber),
		"reference": d.Reference,
	})
	return d, nil
}
