package kyc

import (
	"strings"

	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/validator"
)

const (
	AadhaarLength = 12
	OTPLength     = 6
)

// ==============================================================================
// INPUT SANITIZERS
// ==============================================================================

// keepDigits drops every non-digit rune and truncates the result to limit
// digits, preserving the original order.
func keepDigits(raw string, limit int) string {
	var b strings.Builder
	for _, r := range raw {
		if b.Len() == limit {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeAadhaar applies the as-you-type filter of the Aadhaar number field.
func SanitizeAadhaar(raw string) string {
	return keepDigits(raw, AadhaarLength)
}

// SanitizeOTP applies the as-you-type filter of the OTP field.
func SanitizeOTP(raw string) string {
	return keepDigits(raw, OTPLength)
}

// MaskAadhaar hides all but the last four digits.
func MaskAadhaar(number string) string {
	if len(number) < 4 {
		return strings.Repeat("X", len(number))
	}
	return "XXXX-XXXX-" + number[len(number)-4:]
}

// ==============================================================================
// BASIC KYC
// ==============================================================================

// BasicSubmission is the generic document form.
type BasicSubmission struct {
	DocumentType   domain.DocumentType `json:"document_type" validate:"required"`
	DocumentNumber string              `json:"document_number" validate:"required"`
	DocumentFile   *Upload             `json:"document_file" validate:"required"`
}

// Validate checks presence of every field and that the document type is
// offered for the user's country. An empty country skips the country check.
func (s *BasicSubmission) Validate(v *validator.Validator, country domain.Country) error {
	trimmed := *s
	trimmed.DocumentNumber = strings.TrimSpace(s.DocumentNumber)

	if fields := v.ValidateStructured(trimmed); fields != nil {
		return newValidationError("Please fill in all fields", errors.ErrValidation, fields)
	}
	if country != "" && !documentAllowed(country, s.DocumentType) {
		return newValidationError("Document type not available for your country", errors.ErrUnsupportedDocument,
			map[string]string{"document_type": "Choose one of the listed document types"})
	}
	return nil
}

func documentAllowed(country domain.Country, dt domain.DocumentType) bool {
	for _, allowed := range domain.DocumentTypesFor(country) {
		if allowed == dt {
			return true
		}
	}
	return false
}

// ==============================================================================
// AADHAAR + OTP
// ==============================================================================

// AadhaarForm tracks the two-phase Aadhaar verification.
type AadhaarForm struct {
	Number  string `json:"aadhaar_number" validate:"required,len=12,digits"`
	OTP     string `json:"otp" validate:"required,len=6,digits"`
	OTPSent bool   `json:"-"`
	// Reference identifies the OTP dispatch; the simulated sender also
	// exposes the code for development.
	Reference string `json:"-"`
	DevCode   string `json:"-"`
}

// CanSendOTP reports whether the send action is enabled.
func (f *AadhaarForm) CanSendOTP() bool {
	return len(f.Number) == AadhaarLength && allDigits(f.Number)
}

// CanVerify reports whether the verify action is enabled.
func (f *AadhaarForm) CanVerify() bool {
	return f.OTPSent && len(f.OTP) == OTPLength && allDigits(f.OTP)
}

func (f *AadhaarForm) validateNumber(v *validator.Validator) error {
	if fields := v.ValidateStructured(struct {
		Number string `json:"aadhaar_number" validate:"required,len=12,digits"`
	}{f.Number}); fields != nil {
		return newValidationError("Please enter a valid 12-digit Aadhaar number", errors.ErrValidation, fields)
	}
	return nil
}

func (f *AadhaarForm) validateOTP(v *validator.Validator) error {
	if !f.OTPSent {
		return newValidationError("Please request an OTP first", errors.ErrOTPNotSent, nil)
	}
	if fields := v.ValidateStructured(f); fields != nil {
		return newValidationError("Please enter the 6-digit OTP", errors.ErrValidation, fields)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ==============================================================================
// IMAGE FLOWS
// ==============================================================================

// PANForm holds the PAN card image.
type PANForm struct {
	Image *Upload
}

// EmiratesForm holds the Emirates ID image and the selfie.
type EmiratesForm struct {
	IDImage *Upload
	Selfie  *Upload
}

// BothImagesMessage is shown when either Emirates image is missing.
const BothImagesMessage = "Please upload both images"

// Validate requires both images and then validates each independently.
func (f *EmiratesForm) Validate(maxBytes int64) error {
	if f.IDImage == nil || f.Selfie == nil {
		fields := map[string]string{}
		if f.IDImage == nil {
			fields["emirates_id_image"] = "This field is required"
		}
		if f.Selfie == nil {
			fields["selfie_image"] = "This field is required"
		}
		return newValidationError(BothImagesMessage, errors.ErrFileRequired, fields)
	}

	var first *ValidationError
	fields := map[string]string{}
	for _, part := range []struct {
		field string
		file  *Upload
	}{
		{"emirates_id_image", f.IDImage},
		{"selfie_image", f.Selfie},
	} {
		if err := ValidateImage(part.field, part.file, maxBytes); err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				if first == nil {
					first = vErr
				}
				for k, msg := range vErr.Fields {
					fields[k] = msg
				}
			}
		}
	}
	if first != nil {
		return newValidationError(first.Message, first.Cause, fields)
	}
	return nil
}

func trimmedNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}
