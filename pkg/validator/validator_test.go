package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpInput struct {
	Number string `json:"aadhaar_number" validate:"required,len=12,digits"`
	OTP    string `json:"otp" validate:"omitempty,len=6,digits"`
}

type imageInput struct {
	ContentType string `json:"content_type" validate:"required,image_mime"`
	Size        int64  `json:"size" validate:"gt=0,max=5242880"`
}

func TestValidateStructured_UsesJSONNames(t *testing.T) {
	v := New()

	errs := v.ValidateStructured(otpInput{Number: "12345", OTP: "12a456"})
	require.NotNil(t, errs)
	assert.Equal(t, "Must be exactly 12 characters", errs["aadhaar_number"])
	assert.Equal(t, "Must contain digits only", errs["otp"])
}

func TestValidateStructured_Valid(t *testing.T) {
	v := New()

	assert.Nil(t, v.ValidateStructured(otpInput{Number: "123456789012", OTP: "123456"}))
	assert.Nil(t, v.ValidateStructured(otpInput{Number: "123456789012"}))
}

func TestImageMime(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(imageInput{ContentType: "image/png", Size: 10}))
	assert.NoError(t, v.Validate(imageInput{ContentType: "IMAGE/JPEG", Size: 10}))

	errs := v.ValidateStructured(imageInput{ContentType: "application/pdf", Size: 10})
	assert.Equal(t, "Please upload an image file", errs["content_type"])

	errs = v.ValidateStructured(imageInput{ContentType: "image/png", Size: 5*1024*1024 + 1})
	assert.Contains(t, errs, "size")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "x", Sanitize("  <b>x</b> "))
	assert.Equal(t, "", Sanitize(`<script>alert("x")</script>`))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Upload PAN & selfie", StripMarkup("Upload <b>PAN</b> &amp; selfie"))
	assert.Equal(t, "Plain text", StripMarkup(" Plain text "))
}
