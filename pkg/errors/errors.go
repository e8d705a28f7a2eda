// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Session errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Wizard errors
	ErrValidation           = errors.New("validation failed")
	ErrBusy                 = errors.New("request already in progress")
	ErrClosed               = errors.New("wizard closed")
	ErrInvalidStep          = errors.New("invalid wizard step")
	ErrNoStatus             = errors.New("kyc status not loaded")
	ErrOTPNotSent           = errors.New("otp has not been sent")
	ErrVerificationRejected = errors.New("verification rejected")

	// Document errors
	ErrUnsupportedDocument = errors.New("document type not supported for country")
	ErrFileRequired        = errors.New("file required")
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileTypeNotAllowed  = errors.New("file type not allowed")
	ErrFileEmpty           = errors.New("file is empty")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedResponse = errors.New("unexpected response from backend")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
