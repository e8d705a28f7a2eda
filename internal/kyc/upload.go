package kyc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"launchkart/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes is the client-side ceiling for every image upload.
const MaxImageBytes int64 = 5 * 1024 * 1024

// maxReadBytes guards LoadUpload against reading arbitrarily large files.
const maxReadBytes int64 = 64 * 1024 * 1024

// Upload is a file the user selected, held in memory until submitted.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (u *Upload) Size() int64 {
	if u == nil {
		return 0
	}
	return int64(len(u.Data))
}

// NewUpload builds an Upload from bytes. An empty contentType is sniffed.
func NewUpload(name, contentType string, data []byte) *Upload {
	if strings.TrimSpace(contentType) == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &Upload{Name: filepath.Base(name), ContentType: contentType, Data: data}
}

// LoadUpload reads a file from disk and detects its MIME type from content.
func LoadUpload(path string) (*Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxReadBytes {
		return nil, errors.ErrFileTooLarge
	}
	if info.Size() == 0 {
		return nil, errors.ErrFileEmpty
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	return NewUpload(path, mimetype.Detect(data).String(), data), nil
}

// ValidateImage enforces the image/* MIME prefix and the size ceiling.
// maxBytes <= 0 selects MaxImageBytes.
func ValidateImage(field string, u *Upload, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	if u == nil {
		return newValidationError("Please select an image", errors.ErrFileRequired,
			map[string]string{field: "This field is required"})
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return newValidationError("Please upload an image file", errors.ErrFileTypeNotAllowed,
			map[string]string{field: fmt.Sprintf("%s is not an image", u.ContentType)})
	}
	if u.Size() > maxBytes {
		return newValidationError(
			fmt.Sprintf("File size must be less than %dMB", maxBytes/(1024*1024)),
			errors.ErrFileTooLarge,
			map[string]string{field: fmt.Sprintf("%d bytes exceeds %d", u.Size(), maxBytes)},
		)
	}
	return nil
}
