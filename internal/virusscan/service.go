// internal/virusscan/service.go
package virusscan

import (
	"bytes"
	"context"
	"time"

	"launchkart/pkg/logger"
)

// Scanner checks uploaded documents before they are adjudicated.
type Scanner interface {
	ScanBuffer(ctx context.Context, name string, data []byte) (*ScanResult, error)
}

type ScanResult struct {
	FileName  string    `json:"file_name"`
	Clean     bool      `json:"clean"`
	Threats   []string  `json:"threats,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
	ScanTime  int64     `json:"scan_time_ms"`
	Engine    string    `json:"engine"`
}

// Signature is a byte pattern that marks a file as infected.
type Signature struct {
	Name    string
	Pattern []byte
}

// EICAR is the industry test file. Every scanner must flag it.
var EICAR = Signature{
	Name:    "EICAR-Test-File",
	Pattern: []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`),
}

// SignatureScanner matches uploads against a fixed signature list. It stands
// in for ClamAV on the development backend.
type SignatureScanner struct {
	signatures []Signature
	logger     logger.Logger
	now        func() time.Time
}

// NewSignatureScanner scans for the given signatures plus EICAR.
func NewSignatureScanner(log logger.Logger, extra ...Signature) *SignatureScanner {
	return &SignatureScanner{
		signatures: append([]Signature{EICAR}, extra...),
		logger:     log,
		now:        time.Now,
	}
}

func (s *SignatureScanner) ScanBuffer(ctx context.Context, name string, data []byte) (*ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := s.now()
	result := &ScanResult{
		FileName:  name,
		Clean:     true,
		ScannedAt: start,
		Engine:    "signature-scanner",
	}
	for _, sig := range s.signatures {
		if len(sig.Pattern) > 0 && bytes.Contains(data, sig.Pattern) {
			result.Clean = false
			result.Threats = append(result.Threats, sig.Name)
		}
	}
	result.ScanTime = s.now().Sub(start).Milliseconds()

	if !result.Clean {
		s.logger.Warn("File quarantined", map[string]interface{}{
			"file_name": name,
			"threats":   result.Threats,
		})
	} else {
		s.logger.Debug("Virus scan completed", map[string]interface{}{
			"file_name": name,
			"size":      len(data),
		})
	}
	return result, nil
}
