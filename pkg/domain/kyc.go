// Package domain defines the core KYC entities shared by the LaunchKart client
// and the development backend.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ==============================================================================
// ENUMS & STATUS TYPES
// ==============================================================================

// KYCLevel is the verification tier a user has achieved.
type KYCLevel string

const (
	KYCLevelNone  KYCLevel = "none"
	KYCLevelBasic KYCLevel = "basic"
	KYCLevelFull  KYCLevel = "full"
)

// Valid reports whether the level is one of the known tiers.
func (l KYCLevel) Valid() bool {
	switch l {
	case KYCLevelNone, KYCLevelBasic, KYCLevelFull:
		return true
	}
	return false
}

// KYCStatus is the adjudication state of the submission for the current level.
type KYCStatus string

const (
	KYCStatusUnverified KYCStatus = "unverified"
	KYCStatusPending    KYCStatus = "pending"
	KYCStatusVerified   KYCStatus = "verified"
	KYCStatusRejected   KYCStatus = "rejected"
)

// Valid reports whether the status is one of the known adjudication states.
func (s KYCStatus) Valid() bool {
	switch s {
	case KYCStatusUnverified, KYCStatusPending, KYCStatusVerified, KYCStatusRejected:
		return true
	}
	return false
}

// DocumentType represents the identity documents accepted for Tier-1.
type DocumentType string

const (
	DocumentTypeAadhaar    DocumentType = "aadhaar"
	DocumentTypePAN        DocumentType = "pan"
	DocumentTypeEmiratesID DocumentType = "emirates_id"
)

// Label returns the human readable name of the document type.
func (d DocumentType) Label() string {
	switch d {
	case DocumentTypeAadhaar:
		return "Aadhaar Card"
	case DocumentTypePAN:
		return "PAN Card"
	case DocumentTypeEmiratesID:
		return "Emirates ID"
	}
	return string(d)
}

// Country is the country a user declared at signup.
type Country string

const (
	CountryIndia Country = "IN"
	CountryUAE   Country = "AE"
)

// ParseCountry accepts ISO codes as well as the display names used by the
// signup form ("India", "UAE").
func ParseCountry(s string) Country {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN", "IND", "INDIA":
		return CountryIndia
	case "AE", "ARE", "UAE", "UNITED ARAB EMIRATES":
		return CountryUAE
	}
	return Country(strings.ToUpper(strings.TrimSpace(s)))
}

// DocumentTypesFor returns the document types a user from the given country
// may submit for basic KYC. Unknown countries get no options.
func DocumentTypesFor(c Country) []DocumentType {
	switch c {
	case CountryIndia:
		return []DocumentType{DocumentTypeAadhaar, DocumentTypePAN}
	case CountryUAE:
		return []DocumentType{DocumentTypeEmiratesID}
	}
	return nil
}

// ==============================================================================
// WIZARD STEPS
// ==============================================================================

// WizardStep identifies the view the KYC wizard is currently showing.
type WizardStep int

const (
	StepStatus WizardStep = iota
	StepTier1Initiate
	StepTier1Aadhaar
	StepTier1PAN
	StepTier1Emirates
	StepTier1Complete
	StepTier2Initiate
	StepTier2Video
	StepTier2Complete
)

var stepNames = [...]string{
	StepStatus:        "status",
	StepTier1Initiate: "tier1-initiate",
	StepTier1Aadhaar:  "tier1-aadhaar",
	StepTier1PAN:      "tier1-pan",
	StepTier1Emirates: "tier1-emirates",
	StepTier1Complete: "tier1-complete",
	StepTier2Initiate: "tier2-initiate",
	StepTier2Video:    "tier2-video",
	StepTier2Complete: "tier2-complete",
}

// AllSteps lists every wizard step in declaration order.
func AllSteps() []WizardStep {
	steps := make([]WizardStep, len(stepNames))
	for i := range stepNames {
		steps[i] = WizardStep(i)
	}
	return steps
}

func (s WizardStep) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("WizardStep(%d)", int(s))
	}
	return stepNames[s]
}

// Valid reports whether s is one of the nine declared steps.
func (s WizardStep) Valid() bool {
	return s >= 0 && int(s) < len(stepNames)
}

// Terminal reports whether no further transition leaves this step.
func (s WizardStep) Terminal() bool {
	return s == StepTier2Complete
}

// ParseWizardStep maps a step identifier back to its enum value.
func ParseWizardStep(name string) (WizardStep, error) {
	for i, n := range stepNames {
		if n == name {
			return WizardStep(i), nil
		}
	}
	return StepStatus, fmt.Errorf("unknown wizard step %q", name)
}

// ==============================================================================
// CORE ENTITIES
// ==============================================================================

// Feature flags the backend unlocks as the user progresses.
const (
	FeatureDashboardAccess = "dashboard_access"
	FeatureFreeServices    = "free_services"
	FeatureInvestmentTools = "investment_tools"
	FeatureFundingAccess   = "funding_access"
)

// KYCStatusInfo is the client's cached copy of the verification state. The
// backend owns it; FeaturesUnlocked and NextSteps are displayed verbatim.
type KYCStatusInfo struct {
	Level            KYCLevel        `json:"level"`
	Status           KYCStatus       `json:"status"`
	FeaturesUnlocked map[string]bool `json:"features_unlocked"`
	NextSteps        []string        `json:"next_steps"`
}

// FullKYCSession describes a video-KYC session created by the backend.
type FullKYCSession struct {
	SessionID    string              `json:"session_id"`
	SessionURL   string              `json:"session_url"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Instructions map[string][]string `json:"instructions"`
}

// InstructionsFor returns the instructions for a country, falling back to the
// "default" entry and then to any entry when the country has none.
func (s *FullKYCSession) InstructionsFor(c Country) []string {
	if s == nil || len(s.Instructions) == 0 {
		return nil
	}
	for _, key := range []string{string(c), strings.ToLower(string(c)), "default"} {
		if steps, ok := s.Instructions[key]; ok {
			return steps
		}
	}
	return nil
}

// Expired is informational only; the client never blocks joining on it.
func (s *FullKYCSession) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ==============================================================================
// WIRE DTOs
// ==============================================================================

// KYCStatusResponse is the payload of GET kyc/status.
type KYCStatusResponse struct {
	KYCLevel         KYCLevel        `json:"kyc_level"`
	KYCStatus        KYCStatus       `json:"kyc_status"`
	FeaturesUnlocked map[string]bool `json:"features_unlocked"`
	NextSteps        []string        `json:"next_steps"`
}

// ToInfo maps backend field names to the local aliases.
func (r *KYCStatusResponse) ToInfo() *KYCStatusInfo {
	info := &KYCStatusInfo{
		Level:            r.KYCLevel,
		Status:           r.KYCStatus,
		FeaturesUnlocked: make(map[string]bool, len(r.FeaturesUnlocked)),
		NextSteps:        append([]string(nil), r.NextSteps...),
	}
	if info.Level == "" {
		info.Level = KYCLevelNone
	}
	if info.Status == "" {
		info.Status = KYCStatusUnverified
	}
	for k, v := range r.FeaturesUnlocked {
		info.FeaturesUnlocked[k] = v
	}
	return info
}

// VerificationResponse is returned by the Tier-1 verify endpoints.
type VerificationResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ErrorResponse carries the server-provided failure message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// FullKYCSessionResponse is the payload of POST kyc/tier2/initiate.
type FullKYCSessionResponse struct {
	SessionID    string              `json:"session_id"`
	SessionURL   string              `json:"session_url"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Instructions map[string][]string `json:"instructions"`
}
