// ==============================================================================
// VIEW PACKAGE - internal/view/render.go
// ==============================================================================
// Plain-text rendering of the KYC wizard for the terminal driver. Every wizard
// step has exactly one renderer; a step without one is an error, never a
// fallback screen.
// ==============================================================================

package view

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"launchkart/internal/kyc"
	"launchkart/internal/notification"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/validator"
)

// Render writes the full screen for the wizard state. Nothing is written when
// the step is unknown.
func Render(w io.Writer, snap kyc.Snapshot, now time.Time) error {
	var buf bytes.Buffer

	renderProgress(&buf, snap.Progress)
	buf.WriteString("\n")

	var err error
	switch snap.Step {
	case domain.StepStatus:
		renderStatusStep(&buf, snap)
	case domain.StepTier1Initiate:
		renderTier1Initiate(&buf, snap)
	case domain.StepTier1Aadhaar:
		renderAadhaar(&buf, snap)
	case domain.StepTier1PAN:
		renderPAN(&buf, snap)
	case domain.StepTier1Emirates:
		renderEmirates(&buf, snap)
	case domain.StepTier1Complete:
		renderTier1Complete(&buf, snap)
	case domain.StepTier2Initiate:
		renderTier2Initiate(&buf, snap)
	case domain.StepTier2Video:
		renderTier2Video(&buf, snap, now)
	case domain.StepTier2Complete:
		renderTier2Complete(&buf, snap)
	default:
		err = fmt.Errorf("%w: no view for %s", errors.ErrInvalidStep, snap.Step)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// ==============================================================================
// SHARED SECTIONS
// ==============================================================================

func renderProgress(b *bytes.Buffer, stages [4]kyc.Stage) {
	parts := make([]string, len(stages))
	for i, s := range stages {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		parts[i] = fmt.Sprintf("[%s] %s", mark, s.Name)
	}
	b.WriteString(strings.Join(parts, " --- "))
	b.WriteString("\n")
}

// Badge is the short label shown next to the level.
func Badge(status domain.KYCStatus) string {
	switch status {
	case domain.KYCStatusVerified:
		return "VERIFIED"
	case domain.KYCStatusPending:
		return "PENDING REVIEW"
	case domain.KYCStatusRejected:
		return "REJECTED"
	case domain.KYCStatusUnverified:
		return "UNVERIFIED"
	}
	return strings.ToUpper(string(status))
}

var featureLabels = map[string]string{
	domain.FeatureDashboardAccess: "Dashboard access",
	domain.FeatureFreeServices:    "Free services",
	domain.FeatureInvestmentTools: "Investment tools",
	domain.FeatureFundingAccess:   "Funding access",
}

func featureLabel(key string) string {
	if label, ok := featureLabels[key]; ok {
		return label
	}
	return strings.ReplaceAll(key, "_", " ")
}

func renderSummary(b *bytes.Buffer, status *domain.KYCStatusInfo) {
	if status == nil {
		b.WriteString("KYC status not loaded yet. Type 'refresh' to try again.\n")
		return
	}

	fmt.Fprintf(b, "KYC level: %s  [%s]\n", status.Level, Badge(status.Status))

	if len(status.FeaturesUnlocked) > 0 {
		b.WriteString("\nFeatures:\n")
		keys := make([]string, 0, len(status.FeaturesUnlocked))
		for k := range status.FeaturesUnlocked {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			mark := "locked"
			if status.FeaturesUnlocked[k] {
				mark = "unlocked"
			}
			fmt.Fprintf(b, "  - %-18s %s\n", featureLabel(k), mark)
		}
	}

	if len(status.NextSteps) > 0 {
		b.WriteString("\nNext steps:\n")
		for i, s := range status.NextSteps {
			fmt.Fprintf(b, "  %d. %s\n", i+1, validator.StripMarkup(s))
		}
	}
}

func renderInline(b *bytes.Buffer, snap kyc.Snapshot, flow kyc.Flow) {
	if msg := snap.Messages[flow]; msg != "" {
		fmt.Fprintf(b, "\n  ! %s\n", msg)
	}
	fields := snap.FieldErrors[flow]
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "    %s: %s\n", k, fields[k])
	}
}

func action(b *bytes.Buffer, enabled, loading bool, command, label string) {
	switch {
	case loading:
		fmt.Fprintf(b, "  (%s ... in progress)\n", label)
	case enabled:
		fmt.Fprintf(b, "  > %-28s %s\n", command, label)
	default:
		fmt.Fprintf(b, "  - %-28s %s (disabled)\n", command, label)
	}
}

func fileLine(b *bytes.Buffer, label string, u *kyc.Upload) {
	if u == nil {
		fmt.Fprintf(b, "  %-18s (none)\n", label+":")
		return
	}
	fmt.Fprintf(b, "  %-18s %s (%s, %d KB)\n", label+":", u.Name, u.ContentType, (u.Size()+1023)/1024)
}

// ==============================================================================
// STEPS
// ==============================================================================

func renderStatusStep(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== KYC Status ==\n")
	renderSummary(b, snap.Status)
	if snap.Loading[kyc.FlowStatus] {
		b.WriteString("\nLoading status...\n")
	}
	b.WriteString("\n  > continue                     Go to your current step\n")
}

func renderTier1Initiate(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== Basic KYC ==\n")
	b.WriteString("Verify your identity with one of the documents below.\n\n")

	if len(snap.DocumentTypes) == 0 {
		b.WriteString("No document types are available for your country.\n")
	}
	for _, dt := range snap.DocumentTypes {
		fmt.Fprintf(b, "  * %-12s %s\n", dt, dt.Label())
	}

	b.WriteString("\nQuick verification:\n")
	for _, dt := range snap.DocumentTypes {
		switch dt {
		case domain.DocumentTypeAadhaar:
			b.WriteString("  > aadhaar                      Verify with Aadhaar OTP\n")
		case domain.DocumentTypePAN:
			b.WriteString("  > pan                          Verify with PAN card image\n")
		case domain.DocumentTypeEmiratesID:
			b.WriteString("  > emirates                     Verify with Emirates ID and selfie\n")
		}
	}

	b.WriteString("\nOr submit a document for review:\n")
	docType := string(snap.Basic.DocumentType)
	if docType == "" {
		docType = "(none)"
	}
	fmt.Fprintf(b, "  %-18s %s\n", "Document type:", docType)
	fmt.Fprintf(b, "  %-18s %s\n", "Document number:", orNone(snap.Basic.DocumentNumber))
	fileLine(b, "Document file", snap.Basic.DocumentFile)
	renderInline(b, snap, kyc.FlowBasic)
	b.WriteString("\n")
	action(b, snap.CanSubmitBasic(), snap.Loading[kyc.FlowBasic], "submit", "Submit basic KYC")
}

func renderAadhaar(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== Aadhaar Verification ==\n")
	fmt.Fprintf(b, "  %-18s %s\n", "Aadhaar number:", orNone(snap.Aadhaar.Number))

	if snap.Aadhaar.OTPSent {
		fmt.Fprintf(b, "  %-18s %s\n", "OTP:", orNone(snap.Aadhaar.OTP))
		if snap.Aadhaar.DevCode != "" {
			fmt.Fprintf(b, "  (development OTP: %s)\n", snap.Aadhaar.DevCode)
		}
	}
	renderInline(b, snap, kyc.FlowOTP)
	renderInline(b, snap, kyc.FlowAadhaar)
	b.WriteString("\n")

	if !snap.Aadhaar.OTPSent {
		action(b, snap.CanSendOTP(), snap.Loading[kyc.FlowOTP], "send-otp", "Send OTP")
	} else {
		action(b, snap.CanVerifyAadhaar(), snap.Loading[kyc.FlowAadhaar], "verify", "Verify OTP")
		action(b, snap.CanSendOTP(), snap.Loading[kyc.FlowOTP], "send-otp", "Resend OTP")
	}
	b.WriteString("  > back                         Choose another document\n")
}

func renderPAN(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== PAN Verification ==\n")
	fileLine(b, "PAN image", snap.PAN.Image)
	renderInline(b, snap, kyc.FlowPAN)
	b.WriteString("\n")
	action(b, snap.CanVerifyPAN(), snap.Loading[kyc.FlowPAN], "verify", "Verify PAN")
	b.WriteString("  > back                         Choose another document\n")
}

func renderEmirates(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== Emirates ID Verification ==\n")
	fileLine(b, "Emirates ID", snap.Emirates.IDImage)
	fileLine(b, "Selfie", snap.Emirates.Selfie)
	renderInline(b, snap, kyc.FlowEmirates)
	b.WriteString("\n")
	action(b, snap.CanVerifyEmiratesID(), snap.Loading[kyc.FlowEmirates], "verify", "Verify Emirates ID")
	b.WriteString("  > back                         Choose another document\n")
}

func renderTier1Complete(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== Basic KYC Complete ==\n")
	renderSummary(b, snap.Status)
	b.WriteString("\n  > full-kyc                     Continue to full KYC (video)\n")
}

func renderTier2Initiate(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== Full KYC ==\n")
	b.WriteString("Full KYC is a short video call with a verification officer.\n")
	renderInline(b, snap, kyc.FlowTier2)
	b.WriteString("\n")
	action(b, snap.CanInitiateFullKYC(), snap.Loading[kyc.FlowTier2], "start", "Start video KYC")
	b.WriteString("  > back                         Back to summary\n")
}

func renderTier2Video(b *bytes.Buffer, snap kyc.Snapshot, now time.Time) {
	b.WriteString("== Video KYC Session ==\n")
	s := snap.Session
	if s == nil {
		b.WriteString("No session. Type 'back' to start one.\n")
		return
	}

	fmt.Fprintf(b, "  %-12s %s\n", "Session:", s.SessionID)
	fmt.Fprintf(b, "  %-12s %s\n", "Join link:", s.SessionURL)
	if !s.ExpiresAt.IsZero() {
		note := ""
		if s.Expired(now) {
			note = " (expired)"
		}
		fmt.Fprintf(b, "  %-12s %s%s\n", "Expires:", s.ExpiresAt.Local().Format(time.RFC1123), note)
	}

	if steps := s.InstructionsFor(snap.Country); len(steps) > 0 {
		b.WriteString("\nInstructions:\n")
		for i, step := range steps {
			fmt.Fprintf(b, "  %d. %s\n", i+1, validator.StripMarkup(step))
		}
	}
	b.WriteString("\nYour level updates once the officer completes the review.\n")
	b.WriteString("  > open                         Open the join link\n")
	b.WriteString("  > refresh                      Check status\n")
	b.WriteString("  > back                         Start a new session\n")
}

func renderTier2Complete(b *bytes.Buffer, snap kyc.Snapshot) {
	b.WriteString("== KYC Complete ==\n")
	b.WriteString("All features are unlocked.\n\n")
	renderSummary(b, snap.Status)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// ==============================================================================
// NOTIFICATIONS
// ==============================================================================

// RenderNotifications writes pending notifications, oldest first.
func RenderNotifications(w io.Writer, items []notification.Notification) error {
	if len(items) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, n := range items {
		fmt.Fprintf(&buf, "[%s] %s\n", strings.ToUpper(string(n.Level)), validator.StripMarkup(n.Message))
	}
	_, err := w.Write(buf.Bytes())
	return err
}
