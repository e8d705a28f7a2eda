package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"launchkart/internal/auth"
	"launchkart/internal/kyc"
	"launchkart/internal/notification"
	"launchkart/internal/session"
	"launchkart/internal/view"
	"launchkart/pkg/domain"
	"launchkart/pkg/errors"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"

	"github.com/agnivade/levenshtein"
)

// shell reads one command per line and re-renders the wizard after each.
type shell struct {
	out       io.Writer
	log       logger.Logger
	sessions  *session.Manager
	auth      *auth.Client
	api       kyc.API
	otp       kyc.OTPSender
	center    *notification.Center
	validator *validator.Validator
	maxImage  int64

	wizard *kyc.Wizard
}

type command struct {
	name  string
	usage string
	help  string
	// wizard marks commands that need a logged-in user.
	wizard bool
	run    func(sh *shell, ctx context.Context, args []string) error
}

var errUsage = errors.New("usage")

func (sh *shell) commands() []command {
	return []command{
		{name: "help", help: "Show this list", run: (*shell).cmdHelp},
		{name: "login", usage: "<email> <password>", help: "Log in", run: (*shell).cmdLogin},
		{name: "resend", help: "Resend the email verification link", run: (*shell).cmdResend},
		{name: "logout", help: "Log out", run: (*shell).cmdLogout},
		{name: "quit", help: "Exit"},

		{name: "refresh", help: "Reload your KYC status", wizard: true, run: (*shell).cmdRefresh},
		{name: "status", help: "Show the status summary", wizard: true, run: goTo(domain.StepStatus)},
		{name: "continue", help: "Go to your current step", wizard: true, run: (*shell).cmdContinue},
		{name: "back", help: "Go back one step", wizard: true, run: (*shell).cmdBack},

		{name: "doc", usage: "<aadhaar|pan|emirates_id>", help: "Choose the document type", wizard: true, run: (*shell).cmdDocType},
		{name: "number", usage: "<document number>", help: "Enter the document number", wizard: true, run: (*shell).cmdDocNumber},
		{name: "file", usage: "<path>", help: "Attach the document file", wizard: true, run: (*shell).cmdDocFile},
		{name: "submit", help: "Submit basic KYC for review", wizard: true, run: (*shell).cmdSubmit},

		{name: "aadhaar", help: "Verify with Aadhaar OTP", wizard: true, run: goTo(domain.StepTier1Aadhaar)},
		{name: "pan", help: "Verify with PAN card image", wizard: true, run: goTo(domain.StepTier1PAN)},
		{name: "emirates", help: "Verify with Emirates ID and selfie", wizard: true, run: goTo(domain.StepTier1Emirates)},
		{name: "id", usage: "<aadhaar number>", help: "Enter the Aadhaar number", wizard: true, run: (*shell).cmdAadhaarNumber},
		{name: "send-otp", help: "Send the Aadhaar OTP", wizard: true, run: (*shell).cmdSendOTP},
		{name: "otp", usage: "<code>", help: "Enter the OTP", wizard: true, run: (*shell).cmdOTP},
		{name: "image", usage: "<path>", help: "Attach the PAN or Emirates ID image", wizard: true, run: (*shell).cmdImage},
		{name: "selfie", usage: "<path>", help: "Attach the selfie", wizard: true, run: (*shell).cmdSelfie},
		{name: "verify", help: "Run the verification on this step", wizard: true, run: (*shell).cmdVerify},

		{name: "full-kyc", help: "Continue to full KYC", wizard: true, run: goTo(domain.StepTier2Initiate)},
		{name: "start", help: "Start a video KYC session", wizard: true, run: (*shell).cmdStart},
		{name: "open", help: "Show the video session link", wizard: true, run: (*shell).cmdOpen},

		{name: "dismiss", usage: "[n]", help: "Dismiss notification n, or all", run: (*shell).cmdDismiss},
	}
}

// exec runs one input line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	var cmd *command
	cmds := sh.commands()
	for i := range cmds {
		if cmds[i].name == name {
			cmd = &cmds[i]
			break
		}
	}
	if cmd == nil {
		if s := suggest(name, cmds); s != "" {
			fmt.Fprintf(sh.out, "Unknown command %q. Did you mean %q?\n", name, s)
		} else {
			fmt.Fprintf(sh.out, "Unknown command %q. Type 'help' for commands.\n", name)
		}
		return false
	}
	if cmd.name == "quit" {
		return true
	}
	if cmd.wizard && sh.wizard == nil {
		fmt.Fprintln(sh.out, "Please log in first: login <email> <password>")
		return false
	}

	err := cmd.run(sh, ctx, args)
	if errors.Is(err, errUsage) {
		fmt.Fprintf(sh.out, "Usage: %s %s\n", cmd.name, cmd.usage)
		return false
	}
	sh.report(err)
	sh.render()
	return false
}

// report prints errors the wizard does not surface on its own. Validation
// messages, rejections and transport failures already live in the snapshot or
// the notification center.
func (sh *shell) report(err error) {
	var vErr *kyc.ValidationError
	var rErr *kyc.RejectedError
	var apiErr *kyc.APIError
	switch {
	case err == nil, errors.As(err, &vErr), errors.As(err, &rErr), errors.As(err, &apiErr):
	case errors.Is(err, errors.ErrNotAuthenticated), errors.Is(err, errors.ErrSessionExpired):
		fmt.Fprintln(sh.out, "Your session has expired. Please log in again.")
		sh.closeWizard()
	case errors.Is(err, errors.ErrBusy):
		fmt.Fprintln(sh.out, "Please wait, a request is already in progress.")
	case errors.Is(err, errors.ErrInvalidStep), errors.Is(err, errors.ErrNoStatus):
		fmt.Fprintln(sh.out, "That action is not available on this step.")
	case errors.Is(err, context.Canceled):
	default:
		fmt.Fprintln(sh.out, err.Error())
	}
}

func (sh *shell) render() {
	if sh.wizard != nil {
		fmt.Fprintln(sh.out)
		if err := view.Render(sh.out, sh.wizard.Snapshot(), time.Now()); err != nil {
			sh.log.Error("Failed to render wizard", map[string]interface{}{"error": err.Error()})
		}
	}
	if pending := sh.center.Pending(); len(pending) > 0 {
		fmt.Fprintln(sh.out)
		_ = view.RenderNotifications(sh.out, pending)
	}
}

// resume picks up a session persisted by an earlier run.
func (sh *shell) resume(ctx context.Context) {
	s, err := sh.sessions.Current(ctx)
	if err != nil {
		return
	}
	fmt.Fprintf(sh.out, "Welcome back, %s.\n", s.User.Name)
	sh.openWizard(s.User.Country)
	_ = sh.wizard.Refresh(ctx)
	sh.render()
}

func (sh *shell) openWizard(country domain.Country) {
	sh.closeWizard()
	sh.wizard = kyc.NewWizard(sh.api, sh.otp, sh.center, sh.validator,
		kyc.WizardConfig{Country: country, MaxImageBytes: sh.maxImage}, sh.log)
}

func (sh *shell) closeWizard() {
	if sh.wizard != nil {
		sh.wizard.Close()
		sh.wizard = nil
	}
}

// ==============================================================================
// ACCOUNT
// ==============================================================================

func (sh *shell) cmdHelp(_ context.Context, _ []string) error {
	for _, c := range sh.commands() {
		fmt.Fprintf(sh.out, "  %-34s %s\n", strings.TrimSpace(c.name+" "+c.usage), c.help)
	}
	return nil
}

func (sh *shell) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	s, err := sh.auth.Login(ctx, args[0], args[1])
	if err != nil {
		var authErr *auth.Error
		switch {
		case errors.Is(err, errors.ErrValidation):
			return errors.New("Please enter a valid email and a password of at least 8 characters")
		case errors.Is(err, errors.ErrInvalidCredentials):
			return errors.New("Invalid email or password")
		case errors.As(err, &authErr) && authErr.Detail != "":
			return fmt.Errorf("%s. Type 'resend' to get a new verification email", authErr.Detail)
		}
		return err
	}

	fmt.Fprintf(sh.out, "Logged in as %s.\n", s.User.Name)
	sh.center.DismissAll()
	sh.openWizard(s.User.Country)
	return sh.wizard.Refresh(ctx)
}

func (sh *shell) cmdResend(ctx context.Context, _ []string) error {
	if err := sh.auth.ResendVerification(ctx); err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return errors.New("Try to log in first so we know where to send the email")
		}
		return err
	}
	fmt.Fprintln(sh.out, "Verification email sent. Check your inbox.")
	return nil
}

func (sh *shell) cmdLogout(ctx context.Context, _ []string) error {
	sh.closeWizard()
	sh.center.DismissAll()
	if err := sh.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "Logged out.")
	return nil
}

func (sh *shell) cmdDismiss(_ context.Context, args []string) error {
	if len(args) == 0 {
		sh.center.DismissAll()
		return nil
	}
	n, err := strconv.Atoi(args[0])
	pending := sh.center.Pending()
	if err != nil || n < 1 || n > len(pending) {
		return errUsage
	}
	sh.center.Dismiss(pending[n-1].ID)
	return nil
}

// ==============================================================================
// NAVIGATION
// ==============================================================================

func goTo(step domain.WizardStep) func(*shell, context.Context, []string) error {
	return func(sh *shell, _ context.Context, _ []string) error {
		return sh.wizard.GoTo(step)
	}
}

func (sh *shell) cmdRefresh(ctx context.Context, _ []string) error {
	return sh.wizard.Refresh(ctx)
}

func (sh *shell) cmdContinue(_ context.Context, _ []string) error {
	snap := sh.wizard.Snapshot()
	if snap.Status == nil {
		return errors.ErrNoStatus
	}
	return sh.wizard.GoTo(kyc.DeriveStep(*snap.Status))
}

func (sh *shell) cmdBack(_ context.Context, _ []string) error {
	switch sh.wizard.Step() {
	case domain.StepTier1Aadhaar, domain.StepTier1PAN, domain.StepTier1Emirates:
		return sh.wizard.GoTo(domain.StepTier1Initiate)
	case domain.StepTier2Initiate:
		return sh.wizard.GoTo(domain.StepTier1Complete)
	case domain.StepTier2Video:
		return sh.wizard.GoTo(domain.StepTier2Initiate)
	}
	return sh.wizard.GoTo(domain.StepStatus)
}

// ==============================================================================
// TIER 1
// ==============================================================================

func (sh *shell) cmdDocType(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return sh.wizard.SetDocumentType(domain.DocumentType(strings.ToLower(args[0])))
}

func (sh *shell) cmdDocNumber(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sh.wizard.SetDocumentNumber(strings.Join(args, " "))
	return nil
}

func (sh *shell) cmdDocFile(_ context.Context, args []string) error {
	u, err := loadFile(args)
	if err != nil {
		return err
	}
	sh.wizard.SelectDocumentFile(u)
	return nil
}

func (sh *shell) cmdSubmit(ctx context.Context, _ []string) error {
	return sh.wizard.SubmitBasic(ctx)
}

func (sh *shell) cmdAadhaarNumber(_ context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sh.wizard.SetAadhaarNumber(strings.Join(args, ""))
	return nil
}

func (sh *shell) cmdSendOTP(ctx context.Context, _ []string) error {
	return sh.wizard.SendOTP(ctx)
}

func (sh *shell) cmdOTP(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	sh.wizard.SetOTP(args[0])
	return nil
}

func (sh *shell) cmdImage(_ context.Context, args []string) error {
	u, err := loadFile(args)
	if err != nil {
		return err
	}
	switch sh.wizard.Step() {
	case domain.StepTier1PAN:
		return sh.wizard.SelectPANImage(u)
	case domain.StepTier1Emirates:
		return sh.wizard.SelectEmiratesIDImage(u)
	}
	return errors.ErrInvalidStep
}

func (sh *shell) cmdSelfie(_ context.Context, args []string) error {
	if sh.wizard.Step() != domain.StepTier1Emirates {
		return errors.ErrInvalidStep
	}
	u, err := loadFile(args)
	if err != nil {
		return err
	}
	return sh.wizard.SelectSelfieImage(u)
}

func (sh *shell) cmdVerify(ctx context.Context, _ []string) error {
	switch sh.wizard.Step() {
	case domain.StepTier1Aadhaar:
		return sh.wizard.VerifyAadhaar(ctx)
	case domain.StepTier1PAN:
		return sh.wizard.VerifyPAN(ctx)
	case domain.StepTier1Emirates:
		return sh.wizard.VerifyEmiratesID(ctx)
	}
	return errors.ErrInvalidStep
}

// ==============================================================================
// TIER 2
// ==============================================================================

func (sh *shell) cmdStart(ctx context.Context, _ []string) error {
	if sh.wizard.Step() != domain.StepTier2Initiate {
		return errors.ErrInvalidStep
	}
	return sh.wizard.InitiateFullKYC(ctx)
}

func (sh *shell) cmdOpen(_ context.Context, _ []string) error {
	snap := sh.wizard.Snapshot()
	if snap.Step != domain.StepTier2Video || snap.Session == nil {
		return errors.ErrInvalidStep
	}
	fmt.Fprintf(sh.out, "Open this link in your browser to join:\n  %s\n", snap.Session.SessionURL)
	return nil
}

// ==============================================================================
// HELPERS
// ==============================================================================

func loadFile(args []string) (*kyc.Upload, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	u, err := kyc.LoadUpload(strings.Join(args, " "))
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrFileTooLarge):
			return nil, errors.New("That file is too large")
		case errors.Is(err, errors.ErrFileEmpty):
			return nil, errors.New("That file is empty")
		}
		return nil, err
	}
	return u, nil
}

// suggest returns the closest command name within two edits, or "".
func suggest(input string, cmds []command) string {
	type candidate struct {
		name string
		dist int
	}
	var best []candidate
	for _, c := range cmds {
		if d := levenshtein.ComputeDistance(input, c.name); d <= 2 {
			best = append(best, candidate{c.name, d})
		}
	}
	if len(best) == 0 {
		return ""
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].dist < best[j].dist })
	return best[0].name
}
