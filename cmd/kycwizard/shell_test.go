package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"launchkart/internal/auth"
	"launchkart/internal/kyc"
	"launchkart/internal/mockapi"
	"launchkart/internal/notification"
	"launchkart/internal/session"
	"launchkart/pkg/logger"
	"launchkart/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	store, err := mockapi.NewDemoStore("launchkart-demo")
	require.NoError(t, err)
	srv := httptest.NewServer(mockapi.New(store, mockapi.Options{JWTSecret: "test"}, validator.New(), logger.NewNop()).Router())
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, logger.NewNop())
	sh := &shell{
		out:       &out,
		log:       logger.NewNop(),
		sessions:  sessions,
		auth:      auth.NewClient(srv.URL+"/api", srv.Client(), sessions, validator.New(), logger.NewNop()),
		api:       kyc.NewClient(srv.URL+"/api", srv.Client(), sessions, logger.NewNop()),
		otp:       kyc.NewSimulatedOTPSender("LaunchKart", 0, logger.NewNop()),
		center:    notification.NewCenter(logger.NewNop()),
		validator: validator.New(),
		maxImage:  kyc.MaxImageBytes,
	}
	t.Cleanup(sh.closeWizard)
	return sh, &out
}

// run executes a line and returns what it printed.
func run(t *testing.T, sh *shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	require.False(t, sh.exec(context.Background(), line))
	return out.String()
}

func TestSuggest(t *testing.T) {
	sh, _ := newTestShell(t)
	cmds := sh.commands()

	assert.Equal(t, "help", suggest("hlep", cmds))
	assert.Equal(t, "verify", suggest("verfy", cmds))
	assert.Equal(t, "send-otp", suggest("sendotp", cmds))
	assert.Empty(t, suggest("completely-different", cmds))
}

func TestShell_UnknownAndGuarded(t *testing.T) {
	sh, out := newTestShell(t)

	assert.Contains(t, run(t, sh, out, "refesh"), `Did you mean "refresh"?`)
	assert.Contains(t, run(t, sh, out, "refresh"), "Please log in first")
	assert.Contains(t, run(t, sh, out, "login only-email"), "Usage: login <email> <password>")
	assert.True(t, sh.exec(context.Background(), "quit"))
}

func TestShell_LoginFailures(t *testing.T) {
	sh, out := newTestShell(t)

	assert.Contains(t, run(t, sh, out, "login founder.in@launchkart.dev wrong-password"), "Invalid email or password")
	assert.Contains(t, run(t, sh, out, "login pending@launchkart.dev launchkart-demo"), "Type 'resend'")
	assert.Contains(t, run(t, sh, out, "resend"), "Verification email sent")
	assert.Nil(t, sh.wizard)
}

func TestShell_AadhaarJourney(t *testing.T) {
	sh, out := newTestShell(t)

	got := run(t, sh, out, "login founder.in@launchkart.dev launchkart-demo")
	assert.Contains(t, got, "Logged in as Asha Founder")
	assert.Contains(t, got, "== Basic KYC ==")

	assert.Contains(t, run(t, sh, out, "aadhaar"), "== Aadhaar Verification ==")
	run(t, sh, out, "id 1234 5678 9012")
	got = run(t, sh, out, "send-otp")
	assert.Contains(t, got, "development OTP")
	assert.Contains(t, got, "[INFO]")

	run(t, sh, out, "dismiss")
	run(t, sh, out, "otp 482913")
	got = run(t, sh, out, "verify")
	assert.Contains(t, got, "== Basic KYC Complete ==")
	assert.Contains(t, got, "[SUCCESS] Verification successful")

	assert.Contains(t, run(t, sh, out, "full-kyc"), "== Full KYC ==")
	got = run(t, sh, out, "start")
	assert.Contains(t, got, "== Video KYC Session ==")
	assert.Contains(t, run(t, sh, out, "open"), "https://video.launchkart.dev/session/")

	assert.Contains(t, run(t, sh, out, "logout"), "Logged out.")
	assert.Nil(t, sh.wizard)
}

func TestShell_PANImageFromDisk(t *testing.T) {
	sh, out := newTestShell(t)
	run(t, sh, out, "login founder.in@launchkart.dev launchkart-demo")

	dir := t.TempDir()
	img := filepath.Join(dir, "pan card.png")
	data := make([]byte, 4096)
	copy(data, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'})
	require.NoError(t, os.WriteFile(img, data, 0o600))

	assert.Contains(t, run(t, sh, out, "image "+img), "That action is not available on this step.")

	run(t, sh, out, "pan")
	got := run(t, sh, out, "image "+img)
	assert.Contains(t, got, "pan card.png (image/png, 4 KB)")
	assert.Contains(t, run(t, sh, out, "verify"), "== Basic KYC Complete ==")
}
