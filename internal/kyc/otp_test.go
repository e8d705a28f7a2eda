package kyc

import (
	"context"
	"testing"
	"time"

	"launchkart/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedOTPSender(t *testing.T) {
	s := NewSimulatedOTPSender("", 0, logger.NewNop())

	d, err := s.SendOTP(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.NotEmpty(t, d.Reference)
	assert.Len(t, d.DevCode, OTPLength)
	assert.Equal(t, d.DevCode, SanitizeOTP(d.DevCode))
	assert.False(t, d.SentAt.IsZero())
}

func TestSimulatedOTPSender_HonoursCancel(t *testing.T) {
	s := NewSimulatedOTPSender("LaunchKart", time.Minute, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SendOTP(ctx, "123456789012")
	assert.ErrorIs(t, err, context.Canceled)
}
