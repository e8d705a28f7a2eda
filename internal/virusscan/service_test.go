package virusscan

import (
	"context"
	"testing"

	"launchkart/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureScanner(t *testing.T) {
	s := NewSignatureScanner(logger.NewNop(), Signature{Name: "Test-Marker", Pattern: []byte("MARKER")})
	ctx := context.Background()

	clean, err := s.ScanBuffer(ctx, "pan.png", []byte("\x89PNG plain image bytes"))
	require.NoError(t, err)
	assert.True(t, clean.Clean)
	assert.Empty(t, clean.Threats)

	infected, err := s.ScanBuffer(ctx, "eicar.png", append([]byte("prefix MARKER "), EICAR.Pattern...))
	require.NoError(t, err)
	assert.False(t, infected.Clean)
	assert.Equal(t, []string{"EICAR-Test-File", "Test-Marker"}, infected.Threats)
}

func TestSignatureScanner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSignatureScanner(logger.NewNop()).ScanBuffer(ctx, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
