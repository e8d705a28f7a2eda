package kyc

import (
	"testing"

	"launchkart/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStep_IgnoresStatus(t *testing.T) {
	statuses := []domain.KYCStatus{
		domain.KYCStatusUnverified,
		domain.KYCStatusPending,
		domain.KYCStatusVerified,
		domain.KYCStatusRejected,
	}
	want := map[domain.KYCLevel]domain.WizardStep{
		domain.KYCLevelNone:  domain.StepTier1Initiate,
		domain.KYCLevelBasic: domain.StepTier1Complete,
		domain.KYCLevelFull:  domain.StepTier2Complete,
	}

	for level, step := range want {
		for _, status := range statuses {
			got := DeriveStep(domain.KYCStatusInfo{Level: level, Status: status})
			assert.Equal(t, step, got, "level=%s status=%s", level, status)
		}
	}
}

func TestDeriveStep_UnknownLevel(t *testing.T) {
	assert.Equal(t, domain.StepTier1Initiate, DeriveStep(domain.KYCStatusInfo{Level: "gold"}))
	assert.Equal(t, domain.StepTier1Initiate, DeriveStep(domain.KYCStatusInfo{}))
}

func TestProgress(t *testing.T) {
	tests := []struct {
		level     domain.KYCLevel
		completed [4]bool
	}{
		{domain.KYCLevelNone, [4]bool{false, false, false, false}},
		{domain.KYCLevelBasic, [4]bool{true, true, false, false}},
		{domain.KYCLevelFull, [4]bool{true, true, true, true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			stages := Progress(tt.level)
			assert.Equal(t, StageBasicKYC, stages[0].Name)
			assert.Equal(t, StageComplete, stages[3].Name)
			for i, s := range stages {
				assert.Equal(t, tt.completed[i], s.Completed, s.Name)
			}
		})
	}

	assert.Equal(t, 2, CompletedStages(Progress(domain.KYCLevelBasic)))
}
