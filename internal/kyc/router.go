package kyc

import "launchkart/pkg/domain"

// DeriveStep maps a freshly fetched status to the step the wizard shows.
//
// Only the level is consulted: a rejected basic submission lands on the same
// tier1-complete step as a verified one, and the summary badge is the only
// place the difference shows. Unknown levels are treated as none.
func DeriveStep(status domain.KYCStatusInfo) domain.WizardStep {
	switch status.Level {
	case domain.KYCLevelBasic:
		return domain.StepTier1Complete
	case domain.KYCLevelFull:
		return domain.StepTier2Complete
	default:
		return domain.StepTier1Initiate
	}
}
