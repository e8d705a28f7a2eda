package kyc

import "launchkart/pkg/domain"

// Stage is one segment of the progress indicator.
type Stage struct {
	Name      string
	Completed bool
}

// Stage names in display order.
const (
	StageBasicKYC  = "Basic KYC"
	StageDocuments = "Documents"
	StageFullKYC   = "Full KYC"
	StageComplete  = "Complete"
)

// Progress derives the four-stage indicator from the level alone.
func Progress(level domain.KYCLevel) [4]Stage {
	basicDone := level == domain.KYCLevelBasic || level == domain.KYCLevelFull
	fullDone := level == domain.KYCLevelFull

	return [4]Stage{
		{Name: StageBasicKYC, Completed: basicDone},
		{Name: StageDocuments, Completed: basicDone},
		{Name: StageFullKYC, Completed: fullDone},
		{Name: StageComplete, Completed: fullDone},
	}
}

// CompletedStages counts the completed segments.
func CompletedStages(stages [4]Stage) int {
	n := 0
	for _, s := range stages {
		if s.Completed {
			n++
		}
	}
	return n
}
