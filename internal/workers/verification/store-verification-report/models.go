package storeverificationreport

import "loan-eligibility-workers/internal/verification"

type Input struct {
	UserID             string               `json:"userId"`
	VerificationReport *verification.Report `json:"verificationReport"`
	CibilScore         int                  `json:"cibilScore"`
	CibilScoreUpdated  bool                 `json:"cibilScoreUpdated"`
}

type Output struct {
	Stored          bool   `json:"stored"`
	ProfileVerified bool   `json:"profileVerified"`
	CibilScore      int    `json:"cibilScore,omitempty"`
	VerifiedAt      string `json:"verifiedAt"`
}
