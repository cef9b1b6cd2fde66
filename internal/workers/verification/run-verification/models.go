package runverification

import (
	"loan-eligibility-workers/internal/models"
	"loan-eligibility-workers/internal/verification"
)

type Input struct {
	UserID  string             `json:"userId"`
	Profile models.LoanProfile `json:"profile"`
}

type Output struct {
	VerificationReport *verification.Report `json:"verificationReport"`
	verification.Flags
	ProfileVerified   bool    `json:"profileVerified"`
	OverallStatus     string  `json:"overallStatus"`
	VerificationScore float64 `json:"verificationScore"`
	CibilScore        int     `json:"cibilScore"`
	CibilScoreUpdated bool    `json:"cibilScoreUpdated"`
	Cached            bool    `json:"cached"`
}
