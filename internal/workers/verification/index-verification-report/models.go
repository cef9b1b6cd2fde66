package indexverificationreport

import (
	"time"

	"loan-eligibility-workers/internal/verification"
)

type Input struct {
	UserID             string               `json:"userId"`
	VerificationReport *verification.Report `json:"verificationReport"`
}

type Output struct {
	Indexed    bool   `json:"indexed"`
	Index      string `json:"index"`
	DocumentID string `json:"documentId"`
	Version    int64  `json:"version"`
}

// reportDocument is the searchable form of a report: one document per
// user, overwritten on every run.
type reportDocument struct {
	UserID            string              `json:"user_id"`
	OverallStatus     string              `json:"overall_status"`
	VerificationScore float64             `json:"verification_score"`
	ChecksPassed      int                 `json:"checks_passed"`
	TotalChecks       int                 `json:"total_checks"`
	VerificationDate  time.Time           `json:"verification_date"`
	FailedChecks      []string            `json:"failed_checks"`
	Flags             verification.Flags  `json:"flags"`
	Report            verification.Report `json:"report"`
	IndexedAt         time.Time           `json:"indexed_at"`
}
