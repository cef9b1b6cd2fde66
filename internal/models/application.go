// internal/models/application.go
package models

import (
	"fmt"
	"time"
)

const (
	ApplicationStatusPending     = "Pending"
	ApplicationStatusApproved    = "Approved"
	ApplicationStatusRejected    = "Rejected"
	ApplicationStatusUnderReview = "Under Review"
)

type LoanApplication struct {
	ID                 string    `json:"id"`
	ApplicationNumber  string    `json:"applicationNumber"`
	UserID             string    `json:"userId"`
	LoanAmount         float64   `json:"loanAmount"`
	LoanTerm           int       `json:"loanTerm"`
	Purpose            string    `json:"purpose"`
	Prediction         string    `json:"prediction"`
	Confidence         float64   `json:"confidence"`
	PredictionDegraded bool      `json:"predictionDegraded"`
	Status             string    `json:"status"`
	EligibilityPolicy  string    `json:"eligibilityPolicy"`
	TotalCollateral    string    `json:"totalCollateral"`
	RequiredCollateral string    `json:"requiredCollateral"`
	VerificationScore  float64   `json:"verificationScore"`
	CreatedAt          time.Time `json:"createdAt"`
}

// IntSource draws a uniform integer in [lo, hi].
type IntSource interface {
	IntRange(lo, hi int) int
}

// NewApplicationNumber returns "LE<year><6 digits>".
func NewApplicationNumber(rng IntSource, now time.Time) string {
	return fmt.Sprintf("LE%d%06d", now.Year(), rng.IntRange(100000, 999999))
}

// StatusForPrediction derives the initial application status. Only an
// approved prediction is approved outright; everything else is reviewed.
func StatusForPrediction(prediction string) string {
	if prediction == ApplicationStatusApproved {
		return ApplicationStatusApproved
	}
	return ApplicationStatusUnderReview
}

func IsValidApplicationStatus(status string) bool {
	switch status {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusUnderReview:
		return true
	}
	return false
}
