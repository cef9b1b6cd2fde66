package checkloaneligibility

import "loan-eligibility-workers/internal/models"

type Input struct {
	UserID     string             `json:"userId" validate:"required"`
	LoanAmount float64            `json:"loanAmount" validate:"gt=0"`
	Profile    models.LoanProfile `json:"profile"`
}

// Output carries money as decimal strings so no precision is lost in
// process variables.
type Output struct {
	Eligible           bool     `json:"eligible"`
	EligibilityPolicy  string   `json:"eligibilityPolicy"`
	TotalCollateral    string   `json:"totalCollateral"`
	RequiredCollateral string   `json:"requiredCollateral"`
	Shortfall          string   `json:"shortfall"`
	MaxEligibleLoan    string   `json:"maxEligibleLoan,omitempty"`
	Reasons            []string `json:"reasons"`
}
