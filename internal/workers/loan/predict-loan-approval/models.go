package predictloanapproval

import "loan-eligibility-workers/internal/models"

type Input struct {
	UserID     string             `json:"userId" validate:"required"`
	LoanAmount float64            `json:"loanAmount"`
	LoanTerm   int                `json:"loanTerm"`
	Profile    models.LoanProfile `json:"profile"`
}

type Output struct {
	Prediction          string   `json:"prediction"`
	Confidence          float64  `json:"confidence"`
	ApprovalProbability float64  `json:"approvalProbability"`
	PredictionDegraded  bool     `json:"predictionDegraded"`
	DegradedReason      string   `json:"degradedReason,omitempty"`
	ModelVersion        string   `json:"modelVersion,omitempty"`
	UnseenCategories    []string `json:"unseenCategories,omitempty"`
	ApplicationStatus   string   `json:"applicationStatus"`
}
