package createloanapplication

import "time"

type Input struct {
	UserID             string  `json:"userId" validate:"required"`
	LoanAmount         float64 `json:"loanAmount" validate:"gt=0"`
	LoanTerm           int     `json:"loanTerm" validate:"gt=0"`
	Purpose            string  `json:"purpose" validate:"required,max=200"`
	Prediction         string  `json:"prediction" validate:"oneof=Approved Rejected"`
	Confidence         float64 `json:"confidence" validate:"gte=0,lte=100"`
	PredictionDegraded bool    `json:"predictionDegraded"`
	EligibilityPolicy  string  `json:"eligibilityPolicy" validate:"required"`
	TotalCollateral    string  `json:"totalCollateral" validate:"required,numeric"`
	RequiredCollateral string  `json:"requiredCollateral" validate:"required,numeric"`
	VerificationScore  float64 `json:"verificationScore" validate:"gte=0,lte=100"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	ApplicationStatus string `json:"applicationStatus"`
	EventPublished    bool   `json:"eventPublished"`
	CreatedAt         string `json:"createdAt"` // ISO 8601
}

// ApplicationCreatedEvent is published once the application row commits.
type ApplicationCreatedEvent struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	ApplicationID     string    `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	UserID            string    `json:"user_id"`
	LoanAmount        float64   `json:"loan_amount"`
	LoanTerm          int       `json:"loan_term"`
	Status            string    `json:"status"`
	Prediction        string    `json:"prediction"`
	Confidence        float64   `json:"confidence"`
	Degraded          bool      `json:"prediction_degraded"`
	OccurredAt        time.Time `json:"occurred_at"`
}
