package loadloanprofile

import "loan-eligibility-workers/internal/models"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	Profile         *models.LoanProfile `json:"profile"`
	ProfileComplete bool                `json:"profileComplete"`
}
