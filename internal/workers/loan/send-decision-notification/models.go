package senddecisionnotification

import "loan-eligibility-workers/internal/models"

// Input carries the contact fields directly or through the loaded profile;
// explicit fields win.
type Input struct {
	UserID            string  `json:"userId" validate:"required"`
	FullName          string  `json:"fullName"`
	Email             string  `json:"email" validate:"omitempty,email"`
	PhoneNumber       string  `json:"phoneNumber"`
	ApplicationNumber string  `json:"applicationNumber" validate:"required"`
	ApplicationStatus string  `json:"applicationStatus" validate:"required"`
	LoanAmount        float64 `json:"loanAmount"`
	Confidence        float64 `json:"confidence"`

	Profile *models.LoanProfile `json:"profile,omitempty" validate:"-"`
}

func (in *Input) resolveContact() {
	if in.Profile == nil {
		return
	}
	if in.FullName == "" {
		in.FullName = in.Profile.FullName
	}
	if in.Email == "" {
		in.Email = in.Profile.Email
	}
	if in.PhoneNumber == "" {
		in.PhoneNumber = in.Profile.PhoneNumber
	}
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"notificationStatus"` // "sent" or "disabled"
	Channels       []string `json:"notificationChannels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

const (
	StatusSent     = models.NotificationStatusSent
	StatusDisabled = models.NotificationStatusDisabled

	ChannelEmail = models.NotificationChannelEmail
	ChannelSMS   = models.NotificationChannelSMS
)
