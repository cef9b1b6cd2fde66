// internal/models/notification.go
package models

// Notification channels.
const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"
)

// Notification outcomes. A notification with no usable channel is
// disabled, never failed.
const (
	NotificationStatusSent     = "sent"
	NotificationStatusDisabled = "disabled"
)

// NotificationTemplate is the decision message for one application status.
// Placeholders take the form {{name}}.
type NotificationTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SMS     string `json:"sms"`
}
