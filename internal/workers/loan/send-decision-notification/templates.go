package senddecisionnotification

import (
	"fmt"
	"strings"

	"loan-eligibility-workers/internal/models"
)

var templates = map[string]models.NotificationTemplate{
	models.ApplicationStatusApproved: {
		Subject: "Your loan application {{applicationNumber}} is approved",
		Body:    "Dear {{fullName}},\n\nYour application {{applicationNumber}} for a loan of {{loanAmount}} has been approved.\n\nOur team will contact you with the disbursement details.",
		SMS:     "Loan application {{applicationNumber}} approved. We will contact you shortly.",
	},
	models.ApplicationStatusUnderReview: {
		Subject: "Your loan application {{applicationNumber}} is under review",
		Body:    "Dear {{fullName}},\n\nYour application {{applicationNumber}} for a loan of {{loanAmount}} is being reviewed by our team.\n\nWe will notify you once a decision is made.",
		SMS:     "Loan application {{applicationNumber}} is under review.",
	},
	models.ApplicationStatusRejected: {
		Subject: "Update on your loan application {{applicationNumber}}",
		Body:    "Dear {{fullName}},\n\nWe are unable to approve application {{applicationNumber}} at this time.",
		SMS:     "Loan application {{applicationNumber}}: we are unable to approve it at this time.",
	},
	models.ApplicationStatusPending: {
		Subject: "We received your loan application {{applicationNumber}}",
		Body:    "Dear {{fullName}},\n\nWe received application {{applicationNumber}} and will process it shortly.",
		SMS:     "Loan application {{applicationNumber}} received.",
	},
}

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		switch t := v.(type) {
		case string:
			value = t
		case int:
			value = fmt.Sprintf("%d", t)
		case float64:
			value = fmt.Sprintf("%.2f", t)
		case nil:
		default:
			value = fmt.Sprintf("%v", t)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Missing values render as empty.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
