// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"
)

// DefaultTimeout applies when an activity leaves its timeout empty.
const DefaultTimeout = 10 * time.Second

// Status tracks how far along a worker implementation is.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified:
		return true
	}
	return false
}

// Categories group workers by the stage of the loan pipeline they serve.
// The generator uses the category as the package directory.
const (
	CategoryProfile      = "profile"
	CategoryVerification = "verification"
	CategoryLoan         = "loan"
)

var knownCategories = map[string]bool{
	CategoryProfile:      true,
	CategoryVerification: true,
	CategoryLoan:         true,
}

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one job type: its variables contract, the error codes
// it may throw, and its engine-side timeout and retries.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus Status                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}

// TimeoutDuration parses Timeout, falling back to DefaultTimeout when it is
// empty.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s timeout %q: %w", a.ID, a.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("activity %s timeout %q must be positive", a.ID, a.Timeout)
	}
	return d, nil
}

// Throws reports whether code is one of the activity's declared error codes.
func (a Activity) Throws(code string) bool {
	for _, c := range a.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
