package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeParseError             ErrorCode = "PARSE_ERROR"
	ErrCodeInputValidationFailed  ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeUnknownCheckKind       ErrorCode = "UNKNOWN_CHECK_KIND"
	ErrCodeEligibilityConfigError ErrorCode = "ELIGIBILITY_CONFIG_INVALID"

	ErrCodeProfileNotFound      ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseUpdateFailed ErrorCode = "DATABASE_UPDATE_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeQueryTimeout         ErrorCode = "QUERY_TIMEOUT"

	ErrCodeIndexingFailed ErrorCode = "INDEXING_FAILED"

	ErrCodeEventPublishFailed     ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the normalized failure every worker reports.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error variables sent to the engine.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is the engine-facing form of a StandardError.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Job variables could not be parsed", err.Error(), false)
}

func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input validation failed", details, false)
}

func NewUnknownCheckKindError(kind string) *StandardError {
	return newError(ErrCodeUnknownCheckKind, "Unknown verification check", fmt.Sprintf("kind: %s", kind), false)
}

func NewEligibilityConfigError(err error) *StandardError {
	return newError(ErrCodeEligibilityConfigError, "Eligibility policy is misconfigured", err.Error(), false)
}

func NewProfileNotFoundError(userID string) *StandardError {
	return newError(ErrCodeProfileNotFound, "Loan profile not found", fmt.Sprintf("userId: %s", userID), false)
}

func NewDatabaseQueryFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed", err.Error(), true)
}

func NewDatabaseUpdateFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseUpdateFailed, "Database update failed and was rolled back", err.Error(), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

func NewDuplicateApplicationError(applicationNumber string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "Application already exists", fmt.Sprintf("applicationNumber: %s", applicationNumber), false)
}

func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database operation timed out", fmt.Sprintf("operation: %s", operation), true)
}

func NewIndexingFailedError(index string, err error) *StandardError {
	return newError(ErrCodeIndexingFailed, "Search indexing failed", fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewEventPublishFailedError(topic string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Event publish failed", fmt.Sprintf("topic: %s, error: %s", topic, err.Error()), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, "External service call failed", fmt.Sprintf("service: %s, error: %s", service, err.Error()), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// BPMNErrorMapping maps internal codes to the error codes modelled on the
// process boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeParseError:             "PARSE_ERROR",
	ErrCodeInputValidationFailed:  "INPUT_VALIDATION_FAILED",
	ErrCodeUnknownCheckKind:       "UNKNOWN_CHECK_KIND",
	ErrCodeEligibilityConfigError: "ELIGIBILITY_CONFIG_INVALID",
	ErrCodeProfileNotFound:        "PROFILE_NOT_FOUND",
	ErrCodeDatabaseQueryFailed:    "DATABASE_ERROR",
	ErrCodeDatabaseUpdateFailed:   "DATABASE_ERROR",
	ErrCodeDatabaseInsertFailed:   "DATABASE_ERROR",
	ErrCodeQueryTimeout:           "DATABASE_ERROR",
	ErrCodeDuplicateApplication:   "DUPLICATE_APPLICATION",
	ErrCodeIndexingFailed:         "INDEXING_FAILED",
	ErrCodeEventPublishFailed:     "EVENT_PUBLISH_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeExternalService:        "EXTERNAL_SERVICE_ERROR",
	ErrCodeInternal:               "INTERNAL_ERROR",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseUpdateFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeIndexingFailed,
		ErrCodeEventPublishFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeQueryTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "PROFILE") || strings.Contains(codeStr, "DUPLICATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "INDEXING"):
		return "SEARCH"
	case strings.Contains(codeStr, "EVENT"):
		return "MESSAGING"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EXTERNAL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ELIGIBILITY") || strings.Contains(codeStr, "CHECK_KIND"):
		return "DECISION"
	case strings.Contains(codeStr, "PARSE") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
