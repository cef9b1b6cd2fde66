package verification

import (
	"errors"
	"fmt"
)

var (
	ErrFormat             = errors.New("FORMAT_ERROR")
	ErrUnknownInstitution = errors.New("UNKNOWN_INSTITUTION")
	ErrUnknownCheckKind   = errors.New("UNKNOWN_CHECK_KIND")
)

// FormatError reports a malformed identifier, account number or routing code.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s format: %s", e.Field, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// UnknownInstitutionError is returned for a well-formed routing code whose
// bank code is not in the institution table.
type UnknownInstitutionError struct {
	Code string
}

func (e *UnknownInstitutionError) Error() string {
	return fmt.Sprintf("Bank code %s not recognized. Please check IFSC code.", e.Code)
}

func (e *UnknownInstitutionError) Unwrap() error {
	return ErrUnknownInstitution
}
