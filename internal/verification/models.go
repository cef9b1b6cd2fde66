package verification

import "time"

// Kind identifies one verification check. Values double as report keys.
type Kind string

const (
	KindPAN         Kind = "pan"
	KindAadhaar     Kind = "aadhar"
	KindBankAccount Kind = "bank_account"
	KindCreditScore Kind = "cibil"
	KindIncome      Kind = "income"
)

// Kinds lists every check in the order the aggregator runs them.
var Kinds = []Kind{KindPAN, KindAadhaar, KindBankAccount, KindCreditScore, KindIncome}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownCheckKind
}

const (
	StatusNoData             = "No Data"
	StatusVerificationFailed = "Verification Failed"
	StatusPartiallyVerified  = "Partially Verified"
	StatusVerified           = "Verified"
)

// ProfileData is the profile-derived input of a verification run.
// Nil numeric fields and empty strings mean the field was not supplied.
type ProfileData struct {
	IDNumber       string   `json:"id_number,omitempty"`
	NationalID     string   `json:"national_id,omitempty"`
	FullName       string   `json:"full_name,omitempty"`
	DateOfBirth    string   `json:"date_of_birth,omitempty"`
	AccountNumber  string   `json:"account_number,omitempty"`
	RoutingCode    string   `json:"routing_code,omitempty"`
	BankName       string   `json:"bank_name,omitempty"`
	CreditScore    *int     `json:"credit_score,omitempty"`
	IncomeAnnum    *float64 `json:"income_annum,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty"`
}

// Record is the outcome of a single check.
type Record struct {
	Verified    bool                   `json:"verified"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details"`
	ActualScore *int                   `json:"actual_score,omitempty"`
}

// Report aggregates the records of one verification run.
type Report struct {
	OverallStatus     string          `json:"overall_status"`
	VerificationDate  time.Time       `json:"verification_date"`
	Verifications     map[Kind]Record `json:"verifications"`
	VerificationScore float64         `json:"verification_score"`
	ChecksPassed      int             `json:"checks_passed"`
	TotalChecks       int             `json:"total_checks"`
}

// Flags holds the per-check booleans persisted next to the report.
// A nil flag means the check did not run.
type Flags struct {
	PANVerified     *bool `json:"pan_verified,omitempty"`
	AadhaarVerified *bool `json:"aadhar_verified,omitempty"`
	BankVerified    *bool `json:"bank_verified,omitempty"`
	CibilVerified   *bool `json:"cibil_verified,omitempty"`
	IncomeVerified  *bool `json:"income_verified,omitempty"`
}
