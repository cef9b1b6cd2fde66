package verification

import (
	"regexp"
	"strings"
)

var (
	panPattern  = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// Institutions maps the four-letter IFSC bank code to the bank name.
var Institutions = map[string]string{
	"SBIN": "State Bank of India",
	"HDFC": "HDFC Bank",
	"ICIC": "ICICI Bank",
	"AXIS": "Axis Bank",
	"PUNB": "Punjab National Bank",
	"BARB": "Bank of Baroda",
	"UBIN": "Union Bank of India",
	"CNRB": "Canara Bank",
	"IDIB": "IDBI Bank",
	"KKBK": "Kotak Mahindra Bank",
}

// ValidatePAN uppercases the ID number as given (no trimming) and checks
// the five letters, four digits, one letter layout.
func ValidatePAN(pan string) (string, error) {
	normalized := strings.ToUpper(pan)
	if !panPattern.MatchString(normalized) {
		return "", &FormatError{
			Field:  "pan",
			Value:  pan,
			Reason: "expected 5 letters, 4 digits and 1 letter (e.g. ABCDE1234F)",
		}
	}
	return normalized, nil
}

// ValidateAadhaar strips separators and requires exactly 12 digits.
// The Verhoeff checksum is not verified.
func ValidateAadhaar(number string) (string, error) {
	clean := stripSeparators(number)
	if len(clean) != 12 || !isDigits(clean) {
		return "", &FormatError{
			Field:  "aadhar",
			Value:  number,
			Reason: "must be 12 digits",
		}
	}
	return clean, nil
}

// ValidateIFSC checks the routing code layout and resolves its bank code.
func ValidateIFSC(code string) (string, string, error) {
	normalized := strings.ToUpper(code)
	if !ifscPattern.MatchString(normalized) {
		return "", "", &FormatError{
			Field:  "ifsc",
			Value:  code,
			Reason: "expected 4 letters, 0 and 6 alphanumerics (e.g. SBIN0001234)",
		}
	}

	bankCode := normalized[:4]
	bankName, ok := Institutions[bankCode]
	if !ok {
		return "", "", &UnknownInstitutionError{Code: bankCode}
	}
	return normalized, bankName, nil
}

func ValidateAccountNumber(number string) (string, error) {
	clean := stripSeparators(number)
	if len(clean) < 9 || len(clean) > 18 || !isDigits(clean) {
		return "", &FormatError{
			Field:  "account_number",
			Value:  number,
			Reason: "must be 9-18 digits",
		}
	}
	return clean, nil
}

func stripSeparators(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
