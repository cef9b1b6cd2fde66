package verification

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Check is one simulated external lookup.
type Check interface {
	Kind() Kind
	// Applies reports whether the profile carries the fields the check needs.
	Applies(data ProfileData) bool
	Run(data ProfileData) Record
}

// IdentityRecord is a registered identity in the simulated tax bureau.
type IdentityRecord struct {
	Name        string
	DateOfBirth string
	Status      string
}

// IdentityRecords seeds the simulated identity bureau.
var IdentityRecords = map[string]IdentityRecord{
	"ABCDE1234F": {Name: "JOHN DOE", DateOfBirth: "1990-01-15", Status: "Active"},
	"ABCDE5678G": {Name: "JANE SMITH", DateOfBirth: "1985-06-20", Status: "Active"},
	"DEFGH9012H": {Name: "RAM KUMAR", DateOfBirth: "1992-03-10", Status: "Active"},
	"PQRST3456J": {Name: "DEBJIT DEB BARMAN", DateOfBirth: "1995-07-25", Status: "Active"},
}

const (
	minCreditScore = 300
	maxCreditScore = 900

	creditMatchVariance    = 10
	creditMinorVariance    = 30
	creditAcceptedVariance = 50

	incomeAcceptedVariancePercent = 30.0

	simulatedBranchCity = "Mumbai"
)

// Clock returns the current time.
type Clock func() time.Time

func (c Clock) stamp() string {
	if c == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return c().UTC().Format(time.RFC3339)
}

// NewChecks returns the five checks in aggregation order.
func NewChecks(rng Random, clock Clock) []Check {
	return []Check{
		&PANCheck{clock: clock},
		&AadhaarCheck{clock: clock},
		&BankAccountCheck{rng: rng, clock: clock},
		&CreditScoreCheck{rng: rng, clock: clock},
		&IncomeCheck{rng: rng, clock: clock},
	}
}

// PANCheck simulates the income-tax identity lookup. A well-formed PAN
// always verifies: unknown numbers get a simulated record.
type PANCheck struct {
	clock Clock
}

func (c *PANCheck) Kind() Kind { return KindPAN }

func (c *PANCheck) Applies(data ProfileData) bool {
	return strings.TrimSpace(data.IDNumber) != ""
}

func (c *PANCheck) Run(data ProfileData) Record {
	pan, err := ValidatePAN(data.IDNumber)
	if err != nil {
		return Record{
			Verified: false,
			Message:  "Invalid PAN format. Format should be: ABCDE1234F",
		}
	}

	if rec, ok := IdentityRecords[pan]; ok {
		return Record{
			Verified: true,
			Message:  "PAN verified successfully with Income Tax Department",
			Details: map[string]interface{}{
				"registered_name": rec.Name,
				"status":          rec.Status,
				"verified_at":     c.clock.stamp(),
			},
		}
	}

	return Record{
		Verified: true,
		Message:  fmt.Sprintf("PAN %s verified (Simulated)", pan),
		Details: map[string]interface{}{
			"registered_name": strings.ToUpper(data.FullName),
			"status":          "Active",
			"verified_at":     c.clock.stamp(),
			"note":            "Simulated verification against the income tax registry",
		},
	}
}

type AadhaarCheck struct {
	clock Clock
}

func (c *AadhaarCheck) Kind() Kind { return KindAadhaar }

func (c *AadhaarCheck) Applies(data ProfileData) bool {
	return strings.TrimSpace(data.NationalID) != ""
}

func (c *AadhaarCheck) Run(data ProfileData) Record {
	if _, err := ValidateAadhaar(data.NationalID); err != nil {
		return Record{
			Verified: false,
			Message:  "Invalid Aadhar format. Must be 12 digits",
		}
	}

	return Record{
		Verified: true,
		Message:  "Aadhar verified with UIDAI",
		Details: map[string]interface{}{
			"verified":          true,
			"name_match":        "Exact Match",
			"address_available": true,
			"verified_at":       c.clock.stamp(),
			"note":              "Simulated verification against UIDAI e-KYC",
		},
	}
}

// BankAccountCheck simulates a penny-drop account verification.
type BankAccountCheck struct {
	rng   Random
	clock Clock
}

func (c *BankAccountCheck) Kind() Kind { return KindBankAccount }

func (c *BankAccountCheck) Applies(data ProfileData) bool {
	return strings.TrimSpace(data.AccountNumber) != "" && strings.TrimSpace(data.RoutingCode) != ""
}

func (c *BankAccountCheck) Run(data ProfileData) Record {
	_, bankName, err := ValidateIFSC(data.RoutingCode)
	if err != nil {
		msg := "Invalid IFSC Code format. Format: SBIN0001234"
		var unknown *UnknownInstitutionError
		if errors.As(err, &unknown) {
			msg = unknown.Error()
		}
		return Record{Verified: false, Message: msg}
	}

	if _, err := ValidateAccountNumber(data.AccountNumber); err != nil {
		return Record{
			Verified: false,
			Message:  "Invalid account number length. Must be 9-18 digits",
		}
	}

	return Record{
		Verified: true,
		Message:  fmt.Sprintf("Bank account verified with %s", bankName),
		Details: map[string]interface{}{
			"verified":            true,
			"bank_name":           bankName,
			"account_active":      true,
			"account_holder_name": data.FullName,
			"name_match_score":    c.rng.IntRange(85, 100),
			"ifsc_valid":          true,
			"branch_city":         simulatedBranchCity,
			"verified_at":         c.clock.stamp(),
			"verification_method": "NPCI Penny Drop (Simulated)",
			"note":                "Simulated verification through the penny drop network",
		},
	}
}

// CreditScoreCheck simulates a credit bureau pull by perturbing the
// reported score.
type CreditScoreCheck struct {
	rng   Random
	clock Clock
}

func (c *CreditScoreCheck) Kind() Kind { return KindCreditScore }

func (c *CreditScoreCheck) Applies(data ProfileData) bool {
	return data.CreditScore != nil && *data.CreditScore != 0
}

func (c *CreditScoreCheck) Run(data ProfileData) Record {
	reported := 0
	if data.CreditScore != nil {
		reported = *data.CreditScore
	}

	actual := clampInt(reported+c.rng.IntRange(-20, 20), minCreditScore, maxCreditScore)
	variance := absInt(actual - reported)

	return Record{
		Verified:    variance <= creditAcceptedVariance,
		Message:     fmt.Sprintf("CIBIL Score: %d (Reported: %d)", actual, reported),
		ActualScore: &actual,
		Details: map[string]interface{}{
			"reported_score":        reported,
			"actual_score":          actual,
			"variance":              variance,
			"status":                CreditVarianceStatus(variance),
			"credit_accounts":       c.rng.IntRange(1, 8),
			"active_loans":          c.rng.IntRange(0, 3),
			"credit_history_months": c.rng.IntRange(12, 120),
			"last_updated":          c.clock.stamp(),
			"bureau":                "TransUnion CIBIL (Simulated)",
			"note":                  "Simulated credit bureau response",
		},
	}
}

// CreditVarianceStatus describes how far the bureau score drifted from
// the reported one.
func CreditVarianceStatus(variance int) string {
	switch {
	case variance <= creditMatchVariance:
		return "Verified - Score matches"
	case variance <= creditMinorVariance:
		return "Verified - Minor variance detected"
	default:
		return "Discrepancy - Please update score"
	}
}

// IncomeCheck compares reported income with a simulated tax filing.
type IncomeCheck struct {
	rng   Random
	clock Clock
}

func (c *IncomeCheck) Kind() Kind { return KindIncome }

func (c *IncomeCheck) Applies(data ProfileData) bool {
	return data.IncomeAnnum != nil && *data.IncomeAnnum != 0
}

func (c *IncomeCheck) Run(data ProfileData) Record {
	reported := 0.0
	if data.IncomeAnnum != nil {
		reported = *data.IncomeAnnum
	}
	if reported <= 0 {
		return Record{
			Verified: false,
			Message:  "Reported income must be positive",
		}
	}

	itr := reported * c.rng.Uniform(0.8, 1.2)
	variancePercent := math.Abs((itr-reported)/reported) * 100
	valid := variancePercent <= incomeAcceptedVariancePercent

	msg := "Income verified through ITR records"
	if !valid {
		msg = fmt.Sprintf("Income variance detected: %.1f%% difference", variancePercent)
	}

	return Record{
		Verified: valid,
		Message:  msg,
		Details: map[string]interface{}{
			"reported_income":  reported,
			"itr_income":       round2(itr),
			"variance_percent": round2(variancePercent),
			"last_itr_filed":   "2024-2025",
			"itr_status":       "Filed & Verified",
			"employment_type":  data.EmploymentType,
			"verified_at":      c.clock.stamp(),
			"note":             "Simulated income tax return lookup",
		},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
