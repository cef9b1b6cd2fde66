// internal/models/profile.go
package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-eligibility-workers/internal/eligibility"
	"loan-eligibility-workers/internal/prediction"
	"loan-eligibility-workers/internal/verification"
)

// LoanProfile is a borrower's stored financial profile.
type LoanProfile struct {
	ID             int64  `json:"id"`
	UserID         string `json:"userId"`
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	DateOfBirth    string `json:"dateOfBirth"`
	PANNumber      string `json:"panNumber"`
	AadhaarNumber  string `json:"aadharNumber"`
	EmploymentType string `json:"employmentType"`
	Education      string `json:"education"`
	NoOfDependents int    `json:"noOfDependents"`

	IncomeAnnum float64 `json:"incomeAnnum"`
	CibilScore  int     `json:"cibilScore"`

	BankName      string  `json:"bankName"`
	AccountNumber string  `json:"accountNumber"`
	IFSCCode      string  `json:"ifscCode"`
	BankBalance   float64 `json:"bankBalance"`

	ResidentialAssetsValue float64 `json:"residentialAssetsValue"`
	CommercialAssetsValue  float64 `json:"commercialAssetsValue"`
	VehicleAssetsValue     float64 `json:"vehicleAssetsValue"`
	LuxuryAssetsValue      float64 `json:"luxuryAssetsValue"`
	GoldAssetsValue        float64 `json:"goldAssetsValue"`

	ProfileCompleted bool `json:"profileCompleted"`

	verification.Flags
	ProfileVerified    bool            `json:"profileVerified"`
	VerificationReport json.RawMessage `json:"verificationReport,omitempty"`
	VerifiedAt         *time.Time      `json:"verifiedAt,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// VerificationInput maps the profile onto the verification fields. Zero
// scores and incomes are left unset so the matching checks are skipped.
func (p LoanProfile) VerificationInput() verification.ProfileData {
	data := verification.ProfileData{
		IDNumber:       p.PANNumber,
		NationalID:     p.AadhaarNumber,
		FullName:       p.FullName,
		DateOfBirth:    p.DateOfBirth,
		AccountNumber:  p.AccountNumber,
		RoutingCode:    p.IFSCCode,
		BankName:       p.BankName,
		EmploymentType: p.EmploymentType,
	}
	if p.CibilScore != 0 {
		score := p.CibilScore
		data.CreditScore = &score
	}
	if p.IncomeAnnum != 0 {
		income := p.IncomeAnnum
		data.IncomeAnnum = &income
	}
	return data
}

// Applicant returns the collateral view of the profile.
func (p LoanProfile) Applicant() eligibility.Applicant {
	return eligibility.Applicant{
		ResidentialAssets: decimal.NewFromFloat(p.ResidentialAssetsValue),
		CommercialAssets:  decimal.NewFromFloat(p.CommercialAssetsValue),
		VehicleAssets:     decimal.NewFromFloat(p.VehicleAssetsValue),
		LuxuryAssets:      decimal.NewFromFloat(p.LuxuryAssetsValue),
		GoldAssets:        decimal.NewFromFloat(p.GoldAssetsValue),
		BankBalance:       decimal.NewFromFloat(p.BankBalance),
		CreditScore:       p.CibilScore,
		ProfileComplete:   p.IsComplete(),
	}
}

// Features builds the classifier row for a loan request.
func (p LoanProfile) Features(loanAmount float64, loanTerm int) prediction.Features {
	return prediction.Features{
		NoOfDependents:         p.NoOfDependents,
		Education:              prediction.EducationCategory(p.Education),
		SelfEmployed:           prediction.SelfEmployedCategory(p.EmploymentType),
		IncomeAnnum:            p.IncomeAnnum,
		LoanAmount:             loanAmount,
		LoanTerm:               loanTerm,
		CibilScore:             p.CibilScore,
		ResidentialAssetsValue: p.ResidentialAssetsValue,
		CommercialAssetsValue:  p.CommercialAssetsValue,
		LuxuryAssetsValue:      p.LuxuryAssetsValue,
		BankAssetValue:         p.BankBalance,
	}
}

// IsComplete reports whether the profile was completed and carries the
// fields a loan decision needs.
func (p LoanProfile) IsComplete() bool {
	return p.ProfileCompleted &&
		strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.PANNumber) != "" &&
		p.IncomeAnnum > 0 &&
		p.CibilScore > 0
}
