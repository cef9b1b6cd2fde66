package verifydocument

import "loan-eligibility-workers/internal/verification"

// Input names one check and carries only the fields it needs.
type Input struct {
	Kind           string   `json:"kind"`
	PANNumber      string   `json:"panNumber,omitempty"`
	AadhaarNumber  string   `json:"aadharNumber,omitempty"`
	FullName       string   `json:"fullName,omitempty"`
	DateOfBirth    string   `json:"dateOfBirth,omitempty"`
	AccountNumber  string   `json:"accountNumber,omitempty"`
	IFSCCode       string   `json:"ifscCode,omitempty"`
	BankName       string   `json:"bankName,omitempty"`
	CibilScore     *int     `json:"cibilScore,omitempty"`
	IncomeAnnum    *float64 `json:"incomeAnnum,omitempty"`
	EmploymentType string   `json:"employmentType,omitempty"`
}

func (in *Input) profileData() verification.ProfileData {
	return verification.ProfileData{
		IDNumber:       in.PANNumber,
		NationalID:     in.AadhaarNumber,
		FullName:       in.FullName,
		DateOfBirth:    in.DateOfBirth,
		AccountNumber:  in.AccountNumber,
		RoutingCode:    in.IFSCCode,
		BankName:       in.BankName,
		CreditScore:    in.CibilScore,
		IncomeAnnum:    in.IncomeAnnum,
		EmploymentType: in.EmploymentType,
	}
}

type Output struct {
	Kind        string                 `json:"kind"`
	Verified    bool                   `json:"verified"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ActualScore *int                   `json:"actualScore,omitempty"`
}
