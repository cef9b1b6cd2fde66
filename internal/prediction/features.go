package prediction

import "strings"

// FeatureOrder is the column order the classifier was fitted with.
var FeatureOrder = []string{
	"no_of_dependents",
	"education",
	"self_employed",
	"income_annum",
	"loan_amount",
	"loan_term",
	"cibil_score",
	"residential_assets_value",
	"commercial_assets_value",
	"luxury_assets_value",
	"bank_asset_value",
}

const (
	FeatureEducation    = "education"
	FeatureSelfEmployed = "self_employed"
)

// Fitted categories carry the leading space of the training data.
const (
	EducationGraduate    = " Graduate"
	EducationNotGraduate = " Not Graduate"
	SelfEmployedYes      = " Yes"
	SelfEmployedNo       = " No"
)

// Features is one applicant row in model units.
type Features struct {
	NoOfDependents         int     `json:"no_of_dependents" validate:"gte=0"`
	Education              string  `json:"education"`
	SelfEmployed           string  `json:"self_employed"`
	IncomeAnnum            float64 `json:"income_annum" validate:"gte=0"`
	LoanAmount             float64 `json:"loan_amount" validate:"gt=0"`
	LoanTerm               int     `json:"loan_term" validate:"gt=0"`
	CibilScore             int     `json:"cibil_score" validate:"gte=0"`
	ResidentialAssetsValue float64 `json:"residential_assets_value"`
	CommercialAssetsValue  float64 `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64 `json:"luxury_assets_value"`
	BankAssetValue         float64 `json:"bank_asset_value"`
}

// SelfEmployedCategory maps a profile employment type to the fitted
// self_employed category.
func SelfEmployedCategory(employmentType string) string {
	if strings.TrimSpace(employmentType) == "Self Employed" {
		return SelfEmployedYes
	}
	return SelfEmployedNo
}

// EducationCategory maps a profile education value to the fitted category.
// Values that already carry the fitted form pass through unchanged.
func EducationCategory(education string) string {
	switch strings.TrimSpace(education) {
	case "Graduate":
		return EducationGraduate
	case "Not Graduate":
		return EducationNotGraduate
	default:
		return education
	}
}

func (f Features) categorical(name string) string {
	switch name {
	case FeatureEducation:
		return f.Education
	case FeatureSelfEmployed:
		return f.SelfEmployed
	}
	return ""
}

func (f Features) numeric(name string) float64 {
	switch name {
	case "no_of_dependents":
		return float64(f.NoOfDependents)
	case "income_annum":
		return f.IncomeAnnum
	case "loan_amount":
		return f.LoanAmount
	case "loan_term":
		return float64(f.LoanTerm)
	case "cibil_score":
		return float64(f.CibilScore)
	case "residential_assets_value":
		return f.ResidentialAssetsValue
	case "commercial_assets_value":
		return f.CommercialAssetsValue
	case "luxury_assets_value":
		return f.LuxuryAssetsValue
	case "bank_asset_value":
		return f.BankAssetValue
	}
	return 0
}
