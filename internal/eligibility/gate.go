package eligibility

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Policy selects the rule set the gate applies.
type Policy string

const (
	// PolicyRatio requires collateral worth a fixed share of the loan.
	PolicyRatio Policy = "ratio"
	// PolicyAbsoluteFloor requires a minimum collateral, a minimum credit
	// score, a complete profile, and caps the loan at a share of collateral.
	PolicyAbsoluteFloor Policy = "absolute_floor"
)

var ErrInvalidConfig = errors.New("ELIGIBILITY_CONFIG_INVALID")

const (
	ReasonInsufficientCollateral = "insufficient_collateral"
	ReasonBelowMinimumCollateral = "below_minimum_collateral"
	ReasonLowCreditScore         = "credit_score_below_minimum"
	ReasonIncompleteProfile      = "profile_incomplete"
	ReasonLoanAboveCap           = "loan_exceeds_max_eligible"
)

type Config struct {
	Policy              Policy
	MinCollateralRatio  decimal.Decimal
	MinCollateral       decimal.Decimal
	MinCreditScore      int
	MaxLoanToCollateral decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Policy:              PolicyRatio,
		MinCollateralRatio:  decimal.RequireFromString("0.20"),
		MinCollateral:       decimal.NewFromInt(500000),
		MinCreditScore:      300,
		MaxLoanToCollateral: decimal.RequireFromString("0.60"),
	}
}

// Applicant holds the profile fields the gate reads.
type Applicant struct {
	ResidentialAssets decimal.Decimal `json:"residential_assets_value"`
	CommercialAssets  decimal.Decimal `json:"commercial_assets_value"`
	VehicleAssets     decimal.Decimal `json:"vehicle_assets_value"`
	LuxuryAssets      decimal.Decimal `json:"luxury_assets_value"`
	GoldAssets        decimal.Decimal `json:"gold_assets_value"`
	BankBalance       decimal.Decimal `json:"bank_balance"`
	CreditScore       int             `json:"cibil_score"`
	ProfileComplete   bool            `json:"profile_complete"`
}

// Decision is the outcome of one eligibility check. An ineligible decision
// is a normal result and carries the shortfall.
type Decision struct {
	Eligible           bool            `json:"eligible"`
	Policy             Policy          `json:"policy"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	TotalCollateral    decimal.Decimal `json:"total_collateral"`
	RequiredCollateral decimal.Decimal `json:"required_collateral"`
	Shortfall          decimal.Decimal `json:"shortfall"`
	MaxEligibleLoan    decimal.Decimal `json:"max_eligible_loan,omitempty"`
	Reasons            []string        `json:"reasons,omitempty"`
}

type Gate struct {
	cfg Config
}

// NewGate validates cfg. Policies are never combined: an unknown name is a
// configuration error.
func NewGate(cfg Config) (*Gate, error) {
	switch cfg.Policy {
	case PolicyRatio:
		if !cfg.MinCollateralRatio.IsPositive() {
			return nil, fmt.Errorf("%w: min collateral ratio must be positive", ErrInvalidConfig)
		}
	case PolicyAbsoluteFloor:
		if !cfg.MaxLoanToCollateral.IsPositive() {
			return nil, fmt.Errorf("%w: max loan to collateral must be positive", ErrInvalidConfig)
		}
		if cfg.MinCollateral.IsNegative() {
			return nil, fmt.Errorf("%w: min collateral must not be negative", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, cfg.Policy)
	}
	return &Gate{cfg: cfg}, nil
}

func (g *Gate) Policy() Policy {
	return g.cfg.Policy
}

// Check evaluates a loan request against the configured policy.
func (g *Gate) Check(a Applicant, loanAmount decimal.Decimal) Decision {
	loan := nonNegative(loanAmount)
	total := TotalCollateral(a)

	d := Decision{
		Policy:          g.cfg.Policy,
		LoanAmount:      loan,
		TotalCollateral: total,
	}

	switch g.cfg.Policy {
	case PolicyAbsoluteFloor:
		g.checkAbsoluteFloor(&d, a)
	default:
		g.checkRatio(&d)
	}

	d.Shortfall = decimal.Max(decimal.Zero, d.RequiredCollateral.Sub(total))
	d.Eligible = len(d.Reasons) == 0
	return d
}

func (g *Gate) checkRatio(d *Decision) {
	d.RequiredCollateral = g.cfg.MinCollateralRatio.Mul(d.LoanAmount)
	if d.TotalCollateral.LessThan(d.RequiredCollateral) {
		d.Reasons = append(d.Reasons, ReasonInsufficientCollateral)
	}
}

func (g *Gate) checkAbsoluteFloor(d *Decision, a Applicant) {
	d.MaxEligibleLoan = g.cfg.MaxLoanToCollateral.Mul(d.TotalCollateral)
	d.RequiredCollateral = decimal.Max(
		g.cfg.MinCollateral,
		d.LoanAmount.DivRound(g.cfg.MaxLoanToCollateral, 2),
	)

	if d.TotalCollateral.LessThan(g.cfg.MinCollateral) {
		d.Reasons = append(d.Reasons, ReasonBelowMinimumCollateral)
	}
	if a.CreditScore < g.cfg.MinCreditScore {
		d.Reasons = append(d.Reasons, ReasonLowCreditScore)
	}
	if !a.ProfileComplete {
		d.Reasons = append(d.Reasons, ReasonIncompleteProfile)
	}
	if d.LoanAmount.GreaterThan(d.MaxEligibleLoan) {
		d.Reasons = append(d.Reasons, ReasonLoanAboveCap)
	}
}

// TotalCollateral sums the declared collateral, treating negative values as zero.
func TotalCollateral(a Applicant) decimal.Decimal {
	return decimal.Sum(
		nonNegative(a.ResidentialAssets),
		nonNegative(a.CommercialAssets),
		nonNegative(a.VehicleAssets),
		nonNegative(a.LuxuryAssets),
		nonNegative(a.GoldAssets),
		nonNegative(a.BankBalance),
	)
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
