package eligibility

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newGate(t *testing.T, policy Policy) *Gate {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Policy = policy
	g, err := NewGate(cfg)
	require.NoError(t, err)
	return g
}

func TestGate_Ratio_Boundary(t *testing.T) {
	g := newGate(t, PolicyRatio)

	tests := []struct {
		name       string
		collateral int64
		eligible   bool
		shortfall  int64
	}{
		{name: "one below twenty percent", collateral: 19999, eligible: false, shortfall: 1},
		{name: "exactly twenty percent", collateral: 20000, eligible: true, shortfall: 0},
		{name: "above", collateral: 50000, eligible: true, shortfall: 0},
		{name: "no collateral", collateral: 0, eligible: false, shortfall: 20000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := g.Check(Applicant{ResidentialAssets: d(tt.collateral)}, d(100000))

			assert.Equal(t, tt.eligible, decision.Eligible)
			assert.Equal(t, PolicyRatio, decision.Policy)
			assert.True(t, decision.RequiredCollateral.Equal(d(20000)), decision.RequiredCollateral.String())
			assert.True(t, decision.TotalCollateral.Equal(d(tt.collateral)))
			assert.True(t, decision.Shortfall.Equal(d(tt.shortfall)), decision.Shortfall.String())
			if tt.eligible {
				assert.Empty(t, decision.Reasons)
			} else {
				assert.Equal(t, []string{ReasonInsufficientCollateral}, decision.Reasons)
			}
		})
	}
}

func TestGate_TotalCollateral(t *testing.T) {
	a := Applicant{
		ResidentialAssets: d(100),
		CommercialAssets:  d(200),
		VehicleAssets:     d(300),
		LuxuryAssets:      d(400),
		GoldAssets:        d(500),
		BankBalance:       d(600),
	}
	assert.True(t, TotalCollateral(a).Equal(d(2100)))

	a.GoldAssets = d(-5000)
	assert.True(t, TotalCollateral(a).Equal(d(1600)), "negative values count as zero")
}

func TestGate_AbsoluteFloor(t *testing.T) {
	g := newGate(t, PolicyAbsoluteFloor)

	base := Applicant{
		ResidentialAssets: d(800000),
		BankBalance:       d(200000),
		CreditScore:       720,
		ProfileComplete:   true,
	}

	t.Run("eligible within cap", func(t *testing.T) {
		decision := g.Check(base, d(600000))
		assert.True(t, decision.Eligible)
		assert.True(t, decision.MaxEligibleLoan.Equal(d(600000)))
		assert.True(t, decision.RequiredCollateral.Equal(d(1000000)))
		assert.True(t, decision.Shortfall.IsZero())
	})

	t.Run("loan above cap", func(t *testing.T) {
		decision := g.Check(base, d(900000))
		assert.False(t, decision.Eligible)
		assert.Equal(t, []string{ReasonLoanAboveCap}, decision.Reasons)
		assert.True(t, decision.RequiredCollateral.Equal(d(1500000)))
		assert.True(t, decision.Shortfall.Equal(d(500000)))
	})

	t.Run("below floor", func(t *testing.T) {
		a := Applicant{BankBalance: d(499999), CreditScore: 700, ProfileComplete: true}
		decision := g.Check(a, d(100000))
		assert.False(t, decision.Eligible)
		assert.Contains(t, decision.Reasons, ReasonBelowMinimumCollateral)
		assert.True(t, decision.RequiredCollateral.Equal(d(500000)))
		assert.True(t, decision.Shortfall.Equal(d(1)))
	})

	t.Run("low credit score and incomplete profile", func(t *testing.T) {
		a := base
		a.CreditScore = 299
		a.ProfileComplete = false
		decision := g.Check(a, d(100000))
		assert.False(t, decision.Eligible)
		assert.ElementsMatch(t, []string{ReasonLowCreditScore, ReasonIncompleteProfile}, decision.Reasons)
		assert.True(t, decision.Shortfall.IsZero())
	})

	t.Run("credit score at minimum", func(t *testing.T) {
		a := base
		a.CreditScore = 300
		assert.True(t, g.Check(a, d(100000)).Eligible)
	})
}

func TestGate_DoesNotMutateApplicant(t *testing.T) {
	g := newGate(t, PolicyRatio)
	a := Applicant{ResidentialAssets: d(-10), BankBalance: d(5000)}
	before := a

	g.Check(a, d(10000))

	assert.Equal(t, before, a)
}

func TestGate_NegativeLoanAmount(t *testing.T) {
	g := newGate(t, PolicyRatio)
	decision := g.Check(Applicant{}, d(-100))
	assert.True(t, decision.Eligible)
	assert.True(t, decision.LoanAmount.IsZero())
}

func TestNewGate_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown policy", mutate: func(c *Config) { c.Policy = "merged" }},
		{name: "empty policy", mutate: func(c *Config) { c.Policy = "" }},
		{name: "zero ratio", mutate: func(c *Config) { c.MinCollateralRatio = decimal.Zero }},
		{name: "zero cap", mutate: func(c *Config) {
			c.Policy = PolicyAbsoluteFloor
			c.MaxLoanToCollateral = decimal.Zero
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			g, err := NewGate(cfg)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
