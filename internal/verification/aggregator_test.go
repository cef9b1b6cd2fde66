package verification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRandom returns scripted draws keyed by the requested range.
type stubRandom struct {
	ints    map[[2]int]int
	uniform float64
}

func (s *stubRandom) IntRange(lo, hi int) int {
	if v, ok := s.ints[[2]int{lo, hi}]; ok {
		return v
	}
	return lo
}

func (s *stubRandom) Uniform(lo, hi float64) float64 {
	if s.uniform < lo || s.uniform > hi {
		return lo
	}
	return s.uniform
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newStub(offset int, factor float64) *stubRandom {
	return &stubRandom{
		ints:    map[[2]int]int{{-20, 20}: offset, {85, 100}: 92},
		uniform: factor,
	}
}

func fullProfile() ProfileData {
	return ProfileData{
		IDNumber:       "ABCDE1234F",
		NationalID:     "1234 5678 9012",
		FullName:       "John Doe",
		DateOfBirth:    "1990-01-15",
		AccountNumber:  "12345678901234",
		RoutingCode:    "SBIN0001234",
		BankName:       "State Bank of India",
		CreditScore:    intPtr(750),
		IncomeAnnum:    floatPtr(600000),
		EmploymentType: "Salaried",
	}
}

func TestAggregator_Run_AllChecksPass(t *testing.T) {
	agg := NewDefaultAggregator(newStub(5, 1.05), fixedClock)

	report := agg.Run(fullProfile())

	assert.Equal(t, 5, report.TotalChecks)
	assert.Equal(t, 5, report.ChecksPassed)
	assert.Equal(t, 100.0, report.VerificationScore)
	assert.Equal(t, StatusVerified, report.OverallStatus)
	assert.Equal(t, fixedClock(), report.VerificationDate)
	for _, k := range Kinds {
		assert.Contains(t, report.Verifications, k)
	}

	cibil := report.Verifications[KindCreditScore]
	require.NotNil(t, cibil.ActualScore)
	assert.Equal(t, 755, *cibil.ActualScore)
	assert.True(t, report.ProfileVerified())
}

func TestAggregator_Run_NoData(t *testing.T) {
	agg := NewDefaultAggregator(newStub(0, 1.0), fixedClock)

	report := agg.Run(ProfileData{FullName: "Nobody"})

	assert.Equal(t, 0, report.TotalChecks)
	assert.Equal(t, 0, report.ChecksPassed)
	assert.Equal(t, 0.0, report.VerificationScore)
	assert.Equal(t, StatusNoData, report.OverallStatus)
	assert.Empty(t, report.Verifications)
	assert.False(t, report.ProfileVerified())
}

func TestAggregator_Run_MissingFieldsAreSkipped(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(p *ProfileData)
		expectedTotal int
		absent        Kind
	}{
		{
			name:          "no pan",
			mutate:        func(p *ProfileData) { p.IDNumber = "" },
			expectedTotal: 4,
			absent:        KindPAN,
		},
		{
			name:          "no national id",
			mutate:        func(p *ProfileData) { p.NationalID = "  " },
			expectedTotal: 4,
			absent:        KindAadhaar,
		},
		{
			name:          "account without routing code",
			mutate:        func(p *ProfileData) { p.RoutingCode = "" },
			expectedTotal: 4,
			absent:        KindBankAccount,
		},
		{
			name:          "routing code without account",
			mutate:        func(p *ProfileData) { p.AccountNumber = "" },
			expectedTotal: 4,
			absent:        KindBankAccount,
		},
		{
			name:          "nil credit score",
			mutate:        func(p *ProfileData) { p.CreditScore = nil },
			expectedTotal: 4,
			absent:        KindCreditScore,
		},
		{
			name:          "zero credit score",
			mutate:        func(p *ProfileData) { p.CreditScore = intPtr(0) },
			expectedTotal: 4,
			absent:        KindCreditScore,
		},
		{
			name:          "no income",
			mutate:        func(p *ProfileData) { p.IncomeAnnum = nil },
			expectedTotal: 4,
			absent:        KindIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullProfile()
			tt.mutate(&p)

			report := NewDefaultAggregator(newStub(0, 1.0), fixedClock).Run(p)

			assert.Equal(t, tt.expectedTotal, report.TotalChecks)
			assert.Equal(t, tt.expectedTotal, report.ChecksPassed)
			assert.NotContains(t, report.Verifications, tt.absent)
			assert.Equal(t, StatusVerified, report.OverallStatus)
		})
	}
}

func TestAggregator_Run_FailedChecksLowerScore(t *testing.T) {
	p := fullProfile()
	p.RoutingCode = "ZZZZ0001234"
	p.NationalID = "12345"

	report := NewDefaultAggregator(newStub(0, 1.0), fixedClock).Run(p)

	assert.Equal(t, 5, report.TotalChecks)
	assert.Equal(t, 3, report.ChecksPassed)
	assert.Equal(t, 60.0, report.VerificationScore)
	assert.Equal(t, StatusPartiallyVerified, report.OverallStatus)
	assert.False(t, report.Verifications[KindBankAccount].Verified)
	assert.Contains(t, report.Verifications[KindBankAccount].Message, "ZZZZ")
}

func TestAggregator_Run_ScoreRoundedToTwoDecimals(t *testing.T) {
	p := ProfileData{
		IDNumber:    "ABCDE1234F",
		NationalID:  "bad",
		CreditScore: intPtr(700),
	}

	report := NewDefaultAggregator(newStub(0, 1.0), fixedClock).Run(p)

	assert.Equal(t, 3, report.TotalChecks)
	assert.Equal(t, 2, report.ChecksPassed)
	assert.Equal(t, 66.67, report.VerificationScore)
	assert.Equal(t, StatusPartiallyVerified, report.OverallStatus)
}

func TestAggregator_Run_EndToEndWithSeededRandom(t *testing.T) {
	agg := NewDefaultAggregator(NewRandom(42), nil)

	for i := 0; i < 50; i++ {
		report := agg.Run(fullProfile())
		assert.Equal(t, 5, report.TotalChecks)
		assert.NotEqual(t, StatusNoData, report.OverallStatus)
		assert.Contains(t, []string{StatusVerified, StatusPartiallyVerified}, report.OverallStatus)
		assert.LessOrEqual(t, report.ChecksPassed, report.TotalChecks)
	}
}

func TestAggregator_Run_DeterministicForSeed(t *testing.T) {
	a := NewDefaultAggregator(NewRandom(7), fixedClock).Run(fullProfile())
	b := NewDefaultAggregator(NewRandom(7), fixedClock).Run(fullProfile())

	assert.Equal(t, a, b)
}

func TestAggregator_Run_Concurrent(t *testing.T) {
	agg := NewDefaultAggregator(NewRandom(99), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report := agg.Run(fullProfile())
			assert.Equal(t, 5, report.TotalChecks)
		}()
	}
	wg.Wait()
}

func TestStatusForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{100, StatusVerified},
		{80.0, StatusVerified},
		{79.9, StatusPartiallyVerified},
		{60.0, StatusPartiallyVerified},
		{59.9, StatusVerificationFailed},
		{20, StatusVerificationFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatusForScore(tt.score), "score %v", tt.score)
	}
}

func TestAggregator_RunOne(t *testing.T) {
	agg := NewDefaultAggregator(newStub(0, 1.0), fixedClock)

	rec, err := agg.RunOne(KindBankAccount, ProfileData{
		AccountNumber: "123456789",
		RoutingCode:   "HDFC0000001",
		FullName:      "Jane Smith",
	})
	require.NoError(t, err)
	assert.True(t, rec.Verified)
	assert.Equal(t, "Bank account verified with HDFC Bank", rec.Message)

	_, err = agg.RunOne(Kind("passport"), ProfileData{})
	assert.ErrorIs(t, err, ErrUnknownCheckKind)
}

func TestAggregator_Applies(t *testing.T) {
	agg := NewDefaultAggregator(newStub(0, 1.0), fixedClock)

	ok, err := agg.Applies(KindBankAccount, ProfileData{AccountNumber: "123456789"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = agg.Applies(KindCreditScore, ProfileData{CreditScore: intPtr(720)})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = agg.Applies(Kind("passport"), ProfileData{})
	assert.ErrorIs(t, err, ErrUnknownCheckKind)
}

func TestReport_Flags(t *testing.T) {
	p := fullProfile()
	p.IncomeAnnum = nil
	p.NationalID = "bad"

	report := NewDefaultAggregator(newStub(0, 1.0), fixedClock).Run(p)
	flags := report.Flags()

	require.NotNil(t, flags.PANVerified)
	assert.True(t, *flags.PANVerified)
	require.NotNil(t, flags.AadhaarVerified)
	assert.False(t, *flags.AadhaarVerified)
	require.NotNil(t, flags.BankVerified)
	require.NotNil(t, flags.CibilVerified)
	assert.Nil(t, flags.IncomeVerified)
}

func TestReport_CreditScoreUpdate(t *testing.T) {
	tests := []struct {
		name        string
		offset      int
		expected    int
		expectedChg bool
	}{
		{name: "within threshold", offset: 10, expected: 750, expectedChg: false},
		{name: "negative within threshold", offset: -10, expected: 750, expectedChg: false},
		{name: "above threshold", offset: 11, expected: 761, expectedChg: true},
		{name: "below threshold", offset: -20, expected: 730, expectedChg: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewDefaultAggregator(newStub(tt.offset, 1.0), fixedClock).Run(fullProfile())

			score, changed := report.CreditScoreUpdate(750, 10)
			assert.Equal(t, tt.expected, score)
			assert.Equal(t, tt.expectedChg, changed)
		})
	}

	t.Run("no credit check", func(t *testing.T) {
		report := NewDefaultAggregator(newStub(0, 1.0), fixedClock).Run(ProfileData{IDNumber: "ABCDE1234F"})
		score, changed := report.CreditScoreUpdate(700, 10)
		assert.Equal(t, 700, score)
		assert.False(t, changed)
	})
}
