package runverification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-eligibility-workers/internal/common/config"
	"loan-eligibility-workers/internal/common/database"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/models"
	"loan-eligibility-workers/internal/verification"
)

// bureauStub returns drift for the credit-score draw, factor for the
// income draw and the lower bound for everything else.
type bureauStub struct {
	drift  int
	factor float64
}

func (s bureauStub) IntRange(lo, hi int) int {
	if lo == -20 && hi == 20 {
		return s.drift
	}
	return lo
}

func (s bureauStub) Uniform(lo, _ float64) float64 {
	if s.factor != 0 {
		return s.factor
	}
	return lo
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func testProfile() models.LoanProfile {
	return models.LoanProfile{
		UserID:         "u-1",
		FullName:       "Debjit Deb Barman",
		DateOfBirth:    "1995-07-25",
		PANNumber:      "PQRST3456J",
		AadhaarNumber:  "1234 5678 9012",
		EmploymentType: "Salaried",
		IncomeAnnum:    900000,
		CibilScore:     750,
		BankName:       "HDFC Bank",
		AccountNumber:  "123456789012",
		IFSCCode:       "HDFC0001234",
	}
}

func newHandler(t *testing.T, drift int, cache ReportCache) *Handler {
	t.Helper()
	agg := verification.NewDefaultAggregator(bureauStub{drift: drift, factor: 1.05}, fixedClock)
	return NewHandler(LoadConfig(), agg, cache, logger.NewTestLogger(t))
}

func TestHandler_Execute_FullProfile(t *testing.T) {
	h := newHandler(t, 15, nil)

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", Profile: testProfile()})
	require.NoError(t, err)

	report := out.VerificationReport
	assert.Equal(t, verification.StatusVerified, report.OverallStatus)
	assert.Equal(t, 5, report.TotalChecks)
	assert.Equal(t, 5, report.ChecksPassed)
	assert.Equal(t, 100.0, out.VerificationScore)
	assert.True(t, out.ProfileVerified)

	require.NotNil(t, out.PANVerified)
	assert.True(t, *out.PANVerified)
	require.NotNil(t, out.IncomeVerified)

	// drift 15 exceeds the default threshold of 10
	assert.True(t, out.CibilScoreUpdated)
	assert.Equal(t, 765, out.CibilScore)
	assert.False(t, out.Cached)
}

func TestHandler_Execute_SmallDriftKeepsScore(t *testing.T) {
	h := newHandler(t, -10, nil)

	out, err := h.Execute(context.Background(), &Input{Profile: testProfile()})
	require.NoError(t, err)
	assert.False(t, out.CibilScoreUpdated)
	assert.Equal(t, 750, out.CibilScore)
}

func TestHandler_Execute_NoData(t *testing.T) {
	h := newHandler(t, 0, nil)

	out, err := h.Execute(context.Background(), &Input{UserID: "u-2"})
	require.NoError(t, err)
	assert.Equal(t, verification.StatusNoData, out.OverallStatus)
	assert.Equal(t, 0.0, out.VerificationScore)
	assert.False(t, out.ProfileVerified)
	assert.Nil(t, out.PANVerified)
	assert.Equal(t, 0, out.CibilScore)
}

func TestHandler_Execute_MissingUser(t *testing.T) {
	h := newHandler(t, 0, nil)
	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHandler_Execute_CachedReport(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer cache.Close()

	h := newHandler(t, 15, cache)
	input := &Input{UserID: "u-1", Profile: testProfile()}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, mr.Keys(), 1)

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.VerificationScore, second.VerificationScore)
	assert.Equal(t, first.CibilScore, second.CibilScore)

	// A changed profile misses the cache.
	changed := testProfile()
	changed.CibilScore = 700
	third, err := h.Execute(context.Background(), &Input{UserID: "u-1", Profile: changed})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Len(t, mr.Keys(), 2)

	mr.FastForward(16 * time.Minute)
	assert.Empty(t, mr.Keys())
}

func TestHandler_Execute_CacheErrorFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	key := cacheKey("u-1", testProfile().VerificationInput())
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))

	h := newHandler(t, 0, database.NewRedisFromClient(rdb))
	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", Profile: testProfile()})

	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, verification.StatusVerified, out.OverallStatus)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("u-1", testProfile().VerificationInput())
	assert.Equal(t, a, cacheKey("u-1", testProfile().VerificationInput()))
	assert.NotEqual(t, a, cacheKey("u-2", testProfile().VerificationInput()))
	assert.Regexp(t, `^verification:u-1:[0-9a-f]{16}$`, a)
}
