package storeverificationreport

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/verification"
)

var verifiedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testReport(status string) *verification.Report {
	actual := 765
	return &verification.Report{
		OverallStatus:    status,
		VerificationDate: verifiedAt,
		Verifications: map[verification.Kind]verification.Record{
			verification.KindPAN:         {Verified: true, Message: "PAN verified successfully with Income Tax Department"},
			verification.KindCreditScore: {Verified: true, Message: "CIBIL Score: 765 (Reported: 750)", ActualScore: &actual},
		},
		VerificationScore: 100,
		ChecksPassed:      2,
		TotalChecks:       2,
	}
}

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	h.now = func() time.Time { return verifiedAt }
	return h, mock
}

func TestHandler_Execute_StoresReportAndScore(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("verification_report = $2")).
		WithArgs("u-1", sqlmock.AnyArg(), true, nil, nil, true, nil, true, verifiedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_profiles SET cibil_score")).
		WithArgs("u-1", 765).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("verification_stored", "loan_profile", "u-1", sqlmock.AnyArg(), verifiedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	out, err := h.Execute(context.Background(), &Input{
		UserID:             "u-1",
		VerificationReport: testReport(verification.StatusVerified),
		CibilScore:         765,
		CibilScoreUpdated:  true,
	})

	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.True(t, out.ProfileVerified)
	assert.Equal(t, 765, out.CibilScore)
	assert.Equal(t, "2025-03-01T10:00:00Z", out.VerifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ScoreUnchanged(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("verification_report").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	out, err := h.Execute(context.Background(), &Input{
		UserID:             "u-1",
		VerificationReport: testReport(verification.StatusPartiallyVerified),
		CibilScore:         750,
	})

	require.NoError(t, err)
	assert.False(t, out.ProfileVerified)
	assert.Zero(t, out.CibilScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RollsBack(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(sqlmock.Sqlmock)
		wantErr  error
		wantCode apperrors.ErrorCode
	}{
		{
			name: "profile missing",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("verification_report").WillReturnResult(sqlmock.NewResult(0, 0))
				m.ExpectRollback()
			},
			wantErr:  ErrProfileNotFound,
			wantCode: apperrors.ErrCodeProfileNotFound,
		},
		{
			name: "score update fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("verification_report").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec("cibil_score").WillReturnError(errors.New("check constraint violated"))
				m.ExpectRollback()
			},
			wantErr:  ErrDatabaseUpdateFailed,
			wantCode: apperrors.ErrCodeDatabaseUpdateFailed,
		},
		{
			name: "audit insert fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("verification_report").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec("cibil_score").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec("INSERT INTO audit_log").WillReturnError(errors.New("disk full"))
				m.ExpectRollback()
			},
			wantErr:  ErrDatabaseUpdateFailed,
			wantCode: apperrors.ErrCodeDatabaseUpdateFailed,
		},
		{
			name: "begin fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("too many connections"))
			},
			wantErr:  ErrDatabaseUpdateFailed,
			wantCode: apperrors.ErrCodeDatabaseUpdateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(t)
			tt.setup(mock)

			_, err := h.Execute(context.Background(), &Input{
				UserID:             "u-1",
				VerificationReport: testReport(verification.StatusVerified),
				CibilScore:         765,
				CibilScoreUpdated:  true,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, apperrors.Normalize(toStandardError(err, "u-1")).Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{VerificationReport: testReport("Verified")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.Execute(context.Background(), &Input{UserID: "u-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
