package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/internal/eligibility"
	"loan-eligibility-workers/internal/prediction"
	"loan-eligibility-workers/internal/verification"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeMissingField   = "MISSING_FIELD"
)

type PANRequest struct {
	PANNumber string `json:"pan_number"`
}

type BankAccountRequest struct {
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
	BankName      string `json:"bank_name"`
}

type EligibilityRequest struct {
	eligibility.Applicant
	LoanAmount decimal.Decimal `json:"loan_amount"`
}

// VerificationResponse pairs the report with the flags a caller would
// persist next to it.
type VerificationResponse struct {
	*verification.Report
	Flags           verification.Flags `json:"flags"`
	ProfileVerified bool               `json:"profile_verified"`
}

func (s *Server) VerifyProfile(c *gin.Context) {
	var req verification.ProfileData
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON", err.Error())
		return
	}

	report := s.aggregator.Run(req)
	success(c, http.StatusOK, VerificationResponse{
		Report:          report,
		Flags:           report.Flags(),
		ProfileVerified: report.ProfileVerified(),
	})
}

func (s *Server) VerifyPAN(c *gin.Context) {
	var req PANRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON", err.Error())
		return
	}
	s.runOne(c, verification.KindPAN, verification.ProfileData{IDNumber: req.PANNumber})
}

func (s *Server) VerifyBankAccount(c *gin.Context) {
	var req BankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON", err.Error())
		return
	}
	s.runOne(c, verification.KindBankAccount, verification.ProfileData{
		AccountNumber: req.AccountNumber,
		RoutingCode:   req.IFSCCode,
		BankName:      req.BankName,
	})
}

// runOne answers 400 when the fields the check needs are missing; a
// malformed value is a normal, unverified record.
func (s *Server) runOne(c *gin.Context, kind verification.Kind, data verification.ProfileData) {
	applies, err := s.aggregator.Applies(kind, data)
	if err != nil {
		if errors.Is(err, verification.ErrUnknownCheckKind) {
			fail(c, http.StatusNotFound, "UNKNOWN_CHECK_KIND", err.Error(), string(kind))
			return
		}
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), "")
		return
	}
	if !applies {
		fail(c, http.StatusBadRequest, codeMissingField, "required fields for "+string(kind)+" check are missing", "")
		return
	}

	rec, err := s.aggregator.RunOne(kind, data)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), "")
		return
	}
	success(c, http.StatusOK, rec)
}

func (s *Server) CheckEligibility(c *gin.Context) {
	var req EligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON", err.Error())
		return
	}
	if !req.LoanAmount.IsPositive() {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "loan_amount must be positive", "")
		return
	}

	success(c, http.StatusOK, s.gate.Check(req.Applicant, req.LoanAmount))
}

func (s *Server) Predict(c *gin.Context) {
	var req prediction.Features
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "request body is not valid JSON", err.Error())
		return
	}
	if res := validation.Struct(req); !res.Valid {
		fail(c, http.StatusBadRequest, codeInvalidRequest, "features failed validation", res.Error())
		return
	}

	result := s.adapter.Predict(req)
	if result.Degraded {
		s.logger.Warn("prediction degraded", map[string]interface{}{"reason": result.Reason})
	}
	success(c, http.StatusOK, result)
}
