package verification

import "time"

// Aggregator runs every applicable check against a profile and scores the result.
// Checks whose inputs are missing are skipped rather than failed.
type Aggregator struct {
	checks []Check
	clock  Clock
}

func NewAggregator(checks []Check, clock Clock) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{checks: checks, clock: clock}
}

// NewDefaultAggregator wires the five simulated checks to rng.
func NewDefaultAggregator(rng Random, clock Clock) *Aggregator {
	return NewAggregator(NewChecks(rng, clock), clock)
}

func (a *Aggregator) Run(data ProfileData) *Report {
	report := &Report{
		VerificationDate: a.clock().UTC(),
		Verifications:    make(map[Kind]Record, len(a.checks)),
	}

	for _, check := range a.checks {
		if !check.Applies(data) {
			continue
		}
		rec := check.Run(data)
		report.Verifications[check.Kind()] = rec
		report.TotalChecks++
		if rec.Verified {
			report.ChecksPassed++
		}
	}

	if report.TotalChecks == 0 {
		report.OverallStatus = StatusNoData
		report.VerificationScore = 0
		return report
	}

	report.VerificationScore = round2(float64(report.ChecksPassed) / float64(report.TotalChecks) * 100)
	report.OverallStatus = StatusForScore(report.VerificationScore)
	return report
}

// RunOne runs a single check by kind regardless of which other fields are set.
func (a *Aggregator) RunOne(kind Kind, data ProfileData) (Record, error) {
	for _, check := range a.checks {
		if check.Kind() == kind {
			return check.Run(data), nil
		}
	}
	return Record{}, ErrUnknownCheckKind
}

// Applies reports whether data carries the fields the check of kind needs.
func (a *Aggregator) Applies(kind Kind, data ProfileData) (bool, error) {
	for _, check := range a.checks {
		if check.Kind() == kind {
			return check.Applies(data), nil
		}
	}
	return false, ErrUnknownCheckKind
}

// StatusForScore maps a score in (0,100] to the overall status. Lower
// bounds are inclusive.
func StatusForScore(score float64) string {
	switch {
	case score >= 80:
		return StatusVerified
	case score >= 60:
		return StatusPartiallyVerified
	default:
		return StatusVerificationFailed
	}
}

func (r *Report) Flags() Flags {
	var f Flags
	for kind, rec := range r.Verifications {
		v := rec.Verified
		switch kind {
		case KindPAN:
			f.PANVerified = &v
		case KindAadhaar:
			f.AadhaarVerified = &v
		case KindBankAccount:
			f.BankVerified = &v
		case KindCreditScore:
			f.CibilVerified = &v
		case KindIncome:
			f.IncomeVerified = &v
		}
	}
	return f
}

// CreditScoreUpdate returns the bureau score when it differs from the
// reported score by more than threshold points.
func (r *Report) CreditScoreUpdate(reported, threshold int) (int, bool) {
	rec, ok := r.Verifications[KindCreditScore]
	if !ok || rec.ActualScore == nil {
		return reported, false
	}
	if absInt(*rec.ActualScore-reported) > threshold {
		return *rec.ActualScore, true
	}
	return reported, false
}

func (r *Report) ProfileVerified() bool {
	return r.OverallStatus == StatusVerified
}
