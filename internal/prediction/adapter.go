package prediction

import (
	"errors"
	"fmt"
	"math"
)

const (
	DecisionApproved = "Approved"
	DecisionRejected = "Rejected"
)

var errInvalidOutput = errors.New("invalid model output")

// Fallback is returned when no model is loaded.
type Fallback struct {
	Decision   string
	Confidence float64
}

func DefaultFallback() Fallback {
	return Fallback{Decision: DecisionApproved, Confidence: 75.0}
}

// Result is the adapter output. Degraded is set when the fallback answered
// instead of the model.
type Result struct {
	Decision            string   `json:"prediction"`
	Confidence          float64  `json:"confidence"`
	ApprovalProbability float64  `json:"approval_probability"`
	Degraded            bool     `json:"degraded"`
	Reason              string   `json:"reason,omitempty"`
	ModelVersion        string   `json:"model_version,omitempty"`
	UnseenCategories    []string `json:"unseen_categories,omitempty"`
}

// Adapter turns applicant features into a decision. It never fails: without
// a model it answers with the configured fallback and flags the result.
type Adapter struct {
	model    *Model
	fallback Fallback
	reason   string
}

func NewAdapter(model *Model, fallback Fallback) *Adapter {
	a := &Adapter{model: model, fallback: fallback}
	if model == nil {
		a.reason = ErrModelUnavailable.Error()
	}
	return a
}

// LoadAdapter loads the model at path. When loading fails the returned
// adapter is degraded and the load error is returned alongside it so the
// caller can log it.
func LoadAdapter(path string, fallback Fallback) (*Adapter, error) {
	model, err := LoadModel(path)
	if err != nil {
		a := NewAdapter(nil, fallback)
		a.reason = err.Error()
		return a, err
	}
	return NewAdapter(model, fallback), nil
}

func (a *Adapter) Available() bool {
	return a.model != nil
}

func (a *Adapter) Model() *Model {
	return a.model
}

// Predict scores f. Confidence is the probability of the predicted class,
// in percent.
func (a *Adapter) Predict(f Features) Result {
	if a.model == nil {
		return a.degraded(a.reason)
	}

	vec, unseen := a.model.Vector(f)
	proba := a.model.Proba(vec)
	for _, p := range proba {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return a.degraded(fmt.Sprintf("%v: probability %v outside [0,1]", errInvalidOutput, p))
		}
	}

	decision, p := DecisionRejected, proba[0]
	if proba[1] > proba[0] {
		decision, p = DecisionApproved, proba[1]
	}

	return Result{
		Decision:            decision,
		Confidence:          p * 100,
		ApprovalProbability: proba[1],
		ModelVersion:        a.model.Version(),
		UnseenCategories:    unseen,
	}
}

func (a *Adapter) degraded(reason string) Result {
	return Result{
		Decision:   a.fallback.Decision,
		Confidence: a.fallback.Confidence,
		Degraded:   true,
		Reason:     reason,
	}
}
