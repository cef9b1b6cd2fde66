package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-eligibility-workers/pkg/registry"
)

func TestGoName(t *testing.T) {
	tests := map[string]string{
		"userId":            "UserID",
		"panNumber":         "PANNumber",
		"ifscCode":          "IFSCCode",
		"loanAmount":        "LoanAmount",
		"applicationStatus": "ApplicationStatus",
		"kind":              "Kind",
	}
	for in, want := range tests {
		assert.Equal(t, want, goName(in), in)
	}
}

func TestTimeoutExpr(t *testing.T) {
	assert.Equal(t, "5 * time.Second", timeoutExpr(&registry.Activity{Timeout: "5s"}))
	assert.Equal(t, "1500 * time.Millisecond", timeoutExpr(&registry.Activity{Timeout: "1.5s"}))
	assert.Equal(t, "10 * time.Second", timeoutExpr(&registry.Activity{Timeout: "soon"}))
	assert.Equal(t, "10 * time.Second", timeoutExpr(&registry.Activity{}))
}

func TestRender_FromShippedRegistry(t *testing.T) {
	reg, err := registry.LoadRegistry(filepath.Join("..", "..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	activity, err := reg.Find("check-loan-eligibility")
	require.NoError(t, err)

	files, err := Render(activity)
	require.NoError(t, err)
	require.Len(t, files, 3)

	models := string(files["models.go"])
	assert.Contains(t, models, "package checkloaneligibility")
	assert.Regexp(t, `UserID\s+string\s+`+"`"+`json:"userId" validate:"required"`, models)
	assert.Regexp(t, `LoanAmount\s+float64\s+`+"`"+`json:"loanAmount" validate:"required"`, models)
	assert.Regexp(t, `MaxEligibleLoan\s+string\s+`+"`"+`json:"maxEligibleLoan,omitempty"`, models)

	handler := string(files["handler.go"])
	assert.Contains(t, handler, `TaskType = "check-loan-eligibility"`)
	assert.Contains(t, string(files["config.go"]), "5 * time.Second")
}
