package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-eligibility-workers/internal/common/validation"
)

func testRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{
				ID:          "check-loan-eligibility",
				DisplayName: "Check Loan Eligibility",
				Category:    CategoryLoan,
				TaskType:    "check-loan-eligibility",
				Timeout:     "5s",
				ErrorCodes:  []string{"INPUT_VALIDATION_FAILED", "ELIGIBILITY_CONFIG_INVALID"},

				ImplementationStatus: StatusCompleted,
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"userId", "loanAmount"},
					"properties": map[string]interface{}{
						"userId":     map[string]interface{}{"type": "string"},
						"loanAmount": map[string]interface{}{"type": "number", "minimum": 0},
					},
				},
			},
			{
				ID:          "verify-document",
				DisplayName: "Verify Document",
				Category:    CategoryVerification,
				TaskType:    "verify-document",

				ImplementationStatus: StatusPlanned,
			},
		},
	}
}

func TestRegistry_SaveLoadFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity-registry.json")
	require.NoError(t, testRegistry().Save(path))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Activities, 2)

	a, err := reg.Find("verify-document")
	require.NoError(t, err)
	assert.Equal(t, "Verify Document", a.DisplayName)

	_, err = reg.Find("auth-logout")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestRegistry_Validate(t *testing.T) {
	require.NoError(t, testRegistry().Validate())

	tests := []struct {
		name   string
		mutate func(r *ActivityRegistry)
		want   string
	}{
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"duplicate id", func(r *ActivityRegistry) { r.Activities[1].ID = r.Activities[0].ID }, "duplicate activity ID"},
		{"duplicate task type", func(r *ActivityRegistry) { r.Activities[1].TaskType = r.Activities[0].TaskType }, "duplicate task type"},
		{"missing category", func(r *ActivityRegistry) { r.Activities[0].Category = "" }, "Category"},
		{"unknown category", func(r *ActivityRegistry) { r.Activities[0].Category = "crm" }, "unknown category"},
		{"unknown status", func(r *ActivityRegistry) { r.Activities[1].ImplementationStatus = "done" }, "implementation status"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, "timeout"},
		{"negative timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "-1s" }, "must be positive"},
		{"bad schema", func(r *ActivityRegistry) {
			r.Activities[0].InputSchema = map[string]interface{}{"type": 12}
		}, "check-loan-eligibility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testRegistry()
			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestActivity_TimeoutDurationAndThrows(t *testing.T) {
	reg := testRegistry()

	d, err := reg.Activities[0].TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = reg.Activities[1].TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, d)

	assert.True(t, reg.Activities[0].Throws("ELIGIBILITY_CONFIG_INVALID"))
	assert.False(t, reg.Activities[0].Throws("DUPLICATE_APPLICATION"))
	assert.False(t, reg.Activities[1].Throws("ELIGIBILITY_CONFIG_INVALID"))
}

func TestRegistry_RegisterInputSchemas(t *testing.T) {
	v := validation.NewSchemaValidator()
	require.NoError(t, testRegistry().RegisterInputSchemas(v))

	assert.Equal(t, []string{"check-loan-eligibility"}, v.TaskTypes())

	res := v.Validate("check-loan-eligibility", map[string]interface{}{"userId": "u-1"})
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("loanAmount"))

	assert.True(t, v.Validate("verify-document", map[string]interface{}{}).Valid)
}

func TestRegistry_ShippedFileIsValid(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{
		"load-loan-profile",
		"run-verification",
		"verify-document",
		"store-verification-report",
		"index-verification-report",
		"check-loan-eligibility",
		"predict-loan-approval",
		"create-loan-application",
		"send-decision-notification",
	} {
		a, err := reg.Find(taskType)
		require.NoError(t, err, taskType)
		assert.True(t, a.Throws("INPUT_VALIDATION_FAILED"), taskType)
	}

	create, err := reg.Find("create-loan-application")
	require.NoError(t, err)
	assert.True(t, create.Throws("DUPLICATE_APPLICATION"))
}
