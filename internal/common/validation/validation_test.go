package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eligibilitySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"userId", "loanAmount"},
	"properties": map[string]interface{}{
		"userId":     map[string]interface{}{"type": "string", "minLength": 1},
		"loanAmount": map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
		"policy":     map[string]interface{}{"type": "string", "enum": []interface{}{"ratio", "absolute_floor"}},
	},
}

func TestSchemaValidator_Validate(t *testing.T) {
	v := NewSchemaValidator()
	require.NoError(t, v.Register("check-loan-eligibility", eligibilitySchema))

	res := v.Validate("check-loan-eligibility", map[string]interface{}{
		"userId":     "u-1",
		"loanAmount": 250000.0,
	})
	assert.True(t, res.Valid)

	res = v.Validate("check-loan-eligibility", map[string]interface{}{
		"loanAmount": "lots",
		"policy":     "blended",
	})
	require.False(t, res.Valid)
	assert.True(t, res.HasErrors("policy"))
	assert.True(t, res.HasErrors("loanAmount"))
	assert.Len(t, res.GetErrorsForField("policy"), 1)
	assert.Equal(t, "INVALID_ENUM_VALUE", res.GetErrorsForField("policy")[0].Code)
	assert.Contains(t, res.Error(), "userId")
}

func TestSchemaValidator_UnregisteredPasses(t *testing.T) {
	v := NewSchemaValidator()
	assert.True(t, v.Validate("unknown", map[string]interface{}{"x": 1}).Valid)

	require.NoError(t, v.Register("a", eligibilitySchema))
	require.NoError(t, v.Register("a", nil))
	assert.Empty(t, v.TaskTypes())
}

func TestSchemaValidator_BadSchema(t *testing.T) {
	v := NewSchemaValidator()
	err := v.Register("broken", map[string]interface{}{"type": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

type notifyInput struct {
	Channel string `json:"channel" validate:"required,oneof=email sms"`
	Email   string `json:"email" validate:"omitempty,email"`
	Amount  int    `json:"amount" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	assert.True(t, Struct(notifyInput{Channel: "email", Email: "a@b.co", Amount: 1}).Valid)

	res := Struct(notifyInput{Channel: "fax", Email: "nope"})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "channel", res.Errors[0].Field)
	assert.Equal(t, "ONEOF", res.Errors[0].Code)
	assert.Equal(t, "must be one of [email sms]", res.Errors[0].Message)
	assert.True(t, res.HasErrors("email"))
	assert.True(t, res.HasErrors("amount"))
}
