package validation

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaValidator holds compiled JSON schemas keyed by task type.
type SchemaValidator struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{schemas: make(map[string]*gojsonschema.Schema)}
}

// Register compiles schema for taskType. An empty schema clears any
// previous registration.
func (v *SchemaValidator) Register(taskType string, schema map[string]interface{}) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(schema) == 0 {
		delete(v.schemas, taskType)
		return nil
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", taskType, err)
	}
	v.schemas[taskType] = compiled
	return nil
}

// Validate checks input against the schema registered for taskType.
// Task types without a schema always pass.
func (v *SchemaValidator) Validate(taskType string, input map[string]interface{}) *ValidationResult {
	v.mu.RLock()
	schema, ok := v.schemas[taskType]
	v.mu.RUnlock()
	if !ok {
		return &ValidationResult{Valid: true}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_DOCUMENT",
		}}}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    schemaErrorCode(desc.Type()),
		})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationResult{Errors: errs}
}

// TaskTypes lists the task types with a registered schema.
func (v *SchemaValidator) TaskTypes() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	types := make([]string, 0, len(v.schemas))
	for t := range v.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// fieldName prefers the missing property for required errors so the
// result points at the absent field rather than its parent.
func fieldName(desc gojsonschema.ResultError) string {
	field := strings.TrimPrefix(desc.Context().String(), gojsonschema.STRING_ROOT_SCHEMA_PROPERTY)
	field = strings.TrimPrefix(field, ".")
	if prop, ok := desc.Details()["property"].(string); ok && desc.Type() == "required" {
		if field == "" {
			return prop
		}
		return field + "." + prop
	}
	if field == "" {
		return gojsonschema.STRING_ROOT_SCHEMA_PROPERTY
	}
	return field
}

func schemaErrorCode(t string) string {
	switch t {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "pattern":
		return "PATTERN_MISMATCH"
	case "string_gte", "string_lte":
		return "LENGTH_VIOLATION"
	case "number_gte", "number_gt":
		return "MINIMUM_VIOLATION"
	case "number_lte", "number_lt":
		return "MAXIMUM_VIOLATION"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	default:
		return strings.ToUpper(t)
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Error joins every message; it is meant for job failure details.
func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
