package validation

import (
	"fmt"
	"regexp"
	"strings"

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

// Error codes produced by gojsonschema that callers branch on.
const (
	CodeRequired        = "REQUIRED"
	CodeInvalidType     = "INVALID_TYPE"
	CodeNumberGTE       = "NUMBER_GTE"
	CodeNumberLTE       = "NUMBER_LTE"
	CodeAdditionalField = "ADDITIONAL_PROPERTY_NOT_ALLOWED"
)

// Validator checks documents against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schema, given as a Go value (usually map[string]interface{}).
func NewValidator(schema interface{}) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks a decoded JSON document. The error return is reserved for
// documents gojsonschema cannot load at all.
func (v *Validator) Validate(document interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(e),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

// fieldOf names the offending property. For required and additional-property
// errors gojsonschema reports the parent object, the property sits in Details.
func fieldOf(e gojsonschema.ResultError) string {
	field := e.Field()
	if prop, ok := e.Details()["property"].(string); ok && prop != "" {
		switch e.Type() {
		case "required", "additional_property_not_allowed":
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

// ValidateInput validates a document against schema in one call.
func ValidateInput(input map[string]interface{}, schema map[string]interface{}) (*ValidationResult, error) {
	v, err := NewValidator(schema)
	if err != nil {
		return nil, err
	}
	return v.Validate(input)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
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

// OnlyCodes reports whether every error carries one of codes.
func (vr *ValidationResult) OnlyCodes(codes ...string) bool {
	for _, err := range vr.Errors {
		matched := false
		for _, c := range codes {
			if err.Code == c {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

// ValidatePhone validates E.164-style phone numbers as SNS expects them
func ValidatePhone(phone string) bool {
	phonePattern := regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
	return phonePattern.MatchString(phone)
}
