package survey

import (
	"encoding/json"
	"fmt"
	"sync"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/validation"
)

// Schema returns the JSON schema of a survey payload: every field required,
// integer typed and bounded by its domain, nothing else allowed.
func Schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(Fields))
	required := make([]interface{}, 0, len(Fields))
	for _, f := range Fields {
		properties[f.Name] = map[string]interface{}{
			"type":        "integer",
			"minimum":     f.Min,
			"maximum":     f.Max,
			"description": f.Description,
		}
		required = append(required, f.Name)
	}

	return map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                "HeartRiskSurvey",
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

var (
	validatorOnce sync.Once
	validator     *validation.Validator
	validatorErr  error
)

func schemaValidator() (*validation.Validator, error) {
	validatorOnce.Do(func() {
		validator, validatorErr = validation.NewValidator(Schema())
	})
	return validator, validatorErr
}

// Decode validates a raw payload (as decoded from JSON or Zeebe variables)
// and converts it into a Record. Range violations are OUT_OF_DOMAIN_INPUT;
// missing, mistyped or unknown fields are INVALID_INPUT.
func Decode(raw map[string]interface{}) (Record, error) {
	v, err := schemaValidator()
	if err != nil {
		return Record{}, err
	}

	result, err := v.Validate(raw)
	if err != nil {
		return Record{}, errors.NewParseError(err)
	}
	if !result.Valid {
		if result.OnlyCodes(validation.CodeNumberGTE, validation.CodeNumberLTE) {
			return Record{}, errors.NewOutOfDomainError(result.GetErrorMessages())
		}
		return Record{}, errors.NewInvalidInputError(fmt.Sprintf("survey: %v", result.GetErrorMessages())).
			WithMetadata("errors", result.Errors)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return Record{}, errors.NewParseError(err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.NewParseError(err)
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// DecodeJSON is Decode for a raw JSON object.
func DecodeJSON(data []byte) (Record, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, errors.NewParseError(err)
	}
	return Decode(raw)
}
