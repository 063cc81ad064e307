package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"premium-predictor/internal/models"
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

var (
	recordSchemaOnce sync.Once
	recordSchema     *gojsonschema.Schema
	recordSchemaErr  error
)

// RecordSchema returns the JSON schema of the twelve-field prediction record,
// derived from the field catalog.
func RecordSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(models.Fields))
	required := make([]interface{}, 0, len(models.Fields))

	for _, f := range models.Fields {
		prop := map[string]interface{}{
			"description": fmt.Sprintf("form field %q", f.Name),
			"default":     f.Default(),
		}
		switch f.Kind {
		case models.FieldKindInteger:
			prop["type"] = "integer"
			prop["minimum"] = f.Min
			prop["maximum"] = f.Max
		case models.FieldKindEnum:
			enum := make([]interface{}, len(f.Options))
			for i, o := range f.Options {
				enum[i] = o
			}
			prop["type"] = "string"
			prop["enum"] = enum
		}
		properties[f.Key] = prop
		required = append(required, f.Key)
	}

	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// JobInputSchema describes the variables the premium job worker accepts.
func JobInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"record": map[string]interface{}{
				"type":        "object",
				"description": "partial or complete record; missing fields take their defaults",
			},
		},
		"required": []interface{}{"record"},
	}
}

// JobOutputSchema describes the variables the premium job worker completes with.
func JobOutputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"predictedPremium": map[string]interface{}{"type": "number", "minimum": 0},
			"displayValue":     map[string]interface{}{"type": "string"},
			"state":            map[string]interface{}{"type": "string", "enum": []interface{}{"idle", "computed", "failed"}},
			"renderId":         map[string]interface{}{"type": "string"},
			"adjustments":      map[string]interface{}{"type": "array"},
		},
		"required": []interface{}{"predictedPremium", "displayValue", "state"},
	}
}

func compiledRecordSchema() (*gojsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(RecordSchema()))
	})
	return recordSchema, recordSchemaErr
}

// ValidatePredictionInput checks a collaborator mapping against RecordSchema.
func ValidatePredictionInput(input map[string]interface{}) (*ValidationResult, error) {
	schema, err := compiledRecordSchema()
	if err != nil {
		return nil, fmt.Errorf("record schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate record: %w", err)
	}
	return toValidationResult(result), nil
}

// Validate checks an arbitrary document against an arbitrary schema.
func Validate(schema, document map[string]interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return toValidationResult(result), nil
}

func toValidationResult(result *gojsonschema.Result) *ValidationResult {
	vr := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		// required errors are reported on the parent; name the missing property instead
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				field = prop
			}
		}
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return vr
}

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityId string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)
	if !namingPattern.MatchString(activityId) {
		return fmt.Errorf("activity ID must follow format: domain.subdomain.action (e.g., premium.prediction.compute)")
	}
	return nil
}

// GetSchemaFromJSON parses a JSON schema document.
func GetSchemaFromJSON(schemaJSON string) (map[string]interface{}, error) {
	var schema map[string]interface{}
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
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
