// internal/models/prediction.go
package models

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PredictionRequest is the twelve-field record handed to the prediction collaborator.
type PredictionRequest struct {
	Age                int    `json:"Age" validate:"min=18,max=100"`
	NumberOfDependants int    `json:"Number of Dependants" validate:"min=0,max=20"`
	IncomeLakhs        int    `json:"Income in Lakhs" validate:"min=0,max=200"`
	GeneticalRisk      int    `json:"Genetical Risk" validate:"min=0,max=5"`
	InsurancePlan      string `json:"Insurance Plan" validate:"option=insurance_plan"`
	EmploymentStatus   string `json:"Employment Status" validate:"option=employment_status"`
	Gender             string `json:"Gender" validate:"option=gender"`
	MaritalStatus      string `json:"Marital Status" validate:"option=marital_status"`
	BMICategory        string `json:"BMI Category" validate:"option=bmi_category"`
	SmokingStatus      string `json:"Smoking Status" validate:"option=smoking_status"`
	Region             string `json:"Region" validate:"option=region"`
	MedicalHistory     string `json:"Medical History" validate:"option=medical_history"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// option=<field name> restricts a string to the field's closed option list
		_ = validate.RegisterValidation("option", func(fl validator.FieldLevel) bool {
			spec, ok := LookupField(fl.Param())
			if !ok {
				return false
			}
			return spec.HasOption(fl.Field().String())
		})
	})
	return validate
}

// Validate checks that every field holds a value from its declared domain.
func (r PredictionRequest) Validate() error {
	if err := requestValidator().Struct(r); err != nil {
		return fmt.Errorf("prediction request out of domain: %w", err)
	}
	return nil
}

// DefaultPredictionRequest returns the record a fresh form produces.
func DefaultPredictionRequest() PredictionRequest {
	return PredictionRequest{
		Age:                18,
		NumberOfDependants: 0,
		IncomeLakhs:        0,
		GeneticalRisk:      0,
		InsurancePlan:      "Bronze",
		EmploymentStatus:   "Salaried",
		Gender:             "Male",
		MaritalStatus:      "Unmarried",
		BMICategory:        "Normal",
		SmokingStatus:      "No Smoking",
		Region:             "Northwest",
		MedicalHistory:     "No Disease",
	}
}

// ToInput builds the mapping passed to the collaborator, keyed by the collaborator keys.
func (r PredictionRequest) ToInput() map[string]interface{} {
	return map[string]interface{}{
		FieldAge:              r.Age,
		FieldDependants:       r.NumberOfDependants,
		FieldIncomeLakhs:      r.IncomeLakhs,
		FieldGeneticalRisk:    r.GeneticalRisk,
		FieldInsurancePlan:    r.InsurancePlan,
		FieldEmploymentStatus: r.EmploymentStatus,
		FieldGender:           r.Gender,
		FieldMaritalStatus:    r.MaritalStatus,
		FieldBMICategory:      r.BMICategory,
		FieldSmokingStatus:    r.SmokingStatus,
		FieldRegion:           r.Region,
		FieldMedicalHistory:   r.MedicalHistory,
	}
}
