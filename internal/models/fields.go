// internal/models/fields.go
package models

// FieldKind describes how a form field is entered.
type FieldKind string

const (
	FieldKindInteger FieldKind = "integer"
	FieldKindEnum    FieldKind = "enum"
)

// Collaborator keys. These are the exact keys the prediction helper expects.
const (
	FieldAge              = "Age"
	FieldDependants       = "Number of Dependants"
	FieldIncomeLakhs      = "Income in Lakhs"
	FieldGeneticalRisk    = "Genetical Risk"
	FieldInsurancePlan    = "Insurance Plan"
	FieldEmploymentStatus = "Employment Status"
	FieldGender           = "Gender"
	FieldMaritalStatus    = "Marital Status"
	FieldBMICategory      = "BMI Category"
	FieldSmokingStatus    = "Smoking Status"
	FieldRegion           = "Region"
	FieldMedicalHistory   = "Medical History"
)

// FieldSpec is the declared domain of one PredictionRequest field.
type FieldSpec struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	Kind    FieldKind `json:"kind"`
	Min     int       `json:"min,omitempty"`
	Max     int       `json:"max,omitempty"`
	Options []string  `json:"options,omitempty"`
}

// Fields lists the twelve fields in form order.
var Fields = []FieldSpec{
	{Key: FieldAge, Name: "age", Kind: FieldKindInteger, Min: 18, Max: 100},
	{Key: FieldDependants, Name: "number_of_dependants", Kind: FieldKindInteger, Min: 0, Max: 20},
	{Key: FieldIncomeLakhs, Name: "income_lakhs", Kind: FieldKindInteger, Min: 0, Max: 200},
	{Key: FieldGeneticalRisk, Name: "genetical_risk", Kind: FieldKindInteger, Min: 0, Max: 5},
	{Key: FieldInsurancePlan, Name: "insurance_plan", Kind: FieldKindEnum,
		Options: []string{"Bronze", "Silver", "Gold"}},
	{Key: FieldEmploymentStatus, Name: "employment_status", Kind: FieldKindEnum,
		Options: []string{"Salaried", "Self-Employed", "Freelancer", ""}},
	{Key: FieldGender, Name: "gender", Kind: FieldKindEnum,
		Options: []string{"Male", "Female"}},
	{Key: FieldMaritalStatus, Name: "marital_status", Kind: FieldKindEnum,
		Options: []string{"Unmarried", "Married"}},
	{Key: FieldBMICategory, Name: "bmi_category", Kind: FieldKindEnum,
		Options: []string{"Normal", "Obesity", "Overweight", "Underweight"}},
	{Key: FieldSmokingStatus, Name: "smoking_status", Kind: FieldKindEnum,
		Options: []string{"No Smoking", "Regular", "Occasional"}},
	{Key: FieldRegion, Name: "region", Kind: FieldKindEnum,
		Options: []string{"Northwest", "Southeast", "Northeast", "Southwest"}},
	{Key: FieldMedicalHistory, Name: "medical_history", Kind: FieldKindEnum,
		Options: []string{
			"No Disease",
			"Diabetes",
			"High blood pressure",
			"Diabetes & High blood pressure",
			"Thyroid",
			"Heart disease",
			"High blood pressure & Heart disease",
			"Diabetes & Thyroid",
			"Diabetes & Heart disease",
		}},
}

// LookupField finds a field by collaborator key or form name.
func LookupField(id string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Key == id || f.Name == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Default returns the value a fresh form holds: the minimum for integers,
// the first option for enumerations.
func (f FieldSpec) Default() interface{} {
	if f.Kind == FieldKindInteger {
		return f.Min
	}
	return f.Options[0]
}

// Clamp pulls v into [Min, Max].
func (f FieldSpec) Clamp(v int) int {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

func (f FieldSpec) HasOption(value string) bool {
	for _, o := range f.Options {
		if o == value {
			return true
		}
	}
	return false
}

// InRange reports whether v is inside the declared bounds.
func (f FieldSpec) InRange(v int) bool {
	return v >= f.Min && v <= f.Max
}
