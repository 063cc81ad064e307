package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Catalog(t *testing.T) {
	require.Len(t, Fields, 12)

	integers, enums := 0, 0
	seen := make(map[string]bool)
	for _, f := range Fields {
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true

		switch f.Kind {
		case FieldKindInteger:
			integers++
			assert.LessOrEqual(t, f.Min, f.Max)
		case FieldKindEnum:
			enums++
			assert.NotEmpty(t, f.Options)
		}
	}
	assert.Equal(t, 4, integers)
	assert.Equal(t, 8, enums)

	history, ok := LookupField(FieldMedicalHistory)
	require.True(t, ok)
	assert.Len(t, history.Options, 9)
}

func TestFieldSpec_DefaultAndClamp(t *testing.T) {
	age, ok := LookupField("age")
	require.True(t, ok)
	assert.Equal(t, FieldAge, age.Key)
	assert.Equal(t, 18, age.Default())
	assert.Equal(t, 18, age.Clamp(17))
	assert.Equal(t, 100, age.Clamp(150))
	assert.Equal(t, 42, age.Clamp(42))

	employment, ok := LookupField(FieldEmploymentStatus)
	require.True(t, ok)
	assert.Equal(t, "Salaried", employment.Default())
	assert.True(t, employment.HasOption(""))
	assert.False(t, employment.HasOption("Unemployed"))
	assert.False(t, employment.HasOption("self-employed"))

	_, ok = LookupField("Shoe Size")
	assert.False(t, ok)
}

func TestPredictionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *PredictionRequest)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(r *PredictionRequest) {}},
		{name: "empty employment status is allowed", mutate: func(r *PredictionRequest) { r.EmploymentStatus = "" }},
		{name: "age below minimum", mutate: func(r *PredictionRequest) { r.Age = 17 }, wantErr: true},
		{name: "income above maximum", mutate: func(r *PredictionRequest) { r.IncomeLakhs = 201 }, wantErr: true},
		{name: "genetical risk above maximum", mutate: func(r *PredictionRequest) { r.GeneticalRisk = 6 }, wantErr: true},
		{name: "unknown plan", mutate: func(r *PredictionRequest) { r.InsurancePlan = "Platinum" }, wantErr: true},
		{name: "case mismatch is not an option", mutate: func(r *PredictionRequest) { r.Region = "northwest" }, wantErr: true},
		{name: "combined medical history", mutate: func(r *PredictionRequest) { r.MedicalHistory = "Diabetes & Heart disease" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultPredictionRequest()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPredictionRequest_ToInput(t *testing.T) {
	r := DefaultPredictionRequest()
	input := r.ToInput()

	assert.Len(t, input, 12)
	for _, f := range Fields {
		assert.Equal(t, f.Default(), input[f.Key], f.Key)
	}
}
