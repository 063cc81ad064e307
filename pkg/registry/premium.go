// pkg/registry/premium.go
package registry

import (
	"time"

	"premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/validation"
)

const (
	PremiumActivityID = "premium.prediction.compute"
	PremiumCategory   = "premium"
)

// PremiumActivity describes the premium prediction job worker.
func PremiumActivity(taskType string, timeout time.Duration, retries int) Activity {
	return Activity{
		ID:                   PremiumActivityID,
		DisplayName:          "Predict Insurance Premium",
		Description:          "Collects a twelve-field applicant record and returns the predicted health insurance premium",
		Category:             PremiumCategory,
		Version:              "1.0.0",
		TaskType:             taskType,
		ImplementationStatus: StatusCompleted,
		InputSchema:          validation.JobInputSchema(),
		OutputSchema:         validation.JobOutputSchema(),
		ErrorCodes: []string{
			string(errors.ErrCodeInvalidRecord),
			string(errors.ErrCodePredictionFailed),
			string(errors.ErrCodePredictionTimeout),
			string(errors.ErrCodeInvalidPrediction),
			string(errors.ErrCodePredictorUnavailable),
		},
		Timeout:   timeout.String(),
		Retries:   retries,
		Workflows: []string{"premium-quote"},
		Tags:      []string{"prediction", "insurance", "form"},
	}
}
