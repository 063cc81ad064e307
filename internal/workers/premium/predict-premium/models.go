// internal/workers/premium/predict-premium/models.go
package predictpremium

import "premium-predictor/internal/form"

type Input struct {
	// Record uses collaborator keys or form names; missing fields take defaults.
	Record map[string]interface{} `json:"record"`
}

type Output struct {
	PredictedPremium float64       `json:"predictedPremium"`
	DisplayValue     string        `json:"displayValue"`
	State            string        `json:"state"`
	RenderID         string        `json:"renderId"`
	Adjustments      []form.Notice `json:"adjustments"`
}
