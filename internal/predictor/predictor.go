// Package predictor holds the collaborators that turn a prediction record
// into a premium.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrPredictorFailed  = errors.New("PREDICTOR_FAILED")
	ErrPredictorTimeout = errors.New("PREDICTOR_TIMEOUT")
	ErrInvalidResponse  = errors.New("PREDICTOR_INVALID_RESPONSE")
)

// Predictor is the prediction collaborator. input is keyed by the
// collaborator field keys ("Age", "Number of Dependants", ...).
type Predictor interface {
	Predict(ctx context.Context, input map[string]interface{}) (float64, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, input map[string]interface{}) (float64, error)

func (f Func) Predict(ctx context.Context, input map[string]interface{}) (float64, error) {
	return f(ctx, input)
}

// Name returns the label used for logs and metrics.
func Name(p Predictor) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}

// premium keys accepted in object responses, in lookup order
var premiumKeys = []string{"premium", "prediction", "predicted_premium", "value"}

// ParsePremium converts a collaborator answer into a float. It accepts
// numbers, numeric strings with optional thousands separators, and objects
// carrying one of the premium keys.
func ParsePremium(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidResponse, val.String())
		}
		return f, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidResponse, val)
		}
		return f, nil
	case map[string]interface{}:
		for _, k := range premiumKeys {
			if inner, ok := val[k]; ok {
				return ParsePremium(inner)
			}
		}
		return 0, fmt.Errorf("%w: object has none of %v", ErrInvalidResponse, premiumKeys)
	case []interface{}:
		// model servers often answer with a one-element batch
		if len(val) == 1 {
			return ParsePremium(val[0])
		}
		return 0, fmt.Errorf("%w: expected one value, got %d", ErrInvalidResponse, len(val))
	case nil:
		return 0, fmt.Errorf("%w: empty answer", ErrInvalidResponse)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidResponse, v)
	}
}
