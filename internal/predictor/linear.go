package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"premium-predictor/internal/common/config"
	"premium-predictor/internal/models"
)

// LinearModel is an in-process collaborator: intercept plus a weight per
// integer field plus an offset per selected option. Weights and offsets are
// keyed by form name; option keys are lower-cased.
type LinearModel struct {
	Intercept float64
	Weights   map[string]float64
	Offsets   map[string]map[string]float64
}

func NewLinearModel(cfg config.LinearModelConfig) *LinearModel {
	offsets := make(map[string]map[string]float64, len(cfg.Offsets))
	for field, options := range cfg.Offsets {
		lowered := make(map[string]float64, len(options))
		for option, v := range options {
			lowered[strings.ToLower(option)] = v
		}
		offsets[strings.ToLower(field)] = lowered
	}
	weights := make(map[string]float64, len(cfg.Weights))
	for field, w := range cfg.Weights {
		weights[strings.ToLower(field)] = w
	}
	return &LinearModel{
		Intercept: cfg.Intercept,
		Weights:   weights,
		Offsets:   offsets,
	}
}

func (m *LinearModel) Name() string { return "linear" }

// Predict returns the premium rounded to whole currency units.
func (m *LinearModel) Predict(ctx context.Context, input map[string]interface{}) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPredictorTimeout, err)
	}

	total := m.Intercept
	for _, f := range models.Fields {
		raw, ok := input[f.Key]
		if !ok {
			return 0, fmt.Errorf("%w: missing %q", ErrPredictorFailed, f.Key)
		}

		switch f.Kind {
		case models.FieldKindInteger:
			v, err := toFloat(raw)
			if err != nil {
				return 0, fmt.Errorf("%w: %s: %v", ErrPredictorFailed, f.Key, err)
			}
			total += v * m.Weights[f.Name]
		case models.FieldKindEnum:
			s, ok := raw.(string)
			if !ok {
				return 0, fmt.Errorf("%w: %s: expected string, got %T", ErrPredictorFailed, f.Key, raw)
			}
			total += m.Offsets[f.Name][strings.ToLower(s)]
		}
	}

	return math.Round(total), nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
