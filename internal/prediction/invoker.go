// Package prediction runs the collaborator for an explicit predict action
// and turns its answer into the display.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/common/metrics"
	"premium-predictor/internal/common/observability"
	"premium-predictor/internal/common/validation"
	"premium-predictor/internal/models"
	"premium-predictor/internal/predictor"
	"premium-predictor/internal/session"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	Timeout time.Duration
}

type Invoker struct {
	config    *Config
	predictor predictor.Predictor
	name      string
	logger    logger.Logger
	obs       *observability.Observability
}

func NewInvoker(config *Config, p predictor.Predictor, log logger.Logger, obs *observability.Observability) *Invoker {
	if config == nil {
		config = &Config{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	name := "none"
	if p != nil {
		name = predictor.Name(p)
	}
	return &Invoker{
		config:    config,
		predictor: p,
		name:      name,
		logger: log.WithFields(map[string]interface{}{
			"component": "invoker",
			"predictor": name,
		}),
		obs: obs,
	}
}

// Predict runs the collaborator once with the current record of st and
// stores the resulting display in st. A failure leaves the display showing
// the placeholder and is returned as a *errors.StandardError.
func (i *Invoker) Predict(ctx context.Context, st *session.State) (session.Display, error) {
	start := time.Now()
	record := st.Form.Record()

	premium, err := i.evaluate(ctx, record)
	duration := time.Since(start)
	metrics.PredictionDuration.WithLabelValues(i.name).Observe(duration.Seconds())

	if err != nil {
		stdErr := apperrors.AsStandardError(err)
		st.Display = session.FailedDisplay(string(stdErr.Code), stdErr.Message)

		metrics.PredictionsTotal.WithLabelValues(string(session.DisplayFailed)).Inc()
		metrics.PredictionFailures.WithLabelValues(string(stdErr.Code)).Inc()
		i.obs.RecordPrediction(ctx, string(session.DisplayFailed), i.name, duration)

		i.logger.Warn("prediction failed", map[string]interface{}{
			"renderId":   st.RenderID,
			"errorCode":  string(stdErr.Code),
			"details":    stdErr.Details,
			"durationMs": duration.Milliseconds(),
		})
		return st.Display, stdErr
	}

	st.Display = session.Display{
		State:   session.DisplayComputed,
		Premium: premium,
		Value:   FormatPremium(premium),
	}

	metrics.PredictionsTotal.WithLabelValues(string(session.DisplayComputed)).Inc()
	i.obs.RecordPrediction(ctx, string(session.DisplayComputed), i.name, duration)

	i.logger.Info("prediction computed", map[string]interface{}{
		"renderId":   st.RenderID,
		"premium":    premium,
		"durationMs": duration.Milliseconds(),
	})
	return st.Display, nil
}

// Timeout returns the bound applied to one collaborator call.
func (i *Invoker) Timeout() time.Duration {
	return i.config.Timeout
}

func (i *Invoker) evaluate(ctx context.Context, record models.PredictionRequest) (float64, error) {
	if i.predictor == nil {
		return 0, apperrors.NewPredictorUnavailableError("no prediction collaborator configured")
	}

	if err := record.Validate(); err != nil {
		return 0, apperrors.NewInvalidRecordError(err.Error())
	}

	input := record.ToInput()
	result, err := validation.ValidatePredictionInput(input)
	if err != nil {
		return 0, apperrors.NewInvalidRecordError(err.Error())
	}
	if !result.Valid {
		return 0, apperrors.NewInvalidRecordError(fmt.Sprint(result.GetErrorMessages()))
	}

	ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()

	type answer struct {
		premium float64
		err     error
	}
	done := make(chan answer, 1)

	// the collaborator may ignore ctx; the select below still bounds the wait
	go func() {
		premium, err := i.predictor.Predict(ctx, input)
		done <- answer{premium: premium, err: err}
	}()

	var a answer
	select {
	case a = <-done:
	case <-ctx.Done():
		return 0, i.contextError(ctx)
	}

	if a.err != nil {
		switch {
		case errors.Is(a.err, predictor.ErrPredictorTimeout),
			errors.Is(a.err, context.DeadlineExceeded):
			return 0, apperrors.NewPredictionTimeoutError(i.config.Timeout)
		case errors.Is(a.err, predictor.ErrInvalidResponse):
			return 0, apperrors.NewInvalidPredictionError(a.err.Error())
		default:
			return 0, apperrors.NewPredictionFailedError(a.err)
		}
	}

	if err := checkPremium(a.premium); err != nil {
		return 0, err
	}
	return a.premium, nil
}

func (i *Invoker) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewPredictionTimeoutError(i.config.Timeout)
	}
	return apperrors.NewPredictionFailedError(ctx.Err())
}

func checkPremium(v float64) error {
	switch {
	case math.IsNaN(v):
		return apperrors.NewInvalidPredictionError("premium is NaN")
	case math.IsInf(v, 0):
		return apperrors.NewInvalidPredictionError("premium is infinite")
	case v < 0:
		return apperrors.NewInvalidPredictionError(fmt.Sprintf("premium %g is negative", v))
	}
	return nil
}
