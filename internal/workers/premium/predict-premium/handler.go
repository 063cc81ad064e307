// internal/workers/premium/predict-premium/handler.go
package predictpremium

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"premium-predictor/internal/common/camunda"
	apperrors "premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/common/metrics"
	"premium-predictor/internal/common/observability"
	"premium-predictor/internal/common/validation"
	"premium-predictor/internal/form"
	"premium-predictor/internal/prediction"
	"premium-predictor/internal/session"
)

const (
	TaskType = "predict-insurance-premium"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

type Handler struct {
	config       *Config
	invoker      *prediction.Invoker
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, invoker *prediction.Invoker, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		invoker:      invoker,
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err == nil {
		var output *Output
		output, err = h.execute(ctx, input)
		if err == nil {
			h.completeJob(ctx, client, job, output, start)
			return
		}
	}

	code := string(apperrors.AsStandardError(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "failed")

	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// parseInput decodes job variables and checks them against the job input schema.
func parseInput(variables string) (*Input, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(variables)))
	dec.UseNumber()

	var vars map[string]interface{}
	if err := dec.Decode(&vars); err != nil {
		return nil, apperrors.NewInvalidRecordError(fmt.Sprintf("%v: %v", ErrInvalidInput, err))
	}

	result, err := validation.Validate(validation.JobInputSchema(), vars)
	if err != nil {
		return nil, apperrors.NewInvalidRecordError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidRecordError(fmt.Sprintf("%v: %v", ErrInvalidInput, result.GetErrorMessages()))
	}

	record, _ := vars["record"].(map[string]interface{})
	return &Input{Record: record}, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	st := session.New()

	if err := st.Form.Apply(input.Record); err != nil {
		var fieldErrs form.FieldErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperrors.NewInvalidRecordError(fieldErrs.Error())
		}
		return nil, err
	}

	display, err := h.invoker.Predict(ctx, st)
	if err != nil {
		return nil, err
	}

	h.logger.Info("premium predicted", map[string]interface{}{
		"renderId": st.RenderID,
		"premium":  display.Premium,
	})

	return &Output{
		PredictedPremium: display.Premium,
		DisplayValue:     display.Text(),
		State:            string(display.State),
		RenderID:         st.RenderID,
		Adjustments:      st.Form.Notices(),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	err = camunda.SendWithRetry(ctx, h.config.Complete, "complete job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
