package prediction

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/models"
	"premium-predictor/internal/predictor"
	"premium-predictor/internal/session"
)

type recordingPredictor struct {
	calls  int32
	inputs []map[string]interface{}
	value  float64
	err    error
}

func (r *recordingPredictor) Predict(ctx context.Context, input map[string]interface{}) (float64, error) {
	atomic.AddInt32(&r.calls, 1)
	r.inputs = append(r.inputs, input)
	return r.value, r.err
}

func newTestInvoker(t *testing.T, p predictor.Predictor, timeout time.Duration) *Invoker {
	t.Helper()
	return NewInvoker(&Config{Timeout: timeout}, p, logger.NewTestLogger(t), nil)
}

func fillScenario(t *testing.T, st *session.State) {
	t.Helper()
	entries := map[string]string{
		models.FieldAge:              "30",
		models.FieldDependants:       "2",
		models.FieldIncomeLakhs:      "10",
		models.FieldGeneticalRisk:    "1",
		models.FieldInsurancePlan:    "Gold",
		models.FieldEmploymentStatus: "Salaried",
		models.FieldGender:           "Male",
		models.FieldMaritalStatus:    "Married",
		models.FieldBMICategory:      "Normal",
		models.FieldSmokingStatus:    "No Smoking",
		models.FieldRegion:           "Northwest",
		models.FieldMedicalHistory:   "No Disease",
	}
	for field, raw := range entries {
		require.NoError(t, st.Form.Set(field, raw))
	}
}

func TestInvoker_ScenarioCallsCollaboratorOnce(t *testing.T) {
	p := &recordingPredictor{value: 15234}
	inv := newTestInvoker(t, p, time.Second)
	st := session.New()
	fillScenario(t, st)

	display, err := inv.Predict(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.calls))
	assert.Equal(t, map[string]interface{}{
		"Age":                  30,
		"Number of Dependants": 2,
		"Income in Lakhs":      10,
		"Genetical Risk":       1,
		"Insurance Plan":       "Gold",
		"Employment Status":    "Salaried",
		"Gender":               "Male",
		"Marital Status":       "Married",
		"BMI Category":         "Normal",
		"Smoking Status":       "No Smoking",
		"Region":               "Northwest",
		"Medical History":      "No Disease",
	}, p.inputs[0])

	assert.Equal(t, session.DisplayComputed, display.State)
	assert.Equal(t, 15234.0, display.Premium)
	assert.Equal(t, "15,234", display.Text())
	assert.Equal(t, display, st.Display)
}

func TestInvoker_IdempotentForSameRecord(t *testing.T) {
	m := predictor.NewLinearModel(configForTest())
	inv := newTestInvoker(t, m, time.Second)

	first := session.New()
	fillScenario(t, first)
	second := session.New()
	fillScenario(t, second)

	d1, err := inv.Predict(context.Background(), first)
	require.NoError(t, err)
	d2, err := inv.Predict(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestInvoker_IdleWithoutAction(t *testing.T) {
	p := &recordingPredictor{value: 100}
	_ = newTestInvoker(t, p, time.Second)

	st := session.New()
	require.NoError(t, st.Form.Set(models.FieldAge, "44"))
	require.NoError(t, st.Form.Set(models.FieldRegion, "Southeast"))
	require.NoError(t, st.Form.Set(models.FieldSmokingStatus, "Regular"))

	assert.Equal(t, "Awaiting...", st.Display.Text())
	assert.Equal(t, session.DisplayIdle, st.Display.State)
	assert.Zero(t, atomic.LoadInt32(&p.calls))
}

func TestInvoker_Failures(t *testing.T) {
	tests := []struct {
		name     string
		p        predictor.Predictor
		wantCode apperrors.ErrorCode
	}{
		{"collaborator error", &recordingPredictor{err: errors.New("model crashed")}, apperrors.ErrCodePredictionFailed},
		{"collaborator timeout", &recordingPredictor{err: predictor.ErrPredictorTimeout}, apperrors.ErrCodePredictionTimeout},
		{"unparsable answer", &recordingPredictor{err: predictor.ErrInvalidResponse}, apperrors.ErrCodeInvalidPrediction},
		{"NaN", &recordingPredictor{value: math.NaN()}, apperrors.ErrCodeInvalidPrediction},
		{"infinite", &recordingPredictor{value: math.Inf(1)}, apperrors.ErrCodeInvalidPrediction},
		{"negative", &recordingPredictor{value: -1}, apperrors.ErrCodeInvalidPrediction},
		{"no collaborator", nil, apperrors.ErrCodePredictorUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoker(t, tt.p, time.Second)
			st := session.New()

			display, err := inv.Predict(context.Background(), st)
			require.Error(t, err)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.True(t, stdErr.IsPredictionFailure())

			assert.Equal(t, session.DisplayFailed, display.State)
			assert.Equal(t, "Awaiting...", display.Text())
			assert.NotEmpty(t, display.Message)
			assert.Equal(t, string(tt.wantCode), display.ErrorCode)
		})
	}
}

func TestInvoker_TimeoutBoundsSlowCollaborator(t *testing.T) {
	slow := predictor.Func(func(ctx context.Context, input map[string]interface{}) (float64, error) {
		time.Sleep(500 * time.Millisecond)
		return 1, nil
	})
	inv := newTestInvoker(t, slow, 20*time.Millisecond)

	start := time.Now()
	display, err := inv.Predict(context.Background(), session.New())

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodePredictionTimeout, stdErr.Code)
	assert.Equal(t, session.DisplayFailed, display.State)
}

func TestInvoker_RecoversAfterFailure(t *testing.T) {
	p := &recordingPredictor{err: errors.New("down")}
	inv := newTestInvoker(t, p, time.Second)
	st := session.New()

	_, err := inv.Predict(context.Background(), st)
	require.Error(t, err)

	p.err = nil
	p.value = 4321.5
	display, err := inv.Predict(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "4,321.50", display.Text())
}

func TestInvoker_ZeroPremiumIsComputed(t *testing.T) {
	inv := newTestInvoker(t, &recordingPredictor{value: 0}, time.Second)
	display, err := inv.Predict(context.Background(), session.New())
	require.NoError(t, err)
	assert.Equal(t, session.DisplayComputed, display.State)
	assert.Equal(t, "0", display.Text())
}

func TestNewInvoker_DefaultTimeout(t *testing.T) {
	inv := NewInvoker(nil, &recordingPredictor{}, logger.NewNoOpLogger(), nil)
	assert.Equal(t, DefaultTimeout, inv.Timeout())
}
