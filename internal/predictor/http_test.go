package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/models"
)

func newTestHTTPPredictor(t *testing.T, url string, retries int) *HTTPPredictor {
	t.Helper()
	return NewHTTPPredictor(HTTPConfig{
		BaseURL:    url,
		Path:       "/predict",
		APIKey:     "secret",
		MaxRetries: retries,
		Timeout:    2 * time.Second,
	}, logger.NewTestLogger(t))
}

func TestHTTPPredictor_Success(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"bare number", `15234`, 15234},
		{"numeric string", `"15,234"`, 15234},
		{"object", `{"premium": 15234.75}`, 15234.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/predict", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := newTestHTTPPredictor(t, server.URL+"/", 0)
			got, err := p.Predict(context.Background(), models.DefaultPredictionRequest().ToInput())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, received, 12)
			assert.Equal(t, 18.0, received[models.FieldAge])
			assert.Equal(t, "No Disease", received[models.FieldMedicalHistory])
		})
	}
}

func TestHTTPPredictor_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"prediction": 9100}`))
	}))
	defer server.Close()

	p := newTestHTTPPredictor(t, server.URL, 2)
	got, err := p.Predict(context.Background(), models.DefaultPredictionRequest().ToInput())

	require.NoError(t, err)
	assert.Equal(t, 9100.0, got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPPredictor_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad region"}`))
	}))
	defer server.Close()

	p := newTestHTTPPredictor(t, server.URL, 3)
	_, err := p.Predict(context.Background(), models.DefaultPredictionRequest().ToInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPredictorFailed))
	assert.Contains(t, err.Error(), "status 422")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPPredictor_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestHTTPPredictor(t, server.URL, 1)
	_, err := p.Predict(context.Background(), models.DefaultPredictionRequest().ToInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPredictorFailed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPPredictor_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := newTestHTTPPredictor(t, server.URL, 2)
	_, err := p.Predict(ctx, models.DefaultPredictionRequest().ToInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPredictorTimeout))
}

func TestHTTPPredictor_AttemptTimeouts(t *testing.T) {
	tests := []struct {
		name      string
		slowCalls int32
		retries   int
		want      float64
		wantErr   error
		wantCalls int32
	}{
		{name: "slow first attempt is retried", slowCalls: 1, retries: 2, want: 1234, wantCalls: 2},
		{name: "every attempt slow", slowCalls: 10, retries: 1, wantErr: ErrPredictorTimeout, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) <= tt.slowCalls {
					select {
					case <-r.Context().Done():
					case <-time.After(300 * time.Millisecond):
					}
					return
				}
				_, _ = w.Write([]byte(`{"premium":1234}`))
			}))
			defer server.Close()

			p := NewHTTPPredictor(HTTPConfig{
				BaseURL:    server.URL,
				Path:       "/predict",
				MaxRetries: tt.retries,
				Timeout:    100 * time.Millisecond,
			}, logger.NewTestLogger(t))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			got, err := p.Predict(ctx, models.DefaultPredictionRequest().ToInput())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestHTTPPredictor_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	p := newTestHTTPPredictor(t, server.URL, 0)
	_, err := p.Predict(context.Background(), models.DefaultPredictionRequest().ToInput())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}
