// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premium-predictor/internal/common/config"
	"premium-predictor/internal/common/database"
	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/models"
	"premium-predictor/internal/prediction"
	"premium-predictor/internal/predictor"
	"premium-predictor/internal/web"
	predictpremium "premium-predictor/internal/workers/premium/predict-premium"
)

const apiKey = "e2e-key"

// modelServer stands in for the remote prediction service. It answers
// 15234 for every record except applicants aged 40, which get a 500.
type modelServer struct {
	*httptest.Server
	calls int32

	mu       sync.Mutex
	last     map[string]interface{}
	lastAuth string
}

func newModelServer(t *testing.T) *modelServer {
	t.Helper()
	m := &modelServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.calls, 1)

		var input map[string]interface{}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&input)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		m.last = input
		m.lastAuth = r.Header.Get("Authorization")
		m.mu.Unlock()

		if input[models.FieldAge] == float64(40) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"premium": 15234}`))
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *modelServer) Calls() int32 { return atomic.LoadInt32(&m.calls) }

func (m *modelServer) Last() (map[string]interface{}, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.lastAuth
}

type stack struct {
	cfg     *config.Config
	router  *gin.Engine
	invoker *prediction.Invoker
	model   *modelServer
	redis   *miniredis.Miniredis
	log     logger.Logger
}

// newStack assembles the service the same way cmd/premium-server does,
// from a config file pointing at the fake model and an in-memory Redis.
func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	model := newModelServer(t)
	mr := miniredis.RunT(t)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
app:
  name: premium-predictor-e2e
server:
  mode: test
predictor:
  type: http
  timeout: 2000
  http:
    base_url: %s
    path: /predict
    api_key: %s
    max_retries: 1
    timeout: 1000
cache:
  enabled: true
  ttl: 600
  key_prefix: "e2e:prediction:"
database:
  redis:
    address: %s
workers:
  predict-insurance-premium:
    enabled: true
    timeout: 5000
`, model.URL, apiKey, mr.Addr())), 0o600))

	cfg, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	ctx := context.Background()

	redis, err := database.NewRedis(ctx, cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redis.Close() })

	p, err := predictor.FromConfig(cfg, redis, log)
	require.NoError(t, err)
	assert.Equal(t, "cached-http", predictor.Name(p))

	invoker := prediction.NewInvoker(&prediction.Config{
		Timeout: config.GetDuration(cfg.Predictor.Timeout),
	}, p, log, nil)

	router, err := web.NewServer(web.Dependencies{
		Invoker: invoker,
		Logger:  log,
		Checks:  map[string]web.HealthCheck{"redis": redis.Ping},
	}).Router()
	require.NoError(t, err)

	return &stack{
		cfg:     cfg,
		router:  router,
		invoker: invoker,
		model:   model,
		redis:   mr,
		log:     log,
	}
}

func (s *stack) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func scenarioRecord() map[string]interface{} {
	return map[string]interface{}{
		"age":                  30,
		"number_of_dependants": 2,
		"income_lakhs":         10,
		"genetical_risk":       1,
		"insurance_plan":       "Gold",
		"employment_status":    "Salaried",
		"gender":               "Male",
		"marital_status":       "Married",
		"bmi_category":         "Normal",
		"smoking_status":       "No Smoking",
		"region":               "Northwest",
		"medical_history":      "No Disease",
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) web.PredictionResponse {
	t.Helper()
	var resp web.PredictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// ==========================
// Full flow
// ==========================

func TestFullE2E(t *testing.T) {
	s := newStack(t)

	t.Run("initial render is idle", func(t *testing.T) {
		w := s.do(http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<strong> Awaiting...</strong>")
		assert.Zero(t, s.model.Calls())
	})

	t.Run("predict calls the model once with collaborator keys", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/predict", scenarioRecord())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode(t, w)
		assert.Equal(t, "computed", string(resp.State))
		require.NotNil(t, resp.Premium)
		assert.Equal(t, 15234.0, *resp.Premium)
		assert.Equal(t, "15,234", resp.Display)
		assert.Equal(t, int32(1), s.model.Calls())

		input, auth := s.model.Last()
		assert.Equal(t, "Bearer "+apiKey, auth)
		assert.Len(t, input, 12)
		assert.Equal(t, float64(30), input[models.FieldAge])
		assert.Equal(t, float64(2), input[models.FieldDependants])
		assert.Equal(t, "Gold", input[models.FieldInsurancePlan])
		assert.Equal(t, "No Disease", input[models.FieldMedicalHistory])
	})

	t.Run("repeat prediction is served from redis", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/predict", scenarioRecord())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "15,234", decode(t, w).Display)
		assert.Equal(t, int32(1), s.model.Calls())

		keys := s.redis.Keys()
		require.Len(t, keys, 1)
		assert.True(t, strings.HasPrefix(keys[0], "e2e:prediction:"))
		assert.Equal(t, 600*time.Second, s.redis.TTL(keys[0]))
	})

	t.Run("worker job shares the invoker and cache", func(t *testing.T) {
		handler := predictpremium.NewHandler(predictpremium.LoadConfig(s.cfg), s.invoker, nil, s.log)

		out, err := handler.Execute(context.Background(), &predictpremium.Input{Record: scenarioRecord()})
		require.NoError(t, err)
		assert.Equal(t, 15234.0, out.PredictedPremium)
		assert.Equal(t, "15,234", out.DisplayValue)
		assert.Equal(t, "computed", out.State)
		assert.Equal(t, int32(1), s.model.Calls())
	})

	t.Run("out of range values are clamped before the call", func(t *testing.T) {
		record := scenarioRecord()
		record["age"] = 150

		w := s.do(http.MethodPost, "/api/v1/predict", record)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode(t, w)
		assert.Equal(t, 100, resp.Record.Age)
		require.Len(t, resp.Notices, 1)
		assert.Equal(t, "Age", resp.Notices[0].Field)

		input, _ := s.model.Last()
		assert.Equal(t, float64(100), input[models.FieldAge])
	})

	t.Run("model failure shows placeholder and is not cached", func(t *testing.T) {
		before := s.model.Calls()
		keys := len(s.redis.Keys())

		record := scenarioRecord()
		record["age"] = 40

		w := s.do(http.MethodPost, "/api/v1/predict", record)
		require.Equal(t, http.StatusBadGateway, w.Code)

		resp := decode(t, w)
		assert.Equal(t, "failed", string(resp.State))
		assert.Equal(t, "Awaiting...", resp.Display)
		assert.Equal(t, "PREDICTION_FAILED", resp.ErrorCode)
		assert.Nil(t, resp.Premium)

		// one retry on 5xx
		assert.Equal(t, before+2, s.model.Calls())
		assert.Len(t, s.redis.Keys(), keys)
	})

	t.Run("invalid enum is rejected without a call", func(t *testing.T) {
		before := s.model.Calls()

		record := scenarioRecord()
		record["region"] = "Central"

		w := s.do(http.MethodPost, "/api/v1/predict", record)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_RECORD")
		assert.Equal(t, before, s.model.Calls())
	})

	t.Run("metrics expose prediction counters", func(t *testing.T) {
		w := s.do(http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "premium_predictions_total")
		assert.Contains(t, body, "premium_cache_lookups_total")
	})
}

func TestReadiness_FollowsRedis(t *testing.T) {
	s := newStack(t)

	w := s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.redis.Close()

	w = s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestCacheOutage_DoesNotFailPredictions(t *testing.T) {
	s := newStack(t)
	s.redis.Close()

	w := s.do(http.MethodPost, "/api/v1/predict", scenarioRecord())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "15,234", decode(t, w).Display)
	assert.Equal(t, int32(1), s.model.Calls())
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkPredict_CacheHit(b *testing.B) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatal(err)
	}
	defer mr.Close()

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`15234`))
	}))
	defer model.Close()

	ctx := context.Background()
	redis, err := database.NewRedis(ctx, config.RedisConfig{Address: mr.Addr()})
	if err != nil {
		b.Fatal(err)
	}
	defer redis.Close()

	log := logger.NewNoOpLogger()
	p := predictor.NewCachedPredictor(
		predictor.NewHTTPPredictor(predictor.HTTPConfig{BaseURL: model.URL, Path: "/predict", Timeout: time.Second}, log),
		redis, predictor.CacheOptions{TTL: time.Minute, Prefix: "bench:"}, log,
	)
	invoker := prediction.NewInvoker(&prediction.Config{Timeout: time.Second}, p, log, nil)
	handler := predictpremium.NewHandler(&predictpremium.Config{Timeout: 5 * time.Second}, invoker, nil, log)
	input := &predictpremium.Input{Record: scenarioRecord()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := handler.Execute(ctx, input); err != nil {
			b.Fatal(err)
		}
	}
}
