package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"premium-predictor/internal/common/config"
	commonhttp "premium-predictor/internal/common/http"
	"premium-predictor/internal/common/logger"
)

// HTTPConfig configures an HTTPPredictor.
type HTTPConfig struct {
	BaseURL    string
	Path       string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration // per attempt
}

func HTTPConfigFrom(cfg config.HTTPPredictorConfig) HTTPConfig {
	return HTTPConfig{
		BaseURL:    cfg.BaseURL,
		Path:       cfg.Path,
		APIKey:     cfg.APIKey,
		MaxRetries: cfg.MaxRetries,
		Timeout:    config.GetDuration(cfg.Timeout),
	}
}

// HTTPPredictor posts the record as a JSON object to an external model
// service and reads the premium from the response body.
type HTTPPredictor struct {
	config   HTTPConfig
	endpoint string
	client   *commonhttp.Client
	logger   logger.Logger
}

func NewHTTPPredictor(cfg HTTPConfig, log logger.Logger) *HTTPPredictor {
	client := commonhttp.NewClient(cfg.Timeout)
	if cfg.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &HTTPPredictor{
		config:   cfg,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		client:   client,
		logger: log.WithFields(map[string]interface{}{
			"predictor": "http",
		}),
	}
}

func (p *HTTPPredictor) Name() string { return "http" }

func (p *HTTPPredictor) Predict(ctx context.Context, input map[string]interface{}) (float64, error) {
	var (
		status  int
		body    []byte
		lastErr error
	)

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, fmt.Errorf("%w: %v", ErrPredictorTimeout, ctx.Err())
			}
		}

		status, body, lastErr = p.client.PostJSON(ctx, p.endpoint, input)

		// Only the caller's deadline stops the loop. A per-attempt client
		// timeout is retried like any other transport failure.
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %v", ErrPredictorTimeout, firstNonNil(ctx.Err(), lastErr))
		}

		if lastErr == nil {
			if status >= 200 && status < 300 {
				break
			}
			lastErr = fmt.Errorf("status %d: %s", status, truncate(body, 200))
			if !retryableStatus(status) {
				break
			}
		}

		p.logger.Warn("prediction attempt failed", map[string]interface{}{
			"attempt":  attempt + 1,
			"endpoint": p.endpoint,
			"error":    lastErr,
		})
	}

	if lastErr != nil {
		if isTimeout(lastErr) {
			return 0, fmt.Errorf("%w: %v", ErrPredictorTimeout, lastErr)
		}
		return 0, fmt.Errorf("%w: %v", ErrPredictorFailed, lastErr)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var answer interface{}
	if err := dec.Decode(&answer); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}

	return ParsePremium(answer)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
