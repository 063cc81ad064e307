// internal/workers/premium/predict-premium/config.go
package predictpremium

import (
	"time"

	"premium-predictor/internal/common/camunda"
	"premium-predictor/internal/common/config"
)

type Config struct {
	// Timeout bounds one job, including the collaborator call.
	Timeout time.Duration
	// Complete controls resending the complete command on gateway hiccups.
	Complete *camunda.RetryConfig
}

func LoadConfig(appCfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(appCfg, TaskType)
	return &Config{
		Timeout: config.GetDuration(wcfg.Timeout),
		Complete: &camunda.RetryConfig{
			MaxRetries: wcfg.MaxRetries,
			BaseDelay:  100 * time.Millisecond,
			MaxDelay:   2 * time.Second,
		},
	}
}
