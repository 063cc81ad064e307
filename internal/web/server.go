// Package web serves the premium form and its JSON API.
package web

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"premium-predictor/internal/common/logger"
	"premium-predictor/internal/prediction"
)

//go:embed templates/*.html
var templatesFS embed.FS

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Invoker *prediction.Invoker
	Logger  logger.Logger
	// Checks back /ready, keyed by dependency name.
	Checks map[string]HealthCheck
}

type Server struct {
	invoker *prediction.Invoker
	logger  logger.Logger
	checks  map[string]HealthCheck
	started time.Time
}

func NewServer(deps Dependencies) *Server {
	checks := deps.Checks
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &Server{
		invoker: deps.Invoker,
		logger: deps.Logger.WithFields(map[string]interface{}{
			"component": "web",
		}),
		checks:  checks,
		started: time.Now().UTC(),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.showForm)
	r.POST("/", s.submitForm)

	api := r.Group("/api/v1")
	{
		api.GET("/fields", s.listFields)
		api.POST("/record", s.assembleRecord)
		api.POST("/predict", s.predict)
	}

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}
