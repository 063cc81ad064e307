package web

import (
	"time"

	"github.com/gin-gonic/gin"
)

const renderIDHeader = "X-Render-ID"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		}
		if id := c.Writer.Header().Get(renderIDHeader); id != "" {
			fields["renderId"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case c.Writer.Status() >= 500:
			s.logger.Error("request completed", fields)
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			s.logger.Debug("request completed", fields)
		default:
			s.logger.Info("request completed", fields)
		}
	}
}
