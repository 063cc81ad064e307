package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "premium-predictor/internal/common/errors"
	"premium-predictor/internal/common/metrics"
	"premium-predictor/internal/form"
	"premium-predictor/internal/models"
	"premium-predictor/internal/session"
)

const (
	actionField   = "action"
	actionPredict = "predict"
	fieldsPerRow  = 3
)

type pageData struct {
	Title    string
	RenderID string
	Rows     [][]form.FieldView
	Display  session.Display
	Notices  []form.Notice
}

// PredictionResponse is the JSON answer of the predict and record endpoints.
type PredictionResponse struct {
	RenderID  string                   `json:"renderId"`
	State     session.DisplayState     `json:"state,omitempty"`
	Premium   *float64                 `json:"premium,omitempty"`
	Display   string                   `json:"display,omitempty"`
	Message   string                   `json:"message,omitempty"`
	ErrorCode string                   `json:"errorCode,omitempty"`
	Record    models.PredictionRequest `json:"record"`
	Notices   []form.Notice            `json:"notices,omitempty"`
}

type errorResponse struct {
	RenderID string           `json:"renderId"`
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Fields   []form.FieldError `json:"fields,omitempty"`
}

func (s *Server) newRender(c *gin.Context) *session.State {
	st := session.New()
	c.Header(renderIDHeader, st.RenderID)
	metrics.RendersTotal.WithLabelValues(c.Request.Method).Inc()
	return st
}

func (s *Server) showForm(c *gin.Context) {
	st := s.newRender(c)
	s.renderPage(c, st)
}

// submitForm re-renders with the posted values. The collaborator runs only
// when the submit carried the predict action.
func (s *Server) submitForm(c *gin.Context) {
	st := s.newRender(c)

	for _, f := range models.Fields {
		if raw, ok := c.GetPostForm(f.Name); ok {
			// rejected entries keep their default and surface as notices
			_ = st.Form.Set(f.Name, raw)
		}
	}

	if c.PostForm(actionField) == actionPredict && s.invoker != nil {
		_, _ = s.invoker.Predict(c.Request.Context(), st)
	}

	s.renderPage(c, st)
}

func (s *Server) renderPage(c *gin.Context, st *session.State) {
	views := st.Form.Fields()
	rows := make([][]form.FieldView, 0, (len(views)+fieldsPerRow-1)/fieldsPerRow)
	for i := 0; i < len(views); i += fieldsPerRow {
		end := i + fieldsPerRow
		if end > len(views) {
			end = len(views)
		}
		rows = append(rows, views[i:end])
	}

	c.HTML(http.StatusOK, "index.html", pageData{
		Title:    "Insurance Premium Predictor",
		RenderID: st.RenderID,
		Rows:     rows,
		Display:  st.Display,
		Notices:  st.Form.Notices(),
	})
}

func (s *Server) listFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": form.NewCollector().Fields(),
	})
}

// collect builds a render from a JSON body of collaborator keys or form
// names. Missing fields keep their defaults.
func (s *Server) collect(c *gin.Context) (*session.State, bool) {
	st := s.newRender(c)

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			RenderID: st.RenderID,
			Error:    string(apperrors.ErrCodeInvalidRecord),
			Message:  "request body must be a JSON object",
		})
		return nil, false
	}

	if err := st.Form.Apply(body); err != nil {
		var fieldErrs form.FieldErrors
		if !errors.As(err, &fieldErrs) {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, errorResponse{
				RenderID: st.RenderID,
				Error:    string(apperrors.ErrCodeInternal),
				Message:  "could not read the record",
			})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, errorResponse{
			RenderID: st.RenderID,
			Error:    string(apperrors.ErrCodeInvalidRecord),
			Message:  fieldErrs.Error(),
			Fields:   fieldErrs,
		})
		return nil, false
	}
	return st, true
}

func (s *Server) assembleRecord(c *gin.Context) {
	st, ok := s.collect(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PredictionResponse{
		RenderID: st.RenderID,
		State:    st.Display.State,
		Display:  st.Display.Text(),
		Record:   st.Form.Record(),
		Notices:  st.Form.Notices(),
	})
}

func (s *Server) predict(c *gin.Context) {
	st, ok := s.collect(c)
	if !ok {
		return
	}

	status := http.StatusOK
	if s.invoker == nil {
		st.Display = session.FailedDisplay(string(apperrors.ErrCodePredictorUnavailable), "Prediction service is not configured")
		status = http.StatusServiceUnavailable
	} else if _, err := s.invoker.Predict(c.Request.Context(), st); err != nil {
		status = statusForError(err)
	}

	resp := PredictionResponse{
		RenderID:  st.RenderID,
		State:     st.Display.State,
		Display:   st.Display.Text(),
		Message:   st.Display.Message,
		ErrorCode: st.Display.ErrorCode,
		Record:    st.Form.Record(),
		Notices:   st.Form.Notices(),
	}
	if st.Display.State == session.DisplayComputed {
		premium := st.Display.Premium
		resp.Premium = &premium
	}
	c.JSON(status, resp)
}

func statusForError(err error) int {
	switch apperrors.AsStandardError(err).Code {
	case apperrors.ErrCodePredictionTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodePredictorUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeInvalidRecord:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}
