// Package form collects the twelve prediction fields for one render.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"premium-predictor/internal/common/metrics"
	"premium-predictor/internal/models"
)

const (
	ReasonClamped  = "clamped"
	ReasonRejected = "rejected"
	ReasonUnknown  = "unknown_field"
)

// FieldError reports an entry that was not accepted. The field keeps its
// previous value.
type FieldError struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Field, e.Reason, e.Value)
}

// FieldErrors collects the rejected entries of one Apply call.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "invalid form entries: " + strings.Join(parts, "; ")
}

// Notice is a user-visible note about an adjusted or rejected entry.
type Notice struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// FieldView is one field prepared for rendering.
type FieldView struct {
	Key     string           `json:"key"`
	Name    string           `json:"name"`
	Kind    models.FieldKind `json:"kind"`
	Min     int              `json:"min,omitempty"`
	Max     int              `json:"max,omitempty"`
	Options []string         `json:"options,omitempty"`
	Default interface{}      `json:"default"`
	Value   interface{}      `json:"value"`
	Current string           `json:"-"`
	Notice  string           `json:"notice,omitempty"`
}

// Collector holds the live field values of one render. Every field always
// holds a value from its domain.
type Collector struct {
	values  map[string]interface{}
	notices []Notice
}

// NewCollector returns a collector with every field at its default.
func NewCollector() *Collector {
	values := make(map[string]interface{}, len(models.Fields))
	for _, f := range models.Fields {
		values[f.Key] = f.Default()
	}
	return &Collector{values: values}
}

// Set applies raw user text to a field addressed by collaborator key or
// form name. Integers are clamped to their bounds; enumerations must match
// an option exactly.
func (c *Collector) Set(field, raw string) error {
	spec, ok := models.LookupField(field)
	if !ok {
		return FieldError{Field: field, Value: raw, Reason: ReasonUnknown}
	}

	switch spec.Kind {
	case models.FieldKindInteger:
		trimmed := strings.TrimSpace(raw)
		v, err := strconv.Atoi(trimmed)
		switch {
		case errors.Is(err, strconv.ErrRange):
			// Atoi saturates at the int limit of the same sign
			c.storeInt(spec, v, trimmed)
			return nil
		case err != nil:
			return c.reject(spec, raw, "not a whole number")
		}
		c.SetInt(spec.Key, v)
		return nil
	default:
		if !spec.HasOption(raw) {
			return c.reject(spec, raw, fmt.Sprintf("must be one of %s", quoteOptions(spec.Options)))
		}
		c.values[spec.Key] = raw
		return nil
	}
}

// SetInt stores an integer field, clamping it into range. Unknown and
// enumerated fields are ignored.
func (c *Collector) SetInt(field string, v int) {
	spec, ok := models.LookupField(field)
	if !ok || spec.Kind != models.FieldKindInteger {
		return
	}
	c.storeInt(spec, v, strconv.Itoa(v))
}

func (c *Collector) storeInt(spec models.FieldSpec, v int, shown string) {
	clamped := v
	if !spec.InRange(v) {
		clamped = spec.Clamp(v)
		metrics.FieldAdjustments.WithLabelValues(spec.Name, ReasonClamped).Inc()
		c.notices = append(c.notices, Notice{
			Field:   spec.Key,
			Reason:  ReasonClamped,
			Message: fmt.Sprintf("%s %s is outside %d-%d, using %d", spec.Key, shown, spec.Min, spec.Max, clamped),
		})
	}
	c.values[spec.Key] = clamped
}

// Apply sets every entry of values, addressed by collaborator key or form
// name, in form order. All entries are attempted; rejected ones are
// returned as FieldErrors.
func (c *Collector) Apply(values map[string]interface{}) error {
	var errs FieldErrors

	var unknown []string
	for id := range values {
		if _, ok := models.LookupField(id); !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)

	for _, spec := range models.Fields {
		raw, ok := values[spec.Key]
		if !ok {
			if raw, ok = values[spec.Name]; !ok {
				continue
			}
		}
		if err := c.applyValue(spec, raw); err != nil {
			var fe FieldError
			if errors.As(err, &fe) {
				errs = append(errs, fe)
			}
		}
	}

	for _, id := range unknown {
		errs = append(errs, FieldError{Field: id, Value: fmt.Sprint(values[id]), Reason: ReasonUnknown})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (c *Collector) applyValue(spec models.FieldSpec, raw interface{}) error {
	switch v := raw.(type) {
	case string:
		return c.Set(spec.Key, v)
	case int:
		return c.setNumber(spec, float64(v), raw)
	case int64:
		return c.setNumber(spec, float64(v), raw)
	case float64:
		return c.setNumber(spec, v, raw)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return c.reject(spec, v.String(), "not a number")
		}
		return c.setNumber(spec, f, raw)
	default:
		return c.reject(spec, fmt.Sprint(raw), fmt.Sprintf("unsupported value type %T", raw))
	}
}

func (c *Collector) setNumber(spec models.FieldSpec, f float64, raw interface{}) error {
	if spec.Kind != models.FieldKindInteger {
		return c.reject(spec, fmt.Sprint(raw), "must be text")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return c.reject(spec, fmt.Sprint(raw), "not a whole number")
	}
	// pin far out-of-range values next to the bound so int conversion cannot overflow
	v := f
	if v < float64(spec.Min) {
		v = float64(spec.Min) - 1
	} else if v > float64(spec.Max) {
		v = float64(spec.Max) + 1
	}
	c.storeInt(spec, int(v), strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func (c *Collector) reject(spec models.FieldSpec, raw, why string) error {
	metrics.FieldAdjustments.WithLabelValues(spec.Name, ReasonRejected).Inc()
	c.notices = append(c.notices, Notice{
		Field:   spec.Key,
		Reason:  ReasonRejected,
		Message: fmt.Sprintf("%s %q rejected: %s", spec.Key, raw, why),
	})
	return FieldError{Field: spec.Key, Value: raw, Reason: ReasonRejected}
}

// Value returns the current value of a field.
func (c *Collector) Value(field string) (interface{}, bool) {
	spec, ok := models.LookupField(field)
	if !ok {
		return nil, false
	}
	return c.values[spec.Key], true
}

// Record assembles the current values into a PredictionRequest.
func (c *Collector) Record() models.PredictionRequest {
	return models.PredictionRequest{
		Age:                c.intValue(models.FieldAge),
		NumberOfDependants: c.intValue(models.FieldDependants),
		IncomeLakhs:        c.intValue(models.FieldIncomeLakhs),
		GeneticalRisk:      c.intValue(models.FieldGeneticalRisk),
		InsurancePlan:      c.stringValue(models.FieldInsurancePlan),
		EmploymentStatus:   c.stringValue(models.FieldEmploymentStatus),
		Gender:             c.stringValue(models.FieldGender),
		MaritalStatus:      c.stringValue(models.FieldMaritalStatus),
		BMICategory:        c.stringValue(models.FieldBMICategory),
		SmokingStatus:      c.stringValue(models.FieldSmokingStatus),
		Region:             c.stringValue(models.FieldRegion),
		MedicalHistory:     c.stringValue(models.FieldMedicalHistory),
	}
}

// Fields returns the form in rendering order.
func (c *Collector) Fields() []FieldView {
	views := make([]FieldView, 0, len(models.Fields))
	for _, f := range models.Fields {
		v := c.values[f.Key]
		views = append(views, FieldView{
			Key:     f.Key,
			Name:    f.Name,
			Kind:    f.Kind,
			Min:     f.Min,
			Max:     f.Max,
			Options: f.Options,
			Default: f.Default(),
			Value:   v,
			Current: fmt.Sprint(v),
			Notice:  c.noticeFor(f.Key),
		})
	}
	return views
}

// Notices returns the notes produced during this render, in entry order.
func (c *Collector) Notices() []Notice {
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

func (c *Collector) noticeFor(key string) string {
	for i := len(c.notices) - 1; i >= 0; i-- {
		if c.notices[i].Field == key {
			return c.notices[i].Message
		}
	}
	return ""
}

func (c *Collector) intValue(key string) int {
	v, _ := c.values[key].(int)
	return v
}

func (c *Collector) stringValue(key string) string {
	v, _ := c.values[key].(string)
	return v
}

func quoteOptions(options []string) string {
	quoted := make([]string, len(options))
	for i, o := range options {
		quoted[i] = strconv.Quote(o)
	}
	return strings.Join(quoted, ", ")
}
