// Package form ties visibility and validation together: the submission gate
// that decides whether a form may be submitted, and a per-render Session that
// tracks field state as values change.
package form

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/validation"
	"github.com/goliatone/go-formrules/pkg/visibility"
)

// Status messages announced by the gate.
const (
	StatusInvalid     = "Please correct the errors in the form."
	StatusSubmitting  = "Submitting form..."
	StatusConfigError = "Error: Form configuration is invalid. Please contact support."
)

// Observer is notified of every submit attempt.
type Observer interface {
	SubmitAttempted(outcome string)
}

// Submit outcomes reported to observers.
const (
	OutcomeAccepted = "accepted"
	OutcomeBlocked  = "blocked"
	OutcomeDisabled = "disabled"
	OutcomeBusy     = "busy"
)

// Option configures a Gate or Session.
type Option func(*options)

type options struct {
	evaluator   *visibility.Evaluator
	validator   *validation.Validator
	logger      *zap.Logger
	announcer   Announcer
	observer    Observer
	clearHidden bool
}

// WithEvaluator sets the visibility evaluator.
func WithEvaluator(e *visibility.Evaluator) Option {
	return func(o *options) {
		if e != nil {
			o.evaluator = e
		}
	}
}

// WithValidator sets the field validator.
func WithValidator(v *validation.Validator) Option {
	return func(o *options) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAnnouncer sets where status messages are announced.
func WithAnnouncer(a Announcer) Option {
	return func(o *options) {
		o.announcer = a
	}
}

// WithObserver attaches a submit Observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithClearHidden clears the value of a field when it becomes hidden.
func WithClearHidden(enabled bool) Option {
	return func(o *options) {
		o.clearHidden = enabled
	}
}

func buildOptions(opts []Option) options {
	cfg := options{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evaluator == nil {
		cfg.evaluator = visibility.New(visibility.WithLogger(cfg.logger))
	}
	if cfg.validator == nil {
		cfg.validator = validation.New(validation.WithLogger(cfg.logger))
	}
	return cfg
}

// FieldReport is the gate outcome for one field.
type FieldReport struct {
	Name    string            `json:"name"`
	Label   string            `json:"label"`
	Visible bool              `json:"visible"`
	Checked bool              `json:"checked"`
	Result  validation.Result `json:"result"`
}

// Report is the gate outcome for a whole form.
type Report struct {
	Valid        bool          `json:"valid"`
	FirstInvalid string        `json:"first_invalid,omitempty"`
	Fields       []FieldReport `json:"fields"`
}

// Invalid returns the reports of failing fields in definition order.
func (r Report) Invalid() []FieldReport {
	var out []FieldReport
	for _, field := range r.Fields {
		if !field.Result.Valid {
			out = append(out, field)
		}
	}
	return out
}

// Gate validates every visible field (and every validate_when_hidden field)
// before submission.
type Gate struct {
	evaluator *visibility.Evaluator
	validator *validation.Validator
}

// NewGate constructs a Gate.
func NewGate(opts ...Option) *Gate {
	cfg := buildOptions(opts)
	return &Gate{evaluator: cfg.evaluator, validator: cfg.validator}
}

var defaultGate = NewGate()

// ValidateForm reports whether values may be submitted using default
// evaluator and validator settings.
func ValidateForm(def *formdef.Definition, values map[string]any) bool {
	return defaultGate.ValidateForm(def, values)
}

// Check runs the default gate and returns the full report.
func Check(def *formdef.Definition, values map[string]any) Report {
	return defaultGate.Check(def, values)
}

// ValidateForm reports whether every checked field passes validation.
func (g *Gate) ValidateForm(def *formdef.Definition, values map[string]any) bool {
	return g.Check(def, values).Valid
}

// Check evaluates visibility and validity for every field in definition
// order.
func (g *Gate) Check(def *formdef.Definition, values map[string]any) Report {
	report := Report{Valid: true}
	if def == nil {
		return report
	}
	report.Fields = make([]FieldReport, 0, len(def.Fields))
	for _, field := range def.Fields {
		visible := g.evaluator.EvaluateField(field, values, def)
		result := g.validator.Validate(field, values[field.Name], visible)
		report.Fields = append(report.Fields, FieldReport{
			Name:    field.Name,
			Label:   field.DisplayLabel(),
			Visible: visible,
			Checked: visible || field.ValidateWhenHidden,
			Result:  result,
		})
		if !result.Valid && report.Valid {
			report.Valid = false
			report.FirstInvalid = field.Name
		}
	}
	return report
}
