// Package visibility evaluates conditional logic: given the current value of
// every field it decides which fields are shown.
package visibility

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger routes rule warnings to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry replaces the operator registry.
func WithRegistry(reg *Registry) Option {
	return func(e *Evaluator) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// Observer is notified for every rule outcome. Metrics hook in here.
type Observer interface {
	RuleEvaluated(operator string, met bool)
	RuleSkipped(reason string)
}

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(e *Evaluator) {
		e.observer = obs
	}
}

// Evaluator decides field visibility from conditional logic and the current
// values of every field. It holds no per-form state.
type Evaluator struct {
	registry *Registry
	logger   *zap.Logger
	observer Observer
}

// Skip reasons reported to observers.
const (
	SkipMissingSource   = "missing_source"
	SkipUnknownOperator = "unknown_operator"
	SkipOperatorError   = "operator_error"
)

// New constructs an Evaluator backed by DefaultRegistry.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	return e
}

var defaultEvaluator = New()

// Evaluate reports whether fieldName is visible using the default evaluator.
func Evaluate(fieldName string, values map[string]any, def *formdef.Definition) bool {
	return defaultEvaluator.Evaluate(fieldName, values, def)
}

// Registry exposes the operator registry.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Evaluate reports whether fieldName is visible given values. Fields unknown
// to def and fields without conditional logic are visible.
func (e *Evaluator) Evaluate(fieldName string, values map[string]any, def *formdef.Definition) bool {
	field, ok := def.Field(fieldName)
	if !ok {
		return true
	}
	return e.EvaluateField(field, values, def)
}

// EvaluateField is Evaluate for an already resolved descriptor.
func (e *Evaluator) EvaluateField(field formdef.FieldDescriptor, values map[string]any, def *formdef.Definition) bool {
	if !field.HasConditionalLogic() {
		return true
	}
	logic := field.ConditionalLogic

	visible := logic.Action == formdef.ActionHide
	for _, rule := range logic.Rules {
		met := e.ruleMet(field.Name, rule, values, def)
		if logic.Relation == formdef.RelationOr {
			if met {
				visible = logic.Action == formdef.ActionShow
				break
			}
			continue
		}
		if !met {
			visible = logic.Action == formdef.ActionHide
			break
		}
		visible = logic.Action == formdef.ActionShow
	}
	return visible
}

// EvaluateAll computes visibility for every field in definition order.
func (e *Evaluator) EvaluateAll(values map[string]any, def *formdef.Definition) map[string]bool {
	if def == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(def.Fields))
	for _, field := range def.Fields {
		out[field.Name] = e.EvaluateField(field, values, def)
	}
	return out
}

// Affected returns the fields whose visibility may change when changed is
// edited, in definition order.
func (e *Evaluator) Affected(def *formdef.Definition, changed string) []string {
	return def.Dependents(changed)
}

func (e *Evaluator) ruleMet(fieldName string, rule formdef.Rule, values map[string]any, def *formdef.Definition) bool {
	actual, present := values[rule.SourceField]
	if !present && !def.Has(rule.SourceField) {
		e.logger.Warn("conditional logic source field not found",
			zap.String("field", fieldName),
			zap.String("source_field", rule.SourceField),
		)
		e.skipped(SkipMissingSource)
		return false
	}

	op, err := e.registry.Get(rule.Operator)
	if err != nil {
		e.logger.Warn("unknown conditional logic operator",
			zap.String("field", fieldName),
			zap.String("operator", rule.Operator),
		)
		e.skipped(SkipUnknownOperator)
		return false
	}

	met, err := op.Compare(Comparison{
		Field:    fieldName,
		Source:   rule.SourceField,
		Actual:   actual,
		Expected: rule.Value,
		Values:   values,
	})
	if err != nil {
		e.logger.Warn("conditional logic rule failed",
			zap.String("field", fieldName),
			zap.String("operator", rule.Operator),
			zap.Error(err),
		)
		e.skipped(SkipOperatorError)
		return false
	}
	if e.observer != nil {
		e.observer.RuleEvaluated(rule.Operator, met)
	}
	return met
}

func (e *Evaluator) skipped(reason string) {
	if e.observer != nil {
		e.observer.RuleSkipped(reason)
	}
}
