// Package metrics counts rule engine activity. Metrics implements the
// observer interfaces of the visibility, validation, form and submission
// packages.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/submission"
	"github.com/goliatone/go-formrules/pkg/validation"
	"github.com/goliatone/go-formrules/pkg/visibility"
)

var (
	_ visibility.Observer = (*Metrics)(nil)
	_ validation.Observer = (*Metrics)(nil)
	_ form.Observer       = (*Metrics)(nil)
	_ submission.Observer = (*Metrics)(nil)
)

// Metrics provides observability for form rule evaluation.
type Metrics struct {
	registry *prometheus.Registry

	// Rule outcomes by operator and result
	RulesEvaluated *prometheus.CounterVec

	// Rules treated as unmet without evaluation, by reason
	RulesSkipped *prometheus.CounterVec

	// Failed field checks by rule
	ValidationFailures *prometheus.CounterVec

	// Submit attempts by outcome
	SubmitAttempts *prometheus.CounterVec

	// Processed submissions by outcome
	Submissions *prometheus.CounterVec
}

// New registers every metric on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		RulesEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrules_rules_evaluated_total",
			Help: "Conditional logic rules evaluated by operator and outcome",
		}, []string{"operator", "met"}),

		RulesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrules_rules_skipped_total",
			Help: "Conditional logic rules treated as unmet without evaluation",
		}, []string{"reason"}), // reason: "missing_source", "unknown_operator", "operator_error"

		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrules_validation_failures_total",
			Help: "Field validation failures by rule",
		}, []string{"rule"}),

		SubmitAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrules_submit_attempts_total",
			Help: "Form submit attempts by outcome",
		}, []string{"outcome"}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formrules_submissions_processed_total",
			Help: "Processed submissions by outcome",
		}, []string{"outcome"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RuleEvaluated records one evaluated rule.
func (m *Metrics) RuleEvaluated(operator string, met bool) {
	if m != nil {
		m.RulesEvaluated.WithLabelValues(operator, fmt.Sprint(met)).Inc()
	}
}

// RuleSkipped records a rule that could not be evaluated.
func (m *Metrics) RuleSkipped(reason string) {
	if m != nil {
		m.RulesSkipped.WithLabelValues(reason).Inc()
	}
}

// ValidationFailed records a failed field check.
func (m *Metrics) ValidationFailed(_ string, rule string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(rule).Inc()
	}
}

// SubmitAttempted records a submit attempt.
func (m *Metrics) SubmitAttempted(outcome string) {
	if m != nil {
		m.SubmitAttempts.WithLabelValues(outcome).Inc()
	}
}

// SubmissionProcessed records a processed submission.
func (m *Metrics) SubmissionProcessed(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// WriteSummary prints every non-zero counter as `name{labels} value`, one per
// line, sorted.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value := metric.GetCounter().GetValue()
			if value == 0 {
				continue
			}
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", family.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
