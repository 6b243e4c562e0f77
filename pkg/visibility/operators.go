package visibility

import (
	"strings"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Built-in operator names.
const (
	OpIs             = "is"
	OpIsNot          = "is_not"
	OpContains       = "contains"
	OpGreaterThan    = "greater_than"
	OpLessThan       = "less_than"
	OpGreaterOrEqual = "greater_or_equal"
	OpLessOrEqual    = "less_or_equal"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
	OpExpression     = "expression"
)

// Comparison is the input handed to an Operator for one rule.
type Comparison struct {
	Field    string
	Source   string
	Actual   any
	Expected any
	Values   map[string]any
}

// Operator decides whether a rule is met.
type Operator interface {
	Name() string
	Compare(c Comparison) (bool, error)
}

// OperatorFunc adapts a function into a named Operator.
type OperatorFunc struct {
	name string
	fn   func(Comparison) (bool, error)
}

// NewOperator wraps fn as an Operator called name.
func NewOperator(name string, fn func(Comparison) (bool, error)) OperatorFunc {
	return OperatorFunc{name: strings.TrimSpace(name), fn: fn}
}

// Name returns the registered name.
func (o OperatorFunc) Name() string { return o.name }

// Compare delegates to the wrapped function.
func (o OperatorFunc) Compare(c Comparison) (bool, error) {
	if o.fn == nil {
		return false, nil
	}
	return o.fn(c)
}

func builtinOperators() []Operator {
	return []Operator{
		NewOperator(OpIs, func(c Comparison) (bool, error) {
			return formdef.Stringify(c.Actual) == formdef.Stringify(c.Expected), nil
		}),
		NewOperator(OpIsNot, func(c Comparison) (bool, error) {
			return formdef.Stringify(c.Actual) != formdef.Stringify(c.Expected), nil
		}),
		NewOperator(OpContains, compareContains),
		numericOperator(OpGreaterThan, func(a, b float64) bool { return a > b }),
		numericOperator(OpLessThan, func(a, b float64) bool { return a < b }),
		numericOperator(OpGreaterOrEqual, func(a, b float64) bool { return a >= b }),
		numericOperator(OpLessOrEqual, func(a, b float64) bool { return a <= b }),
		NewOperator(OpIsEmpty, func(c Comparison) (bool, error) {
			return formdef.IsEmpty(c.Actual), nil
		}),
		NewOperator(OpIsNotEmpty, func(c Comparison) (bool, error) {
			return !formdef.IsEmpty(c.Actual), nil
		}),
	}
}

func compareContains(c Comparison) (bool, error) {
	want := formdef.Stringify(c.Expected)
	switch c.Actual.(type) {
	case []any, []string:
		for _, item := range formdef.StringList(c.Actual) {
			if item == want {
				return true, nil
			}
		}
	}
	return strings.Contains(formdef.Stringify(c.Actual), want), nil
}

func numericOperator(name string, cmp func(a, b float64) bool) Operator {
	return NewOperator(name, func(c Comparison) (bool, error) {
		actual, ok := formdef.Number(c.Actual)
		if !ok {
			return false, nil
		}
		expected, ok := formdef.Number(c.Expected)
		if !ok {
			return false, nil
		}
		return cmp(actual, expected), nil
	})
}
