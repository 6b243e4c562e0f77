package visibility

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

const (
	maxExpressionLength = 1000
	maxExpressionNodes  = 100
)

// ExpressionOperator treats the rule value as an expr-lang boolean
// expression. The environment exposes `value` (the source field value),
// `source`, `field` and `values` (every current value).
//
//	{"source_field": "farm_size", "operator": "expression",
//	 "value": "value > 2 && values.crop_type == 'maize'"}
type ExpressionOperator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExpressionOperator returns an operator with an empty compile cache.
func NewExpressionOperator() *ExpressionOperator {
	return &ExpressionOperator{cache: make(map[string]*vm.Program)}
}

// Name implements Operator.
func (o *ExpressionOperator) Name() string { return OpExpression }

// Compare compiles (once) and runs the expression.
func (o *ExpressionOperator) Compare(c Comparison) (bool, error) {
	source, ok := c.Expected.(string)
	if !ok || source == "" {
		return false, errors.New("visibility: expression rule value must be a non-empty string")
	}
	if len(source) > maxExpressionLength {
		return false, fmt.Errorf("visibility: expression too long (max %d chars)", maxExpressionLength)
	}

	program, err := o.program(source)
	if err != nil {
		return false, fmt.Errorf("visibility: compile expression: %w", err)
	}

	output, err := expr.Run(program, expressionEnv(c))
	if err != nil {
		return false, fmt.Errorf("visibility: run expression: %w", err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("visibility: expression returned %T, want bool", output)
	}
	return result, nil
}

func (o *ExpressionOperator) program(source string) (*vm.Program, error) {
	o.mu.RLock()
	program, found := o.cache[source]
	o.mu.RUnlock()
	if found {
		return program, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if program, found := o.cache[source]; found {
		return program, nil
	}
	program, err := expr.Compile(source,
		expr.Env(expressionEnv(Comparison{})),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		expr.MaxNodes(maxExpressionNodes),
		expr.Function("num", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, errors.New("num expects 1 argument")
			}
			n, _ := formdef.Number(params[0])
			return n, nil
		}),
		expr.Function("str", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, errors.New("str expects 1 argument")
			}
			return formdef.Stringify(params[0]), nil
		}),
	)
	if err != nil {
		return nil, err
	}
	o.cache[source] = program
	return program, nil
}

func expressionEnv(c Comparison) map[string]any {
	values := c.Values
	if values == nil {
		values = map[string]any{}
	}
	return map[string]any{
		"value":  c.Actual,
		"source": c.Source,
		"field":  c.Field,
		"values": values,
	}
}
