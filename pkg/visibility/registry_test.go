package visibility_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/visibility"
)

func TestRegistry_Lifecycle(t *testing.T) {
	t.Parallel()

	reg := visibility.NewRegistry()
	op := visibility.NewOperator("starts_with", func(c visibility.Comparison) (bool, error) {
		s := formdef.Stringify(c.Actual)
		p := formdef.Stringify(c.Expected)
		return len(s) >= len(p) && s[:len(p)] == p, nil
	})

	if err := reg.Register(op); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(op); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register(visibility.NewOperator("  ", nil)); err == nil {
		t.Fatalf("expected empty name error")
	}
	if !reg.Has("starts_with") || reg.Has("is") {
		t.Fatalf("Has mismatch: %v", reg.List())
	}
	if _, err := reg.Get("is"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestDefaultRegistry_Operators(t *testing.T) {
	t.Parallel()

	want := []string{
		"contains", "expression", "greater_or_equal", "greater_than", "is",
		"is_empty", "is_not", "is_not_empty", "less_or_equal", "less_than",
	}
	if diff := cmp.Diff(want, visibility.DefaultRegistry().List()); diff != "" {
		t.Fatalf("default operators mismatch (-want +got):\n%s", diff)
	}
}

func TestExpressionOperator(t *testing.T) {
	t.Parallel()

	op := visibility.NewExpressionOperator()
	values := map[string]any{"farm_size": "7.5", "crop_type": "maize"}

	cases := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{expr: `num(value) > 5 && values.crop_type == "maize"`, want: true},
		{expr: `str(value) == "7.5"`, want: true},
		{expr: `values.crop_type in ["beans", "rice"]`, want: false},
		{expr: `source == "farm_size" && field == "cooperative"`, want: true},
		{expr: `values.crop_type`, wantErr: true},
		{expr: `(`, wantErr: true},
		{expr: ``, wantErr: true},
	}
	for _, tc := range cases {
		got, err := op.Compare(visibility.Comparison{
			Field:    "cooperative",
			Source:   "farm_size",
			Actual:   values["farm_size"],
			Expected: tc.expr,
			Values:   values,
		})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.expr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Fatalf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluate_ExpressionRule(t *testing.T) {
	t.Parallel()

	def := targetDef(t, formdef.ActionShow, formdef.RelationAnd, formdef.Rule{
		SourceField: "c",
		Operator:    visibility.OpExpression,
		Value:       `num(value) >= 3 && values.a != "skip"`,
	})

	if !visibility.Evaluate("target", map[string]any{"c": "4", "a": "go"}, def) {
		t.Fatalf("expected expression rule to match")
	}
	if visibility.Evaluate("target", map[string]any{"c": "4", "a": "skip"}, def) {
		t.Fatalf("expected expression rule to fail")
	}
	if visibility.Evaluate("target", map[string]any{"c": 1}, def) {
		t.Fatalf("expected expression rule to fail for small values")
	}
}
