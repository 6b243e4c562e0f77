package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/widgets"
)

func newLintCmd(a *app) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "lint <definition>",
		Short: "Parse and shape check a definition, then summarise its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.loadDefinition(cmd.Context(), args[0], operation, formdef.WithShapeCheck())
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			printSummary(a, def)

			missing := def.MissingSources()
			if len(missing) == 0 {
				return nil
			}
			names := make([]string, 0, len(missing))
			for name := range missing {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(a.errOut, "warning: %s references unknown field(s) %s\n", name, strings.Join(missing[name], ", "))
			}
			return &exitError{code: 1, err: fmt.Errorf("%d field(s) reference unknown source fields", len(missing))}
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "treat the document as OpenAPI and use this operation's request body")
	return cmd
}

func printSummary(a *app, def *formdef.Definition) {
	fmt.Fprintf(a.out, "Form: %s (version %s, %s)\n", orDash(def.Name), orDash(string(def.Version)), orDash(string(def.Status)))
	fmt.Fprintf(a.out, "Fields: %d\n", len(def.Fields))

	assigned := widgets.NewRegistry().Assign(def)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, field := range def.Fields {
		flags := []string{}
		if field.IsRequired {
			flags = append(flags, "required")
		}
		if field.ValidateWhenHidden {
			flags = append(flags, "validate_when_hidden")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			field.Name, field.Type, assigned[field.Name], strings.Join(flags, ","), describeLogic(field.ConditionalLogic))
	}
	_ = tw.Flush()

	var lines []string
	for _, name := range def.Names() {
		if deps := def.Dependents(name); len(deps) > 0 {
			lines = append(lines, fmt.Sprintf("  %s -> %s", name, strings.Join(deps, ", ")))
		}
	}
	if len(lines) > 0 {
		fmt.Fprintln(a.out, "Dependencies:")
		for _, line := range lines {
			fmt.Fprintln(a.out, line)
		}
	}
}

func describeLogic(logic *formdef.ConditionalLogic) string {
	if logic == nil || len(logic.Rules) == 0 {
		return ""
	}
	parts := make([]string, 0, len(logic.Rules))
	for _, rule := range logic.Rules {
		parts = append(parts, fmt.Sprintf("%s %s %s", rule.SourceField, rule.Operator, formdef.Stringify(rule.Value)))
	}
	return fmt.Sprintf("%s when %s(%s)", logic.Action, logic.Relation, strings.Join(parts, "; "))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
