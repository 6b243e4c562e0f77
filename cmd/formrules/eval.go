package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrules/pkg/form"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		operation string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "eval <definition> <values>",
		Short: "Evaluate visibility and validation for a set of answers",
		Long: `eval runs the submission gate over the answers in <values> (JSON or
YAML) and prints each field's visibility and validation result. The exit code
is 1 when the gate blocks submission.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.loadDefinition(cmd.Context(), args[0], operation)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			values, err := loadValues(args[1])
			if err != nil {
				return err
			}
			opts, err := a.formOptions()
			if err != nil {
				return err
			}
			opts = append(opts, form.WithAnnouncer(form.AnnouncerFunc(func(msg string) {
				fmt.Fprintln(a.errOut, msg)
			})))

			session := form.NewSession(def, values, opts...)
			outcome := session.Submit()

			if asJSON {
				if err := writeJSON(a.out, outcome.Report); err != nil {
					return err
				}
			} else {
				printReport(a, outcome.Report)
			}
			if !outcome.Allowed {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "treat the document as OpenAPI and use this operation's request body")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the gate report as JSON")
	return cmd
}

func printReport(a *app, report form.Report) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, field := range report.Fields {
		visibility := "visible"
		if !field.Visible {
			visibility = "hidden"
		}
		status := "ok"
		if !field.Checked {
			status = "skipped"
		}
		if !field.Result.Valid {
			status = "invalid"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", field.Name, visibility, status, field.Result.Message)
	}
	_ = tw.Flush()
	if report.Valid {
		fmt.Fprintln(a.out, "Result: valid")
		return
	}
	fmt.Fprintf(a.out, "Result: invalid (%d field(s), first: %s)\n", len(report.Invalid()), report.FirstInvalid)
}
