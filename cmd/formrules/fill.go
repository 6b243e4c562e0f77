package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/prompt"
	"github.com/goliatone/go-formrules/pkg/widgets"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		operation string
		initial   string
		output    string
		rounds    int
	)
	cmd := &cobra.Command{
		Use:   "fill <definition>",
		Short: "Fill a definition interactively, asking only visible fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.loadDefinition(cmd.Context(), args[0], operation)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			values, err := loadValues(initial)
			if err != nil {
				return err
			}
			opts, err := a.formOptions()
			if err != nil {
				return err
			}
			session := form.NewSession(def, values, opts...)

			filler := prompt.New(
				prompt.WithDriver(prompt.NewSurveyDriver(a.errOut)),
				prompt.WithWidgets(widgets.NewRegistry()),
				prompt.WithLogger(a.logger),
				prompt.WithMaxRounds(rounds),
			)
			outcome, err := filler.Fill(cmd.Context(), session)
			if errors.Is(err, prompt.ErrIncomplete) {
				return &exitError{code: 1, err: err}
			}
			if err != nil {
				return err
			}
			defer session.Finish()

			if output == "" {
				return writeJSON(a.out, outcome.Values)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()
			if err := writeJSON(f, outcome.Values); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "Answers written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "treat the document as OpenAPI and use this operation's request body")
	cmd.Flags().StringVar(&initial, "values", "", "JSON or YAML file with initial answers")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write answers to this file instead of stdout")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "submit attempts before giving up")
	return cmd
}
