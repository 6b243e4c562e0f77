package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/submission"
	"github.com/goliatone/go-formrules/pkg/submission/sqlstore"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		operation        string
		farmer           string
		source           string
		submittedBy      string
		allowUnpublished bool
	)
	cmd := &cobra.Command{
		Use:   "submit <definition> <values>",
		Short: "Validate answers and store them as a farmer submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			def, err := a.loadDefinition(ctx, args[0], operation)
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

			store, err := sqlstore.Open(ctx, sqlstore.Config{Path: a.dbPath(cmd)})
			if err != nil {
				return err
			}
			defer store.Close()

			proc := submission.NewProcessor(
				submission.WithStore(store),
				submission.WithGate(form.NewGate(opts...)),
				submission.WithLogger(a.logger),
				submission.WithObserver(a.metrics),
				submission.WithAllowUnpublished(allowUnpublished),
			)
			sub, err := proc.Process(ctx, submission.Request{
				FarmerID:    farmer,
				Definition:  def,
				Values:      values,
				Source:      submission.Source(source),
				SubmittedBy: submittedBy,
			})
			var verr *submission.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(a.errOut, "Submission contains validation errors:")
				for _, line := range verr.Lines() {
					fmt.Fprintln(a.errOut, "  "+line)
				}
				return &exitError{code: 1}
			}
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			fmt.Fprintf(a.out, "Stored submission %s for farmer %s (%d responses)\n", sub.ID, sub.FarmerID, len(sub.Responses))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&operation, "operation", "", "treat the document as OpenAPI and use this operation's request body")
	flags.StringVar(&farmer, "farmer", "", "farmer id the submission belongs to")
	flags.StringVar(&source, "source", string(submission.SourceCLI), "submission source: admin, mobile, portal or cli")
	flags.StringVar(&submittedBy, "by", "", "user recorded as submitter")
	flags.BoolVar(&allowUnpublished, "allow-unpublished", false, "accept draft or unversioned definitions")
	flags.String("db", "", "sqlite database path (overrides storage.sqlite_path)")
	_ = cmd.MarkFlagRequired("farmer")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var farmer string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a farmer's stored submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := sqlstore.Open(ctx, sqlstore.Config{Path: a.dbPath(cmd)})
			if err != nil {
				return err
			}
			defer store.Close()

			subs, err := store.ListByFarmer(ctx, farmer)
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				fmt.Fprintf(a.out, "No submissions for farmer %s\n", farmer)
				return nil
			}
			for _, sub := range subs {
				fmt.Fprintf(a.out, "%s  %s  %s v%s  (%s, %s)\n",
					sub.SubmittedAt.Format("2006-01-02 15:04:05"), sub.ID, orDash(sub.FormName), orDash(string(sub.FormVersion)), sub.Source, sub.State)
				for _, resp := range sub.Responses {
					fmt.Fprintf(a.out, "    %s: %s\n", resp.Label, strings.TrimSpace(resp.Display()))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&farmer, "farmer", "", "farmer id")
	cmd.Flags().String("db", "", "sqlite database path (overrides storage.sqlite_path)")
	_ = cmd.MarkFlagRequired("farmer")
	return cmd
}

// dbPath prefers the command's --db flag over storage.sqlite_path. Both
// submit and history declare the flag, so it is not bound through viper.
func (a *app) dbPath(cmd *cobra.Command) string {
	if flag := cmd.Flags().Lookup("db"); flag != nil && flag.Changed {
		return flag.Value.String()
	}
	return a.cfg.Storage.SQLitePath
}
