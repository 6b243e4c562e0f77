package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formrules/pkg/progress"
)

func newPollCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll <job-id>",
		Short: "Poll an import job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poller := progress.NewPoller(
				progress.NewHTTPFetcher(a.cfg.Poll.Endpoint, nil),
				progress.WithInterval(a.cfg.Poll.Interval),
				progress.WithLogger(a.logger),
			)
			last, err := poller.Run(cmd.Context(), args[0], func(s progress.Snapshot) {
				fmt.Fprintf(a.out, "[%3d%%] %s\n", s.Percent, s.Text)
			})
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			if last.State == progress.StateError {
				if last.LogSummary != "" {
					fmt.Fprintln(a.errOut, last.LogSummary)
				}
				return &exitError{code: 1, err: fmt.Errorf("job %s failed", args[0])}
			}
			return nil
		},
	}
	cmd.Flags().String("endpoint", "", "base URL of the registry (overrides poll.endpoint)")
	cmd.Flags().Duration("interval", 0, "poll interval (overrides poll.interval)")
	_ = a.v.BindPFlag("poll.endpoint", cmd.Flags().Lookup("endpoint"))
	_ = a.v.BindPFlag("poll.interval", cmd.Flags().Lookup("interval"))
	return cmd
}
