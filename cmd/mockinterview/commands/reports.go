package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mockinterview/internal/report"
)

func newReportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and show saved interview reports",
	}
	cmd.AddCommand(newReportsListCommand(), newReportsShowCommand())
	return cmd
}

func newReportsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := openStore()
			if err != nil {
				return err
			}
			defer reports.Close()

			list, err := reports.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no reports saved")
				return nil
			}

			nc := noColor(cmd)
			fmt.Fprintln(out, bold(fmt.Sprintf("%-36s  %-20s  %-11s  %-9s  %s", "SESSION", "STARTED", "STATUS", "ANSWERS", "SCORE"), nc, colorTitle))
			for _, r := range list {
				score := "-"
				if r.Feedback != nil {
					score = strconv.Itoa(r.Feedback.OverallScore)
				}
				status := report.Status(r)
				color := colorGood
				if !r.Completed {
					color = colorWarn
				}
				fmt.Fprintf(out, "%-36s  %-20s  %s  %-9d  %s\n",
					r.SessionID,
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					stylize(fmt.Sprintf("%-11s", status), nc, color),
					len(r.Responses),
					score,
				)
			}
			return nil
		},
	}
}

func newReportsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := openStore()
			if err != nil {
				return err
			}
			defer reports.Close()

			r, err := reports.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("report %s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Text(r))
			return nil
		},
	}
}
