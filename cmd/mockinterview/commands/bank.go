package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mockinterview/internal/domain"
	"mockinterview/internal/questionbank"
)

func newBankCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect fallback question banks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a question bank against the configured budgets",
		Long: `Validate a question bank file. Without a path the configured bank is
checked, or the built-in bank when none is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.Interview.QuestionBankPath
			if len(args) == 1 {
				path = args[0]
			}

			bank, err := questionbank.Load(path, cfg.Interview.Budgets)
			if err != nil {
				return err
			}

			nc := noColor(cmd)
			out := cmd.OutOrStdout()
			source := path
			if source == "" {
				source = "built-in"
			}
			fmt.Fprintln(out, bold("Question bank: "+source, nc, colorTitle))
			for _, phase := range domain.QuestionPhases {
				fmt.Fprintf(out, "  %-13s %d questions (budget %d)\n",
					phase, len(bank.Phases[phase].Questions), cfg.Interview.Budgets.Get(phase))
			}
			fmt.Fprintln(out, stylize("ok", nc, colorGood))
			return nil
		},
	})
	return cmd
}
