package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mockinterview/internal/config"
	"mockinterview/internal/logging"
	"mockinterview/internal/store"
)

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mockinterview",
		Short: "Practice job interviews with a spoken interviewer",
		Long: `mockinterview runs a scripted mock interview: an introduction, technical
and behavioral questions, then scored feedback.

Configuration is read from the environment and from a .env file in the
working directory. Reports are stored under ~/.config/mockinterview/reports
unless MOCKINTERVIEW_STORE_DIR is set.

Examples:
  # Run an interview, typing answers when recognition is unavailable
  mockinterview run --job-file job.txt --resume-file resume.txt

  # Expose Prometheus metrics while the interview runs
  mockinterview run --job "Backend engineer" --metrics-addr :9090

  # Review past interviews
  mockinterview reports list
  mockinterview reports show 5f0c...`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(newRunCommand(), newReportsCommand(), newBankCommand())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func loadConfig() (config.Config, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	return config.Load()
}

func openStore() (*store.Reports, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(store.Options{
		Dir:      cfg.Store.Dir,
		InMemory: cfg.Store.InMemory,
		Logger:   logging.New(cfg.Log),
	})
}

func noColor(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("no-color")
	return v
}
