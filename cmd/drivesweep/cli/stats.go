package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func NewStatsCommand(e *env) *cobra.Command {
	var email, output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics from the last scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errEmailRequired
			}
			if err := validateFormat(output); err != nil {
				return err
			}
			return runStats(cmd.Context(), e, email, output)
		},
	}
	addEmailFlag(cmd, &email)
	cmd.Flags().StringVarP(&output, "output", "o", FormatTable, "Output format: table, json or yaml")
	return cmd
}

func runStats(ctx context.Context, e *env, email, output string) error {
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Service.GetStats(ctx, email)
	if err != nil {
		return err
	}
	return renderStats(os.Stdout, output, stats)
}
