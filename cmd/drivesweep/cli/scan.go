package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errEmailRequired = errors.New("--email is required")

func addEmailFlag(cmd *cobra.Command, email *string) {
	cmd.Flags().StringVarP(email, "email", "e", "", "Email of a signed-in account")
}

func NewScanCommand(e *env) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the Drive and refresh the local metadata",
		Long: `List every non-trashed file in the account's Drive and reconcile it into the local store.

Examples:
  drivesweep scan --email me@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errEmailRequired
			}
			return runScan(cmd.Context(), e, email)
		},
	}
	addEmailFlag(cmd, &email)
	return cmd
}

func runScan(ctx context.Context, e *env, email string) error {
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("🔍 Scanning Drive for %s...\n", email)
	res, err := a.Service.Scan(ctx, email)
	if err != nil {
		return err
	}

	color.Green("✅ Scan completed")
	fmt.Printf("   Listed:   %d\n", res.Total)
	fmt.Printf("   Stored:   %d\n", res.Upserted)
	if res.Skipped > 0 {
		color.Yellow("   Skipped:  %d", res.Skipped)
	}
	fmt.Printf("   Stale:    %d\n", res.Stale)
	return nil
}
