package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pysugar/drivesweep/internal/bulk"
	"github.com/spf13/cobra"
)

func NewBulkCommand(e *env) *cobra.Command {
	var email string
	var yes bool

	cmd := &cobra.Command{
		Use:   "bulk <delete|trash|unshare> FILE_ID...",
		Short: "Delete, trash or unshare files in one batch",
		Long: `Apply one action to every listed Drive file id. A failure on one file does not stop the rest.

  delete   permanently deletes the file (skips the trash)
  trash    moves the file to the trash
  unshare  removes your own access to a file someone else owns

Examples:
  drivesweep bulk trash --email me@example.com 1AbC 1DeF
  drivesweep bulk delete --email me@example.com --yes 1AbC`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errEmailRequired
			}
			action, err := bulk.ParseAction(args[0])
			if err != nil {
				return err
			}
			if action == bulk.ActionDelete && !yes {
				return fmt.Errorf("permanent delete needs --yes")
			}
			return runBulk(cmd.Context(), e, email, action, args[1:])
		},
	}
	addEmailFlag(cmd, &email)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm permanent deletion")
	return cmd
}

func runBulk(ctx context.Context, e *env, email string, action bulk.Action, ids []string) error {
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var res bulk.Result
	switch action {
	case bulk.ActionDelete:
		res, err = a.Service.BulkDelete(ctx, email, ids)
	case bulk.ActionTrash:
		res, err = a.Service.BulkTrash(ctx, email, ids)
	case bulk.ActionUnshare:
		res, err = a.Service.BulkUnshare(ctx, email, ids)
	}
	if err != nil {
		return err
	}

	printBulkResult(os.Stdout, action, res)
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(res.Failed), len(res.Failed)+len(res.Succeeded))
	}
	return nil
}

func printBulkResult(w io.Writer, action bulk.Action, res bulk.Result) {
	color.New(color.FgGreen).Fprintf(w, "✅ %s succeeded: %d\n", action, len(res.Succeeded))
	for _, id := range res.Succeeded {
		fmt.Fprintf(w, "   %s\n", id)
	}
	if len(res.Failed) == 0 {
		return
	}
	color.New(color.FgRed).Fprintf(w, "❌ %s failed: %d\n", action, len(res.Failed))
	for _, id := range res.Failed {
		fmt.Fprintf(w, "   %s\n", id)
	}
}
