package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/spf13/cobra"
)

// listFunc loads one view of the stored files.
type listFunc func(ctx context.Context, svc *cleanup.Service, email string) ([]models.File, string, error)

func newListCommand(e *env, use, short string, list listFunc) *cobra.Command {
	var email, output string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errEmailRequired
			}
			if err := validateFormat(output); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := e.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			files, title, err := list(ctx, a.Service, email)
			if err != nil {
				return err
			}
			return renderFiles(os.Stdout, output, title, files)
		},
	}
	addEmailFlag(cmd, &email)
	cmd.Flags().StringVarP(&output, "output", "o", FormatTable, "Output format: table, json or yaml")
	return cmd
}

func NewUnusedCommand(e *env) *cobra.Command {
	return newListCommand(e, "unused", "List files not viewed within the unused window",
		func(ctx context.Context, svc *cleanup.Service, email string) ([]models.File, string, error) {
			files, err := svc.ListUnused(ctx, email)
			return files, "🗑️  Unused files", err
		})
}

func NewSharedCommand(e *env) *cobra.Command {
	var scope string
	cmd := newListCommand(e, "shared", "List shared files",
		func(ctx context.Context, svc *cleanup.Service, email string) ([]models.File, string, error) {
			s, err := cleanup.ParseSharedScope(scope)
			if err != nil {
				return nil, "", err
			}
			files, err := svc.ListShared(ctx, email, s)
			return files, "🤝 Shared files", err
		})
	cmd.Flags().StringVar(&scope, "scope", string(cleanup.SharedScopeAny), "any or with-me")
	return cmd
}

func NewLargeCommand(e *env) *cobra.Command {
	var minSize string
	cmd := newListCommand(e, "large", "List files at or above a size threshold",
		func(ctx context.Context, svc *cleanup.Service, email string) ([]models.File, string, error) {
			var threshold int64
			if minSize != "" {
				n, err := humanize.ParseBytes(minSize)
				if err != nil {
					return nil, "", fmt.Errorf("invalid --min-size: %w", err)
				}
				threshold = int64(n)
			}
			large, err := svc.ListLarge(ctx, email, threshold)
			if err != nil {
				return nil, "", err
			}
			title := fmt.Sprintf("📦 Files of %s or more, %s total", humanize.IBytes(uint64(large.MinSize)), humanize.IBytes(uint64(large.TotalSize)))
			return large.Files, title, nil
		})
	cmd.Flags().StringVar(&minSize, "min-size", "", "Threshold such as 100MB or 1GiB (default from config)")
	return cmd
}
