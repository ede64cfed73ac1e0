package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/pysugar/drivesweep/internal/auth/google"
	"github.com/spf13/cobra"
)

func NewLoginCommand(e *env) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google from the terminal",
		Long: `Start a temporary callback server on 127.0.0.1, print the Google consent URL
and store the account once consent completes.

The OAuth client must allow http://127.0.0.1 redirect URIs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), e, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", google.CallbackTimeout, "How long to wait for the consent callback")
	return cmd
}

func runLogin(ctx context.Context, e *env, timeout time.Duration) error {
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	login, err := a.Auth.StartLoopbackLogin(ctx, timeout)
	if err != nil {
		return err
	}
	defer login.Close()

	fmt.Println("🔑 Open this URL in your browser to sign in:")
	fmt.Println()
	color.Cyan("  %s", login.AuthURL)
	fmt.Println()
	fmt.Println("⏳ Waiting for Google to redirect back...")

	select {
	case res := <-login.Result:
		if res.Error != nil {
			return fmt.Errorf("login failed: %w", res.Error)
		}
		color.Green("✅ Signed in as %s", res.User.Email)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
