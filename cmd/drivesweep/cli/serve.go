package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pysugar/drivesweep/internal/version"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API that backs the web frontend.

Examples:
  drivesweep serve
  DRIVESWEEP_HTTP_PORT=8080 drivesweep serve --config ./drivesweep.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), e)
		},
	}
	return cmd
}

func runServe(ctx context.Context, e *env) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := e.cfg.HTTP.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	displayURL := addr
	if strings.HasPrefix(addr, "0.0.0.0:") {
		displayURL = "<your-ip>" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	log.Info().Msgf("🚀 %s", version.String())
	log.Info().Msgf("🌐 Listening on http://%s", displayURL)
	if e.cfg.Google.ClientID == "" {
		log.Warn().Msg("⚠️  google.client_id is empty; sign-in will fail")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
