package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pysugar/drivesweep/internal/app"
	"github.com/pysugar/drivesweep/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env carries the configuration resolved by the root command to its subcommands.
type env struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
}

// openApp wires the application for one command run.
func (e *env) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, e.cfg)
}

func NewRootCommand() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "drivesweep",
		Short: "Google Drive storage cleanup assistant",
		Long: `drivesweep scans a Google Drive, classifies files as owned, shared, unused or large,
and bulk-deletes, trashes or unshares them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&e.configFile, "config", "", "Config file (default: ./drivesweep.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("db", "", "Override database DSN")

	rootCmd.AddCommand(NewServeCommand(e))
	rootCmd.AddCommand(NewLoginCommand(e))
	rootCmd.AddCommand(NewScanCommand(e))
	rootCmd.AddCommand(NewStatsCommand(e))
	rootCmd.AddCommand(NewUnusedCommand(e))
	rootCmd.AddCommand(NewSharedCommand(e))
	rootCmd.AddCommand(NewLargeCommand(e))
	rootCmd.AddCommand(NewBulkCommand(e))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

func (e *env) load(cmd *cobra.Command) error {
	e.v = config.New(e.configFile)
	flags := cmd.Root().PersistentFlags()
	if err := e.v.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return err
	}
	if flags.Changed("db") {
		dsn, _ := flags.GetString("db")
		e.v.Set("database.dsn", dsn)
	}

	cfg, err := config.Load(e.v)
	if err != nil {
		return err
	}
	e.cfg = cfg

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return nil
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
