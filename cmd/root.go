package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2026-10-17T00:00+0000"
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use:   "visitload",
	Short: "Load advertising attribution from visit URLs into Postgres",
	Long: `visitload reads a CSV file of visit-tracking URLs, extracts the advertising attribution
query parameters from each URL and replaces the contents of the customer_visits table with them.
Database settings are read from POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD, DB_HOST and DB_PORT,
optionally via a .env file. Set VISITS_DSN to use a different database URL.`,
	SilenceUsage: true, // avoid dumping command help when the database is unavailable.
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if lambdaMode { // if we should handle lambda execution...
		lambda.Start(func(ctx context.Context) error { return executeLambdaMode(ctx, lambdaCommands) })
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Execute() prints the error.
		stop()
		os.Exit(1)
	}
}
