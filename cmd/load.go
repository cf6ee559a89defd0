package cmd

import (
	"context"
	"io"
	"os"

	"github.com/relloyd/visitload/actions"
	c "github.com/relloyd/visitload/constants"
	"github.com/spf13/cobra"
)

var loadCfg = actions.NewLoadVisitsConfig()

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the visits table with the attribution parsed from a CSV of URLs",
	Long: `Read the "url" column of the input CSV file, extract the a_bucket, a_type, a_source, a_v,
a_g_campaignid, a_g_keyword, a_g_adgroupid and a_g_creative query parameters from each URL
and load them into the target table in batches.
Each batch truncates the table and inserts its rows in a single transaction that is retried
after transient database errors.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadTo(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	switches.addFlag(loadCmd, &loadCfg.InputPath, "input", c.DefaultInputPath, "")
	switches.addFlag(loadCmd, &loadCfg.EnvFile, "env-file", c.DefaultEnvFile, "")
	switches.addFlag(loadCmd, &loadCfg.Table.SchemaTable, "table", c.DefaultTableName, "")
	switches.addFlag(loadCmd, &loadCfg.BatchSize, "batch-size", "1000", "")
	switches.addFlag(loadCmd, &loadCfg.MaxAttempts, "max-attempts", "5", "")
	switches.addFlag(loadCmd, &loadCfg.RetryDelay, "retry-delay", "5s", "")
	switches.addFlag(loadCmd, &loadCfg.S3Region, "s3-region", "", "")
	switches.addFlag(loadCmd, &loadCfg.LogLevel, "log-level", c.DefaultLogLevel, "")
	switches.addFlag(loadCmd, &loadCfg.DryRun, "dry-run", "false", "")
	switches.addFlag(loadCmd, &loadCfg.OutputFormat, "output", "yaml", "")
}

func runLoad(ctx context.Context) error {
	return runLoadTo(ctx, os.Stdout)
}

func runLoadTo(ctx context.Context, out io.Writer) error {
	loadCfg.StackDumpOnPanic = stackDumpOnPanic
	if loadCfg.S3Region == "" {
		loadCfg.S3Region = os.Getenv(c.EnvVarAwsRegion)
	}
	return actions.RunLoadVisits(ctx, loadCfg, out)
}
