package cmd

import (
	"context"

	"github.com/relloyd/visitload/actions"
	c "github.com/relloyd/visitload/constants"
	"github.com/spf13/cobra"
)

var countCfg = &actions.TableCountConfig{}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Log the number of rows in the visits table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCount(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
	switches.addFlag(countCmd, &countCfg.EnvFile, "env-file", c.DefaultEnvFile, "")
	switches.addFlag(countCmd, &countCfg.Table.SchemaTable, "table", c.DefaultTableName, "")
	switches.addFlag(countCmd, &countCfg.LogLevel, "log-level", c.DefaultLogLevel, "")
}

func runCount(ctx context.Context) error {
	countCfg.StackDumpOnPanic = stackDumpOnPanic
	return actions.RunTableCount(ctx, countCfg)
}
