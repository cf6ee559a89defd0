package cmd

import (
	"context"
	"os"

	"github.com/pkg/errors"
	c "github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of lambdaMode is set before the init() functions that configure Cobra
// read flag values from the environment.
func init() {
	setupLambdaMode()
}

const envVarCommand = c.EnvVarPrefix + "_COMMAND" // load|count; defaults to load.

var (
	lambdaMode     bool // true if os env var c.EnvVarLambdaMode is set.
	lambdaCommands = map[string]func(ctx context.Context) error{
		"load":  runLoad,
		"count": runCount,
	}
)

// setupLambdaMode will enable or disable lambda mode based on environment variable.
func setupLambdaMode() {
	lambdaMode = os.Getenv(c.EnvVarLambdaMode) != ""
}

// executeLambdaMode runs the command named by envVarCommand using flag values read from the environment.
func executeLambdaMode(ctx context.Context, cmds map[string]func(ctx context.Context) error) error {
	logLevel := helper.ReadValueFromEnvWithDefault(c.EnvVarLogLevel, c.DefaultLogLevel)
	stackDumpOnPanic = helper.GetTrueFalseStringAsBool(os.Getenv(c.EnvVarStackDump))
	log := logger.NewLogger(c.ServiceName, logLevel, stackDumpOnPanic)
	command := helper.ReadValueFromEnvWithDefault(envVarCommand, "load")
	log.Info("visitload is running in lambda mode with command ", command)
	fn, ok := cmds[command]
	if !ok {
		err := errors.Errorf("invalid command %q in %v", command, envVarCommand)
		log.Error(err.Error())
		return err
	}
	err := fn(ctx)
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}
