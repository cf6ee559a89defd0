package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
	fromEnv   bool   // true if val was read from the environment
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"input": cliFlag{name: "input", shortHand: "i",
		desc: "Path to the CSV file of visit URLs. Use s3://<bucket>/<key> to read from AWS S3.\n" +
			"Files ending in .gz are decompressed"},
	"env-file": cliFlag{name: "env-file", shortHand: "e",
		desc: "Optional file of KEY=value lines containing the database settings"},
	"table": cliFlag{name: "table", shortHand: "t",
		desc: "The [<schema>.]<table> to replace"},
	"batch-size": cliFlag{name: "batch-size", shortHand: "b",
		desc: "Number of rows loaded in each truncate and insert transaction"},
	"max-attempts": cliFlag{name: "max-attempts", shortHand: "a",
		desc: "Number of attempts made to load each batch before giving up"},
	"retry-delay": cliFlag{name: "retry-delay", shortHand: "r",
		desc: "Time to sleep after a failed attempt, e.g. 5s"},
	"s3-region": cliFlag{name: "s3-region", shortHand: "R",
		desc: "AWS S3 bucket region (or set AWS_REGION)"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug\""},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the load plan without reading the input or changing the database"},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" for the format of the dry-run output"},
}

// addFlag adds a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in lambdaMode, the targetVar is populated using the value of the environment variable for the
// supplied name, or if not set then the supplied default value is used.
// When NOT running in lambdaMode, the environment variable becomes the flag default if it is set.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue) // get the cliFlag details, with defaults taken from the env or the supplied defaultValue
	desc := sw.desc + desc2
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if lambdaMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
		}
	case *bool:
		defaultBool := helper.GetTrueFalseStringAsBool(sw.val)
		if lambdaMode {
			*p = defaultBool
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if lambdaMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
		}
	case *time.Duration:
		defaultDuration, err := time.ParseDuration(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be a duration: %v\n", sw.name, err)
			os.Exit(1)
		}
		if lambdaMode {
			*p = defaultDuration
		} else {
			c.Flags().DurationVarP(p, sw.name, sw.shortHand, defaultDuration, desc)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Signal that the flag was set so values from the environment show as changed.
	if sw.fromEnv && !lambdaMode {
		mustSetFlag(c.Flags(), sw.name, sw.val)
	}
}

// getCliFlag fetches the value of name from the environment.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if err := helper.ReadValueFromEnv(flagNameToEnvVar(name), &s.val); err != nil || s.val == "" { // if there's no value for the env var...
		// Apply the default.
		s.val = defaultValue
		s.fromEnv = false
	} else {
		s.fromEnv = true
	}
	return s
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
