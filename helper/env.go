package helper

import (
	"fmt"
	"os"
	"strings"
)

// ReadValueFromEnv will read the env var and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	} else { // else there was no environment variable set...
		return fmt.Errorf("value for environment variable %v not found", name)
	}
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// GetTrueFalseStringAsBool returns true if s, with spaces trimmed, is "true" in any case.
func GetTrueFalseStringAsBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
