package helper

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands a leading ~ to the user's home directory and cleans the result.
// Empty input is returned unchanged.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	x, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(x), nil
}
