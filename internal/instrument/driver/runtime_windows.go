//go:build windows

package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindLibrary looks up a DLL next to the executable, in the working
// directory and in the system directory, and returns its full path.
func FindLibrary(name string) (string, error) {
	lookup := []string{}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	lookup = append(lookup, filepath.Dir(exePath))

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	lookup = append(lookup, wd)

	if root := os.Getenv("SystemRoot"); root != "" {
		lookup = append(lookup, filepath.Join(root, "System32"))
	}

	for _, dir := range lookup {
		libPath := filepath.Join(dir, name)
		if _, err = os.Stat(libPath); err != nil {
			continue // continue to next directory
		}

		return libPath, nil
	}

	return "", fmt.Errorf("%s not found in: %s", name, strings.Join(lookup, ", "))
}
