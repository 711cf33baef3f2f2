//go:build linux

package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindLibrary looks up a shared library in LD_LIBRARY_PATH and the usual
// system locations and returns its full path.
func FindLibrary(name string) (string, error) {
	var lookup []string

	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		lookup = append(lookup, filepath.SplitList(ldPath)...)
	}

	lookup = append(lookup,
		"/usr/lib",
		"/usr/local/lib",
		"/usr/lib64",
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib/aarch64-linux-gnu",
	)

	for _, dir := range lookup {
		if strings.TrimSpace(dir) == "" {
			continue
		}

		libPath := filepath.Join(dir, name)
		if _, err := os.Stat(libPath); err != nil {
			continue // continue to next directory
		}

		return libPath, nil
	}

	return "", fmt.Errorf("%s not found in: %s", name, strings.Join(lookup, ", "))
}
