//go:build !linux && !windows

package driver

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindLibrary looks up a framework or library in the system locations.
func FindLibrary(name string) (string, error) {
	for _, dir := range []string{"/Library/Frameworks/dwf.framework", "/usr/local/lib", "/opt/homebrew/lib"} {
		libPath := filepath.Join(dir, name)
		if _, err := os.Stat(libPath); err == nil {
			return libPath, nil
		}
	}

	return "", fmt.Errorf("%s not found", name)
}
