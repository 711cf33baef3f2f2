//go:build !dwf || !cgo

package dwf

import (
	"fmt"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/instrument/driver"
)

// Opener is unavailable in builds without the dwf tag
type Opener struct{}

// New reports that the binary was built without WaveForms support. The
// message tells whether the runtime library is installed on this host.
func New(config *Config) (*Opener, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, driver.NewConfigError(err.Error())
	}

	libPath, err := driver.FindLibrary(config.Library)
	if err != nil {
		return nil, fmt.Errorf("dwf: built without WaveForms support and runtime is not installed: %w", err)
	}

	return nil, fmt.Errorf("dwf: built without WaveForms support, runtime found at %s: rebuild with -tags dwf", libPath)
}

func (o *Opener) Device() string {
	return Device
}

func (o *Opener) Open(index int) (instrument.Session, error) {
	return nil, driver.NewOpenError(index, "built without WaveForms support")
}

func (o *Opener) Version() (string, error) {
	return "", fmt.Errorf("built without WaveForms support")
}
