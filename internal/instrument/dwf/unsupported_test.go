//go:build !dwf || !cgo

package dwf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Unsupported(t *testing.T) {
	config := DefaultConfig()
	config.Library = "definitely-not-installed.so"

	opener, err := New(config)
	assert.Nil(t, opener)
	assert.ErrorContains(t, err, "built without WaveForms support")
}
