package spectrum

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
)

const (
	// WindowBlackman is the default window function
	WindowBlackman    WindowFunction = "blackman"
	WindowHann        WindowFunction = "hann"
	WindowHamming     WindowFunction = "hamming"
	WindowFlatTop     WindowFunction = "flattop"
	WindowBartlett    WindowFunction = "bartlett"
	WindowRectangular WindowFunction = "rectangular"
)

var windowFunctions = map[WindowFunction]func(int) []float64{
	WindowBlackman:    window.Blackman,
	WindowHann:        window.Hann,
	WindowHamming:     window.Hamming,
	WindowFlatTop:     window.FlatTop,
	WindowBartlett:    window.Bartlett,
	WindowRectangular: window.Rectangular,
}

type WindowFunction string

func (w WindowFunction) String() string {
	return string(w)
}

func (w WindowFunction) Validate() error {
	if _, ok := windowFunctions[w]; !ok {
		return fmt.Errorf("spectrum.WindowFunction: invalid window function: %s", w)
	}
	return nil
}

// Coefficients returns the symmetric window of length n.
func (w WindowFunction) Coefficients(n int) ([]float64, error) {
	fn, ok := windowFunctions[w]
	if !ok {
		return nil, fmt.Errorf("spectrum.WindowFunction: invalid window function: %s", w)
	}
	return fn(n), nil
}
