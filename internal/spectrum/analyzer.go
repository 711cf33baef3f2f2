package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultFundamental is the mains frequency in Hz
	DefaultFundamental = 50.0

	// DefaultHarmonics is the number of harmonics extracted, fundamental included
	DefaultHarmonics = 40
)

// ErrBufferLength is returned when a buffer does not match the configured sample count
var ErrBufferLength = errors.New("unexpected buffer length")

// WithWindow sets the window function applied before the transform
func WithWindow(w WindowFunction) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.windowFunction = w
	}
}

// WithFundamental sets the fundamental frequency in Hz
func WithFundamental(hz float64) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.fundamental = hz
	}
}

// WithHarmonics sets the number of harmonics to extract
func WithHarmonics(count int) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.harmonics = count
	}
}

// Analyzer turns a time-domain channel buffer into a one-sided magnitude
// spectrum, a harmonic vector and a THD figure. The window is computed once
// and reused for every buffer of the configured length.
type Analyzer struct {
	sampleRate float64
	samples    int

	windowFunction WindowFunction
	fundamental    float64
	harmonics      int

	window []float64
	stride int
}

// NewAnalyzer creates an Analyzer for buffers of the given length sampled at sampleRate Hz.
func NewAnalyzer(sampleRate float64, samples int, options ...func(a *Analyzer)) (*Analyzer, error) {
	a := Analyzer{
		sampleRate:     sampleRate,
		samples:        samples,
		windowFunction: WindowBlackman,
		fundamental:    DefaultFundamental,
		harmonics:      DefaultHarmonics,
	}

	for _, option := range options {
		option(&a)
	}

	if a.sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum.Analyzer: sample rate must be positive: %f", a.sampleRate)
	}
	if a.samples < 2 {
		return nil, fmt.Errorf("spectrum.Analyzer: at least 2 samples required: %d given", a.samples)
	}
	if a.fundamental <= 0 {
		return nil, fmt.Errorf("spectrum.Analyzer: fundamental must be positive: %f", a.fundamental)
	}
	if a.harmonics <= 0 {
		return nil, fmt.Errorf("spectrum.Analyzer: harmonics count must be positive: %d", a.harmonics)
	}

	// bin index of the fundamental: fundamental / (sampleRate / samples)
	stride := a.fundamental * float64(a.samples) / a.sampleRate
	if stride < 1 || stride != math.Trunc(stride) {
		return nil, fmt.Errorf("spectrum.Analyzer: fundamental %.2f Hz does not fall on a bin of %.4f Hz resolution", a.fundamental, a.Resolution())
	}
	a.stride = int(stride)

	if a.stride*a.harmonics > a.samples/2 {
		return nil, fmt.Errorf("spectrum.Analyzer: harmonic %d (%.0f Hz) is above Nyquist (%.0f Hz)",
			a.harmonics, a.fundamental*float64(a.harmonics), a.sampleRate/2)
	}

	window, err := a.windowFunction.Coefficients(a.samples)
	if err != nil {
		return nil, fmt.Errorf("spectrum.Analyzer: %w", err)
	}
	a.window = window

	return &a, nil
}

// Samples returns the buffer length the analyzer accepts
func (a *Analyzer) Samples() int {
	return a.samples
}

// Resolution returns the spectrum bin width in Hz
func (a *Analyzer) Resolution() float64 {
	return a.sampleRate / float64(a.samples)
}

// Stride returns the bin distance between consecutive harmonics
func (a *Analyzer) Stride() int {
	return a.stride
}

// Frequencies returns the one-sided frequency axis for the configured length
func (a *Analyzer) Frequencies() []float64 {
	freqs := make([]float64, a.samples/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * a.Resolution()
	}
	return freqs
}

// Analyze windows the buffer, computes the one-sided magnitude spectrum
// normalized by N/2 and extracts the harmonics. The input is not modified.
func (a *Analyzer) Analyze(samples []float64) (*Analysis, error) {
	if len(samples) != a.samples {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBufferLength, len(samples), a.samples)
	}

	buf := make([]float64, a.samples)
	copy(buf, samples)
	floats.Mul(buf, a.window)

	coefficients := fft.FFTReal(buf)

	scale := float64(a.samples) / 2
	magnitudes := make([]float64, a.samples/2+1)
	for k := range magnitudes {
		magnitudes[k] = cmplx.Abs(coefficients[k]) / scale
	}

	harmonics := a.Harmonics(magnitudes)

	return &Analysis{
		Spectrum: Spectrum{
			Magnitudes: magnitudes,
			Resolution: a.Resolution(),
		},
		Harmonics: harmonics,
		THD:       THD(harmonics),
	}, nil
}

// Harmonics samples the spectrum at every multiple of the fundamental bin,
// starting with the fundamental itself.
func (a *Analyzer) Harmonics(magnitudes []float64) HarmonicVector {
	h := make(HarmonicVector, 0, a.harmonics)
	for k := a.stride; k < len(magnitudes) && len(h) < a.harmonics; k += a.stride {
		h = append(h, magnitudes[k])
	}
	return h
}

// THD returns the total harmonic distortion in percent:
//
//	100 * sqrt(sum(h^2) - max(h)^2) / max(h)
//
// The largest entry is treated as the fundamental. An empty or all-zero
// vector yields NaN.
func THD(h []float64) float64 {
	if len(h) == 0 {
		return math.NaN()
	}

	peak := floats.Max(h)
	rest := floats.Dot(h, h) - peak*peak
	if rest < 0 {
		rest = 0 // rounding
	}

	return 100 * math.Sqrt(rest) / peak
}
