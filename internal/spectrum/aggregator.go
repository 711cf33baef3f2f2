package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const (
	// AveragingRecency is the default averaging method: running = (running + new) / 2
	AveragingRecency AveragingMethod = "recency"

	// AveragingCumulative keeps the arithmetic mean of all iterations
	AveragingCumulative AveragingMethod = "cumulative"
)

var validAveragingMethods = map[AveragingMethod]struct{}{
	AveragingRecency:    {},
	AveragingCumulative: {},
}

type AveragingMethod string

func (m AveragingMethod) String() string {
	return string(m)
}

func (m AveragingMethod) Validate() error {
	if _, ok := validAveragingMethods[m]; !ok {
		return fmt.Errorf("spectrum.AveragingMethod: invalid averaging method: %s", m)
	}
	return nil
}

// Running holds the averaged spectrum and harmonics of one channel.
type Running struct {
	Spectrum  []float64
	Harmonics HarmonicVector
}

// THD of the averaged harmonics
func (r *Running) THD() float64 {
	return THD(r.Harmonics)
}

// Aggregator folds per-iteration analyses of both channels into running
// averages. The first update seeds the state with copies of its inputs.
//
// With AveragingRecency after n updates the k-th iteration carries weight
// 1/2^(n-k+1) for k >= 2 and the seed carries 1/2^(n-1), the same as the
// second. For n = 3 the weights are 1/4, 1/4 and 1/2.
// It is not safe for concurrent use.
type Aggregator struct {
	method     AveragingMethod
	iterations int

	voltage Running
	current Running
}

// NewAggregator creates an empty Aggregator
func NewAggregator(method AveragingMethod) (*Aggregator, error) {
	if method == "" {
		method = AveragingRecency
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{method: method}, nil
}

// Update folds one iteration's voltage and current analyses into the running state.
func (a *Aggregator) Update(voltage, current *Analysis) error {
	if voltage == nil || current == nil {
		return fmt.Errorf("cannot aggregate nil analysis")
	}

	if a.iterations == 0 {
		a.voltage = seed(voltage)
		a.current = seed(current)
		a.iterations = 1
		return nil
	}

	if err := checkLengths(&a.voltage, voltage); err != nil {
		return fmt.Errorf("voltage: %w", err)
	}
	if err := checkLengths(&a.current, current); err != nil {
		return fmt.Errorf("current: %w", err)
	}

	a.iterations++

	a.fold(a.voltage.Spectrum, voltage.Spectrum.Magnitudes)
	a.fold(a.voltage.Harmonics, voltage.Harmonics)
	a.fold(a.current.Spectrum, current.Spectrum.Magnitudes)
	a.fold(a.current.Harmonics, current.Harmonics)

	return nil
}

// Iterations returns the number of folded iterations
func (a *Aggregator) Iterations() int {
	return a.iterations
}

// Voltage returns the running voltage state. The slices are owned by the aggregator.
func (a *Aggregator) Voltage() *Running {
	return &a.voltage
}

// Current returns the running current state. The slices are owned by the aggregator.
func (a *Aggregator) Current() *Running {
	return &a.current
}

func (a *Aggregator) fold(dst, src []float64) {
	switch a.method {
	case AveragingCumulative:
		// dst += (src - dst) / k
		k := float64(a.iterations)
		floats.Scale((k-1)/k, dst)
		floats.AddScaled(dst, 1/k, src)

	default:
		floats.Add(dst, src)
		floats.Scale(0.5, dst)
	}
}

func seed(in *Analysis) Running {
	return Running{
		Spectrum:  append([]float64(nil), in.Spectrum.Magnitudes...),
		Harmonics: append(HarmonicVector(nil), in.Harmonics...),
	}
}

func checkLengths(r *Running, in *Analysis) error {
	if len(r.Spectrum) != len(in.Spectrum.Magnitudes) {
		return fmt.Errorf("spectrum length mismatch: running %d, new %d", len(r.Spectrum), len(in.Spectrum.Magnitudes))
	}
	if len(r.Harmonics) != len(in.Harmonics) {
		return fmt.Errorf("harmonics length mismatch: running %d, new %d", len(r.Harmonics), len(in.Harmonics))
	}
	return nil
}
