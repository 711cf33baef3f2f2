package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisOf(values ...float64) *Analysis {
	return &Analysis{
		Spectrum:  Spectrum{Magnitudes: append([]float64(nil), values...)},
		Harmonics: append(HarmonicVector(nil), values...),
	}
}

func TestAggregator_Recency(t *testing.T) {
	agg, err := NewAggregator(AveragingRecency)
	require.NoError(t, err)

	a, b, c := 2.0, 4.0, 10.0
	for _, v := range []float64{a, b, c} {
		require.NoError(t, agg.Update(analysisOf(v, v*2), analysisOf(v/2)))
	}

	want := ((a+b)/2 + c) / 2
	assert.Equal(t, 3, agg.Iterations())
	assert.InDelta(t, want, agg.Voltage().Spectrum[0], 1e-12)
	assert.InDelta(t, want*2, agg.Voltage().Harmonics[1], 1e-12)
	assert.InDelta(t, want/2, agg.Current().Harmonics[0], 1e-12)
}

func TestAggregator_RecencyWeights(t *testing.T) {
	agg, err := NewAggregator(AveragingRecency)
	require.NoError(t, err)

	// one-hot inputs expose the weight of every iteration
	inputs := [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	for _, in := range inputs {
		require.NoError(t, agg.Update(analysisOf(in...), analysisOf(in...)))
	}

	assert.Equal(t, []float64{0.125, 0.125, 0.25, 0.5}, agg.Voltage().Spectrum)
}

func TestAggregator_Cumulative(t *testing.T) {
	agg, err := NewAggregator(AveragingCumulative)
	require.NoError(t, err)

	for _, v := range []float64{2, 4, 10} {
		require.NoError(t, agg.Update(analysisOf(v), analysisOf(v)))
	}

	assert.InDelta(t, 16.0/3, agg.Voltage().Spectrum[0], 1e-12)
	assert.InDelta(t, 16.0/3, agg.Current().Harmonics[0], 1e-12)
}

func TestAggregator_SeedCopiesInput(t *testing.T) {
	agg, err := NewAggregator("")
	require.NoError(t, err)

	v := analysisOf(1, 2, 3)
	require.NoError(t, agg.Update(v, analysisOf(1, 2, 3)))

	v.Spectrum.Magnitudes[0] = 100
	v.Harmonics[0] = 100

	assert.Equal(t, []float64{1, 2, 3}, agg.Voltage().Spectrum)
	assert.Equal(t, HarmonicVector{1, 2, 3}, agg.Voltage().Harmonics)
}

func TestAggregator_Errors(t *testing.T) {
	_, err := NewAggregator("ewma")
	assert.Error(t, err)

	agg, err := NewAggregator(AveragingRecency)
	require.NoError(t, err)

	assert.Error(t, agg.Update(nil, analysisOf(1)))
	require.NoError(t, agg.Update(analysisOf(1, 2), analysisOf(1, 2)))
	assert.Error(t, agg.Update(analysisOf(1), analysisOf(1, 2)))
	assert.Error(t, agg.Update(analysisOf(1, 2), analysisOf(1, 2, 3)))
	assert.Equal(t, 1, agg.Iterations())
}

func TestRunning_THD(t *testing.T) {
	r := Running{Harmonics: HarmonicVector{4, 3}}
	assert.InDelta(t, 75, r.THD(), 1e-9)
}
