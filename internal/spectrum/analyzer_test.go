package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mains synthesizes a 50 Hz signal. Harmonic amplitudes are relative to the fundamental.
func mains(sampleRate float64, samples int, amplitude float64, harmonics map[int]float64) []float64 {
	buf := make([]float64, samples)
	for n := range buf {
		t := float64(n) / sampleRate
		v := amplitude * math.Sin(2*math.Pi*DefaultFundamental*t)
		for order, rel := range harmonics {
			v += amplitude * rel * math.Sin(2*math.Pi*DefaultFundamental*float64(order)*t)
		}
		buf[n] = v
	}
	return buf
}

func TestNewAnalyzer_Validation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		samples    int
		options    []func(a *Analyzer)
		wantErr    bool
	}{
		{name: "one second at 4 kHz", sampleRate: 4000, samples: 4000},
		{name: "five minutes at 4 kHz", sampleRate: 4000, samples: 1_200_000},
		{name: "zero sample rate", sampleRate: 0, samples: 4000, wantErr: true},
		{name: "single sample", sampleRate: 4000, samples: 1, wantErr: true},
		{name: "fundamental off bin", sampleRate: 4000, samples: 4010, wantErr: true},
		{name: "40th harmonic above nyquist", sampleRate: 3000, samples: 3000, wantErr: true},
		{name: "fewer harmonics fit", sampleRate: 3000, samples: 3000, options: []func(a *Analyzer){WithHarmonics(30)}},
		{name: "unknown window", sampleRate: 4000, samples: 4000, options: []func(a *Analyzer){WithWindow("kaiser")}, wantErr: true},
		{name: "60 Hz mains", sampleRate: 4800, samples: 4800, options: []func(a *Analyzer){WithFundamental(60)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnalyzer(tt.sampleRate, tt.samples, tt.options...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.samples, a.Samples())
		})
	}
}

func TestAnalyzer_Frequencies(t *testing.T) {
	a, err := NewAnalyzer(4000, 4000)
	require.NoError(t, err)

	freqs := a.Frequencies()
	require.Len(t, freqs, 2001)
	assert.Equal(t, 0.0, freqs[0])
	assert.Equal(t, 1.0, freqs[1])
	assert.Equal(t, 2000.0, freqs[2000])
	assert.Equal(t, 50, a.Stride())
}

func TestAnalyzer_PureSinusoid(t *testing.T) {
	a, err := NewAnalyzer(4000, 4000)
	require.NoError(t, err)

	result, err := a.Analyze(mains(4000, 4000, 230*math.Sqrt2, nil))
	require.NoError(t, err)

	require.Len(t, result.Spectrum.Magnitudes, 2001)
	require.Len(t, result.Harmonics, DefaultHarmonics)

	var total float64
	for _, h := range result.Harmonics {
		total += h * h
	}
	fundamental := result.Harmonics[0] * result.Harmonics[0]
	assert.GreaterOrEqual(t, fundamental/total, 0.95)
	assert.Less(t, result.THD, 1.0)
}

func TestAnalyzer_KnownDistortion(t *testing.T) {
	a, err := NewAnalyzer(4000, 8000)
	require.NoError(t, err)

	// 10% third and 5% fifth: THD = sqrt(0.1^2 + 0.05^2) = 11.18%
	result, err := a.Analyze(mains(4000, 8000, 10, map[int]float64{3: 0.1, 5: 0.05}))
	require.NoError(t, err)

	assert.InDelta(t, 100*math.Sqrt(0.01+0.0025), result.THD, 0.05)
	assert.Greater(t, result.Harmonics[2], result.Harmonics[4])
	assert.Less(t, result.Harmonics[1], result.Harmonics[0]*1e-3)
}

func TestAnalyzer_DoesNotModifyInput(t *testing.T) {
	a, err := NewAnalyzer(4000, 4000)
	require.NoError(t, err)

	in := mains(4000, 4000, 1, nil)
	orig := append([]float64(nil), in...)

	_, err = a.Analyze(in)
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestAnalyzer_BufferLength(t *testing.T) {
	a, err := NewAnalyzer(4000, 4000)
	require.NoError(t, err)

	_, err = a.Analyze(make([]float64, 3999))
	assert.ErrorIs(t, err, ErrBufferLength)
}

func TestAnalyzer_SilenceYieldsNaN(t *testing.T) {
	a, err := NewAnalyzer(4000, 4000)
	require.NoError(t, err)

	result, err := a.Analyze(make([]float64, 4000))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(result.THD))
}

func TestTHD(t *testing.T) {
	tests := []struct {
		name string
		h    []float64
		want float64
	}{
		{name: "single nonzero entry", h: []float64{5, 0, 0, 0}, want: 0},
		{name: "fundamental not first", h: []float64{0, 0, 2, 0}, want: 0},
		{name: "three four five", h: []float64{4, 3}, want: 75},
		{name: "two equal entries", h: []float64{1, 1}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := THD(tt.h)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("all zero", func(t *testing.T) {
		assert.True(t, math.IsNaN(THD([]float64{0, 0, 0})))
	})
	t.Run("empty", func(t *testing.T) {
		assert.True(t, math.IsNaN(THD(nil)))
	})
}

func TestSpectrum_Decibels(t *testing.T) {
	s := Spectrum{Magnitudes: []float64{1, 10, 0}, Resolution: 0.5}

	db := s.Decibels()
	assert.InDelta(t, 0, db[0], 1e-12)
	assert.InDelta(t, 20, db[1], 1e-12)
	assert.True(t, math.IsInf(db[2], -1))
	assert.Equal(t, []float64{0, 0.5, 1}, s.Frequencies())
}
