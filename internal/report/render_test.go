package report

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPNG(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

// seriesPixels counts pixels painted in the series color
func seriesPixels(img image.Image) int {
	want := defaultSeriesColor
	var n int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(bl>>8) == want.B {
				n++
			}
		}
	}
	return n
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()

	r, err := NewRenderer(RenderConfig{Width: 640, Height: 400})
	require.NoError(t, err)
	return r
}

func TestRenderer_Harmonics(t *testing.T) {
	r := newTestRenderer(t)
	path := filepath.Join(t.TempDir(), "Harmonic_Voltage", "Harmonic_Voltage_5.png")

	values := make([]float64, 40)
	values[0], values[2], values[4] = 325, 4.8, 6.5

	require.NoError(t, r.RenderHarmonics(path, Chart{Title: "Voltage harmonics", XLabel: "Harmonic", YLabel: "V"}, values))

	img := loadPNG(t, path)
	assert.Equal(t, image.Rect(0, 0, 640, 400), img.Bounds())
	assert.Greater(t, seriesPixels(img), 100)
}

func TestRenderer_Ratios(t *testing.T) {
	r := newTestRenderer(t)
	path := filepath.Join(t.TempDir(), "ratio.png")

	ratios := []float64{0, 30.12, 0, 12.5, math.NaN(), 6.01}
	require.NoError(t, r.RenderRatios(path, Chart{Title: "Current ratios"}, ratios))
	assert.Greater(t, seriesPixels(loadPNG(t, path)), 100)
}

func TestRenderer_Spectrum(t *testing.T) {
	r := newTestRenderer(t)
	dir := t.TempDir()

	freqs := make([]float64, 2001)
	mags := make([]float64, 2001)
	for k := range freqs {
		freqs[k] = float64(k)
		mags[k] = 1e-3
	}
	mags[50] = 325
	mags[150] = 5

	chart := Chart{Title: "Voltage FFT", XLabel: "Frequency", XUnit: "Hz", XStep: 100}
	require.NoError(t, r.RenderSpectrum(filepath.Join(dir, "linear.png"), chart, freqs, mags))

	db := make([]float64, len(mags))
	for k, m := range mags {
		db[k] = 20 * math.Log10(m)
	}
	db[0] = math.Inf(-1)
	require.NoError(t, r.RenderSpectrum(filepath.Join(dir, "db.png"), chart, freqs, db))

	assert.Greater(t, seriesPixels(loadPNG(t, filepath.Join(dir, "db.png"))), 100)

	assert.Error(t, r.RenderSpectrum(filepath.Join(dir, "bad.png"), chart, freqs[:10], mags))
}

func TestRenderer_Waveform(t *testing.T) {
	r := newTestRenderer(t)
	path := filepath.Join(t.TempDir(), "Preview", "Voltage.png")

	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 325 * math.Sin(2*math.Pi*50*float64(i)/4000)
	}

	require.NoError(t, r.RenderWaveform(path, Chart{Title: "Voltage", XUnit: "s"}, samples, 4000))
	assert.Greater(t, seriesPixels(loadPNG(t, path)), 500)

	assert.Error(t, r.RenderWaveform(path, Chart{}, samples, 0))
}

func TestRenderer_NoData(t *testing.T) {
	r := newTestRenderer(t)
	dir := t.TempDir()

	assert.ErrorIs(t, r.RenderHarmonics(filepath.Join(dir, "h.png"), Chart{}, nil), ErrNoData)
	assert.ErrorIs(t, r.RenderWaveform(filepath.Join(dir, "w.png"), Chart{}, []float64{math.NaN()}, 4000), ErrNoData)
}

func TestNewRenderer_TooSmall(t *testing.T) {
	_, err := NewRenderer(RenderConfig{Width: 150, Height: 150})
	assert.Error(t, err)
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		span   float64
		target int
		want   float64
	}{
		{span: 2000, target: 10, want: 200},
		{span: 325, target: 5, want: 100},
		{span: 1, target: 4, want: 0.5},
		{span: 0.04, target: 10, want: 0.005},
		{span: 0, target: 5, want: 1},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, niceStep(tt.span, tt.target), tt.want*1e-9)
	}
}

func TestMakeTicks(t *testing.T) {
	ticks := makeTicks(0, 2000, 100, siFormatter("Hz"))

	require.Len(t, ticks, 21)
	assert.Equal(t, "0 Hz", ticks[0].label)
	assert.Equal(t, "100 Hz", ticks[1].label)
	assert.Equal(t, "2 kHz", ticks[20].label)

	ticks = makeTicks(-0.3, 0.3, 0.1, valueFormatter(0.1))
	require.Len(t, ticks, 7)
	assert.Equal(t, "0", ticks[3].label)
	assert.Equal(t, "-0.3", ticks[0].label)
}
