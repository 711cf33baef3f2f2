package report

import (
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	barFill        = 0.7  // share of a slot covered by its bar
	harmonicsRoom  = 1.05 // headroom above the tallest harmonic bar
	ratioRoom      = 1.15 // headroom above the tallest ratio bar, leaves space for values
	lineRoom       = 0.05 // vertical padding of line charts, share of the value range
	ratioFirstStep = 2    // ratios start at the second harmonic
)

// ErrNoData is returned when a chart has nothing to plot
var ErrNoData = errors.New("no data to plot")

// RenderHarmonics draws a bar chart of harmonic magnitudes, orders 1..len(values)
func (r *Renderer) RenderHarmonics(path string, chart Chart, values []float64) error {
	img, err := r.bars(chart, values, 1, harmonicsRoom, false)
	if err != nil {
		return fmt.Errorf("rendering harmonics: %w", err)
	}
	return savePNG(path, img)
}

// RenderRatios draws harmonic ratios (percent of fundamental) for orders
// 2..len(ratios)+1, each bar annotated with its value.
func (r *Renderer) RenderRatios(path string, chart Chart, ratios []float64) error {
	img, err := r.bars(chart, ratios, ratioFirstStep, ratioRoom, true)
	if err != nil {
		return fmt.Errorf("rendering ratios: %w", err)
	}
	return savePNG(path, img)
}

// RenderSpectrum draws values over frequency as a line
func (r *Renderer) RenderSpectrum(path string, chart Chart, freqs, values []float64) error {
	if len(freqs) != len(values) {
		return fmt.Errorf("rendering spectrum: %d frequencies for %d values", len(freqs), len(values))
	}
	img, err := r.lines(chart, freqs, values)
	if err != nil {
		return fmt.Errorf("rendering spectrum: %w", err)
	}
	return savePNG(path, img)
}

// RenderWaveform draws samples over time
func (r *Renderer) RenderWaveform(path string, chart Chart, samples []float64, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("rendering waveform: invalid sample rate: %f", sampleRate)
	}

	times := make([]float64, len(samples))
	for i := range times {
		times[i] = float64(i) / sampleRate
	}

	img, err := r.lines(chart, times, samples)
	if err != nil {
		return fmt.Errorf("rendering waveform: %w", err)
	}
	return savePNG(path, img)
}

func (r *Renderer) bars(chart Chart, values []float64, firstOrder int, headroom float64, annotate bool) (*image.RGBA, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}

	peak := 0.0
	for _, v := range values {
		if isFinite(v) && v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	xMin := float64(firstOrder) - 0.5
	xMax := float64(firstOrder+len(values)) - 0.5

	c := r.newCanvas(xMin, xMax, 0, peak*headroom)
	defer c.Close()

	if chart.XStep == 0 {
		chart.XStep = 1
	}
	if err := c.drawAxes(chart, c.xTicks(chart), c.yTicks()); err != nil {
		return nil, err
	}

	slot := float64(c.area.Dx()) / float64(len(values))
	half := int(math.Max(1, slot*barFill/2))
	base := c.py(0)

	for i, v := range values {
		if !isFinite(v) || v <= 0 {
			continue
		}

		x := c.px(float64(firstOrder + i))
		top := c.py(v)
		c.fill(image.Rect(x-half, top, x+half+1, base+1), r.config.SeriesColor)

		if annotate {
			if err := c.textCentered(fmt.Sprintf("%.2f", v), x, top-3); err != nil {
				return nil, fmt.Errorf("drawing bar value: %w", err)
			}
		}
	}

	return c.img, nil
}

// column aggregates the points falling into one pixel column
type column struct {
	valid       bool
	first, last int
	lo, hi      int
}

func (r *Renderer) lines(chart Chart, xs, ys []float64) (*image.RGBA, error) {
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		xMin, xMax = math.Min(xMin, xs[i]), math.Max(xMax, xs[i])
		yMin, yMax = math.Min(yMin, ys[i]), math.Max(yMax, ys[i])
	}
	if math.IsInf(xMin, 1) {
		return nil, ErrNoData
	}

	pad := (yMax - yMin) * lineRoom
	if pad == 0 {
		pad = 1
	}

	c := r.newCanvas(xMin, xMax, yMin-pad, yMax+pad)
	defer c.Close()

	if err := c.drawAxes(chart, c.xTicks(chart), c.yTicks()); err != nil {
		return nil, err
	}

	// one column per pixel keeps dense series cheap to draw
	columns := make([]column, c.area.Dx())
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}

		ci := c.px(xs[i]) - c.area.Min.X
		if ci < 0 || ci >= len(columns) {
			continue
		}

		y := c.py(ys[i])
		col := &columns[ci]
		if !col.valid {
			*col = column{valid: true, first: y, last: y, lo: y, hi: y}
			continue
		}
		col.last = y
		col.lo = min(col.lo, y)
		col.hi = max(col.hi, y)
	}

	prev := -1
	for ci, col := range columns {
		if !col.valid {
			continue
		}

		x := c.area.Min.X + ci
		c.line(x, col.lo, x, col.hi, r.config.SeriesColor)
		if prev >= 0 {
			c.line(c.area.Min.X+prev, columns[prev].last, x, col.first, r.config.SeriesColor)
		}
		prev = ci
	}

	return c.img, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
