package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/dustin/go-humanize"
)

const maxTicks = 200

type tick struct {
	value float64
	label string
}

// niceStep returns a 1, 2 or 5 times power of ten step giving roughly target intervals
func niceStep(span float64, target int) float64 {
	if !(span > 0) || target <= 0 {
		return 1
	}

	raw := span / float64(target)
	magnitude := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5} {
		if m*magnitude >= raw {
			return m * magnitude
		}
	}
	return 10 * magnitude
}

// makeTicks places ticks at every multiple of step within [min, max]
func makeTicks(min, max, step float64, format func(float64) string) []tick {
	if !(step > 0) {
		return nil
	}

	var ticks []tick
	start := math.Ceil(min/step-1e-9) * step
	for i := 0; i < maxTicks; i++ {
		v := start + float64(i)*step
		if v > max+step*1e-9 {
			break
		}
		if math.Abs(v) < step*1e-9 {
			v = 0 // avoid "-0"
		}
		ticks = append(ticks, tick{value: v, label: format(v)})
	}
	return ticks
}

// valueFormatter formats plain numbers with just enough decimals for the step
func valueFormatter(step float64) func(float64) string {
	digits := 0
	if step > 0 && step < 1 {
		digits = int(math.Ceil(-math.Log10(step)))
	}
	return func(v float64) string {
		return humanize.FtoaWithDigits(v, digits)
	}
}

// siFormatter formats values with an SI prefix, e.g. "1.5 kHz" or "20 ms"
func siFormatter(unit string) func(float64) string {
	return func(v float64) string {
		if v == 0 {
			return "0 " + unit
		}
		return humanize.SIWithDigits(v, 2, unit)
	}
}

func (c *canvas) xTicks(chart Chart) []tick {
	step := chart.XStep
	if step <= 0 {
		step = niceStep(c.xMax-c.xMin, c.area.Dx()/100)
	}

	format := valueFormatter(step)
	if chart.XUnit != "" {
		format = siFormatter(chart.XUnit)
	}
	return makeTicks(c.xMin, c.xMax, step, format)
}

func (c *canvas) yTicks() []tick {
	step := niceStep(c.yMax-c.yMin, c.area.Dy()/60)
	return makeTicks(c.yMin, c.yMax, step, valueFormatter(step))
}

// drawAxes draws the grid, the frame, tick labels, the title and the axis labels
func (c *canvas) drawAxes(chart Chart, xTicks, yTicks []tick) error {
	frame := color.Black
	textHeight := c.textHeight()

	for _, t := range yTicks {
		y := c.py(t.value)
		c.line(c.area.Min.X, y, c.area.Max.X-1, y, c.config.GridColor)
		c.line(c.area.Min.X-tickMarkLength, y, c.area.Min.X, y, frame)

		if err := c.textRight(t.label, c.area.Min.X-tickMarkLength-3, y+textHeight/2-2); err != nil {
			return fmt.Errorf("drawing y label: %w", err)
		}
	}

	// skip x labels that would overlap their neighbours
	every := 1
	if len(xTicks) > 1 {
		var widest int
		for _, t := range xTicks {
			widest = max(widest, c.textWidth(t.label))
		}
		spacing := abs(c.px(xTicks[1].value) - c.px(xTicks[0].value))
		if spacing > 0 {
			every = max(1, (widest+8+spacing-1)/spacing)
		}
	}

	for i, t := range xTicks {
		x := c.px(t.value)
		c.line(x, c.area.Max.Y, x, c.area.Max.Y+tickMarkLength, frame)

		if i%every != 0 {
			continue
		}
		if err := c.textCentered(t.label, x, c.area.Max.Y+tickMarkLength+textHeight+2); err != nil {
			return fmt.Errorf("drawing x label: %w", err)
		}
	}

	// frame
	c.line(c.area.Min.X, c.area.Min.Y, c.area.Max.X-1, c.area.Min.Y, frame)
	c.line(c.area.Min.X, c.area.Max.Y-1, c.area.Max.X-1, c.area.Max.Y-1, frame)
	c.line(c.area.Min.X, c.area.Min.Y, c.area.Min.X, c.area.Max.Y-1, frame)
	c.line(c.area.Max.X-1, c.area.Min.Y, c.area.Max.X-1, c.area.Max.Y-1, frame)

	if chart.Title != "" {
		if err := c.textCentered(chart.Title, c.area.Min.X+c.area.Dx()/2, c.area.Min.Y/2+textHeight/2); err != nil {
			return fmt.Errorf("drawing title: %w", err)
		}
	}
	if chart.XLabel != "" {
		if err := c.textCentered(chart.XLabel, c.area.Min.X+c.area.Dx()/2, c.img.Bounds().Max.Y-8); err != nil {
			return fmt.Errorf("drawing x axis label: %w", err)
		}
	}
	if chart.YLabel != "" {
		if err := c.textLeft(chart.YLabel, 5, c.area.Min.Y-8); err != nil {
			return fmt.Errorf("drawing y axis label: %w", err)
		}
	}

	return nil
}
