package app

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

const (
	lowerQuantile = 0.05
	upperQuantile = 0.95
)

// HarmonicMatrix holds one row per iteration and one column per harmonic
// order starting with the 2nd. Missing or non-finite cells are nil.
type HarmonicMatrix struct {
	Channel        Channel
	Scale          Scale
	FirstOrder     int
	Iterations     []int
	TimestampStart time.Time
	TimestampEnd   time.Time
	Rows           [][]*float64
}

func NewHarmonicMatrix(channel Channel, scale Scale) *HarmonicMatrix {
	return &HarmonicMatrix{
		Channel:    channel,
		Scale:      scale,
		FirstOrder: 2,
	}
}

func (m *HarmonicMatrix) Width() int {
	width := 0
	for _, row := range m.Rows {
		width = max(width, len(row))
	}
	return width
}

func (m *HarmonicMatrix) Height() int {
	return len(m.Rows)
}

// Update appends the harmonics of one stored iteration
func (m *HarmonicMatrix) Update(record *spectrum.IterationRecord) {
	h := record.CurrentHarmonics
	if m.Channel == ChannelVoltage {
		h = record.VoltageHarmonics
	}

	if m.TimestampStart.IsZero() || m.TimestampStart.After(record.Timestamp) {
		m.TimestampStart = record.Timestamp
	}
	if m.TimestampEnd.IsZero() || m.TimestampEnd.Before(record.Timestamp) {
		m.TimestampEnd = record.Timestamp
	}

	m.Iterations = append(m.Iterations, record.Iteration)
	m.Rows = append(m.Rows, m.cells(h))
}

func (m *HarmonicMatrix) cells(h spectrum.HarmonicVector) []*float64 {
	if len(h) < 2 {
		return nil
	}

	var values []float64
	switch m.Scale {
	case ScaleDecibel:
		values = make([]float64, len(h)-1)
		for i := 1; i < len(h); i++ {
			values[i-1] = 20 * math.Log10(h[i]/h[0])
		}
	default:
		values = spectrum.Ratios(h, 0)
	}

	row := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		row[i] = &values[i]
	}
	return row
}

// Bounds returns the 5th and 95th percentile of all cell values, which keeps
// a few dominant orders from flattening the rest of the color scale.
func (m *HarmonicMatrix) Bounds() Bounds {
	var values []float64
	for _, row := range m.Rows {
		for _, v := range row {
			if v != nil {
				values = append(values, *v)
			}
		}
	}

	if len(values) == 0 {
		return Bounds{Min: 0, Max: 1}
	}

	slices.Sort(values)
	b := Bounds{
		Min: stat.Quantile(lowerQuantile, stat.Empirical, values, nil),
		Max: stat.Quantile(upperQuantile, stat.Empirical, values, nil),
	}
	if b.Max <= b.Min {
		b.Max = b.Min + 1
	}
	return b
}
