package app

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme is a predefined color scheme for cell values
type ColorTheme string

const (
	EnhancedTheme  ColorTheme = "enhanced"  // Black to blue to cyan to yellow to red
	ClassicTheme   ColorTheme = "classic"   // Blue to red
	GrayscaleTheme ColorTheme = "grayscale" // Black to white
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white

	DefaultTheme = EnhancedTheme

	DefaultColorMapSize = 256
)

var (
	noDataColor color.Color = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}

	themes = map[ColorTheme]func(float64) colorful.Color{
		EnhancedTheme:  enhanced,
		ClassicTheme:   classic,
		GrayscaleTheme: grayscale,
		JungleTheme:    jungle,
		ThermalTheme:   thermal,
		MarineTheme:    marine,
	}
)

func (t ColorTheme) Validate() error {
	if _, ok := themes[t]; !ok {
		return fmt.Errorf("invalid color theme: %s", t)
	}
	return nil
}

// Bounds is the value range mapped onto the color scale
type Bounds struct {
	Min float64
	Max float64
}

// ColorMapper maps cell values to colors through a pre-computed table
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) colorful.Color
	size          int
	valuePerIndex float64
	boundsMin     float64
}

func NewColorMapper(theme ColorTheme, bounds Bounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

func NewColorMapperWithSize(theme ColorTheme, bounds Bounds, size int) *ColorMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}

	fn, ok := themes[theme]
	if !ok {
		fn = themes[DefaultTheme]
	}

	cm := &ColorMapper{
		colorMap: make([]color.Color, size),
		theme:    fn,
		size:     size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds sets the value range and rebuilds the color table
func (cm *ColorMapper) UpdateBounds(bounds Bounds) {
	cm.boundsMin = bounds.Min
	cm.valuePerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1)).Clamped()
	}
}

// Color returns the color of a value. Nil maps to the no-data color, values
// outside the bounds are clamped.
func (cm *ColorMapper) Color(value *float64) color.Color {
	if value == nil {
		return noDataColor
	}
	if cm.valuePerIndex <= 0 {
		return cm.colorMap[0]
	}

	index := int(math.Round((*value - cm.boundsMin) / cm.valuePerIndex))
	switch {
	case index < 0:
		return cm.colorMap[0]
	case index >= cm.size:
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

func (cm *ColorMapper) Size() int {
	return cm.size
}

func enhanced(v float64) colorful.Color {
	v = clamp01(v)
	e := math.Pow(v, 0.7)

	switch {
	case v < 0.25:
		return colorful.Hsv(240, 1, math.Min(1, e*4))
	case v < 0.5:
		return colorful.Hsv(240-(v-0.25)*240, 1, math.Min(1, e*1.5))
	case v < 0.75:
		return colorful.Hsv(180-(v-0.5)*4*120, 1, math.Min(1, e*1.5))
	default:
		return colorful.Hsv(60-(v-0.75)*4*60, 1, 1)
	}
}

func classic(v float64) colorful.Color {
	v = clamp01(v)
	return colorful.Hsv(240-v*240, 0.9+v*0.1, math.Pow(v, 0.7))
}

func grayscale(v float64) colorful.Color {
	g := math.Pow(clamp01(v), 0.7)
	return colorful.Color{R: g, G: g, B: g}
}

func jungle(v float64) colorful.Color {
	v = clamp01(v)
	return colorful.Hsv(120-v*60, 1, 0.3+math.Pow(v, 0.6)*0.7)
}

var (
	thermalStops = []colorful.Color{
		{R: 0, G: 0, B: 0},
		{R: 1, G: 0, B: 0},
		{R: 1, G: 1, B: 0},
		{R: 1, G: 1, B: 1},
	}
)

// thermal blends linearly between its stops
func thermal(v float64) colorful.Color {
	v = clamp01(v)
	segments := float64(len(thermalStops) - 1)

	i := int(v * segments)
	if i >= len(thermalStops)-1 {
		return thermalStops[len(thermalStops)-1]
	}
	return thermalStops[i].BlendRgb(thermalStops[i+1], v*segments-float64(i))
}

func marine(v float64) colorful.Color {
	v = clamp01(v)
	return colorful.Hsv(240-v*60, 1-v*0.8, 0.3+math.Pow(v, 0.6)*0.7)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
