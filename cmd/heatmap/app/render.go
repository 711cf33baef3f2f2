package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 8.0
	tickMarkLength = 5
	labelSpacing   = 8 // minimum gap between labels, pixels
	legendWidth    = 12

	defaultTopBorder    = 30
	defaultLeftBorder   = 60
	defaultBottomBorder = 40
	defaultRightBorder  = 70

	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the cell grid
type BorderConfig struct {
	Top    int // harmonic order scale
	Left   int // iteration scale
	Bottom int // information bar
	Right  int // color legend
}

type RenderConfig struct {
	CellWidth      int
	CellHeight     int
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	ColorTheme     ColorTheme
	Bounds         *Bounds // nil uses the matrix percentiles
	NoAnnotations  bool
	BorderConfig   BorderConfig
	Caption        string // campaign description for the info bar
}

// HeatmapRenderer draws the harmonic matrix as a grid of colored cells
type HeatmapRenderer struct {
	config RenderConfig
}

func NewHeatmapRenderer(config RenderConfig) (*HeatmapRenderer, error) {
	if config.CellWidth <= 0 || config.CellHeight <= 0 {
		return nil, fmt.Errorf("invalid cell size: %dx%d", config.CellWidth, config.CellHeight)
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = DefaultTheme
	}

	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &HeatmapRenderer{config: config}, nil
}

// Render creates an image of the matrix with annotations
func (r *HeatmapRenderer) Render(m *HarmonicMatrix) (*image.RGBA, error) {
	if m.Height() == 0 || m.Width() == 0 {
		return nil, fmt.Errorf("no harmonics to render")
	}

	borders := r.config.BorderConfig
	gridWidth := m.Width() * r.config.CellWidth
	gridHeight := m.Height() * r.config.CellHeight

	img := image.NewRGBA(image.Rect(0, 0, borders.Left+gridWidth+borders.Right, borders.Top+gridHeight+borders.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	grid := image.Rect(borders.Left, borders.Top, borders.Left+gridWidth, borders.Top+gridHeight)

	bounds := m.Bounds()
	if r.config.Bounds != nil {
		bounds = *r.config.Bounds
	}
	colors := NewColorMapper(r.config.ColorTheme, bounds)

	r.renderCells(img, grid, m, colors)

	if r.config.NoAnnotations {
		return img, nil
	}

	ann, err := newAnnotator(annotatorConfig{
		DatetimeFormat: r.config.DatetimeFormat,
		Location:       r.config.Location,
		FontSize:       r.config.FontSize,
		Borders:        borders,
		CellWidth:      r.config.CellWidth,
		CellHeight:     r.config.CellHeight,
		Caption:        r.config.Caption,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, grid, m, bounds, colors); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func (r *HeatmapRenderer) renderCells(img *image.RGBA, grid image.Rectangle, m *HarmonicMatrix, colors *ColorMapper) {
	for y, row := range m.Rows {
		for x := 0; x < m.Width(); x++ {
			var value *float64
			if x < len(row) {
				value = row[x]
			}

			cell := image.Rect(
				grid.Min.X+x*r.config.CellWidth,
				grid.Min.Y+y*r.config.CellHeight,
				grid.Min.X+(x+1)*r.config.CellWidth,
				grid.Min.Y+(y+1)*r.config.CellHeight,
			)
			draw.Draw(img, cell, image.NewUniform(colors.Color(value)), image.Point{}, draw.Src)
		}
	}
}

type annotatorConfig struct {
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
	CellWidth      int
	CellHeight     int
	Caption        string
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, grid image.Rectangle, m *HarmonicMatrix, bounds Bounds, colors *ColorMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawOrderScale(img, grid, m); err != nil {
		return fmt.Errorf("drawing order scale: %w", err)
	}
	if err := a.drawIterationScale(img, grid, m); err != nil {
		return fmt.Errorf("drawing iteration scale: %w", err)
	}
	if err := a.drawLegend(img, grid, m.Scale, bounds, colors); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	if err := a.drawInfoBar(img, m, bounds); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// labelEvery returns how many cells one label spans so that labels of the
// given size do not overlap
func labelEvery(labelSize, cellSize int) int {
	every := 1
	for every*cellSize < labelSize+labelSpacing {
		every++
	}
	return every
}

func (a *annotator) drawOrderScale(img *image.RGBA, grid image.Rectangle, m *HarmonicMatrix) error {
	lastOrder := m.FirstOrder + m.Width() - 1
	widest := font.MeasureString(a.fontFace, strconv.Itoa(lastOrder)).Round()
	every := labelEvery(widest, a.config.CellWidth)

	textY := grid.Min.Y - tickMarkLength - 2
	for col := 0; col < m.Width(); col += every {
		x := grid.Min.X + col*a.config.CellWidth + a.config.CellWidth/2

		for y := grid.Min.Y - tickMarkLength; y < grid.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := strconv.Itoa(m.FirstOrder + col)
		width := font.MeasureString(a.fontFace, label).Round()
		if _, err := a.context.DrawString(label, freetype.Pt(x-width/2, textY)); err != nil {
			return fmt.Errorf("drawing order label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawIterationScale(img *image.RGBA, grid image.Rectangle, m *HarmonicMatrix) error {
	fontHeight := a.fontHeight()
	descent := a.fontFace.Metrics().Descent.Round()
	every := labelEvery(fontHeight, a.config.CellHeight)

	for row := 0; row < m.Height(); row += every {
		y := grid.Min.Y + row*a.config.CellHeight + a.config.CellHeight/2

		for x := grid.Min.X - tickMarkLength; x < grid.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := humanize.Comma(int64(m.Iterations[row]))
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(grid.Min.X-tickMarkLength-2-width, y+fontHeight/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing iteration label: %w", err)
		}
	}
	return nil
}

// drawLegend draws the color scale next to the grid, maximum on top
func (a *annotator) drawLegend(img *image.RGBA, grid image.Rectangle, scale Scale, bounds Bounds, colors *ColorMapper) error {
	x0 := grid.Max.X + a.config.Borders.Right/4
	height := grid.Dy()

	for y := 0; y < height; y++ {
		value := bounds.Max - (bounds.Max-bounds.Min)*float64(y)/float64(max(height-1, 1))
		c := colors.Color(&value)
		for x := x0; x < x0+legendWidth; x++ {
			img.Set(x, grid.Min.Y+y, c)
		}
	}

	fontHeight := a.fontHeight()
	for _, l := range []struct {
		value float64
		y     int
	}{
		{bounds.Max, grid.Min.Y + fontHeight},
		{bounds.Min, grid.Max.Y},
	} {
		label := formatValue(l.value, scale)
		if _, err := a.context.DrawString(label, freetype.Pt(x0+legendWidth+3, l.y)); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, m *HarmonicMatrix, bounds Bounds) error {
	var sb strings.Builder

	if a.config.Caption != "" {
		sb.WriteString(a.config.Caption)
		sb.WriteString("; ")
	}
	sb.WriteString(fmt.Sprintf("%s harmonics %d-%d; ", m.Channel, m.FirstOrder, m.FirstOrder+m.Width()-1))
	sb.WriteString(fmt.Sprintf("Time: %s - %s; ",
		m.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		m.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString(fmt.Sprintf("Scale: %s - %s", formatValue(bounds.Min, m.Scale), formatValue(bounds.Max, m.Scale)))

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-a.fontHeight())/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

func formatValue(v float64, scale Scale) string {
	if scale == ScaleDecibel {
		return humanize.FtoaWithDigits(v, 1) + " dB"
	}
	return humanize.FtoaWithDigits(v, 2) + " %"
}
