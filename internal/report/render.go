package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 96.0
	fontSize       = 11.0
	tickMarkLength = 5

	defaultWidth  = 1280
	defaultHeight = 720

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 90
	defaultBottomBorder = 60
	defaultRightBorder  = 40
)

var (
	defaultSeriesColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	defaultGridColor   = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the value scale
	Bottom int // Space for the x scale and label
	Right  int // Right padding
}

// RenderConfig holds the image layout shared by all charts
type RenderConfig struct {
	Width    int     // Full image width in pixels
	Height   int     // Full image height in pixels
	FontSize float64 // Font size in points

	SeriesColor color.Color
	GridColor   color.Color

	BorderConfig BorderConfig
}

// Chart describes the labels of a single plot
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	XUnit  string  // SI unit for x tick labels, e.g. "Hz" or "s"; empty for plain numbers
	XStep  float64 // x tick spacing; zero picks one automatically
}

// Renderer draws PNG charts
type Renderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewRenderer creates a new renderer with the given configuration
func NewRenderer(config RenderConfig) (*Renderer, error) {
	// Set defaults for zero values
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.SeriesColor == nil {
		config.SeriesColor = defaultSeriesColor
	}
	if config.GridColor == nil {
		config.GridColor = defaultGridColor
	}
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

	b := config.BorderConfig
	if config.Width-b.Left-b.Right < 100 || config.Height-b.Top-b.Bottom < 100 {
		return nil, fmt.Errorf("plot area too small: %dx%d image", config.Width, config.Height)
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &Renderer{config: config, font: parsedFont}, nil
}

// canvas is a single chart being drawn: the image, the plot area and the
// data-to-pixel mapping.
type canvas struct {
	img  *image.RGBA
	area image.Rectangle

	xMin, xMax float64
	yMin, yMax float64

	context *freetype.Context
	face    font.Face
	config  *RenderConfig
}

func (r *Renderer) newCanvas(xMin, xMax, yMin, yMax float64) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width, r.config.Height))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	b := r.config.BorderConfig
	area := image.Rect(b.Left, b.Top, r.config.Width-b.Right, r.config.Height-b.Bottom)

	if !(xMax > xMin) {
		xMax = xMin + 1
	}
	if !(yMax > yMin) {
		yMax = yMin + 1
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	return &canvas{
		img:     img,
		area:    area,
		xMin:    xMin,
		xMax:    xMax,
		yMin:    yMin,
		yMax:    yMax,
		context: ctx,
		face: truetype.NewFace(r.font, &truetype.Options{
			Size:    r.config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
		config: &r.config,
	}
}

func (c *canvas) Close() error {
	if c.face != nil {
		return c.face.Close()
	}
	return nil
}

// px maps a data x value to an image column
func (c *canvas) px(x float64) int {
	ratio := (x - c.xMin) / (c.xMax - c.xMin)
	return c.area.Min.X + int(math.Round(ratio*float64(c.area.Dx()-1)))
}

// py maps a data y value to an image row
func (c *canvas) py(y float64) int {
	ratio := (y - c.yMin) / (c.yMax - c.yMin)
	return c.area.Max.Y - 1 - int(math.Round(ratio*float64(c.area.Dy()-1)))
}

func (c *canvas) set(x, y int, col color.Color) {
	if (image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		c.img.Set(x, y, col)
	}
}

// line draws a straight line using Bresenham's algorithm
func (c *canvas) line(x0, y0, x1, y1 int, col color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		c.set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) fill(rect image.Rectangle, col color.Color) {
	draw.Draw(c.img, rect.Intersect(c.area), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func (c *canvas) textWidth(s string) int {
	return font.MeasureString(c.face, s).Round()
}

func (c *canvas) textHeight() int {
	metrics := c.face.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// text draws s with its baseline at y, horizontally centered on x
func (c *canvas) textCentered(s string, x, y int) error {
	_, err := c.context.DrawString(s, freetype.Pt(x-c.textWidth(s)/2, y))
	return err
}

// textRight draws s with its baseline at y, ending at x
func (c *canvas) textRight(s string, x, y int) error {
	_, err := c.context.DrawString(s, freetype.Pt(x-c.textWidth(s), y))
	return err
}

func (c *canvas) textLeft(s string, x, y int) error {
	_, err := c.context.DrawString(s, freetype.Pt(x, y))
	return err
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// savePNG encodes the image to path, creating parent directories as needed
func savePNG(path string, img image.Image) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if err = png.Encode(out, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}

	return nil
}
