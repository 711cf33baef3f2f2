package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	ChannelVoltage Channel = "voltage"
	ChannelCurrent Channel = "current"

	// ScaleRatio colors cells by percent of the fundamental
	ScaleRatio Scale = "ratio"

	// ScaleDecibel colors cells by level relative to the fundamental, dB
	ScaleDecibel Scale = "db"

	defaultCellWidth  = 24
	defaultCellHeight = 6
)

type ImageFormat string

type Channel string

type Scale string

var (
	validImageFormats = map[ImageFormat]struct{}{
		ImagePNG:  {},
		ImageJPEG: {},
	}

	validChannels = map[Channel]struct{}{
		ChannelVoltage: {},
		ChannelCurrent: {},
	}

	validScales = map[Scale]struct{}{
		ScaleRatio:   {},
		ScaleDecibel: {},
	}
)

type Config struct {
	DBPath         string
	CampaignID     int64
	OutputFile     string
	Format         ImageFormat
	Channel        Channel
	Scale          Scale
	Theme          ColorTheme
	FirstIteration int
	LastIteration  int // 0 reads to the last stored iteration
	CellWidth      int
	CellHeight     int
	MinValue       *float64
	MaxValue       *float64
	Verbose        bool
	NoAnnotations  bool
}

func NewConfig() *Config {
	return &Config{
		Format:         ImagePNG,
		Channel:        ChannelCurrent,
		Scale:          ScaleRatio,
		Theme:          DefaultTheme,
		FirstIteration: 1,
		CellWidth:      defaultCellWidth,
		CellHeight:     defaultCellHeight,
	}
}

// NewConfigFromCLI parses the command line arguments, without the program name
func NewConfigFromCLI(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("heatmap", flag.ContinueOnError)
	fs.SetOutput(output)

	var imageFormat, channel, scale, theme string
	var minValue, maxValue float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the campaign database file")
	fs.Int64Var(&c.CampaignID, "s", 1, "Campaign ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&channel, "channel", string(ChannelCurrent), "Channel to plot. [voltage, current]")
	fs.StringVar(&scale, "scale", string(ScaleRatio), "Cell value. [ratio, db]")
	fs.StringVar(&theme, "theme", string(DefaultTheme), "Color theme. [enhanced, classic, grayscale, jungle, thermal, marine]")
	fs.IntVar(&c.FirstIteration, "first", 1, "First iteration to plot")
	fs.IntVar(&c.LastIteration, "last", 0, "Last iteration to plot, 0 for all")
	fs.IntVar(&c.CellWidth, "cell-width", defaultCellWidth, "Width of one harmonic column in pixels")
	fs.IntVar(&c.CellHeight, "cell-height", defaultCellHeight, "Height of one iteration row in pixels")
	fs.Float64Var(&minValue, "min", 0, "Define a manual minimum of the color scale")
	fs.Float64Var(&maxValue, "max", 0, "Define a manual maximum of the color scale")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as harmonic and iteration scales")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min" {
			c.MinValue = &minValue
		}
		if f.Name == "max" {
			c.MaxValue = &maxValue
		}
	})

	c.Format = ImageFormat(strings.ToLower(imageFormat))
	c.Channel = Channel(strings.ToLower(channel))
	c.Scale = Scale(strings.ToLower(scale))
	c.Theme = ColorTheme(strings.ToLower(theme))

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}

	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("db path is required")
	case c.CampaignID <= 0:
		return errors.New("campaign id is required")
	case c.OutputFile == "":
		return errors.New("output file is required")
	case c.FirstIteration <= 0:
		return fmt.Errorf("invalid first iteration: %d", c.FirstIteration)
	case c.LastIteration != 0 && c.LastIteration < c.FirstIteration:
		return fmt.Errorf("last iteration %d is before first iteration %d", c.LastIteration, c.FirstIteration)
	case c.CellWidth <= 0 || c.CellHeight <= 0:
		return fmt.Errorf("invalid cell size: %dx%d", c.CellWidth, c.CellHeight)
	case c.MinValue != nil && c.MaxValue != nil && *c.MinValue >= *c.MaxValue:
		return fmt.Errorf("minimum %g must be below maximum %g", *c.MinValue, *c.MaxValue)
	}

	if _, ok := validImageFormats[c.Format]; !ok {
		return fmt.Errorf("invalid image format: %s", c.Format)
	}
	if _, ok := validChannels[c.Channel]; !ok {
		return fmt.Errorf("invalid channel: %s", c.Channel)
	}
	if _, ok := validScales[c.Scale]; !ok {
		return fmt.Errorf("invalid scale: %s", c.Scale)
	}
	return c.Theme.Validate()
}
