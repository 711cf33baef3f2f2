package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/instrument/dwf"
	"github.com/roman-kulish/power-quality/internal/instrument/simulator"
	"github.com/roman-kulish/power-quality/internal/notify"
	"github.com/roman-kulish/power-quality/internal/spectrum"
)

const (
	DeviceDWF       DeviceType = dwf.Device
	DeviceSimulator DeviceType = simulator.Device

	// DefaultPlotEvery is the iteration cadence of intermediate plots
	DefaultPlotEvery = 5
)

type DeviceType string

// Config represents the main application configuration
type Config struct {
	Settings    Settings                     `yaml:"settings" json:"-"`
	Acquisition instrument.AcquisitionConfig `yaml:"acquisition" json:"acquisition"`
	Analysis    AnalysisConfig               `yaml:"analysis" json:"analysis"`
	Device      DeviceConfig                 `yaml:"device" json:"device"`
	Storage     StorageConfig                `yaml:"storage" json:"-"`
	Notifier    notify.Config                `yaml:"notifier" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel        slog.Level `yaml:"logLevel"`
	OutputDirectory string     `yaml:"outputDirectory"` // root of the plot directories
	PlotEvery       int        `yaml:"plotEvery"`       // intermediate plots every n-th iteration, 0 disables
	ClearScreen     bool       `yaml:"clearScreen"`     // clear the terminal after each iteration
}

// AnalysisConfig represents the spectral analysis settings
type AnalysisConfig struct {
	Window              spectrum.WindowFunction  `yaml:"window" json:"window"`
	Averaging           spectrum.AveragingMethod `yaml:"averaging" json:"averaging"`
	VoltageRatioEpsilon float64                  `yaml:"voltageRatioEpsilon" json:"voltageRatioEpsilon"`
	CurrentRatioEpsilon float64                  `yaml:"currentRatioEpsilon" json:"currentRatioEpsilon"`
}

// DeviceConfig represents the acquisition instrument and collector settings
type DeviceConfig struct {
	Type           DeviceType                   `yaml:"type" json:"type"`
	Index          int                          `yaml:"index" json:"index"` // -1 opens the first available device
	VoltageChannel int                          `yaml:"voltageChannel" json:"voltageChannel"`
	CurrentChannel int                          `yaml:"currentChannel" json:"currentChannel"`
	PollInterval   instrument.TimeDuration      `yaml:"pollInterval" json:"pollInterval"`
	MaxIdlePolls   int                          `yaml:"maxIdlePolls" json:"maxIdlePolls"`
	LostSamples    instrument.LostSamplesPolicy `yaml:"lostSamples" json:"lostSamples"`
	DWF            *dwf.Config                  `yaml:"dwf" json:"dwf,omitempty"`
	Simulator      *simulator.Config            `yaml:"simulator" json:"simulator,omitempty"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Export        bool   `yaml:"export"` // write the averaged spectrum and harmonics as Parquet
}

// DefaultConfig returns the bench defaults of a WaveForms campaign
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:        slog.LevelInfo,
			OutputDirectory: ".",
			PlotEvery:       DefaultPlotEvery,
		},
		Acquisition: instrument.DefaultAcquisitionConfig(),
		Analysis: AnalysisConfig{
			Window:              spectrum.WindowBlackman,
			Averaging:           spectrum.AveragingRecency,
			VoltageRatioEpsilon: spectrum.DefaultVoltageRatioEpsilon,
			CurrentRatioEpsilon: spectrum.DefaultCurrentRatioEpsilon,
		},
		Device: DeviceConfig{
			Type:           DeviceDWF,
			Index:          -1,
			VoltageChannel: int(instrument.DefaultVoltageChannel),
			CurrentChannel: int(instrument.DefaultCurrentChannel),
			LostSamples:    instrument.LostSamplesGap,
			DWF:            dwf.DefaultConfig(),
			Simulator:      simulator.DefaultConfig(),
		},
		Storage: StorageConfig{
			DataDirectory: storageDir,
		},
		Notifier: *notify.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.Settings.PlotEvery < 0 {
		return fmt.Errorf("app.Settings: plot cadence must not be negative: %d", c.Settings.PlotEvery)
	}
	if err := c.Acquisition.Validate(); err != nil {
		return err
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if err := c.Device.Validate(); err != nil {
		return err
	}
	return c.Notifier.Validate()
}

func (c *AnalysisConfig) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if err := c.Averaging.Validate(); err != nil {
		return err
	}
	if c.VoltageRatioEpsilon < 0 || c.CurrentRatioEpsilon < 0 {
		return fmt.Errorf("app.AnalysisConfig: ratio epsilon must not be negative")
	}
	return nil
}

func (c *DeviceConfig) Validate() error {
	switch c.Type {
	case DeviceDWF:
		if c.DWF == nil {
			return fmt.Errorf("app.DeviceConfig: missing dwf section")
		}
		if err := c.DWF.Validate(); err != nil {
			return err
		}
	case DeviceSimulator:
		if c.Simulator == nil {
			return fmt.Errorf("app.DeviceConfig: missing simulator section")
		}
		if err := c.Simulator.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("app.DeviceConfig: unknown type '%s'", c.Type)
	}

	if c.VoltageChannel < 0 || c.CurrentChannel < 0 {
		return fmt.Errorf("app.DeviceConfig: channels must not be negative")
	}
	if c.VoltageChannel == c.CurrentChannel {
		return fmt.Errorf("app.DeviceConfig: voltage and current share channel %d", c.VoltageChannel)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("app.DeviceConfig: poll interval must not be negative: %s", c.PollInterval)
	}
	if c.MaxIdlePolls < 0 {
		return fmt.Errorf("app.DeviceConfig: max idle polls must not be negative: %d", c.MaxIdlePolls)
	}
	return c.LostSamples.Validate()
}
