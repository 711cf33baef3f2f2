package dwf

import (
	"fmt"
	"runtime"
	"time"

	"github.com/roman-kulish/power-quality/internal/instrument"
)

const (
	Device = "dwf"

	// DefaultChannelRange is the analog input range in volts
	DefaultChannelRange = 5.0

	// DefaultSettleTime is the pause between configuring and starting the acquisition
	DefaultSettleTime = time.Second

	// DefaultDeviceConfig selects the first device configuration
	DefaultDeviceConfig = 1
)

// Config is the WaveForms (libdwf) instrument configuration
type Config struct {
	DeviceConfig int                     `yaml:"deviceConfig" json:"deviceConfig"` // device configuration index passed to FDwfDeviceConfigOpen
	ChannelRange float64                 `yaml:"channelRange" json:"channelRange"` // analog input range in volts
	SettleTime   instrument.TimeDuration `yaml:"settleTime" json:"settleTime"`     // stabilization delay before start
	Library      string                  `yaml:"library" json:"library"`           // runtime library file name, looked up when support is missing
}

// DefaultConfig returns the bench defaults: first configuration, 5 V range, 1 s settle time
func DefaultConfig() *Config {
	return &Config{
		DeviceConfig: DefaultDeviceConfig,
		ChannelRange: DefaultChannelRange,
		SettleTime:   instrument.NewTimeDuration(DefaultSettleTime),
		Library:      defaultLibrary(),
	}
}

func (c *Config) Validate() error {
	if c.DeviceConfig < 0 {
		return fmt.Errorf("dwf.Config: device configuration must not be negative: %d", c.DeviceConfig)
	}
	if c.ChannelRange <= 0 {
		return fmt.Errorf("dwf.Config: channel range must be positive: %f", c.ChannelRange)
	}
	if c.SettleTime < 0 {
		return fmt.Errorf("dwf.Config: settle time must not be negative: %s", c.SettleTime)
	}
	return nil
}

func defaultLibrary() string {
	switch runtime.GOOS {
	case "windows":
		return "dwf.dll"
	case "darwin":
		return "dwf"
	default:
		return "libdwf.so"
	}
}
