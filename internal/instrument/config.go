package instrument

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSampleRate     = 4000.0
	DefaultDuration       = 5 * time.Minute
	DefaultPreviewPeriods = 20
	DefaultIterations     = 120
	DefaultFundamental    = 50.0
	DefaultHarmonics      = 40

	// MaxRecordSamples is the largest record the driver accepts per channel
	MaxRecordSamples = math.MaxInt32
)

type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("instrument.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *TimeDuration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("instrument.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d)
}

func (d TimeDuration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// AcquisitionConfig holds the campaign acquisition parameters
type AcquisitionConfig struct {
	SampleRate     float64      `yaml:"sampleRate" json:"sampleRate"`         // Hz, per channel
	Duration       TimeDuration `yaml:"duration" json:"duration"`             // length of one record, e.g. "5m"
	PreviewPeriods int          `yaml:"previewPeriods" json:"previewPeriods"` // mains periods shown in the waveform preview
	Iterations     int          `yaml:"iterations" json:"iterations"`         // number of records in the campaign
	Fundamental    float64      `yaml:"fundamental" json:"fundamental"`       // mains frequency, Hz
	Harmonics      int          `yaml:"harmonics" json:"harmonics"`           // harmonics to extract, fundamental included
}

// DefaultAcquisitionConfig returns a five-minute, 120-iteration campaign at 4 kHz
func DefaultAcquisitionConfig() AcquisitionConfig {
	return AcquisitionConfig{
		SampleRate:     DefaultSampleRate,
		Duration:       NewTimeDuration(DefaultDuration),
		PreviewPeriods: DefaultPreviewPeriods,
		Iterations:     DefaultIterations,
		Fundamental:    DefaultFundamental,
		Harmonics:      DefaultHarmonics,
	}
}

// Samples returns the number of samples per channel in one record
func (c *AcquisitionConfig) Samples() int {
	return int(math.Round(c.SampleRate * c.Duration.Seconds()))
}

// PreviewSamples returns the number of leading samples kept for the waveform preview
func (c *AcquisitionConfig) PreviewSamples() int {
	if c.Fundamental <= 0 {
		return 0
	}
	n := int(math.Round(float64(c.PreviewPeriods) * c.SampleRate / c.Fundamental))
	return min(n, c.Samples())
}

// RecordConfig returns the instrument record configuration for the given channels
func (c *AcquisitionConfig) RecordConfig(channels ...Channel) *RecordConfig {
	return &RecordConfig{
		SampleRate: c.SampleRate,
		Duration:   c.Duration.Duration(),
		Channels:   channels,
	}
}

func (c *AcquisitionConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: sample rate must be positive: %f", c.SampleRate)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: duration must be positive: %s", c.Duration)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: iterations must be positive: %d", c.Iterations)
	}
	if c.PreviewPeriods < 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: preview periods must not be negative: %d", c.PreviewPeriods)
	}
	if c.Fundamental <= 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: fundamental must be positive: %f", c.Fundamental)
	}
	if c.Harmonics <= 0 {
		return fmt.Errorf("instrument.AcquisitionConfig: harmonics must be positive: %d", c.Harmonics)
	}

	samples := c.SampleRate * c.Duration.Seconds()
	if samples != math.Trunc(samples) {
		return fmt.Errorf("instrument.AcquisitionConfig: %s at %.2f Hz is not a whole number of samples", c.Duration, c.SampleRate)
	}
	if samples < 2 || samples > MaxRecordSamples {
		return fmt.Errorf("instrument.AcquisitionConfig: samples per record must be between 2 and %d: %.0f given", MaxRecordSamples, samples)
	}

	cycles := c.Fundamental * c.Duration.Seconds()
	if cycles != math.Trunc(cycles) {
		return fmt.Errorf("instrument.AcquisitionConfig: %s does not hold a whole number of %.2f Hz periods", c.Duration, c.Fundamental)
	}

	if nyquist := 2 * float64(c.Harmonics) * c.Fundamental; c.SampleRate < nyquist {
		return fmt.Errorf("instrument.AcquisitionConfig: sample rate %.2f Hz is below %.2f Hz required for %d harmonics", c.SampleRate, nyquist, c.Harmonics)
	}

	return nil
}
