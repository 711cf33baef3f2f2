package simulator

import (
	"fmt"
	"math"
)

const (
	DefaultVoltageAmplitude = 230 * math.Sqrt2
	DefaultCurrentAmplitude = 10 * math.Sqrt2
	DefaultFundamental      = 50.0
	DefaultChunkSize        = 4096
	DefaultPrefillPolls     = 3
)

// Config describes the synthetic mains signals produced by the simulator.
// Harmonic content is given as percent of the fundamental, keyed by order.
type Config struct {
	VoltageAmplitude float64         `yaml:"voltageAmplitude" json:"voltageAmplitude"` // peak volts
	CurrentAmplitude float64         `yaml:"currentAmplitude" json:"currentAmplitude"` // peak amperes
	Fundamental      float64         `yaml:"fundamental" json:"fundamental"`           // Hz
	VoltageHarmonics map[int]float64 `yaml:"voltageHarmonics" json:"voltageHarmonics"` // order -> percent
	CurrentHarmonics map[int]float64 `yaml:"currentHarmonics" json:"currentHarmonics"` // order -> percent
	Noise            float64         `yaml:"noise" json:"noise"`                       // gaussian standard deviation
	Seed             uint64          `yaml:"seed" json:"seed"`

	ChunkSize    int `yaml:"chunkSize" json:"chunkSize"`       // samples delivered per poll
	PrefillPolls int `yaml:"prefillPolls" json:"prefillPolls"` // polls reported as prefill before data flows

	LostEvery      int `yaml:"lostEvery" json:"lostEvery"`           // every n-th data poll reports lost samples, 0 disables
	LostSamples    int `yaml:"lostSamples" json:"lostSamples"`       // samples lost on such a poll
	CorruptedEvery int `yaml:"corruptedEvery" json:"corruptedEvery"` // every n-th data poll reports corruption, 0 disables

	FailOpen string `yaml:"failOpen" json:"failOpen"` // when set, Open fails with this message
}

// DefaultConfig returns a clean 230 V / 10 A supply with a mildly distorted load current
func DefaultConfig() *Config {
	return &Config{
		VoltageAmplitude: DefaultVoltageAmplitude,
		CurrentAmplitude: DefaultCurrentAmplitude,
		Fundamental:      DefaultFundamental,
		VoltageHarmonics: map[int]float64{3: 1.5, 5: 2, 7: 1},
		CurrentHarmonics: map[int]float64{3: 30, 5: 12, 7: 6, 9: 3, 11: 2},
		ChunkSize:        DefaultChunkSize,
		PrefillPolls:     DefaultPrefillPolls,
	}
}

func (c *Config) Validate() error {
	if c.Fundamental <= 0 {
		return fmt.Errorf("simulator.Config: fundamental must be positive: %f", c.Fundamental)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("simulator.Config: chunk size must be positive: %d", c.ChunkSize)
	}
	if c.PrefillPolls < 0 {
		return fmt.Errorf("simulator.Config: prefill polls must not be negative: %d", c.PrefillPolls)
	}
	if c.Noise < 0 {
		return fmt.Errorf("simulator.Config: noise must not be negative: %f", c.Noise)
	}
	if c.LostEvery < 0 || c.LostSamples < 0 || c.CorruptedEvery < 0 {
		return fmt.Errorf("simulator.Config: loss injection settings must not be negative")
	}
	for order := range c.VoltageHarmonics {
		if order < 2 {
			return fmt.Errorf("simulator.Config: invalid voltage harmonic order: %d", order)
		}
	}
	for order := range c.CurrentHarmonics {
		if order < 2 {
			return fmt.Errorf("simulator.Config: invalid current harmonic order: %d", order)
		}
	}
	return nil
}
