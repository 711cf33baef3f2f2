package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAcquisitionConfig_Defaults(t *testing.T) {
	cfg := DefaultAcquisitionConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1_200_000, cfg.Samples())
	assert.Equal(t, 1600, cfg.PreviewSamples())
}

func TestAcquisitionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *AcquisitionConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *AcquisitionConfig) {}},
		{name: "one second", modify: func(c *AcquisitionConfig) { c.Duration = NewTimeDuration(time.Second) }},
		{name: "zero sample rate", modify: func(c *AcquisitionConfig) { c.SampleRate = 0 }, wantErr: true},
		{name: "zero duration", modify: func(c *AcquisitionConfig) { c.Duration = 0 }, wantErr: true},
		{name: "no iterations", modify: func(c *AcquisitionConfig) { c.Iterations = 0 }, wantErr: true},
		{name: "negative preview", modify: func(c *AcquisitionConfig) { c.PreviewPeriods = -1 }, wantErr: true},
		{name: "below nyquist", modify: func(c *AcquisitionConfig) { c.SampleRate = 3999 }, wantErr: true},
		{name: "partial period", modify: func(c *AcquisitionConfig) { c.Duration = NewTimeDuration(1010 * time.Millisecond) }, wantErr: true},
		{name: "fractional samples", modify: func(c *AcquisitionConfig) {
			c.SampleRate = 4000.5
			c.Duration = NewTimeDuration(time.Second)
		}, wantErr: true},
		{name: "exceeds driver record limit", modify: func(c *AcquisitionConfig) { c.Duration = NewTimeDuration(7 * 24 * time.Hour) }, wantErr: true},
		{name: "six days fit", modify: func(c *AcquisitionConfig) { c.Duration = NewTimeDuration(6 * 24 * time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAcquisitionConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAcquisitionConfig_PreviewClamped(t *testing.T) {
	cfg := DefaultAcquisitionConfig()
	cfg.Duration = NewTimeDuration(100 * time.Millisecond)
	cfg.PreviewPeriods = 20

	assert.Equal(t, 400, cfg.Samples())
	assert.Equal(t, 400, cfg.PreviewSamples())
}

func TestTimeDuration_YAML(t *testing.T) {
	var cfg AcquisitionConfig
	require.NoError(t, yaml.Unmarshal([]byte("sampleRate: 4000\nduration: 90s\n"), &cfg))

	assert.Equal(t, 90*time.Second, cfg.Duration.Duration())
	assert.Equal(t, 360_000, cfg.Samples())

	err := yaml.Unmarshal([]byte("duration: soon\n"), &cfg)
	assert.Error(t, err)
}
