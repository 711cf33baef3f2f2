package spectrum

import (
	"math"
	"time"
)

// Campaign represents a single measurement campaign against one instrument.
// Each campaign captures metadata about when and how the acquisition was performed.
type Campaign struct {
	ID         int64      `json:"ID"`                      // Unique identifier for the campaign
	StartTime  time.Time  `json:"startTime"`               // When the campaign began
	EndTime    *time.Time `json:"endTime,omitempty"`       // When the campaign finished (nil while running or aborted)
	DeviceType string     `json:"deviceType"`              // Type of device used (e.g., "dwf", "simulator")
	DeviceID   string     `json:"deviceID"`                // Identifier of the specific device (e.g., index or serial)
	Config     *string    `json:"config,string,omitempty"` // Optional campaign configuration in JSON format
	VoltageTHD *float64   `json:"voltageTHD,omitempty"`    // Final averaged voltage THD, percent
	CurrentTHD *float64   `json:"currentTHD,omitempty"`    // Final averaged current THD, percent
}

// IterationRecord is the persisted outcome of one acquisition and analysis cycle.
type IterationRecord struct {
	CampaignID int64     `json:"campaignID"`
	Iteration  int       `json:"iteration"` // 1-based
	Timestamp  time.Time `json:"timestamp"`

	// Acquisition counters, see instrument.AcquisitionStatus
	Written      int64 `json:"written"`
	Available    int64 `json:"available"`
	Lost         int64 `json:"lost"`
	Corrupted    int64 `json:"corrupted"`
	AnyLost      bool  `json:"anyLost"`
	AnyCorrupted bool  `json:"anyCorrupted"`

	VoltageTHD        float64 `json:"voltageTHD"`
	CurrentTHD        float64 `json:"currentTHD"`
	RunningVoltageTHD float64 `json:"runningVoltageTHD"`
	RunningCurrentTHD float64 `json:"runningCurrentTHD"`

	VoltageHarmonics HarmonicVector `json:"voltageHarmonics"`
	CurrentHarmonics HarmonicVector `json:"currentHarmonics"`
}

// HarmonicVector holds harmonic magnitudes, index 0 is the fundamental.
type HarmonicVector []float64

// Fundamental returns the magnitude of the first harmonic, or 0 for an empty vector.
func (h HarmonicVector) Fundamental() float64 {
	if len(h) == 0 {
		return 0
	}
	return h[0]
}

// THD returns the total harmonic distortion of the vector, in percent.
func (h HarmonicVector) THD() float64 {
	return THD(h)
}

// Spectrum is a one-sided magnitude spectrum of a real signal.
type Spectrum struct {
	Magnitudes []float64 `json:"magnitudes"` // |X[k]| / (N/2), k = 0..N/2
	Resolution float64   `json:"resolution"` // Bin width in Hz (sample rate / N)
}

// Frequencies returns the frequency axis matching Magnitudes.
func (s *Spectrum) Frequencies() []float64 {
	freqs := make([]float64, len(s.Magnitudes))
	for k := range freqs {
		freqs[k] = float64(k) * s.Resolution
	}
	return freqs
}

// Decibels returns 20*log10 of every magnitude. Zero bins become -Inf.
func (s *Spectrum) Decibels() []float64 {
	db := make([]float64, len(s.Magnitudes))
	for k, m := range s.Magnitudes {
		db[k] = 20 * math.Log10(m)
	}
	return db
}

// Analysis is the result of analyzing one channel buffer.
type Analysis struct {
	Spectrum  Spectrum       `json:"spectrum"`
	Harmonics HarmonicVector `json:"harmonics"`
	THD       float64        `json:"thd"`
}
