package notify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Notifier delivers the campaign summary once all iterations are done
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// Summary is the outcome of a finished campaign
type Summary struct {
	CampaignID      int64
	StartTime       time.Time
	MeasurementTime time.Duration // acquisition time summed over all iterations
	Iterations      int
	VoltageTHD      float64 // percent
	CurrentTHD      float64 // percent
	WallClock       time.Duration
	AnyLost         bool
	AnyCorrupted    bool
	LossyIterations int // iterations which reported lost or corrupted samples
}

// Message renders the plain text body
func (s Summary) Message() string {
	var b strings.Builder

	fmt.Fprintf(&b, "After time: %ss\n\n", humanize.FtoaWithDigits(s.MeasurementTime.Seconds(), 3))
	fmt.Fprintf(&b, "Final Total Harmonic Voltage Distortion : %s %%\n\n", formatTHD(s.VoltageTHD))
	fmt.Fprintf(&b, "Final Total Harmonic Current Distortion : %s %%\n\n", formatTHD(s.CurrentTHD))
	fmt.Fprintf(&b, "Total operation time: %s\n", s.WallClock.Round(time.Millisecond))

	if s.Iterations > 0 {
		fmt.Fprintf(&b, "\nIterations: %s", humanize.Comma(int64(s.Iterations)))
		if s.CampaignID > 0 {
			fmt.Fprintf(&b, " (campaign %d, started %s)", s.CampaignID, s.StartTime.Format(time.DateTime))
		}
		b.WriteString("\n")
	}
	if s.AnyLost {
		b.WriteString("Samples were lost!\n")
	}
	if s.AnyCorrupted {
		b.WriteString("Samples could be corrupted!\n")
	}
	if s.LossyIterations > 0 {
		fmt.Fprintf(&b, "Affected iterations: %d of %d\n", s.LossyIterations, s.Iterations)
	}

	return b.String()
}

func formatTHD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return humanize.FtoaWithDigits(math.Round(v*1e4)/1e4, 4)
}
