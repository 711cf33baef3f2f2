package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/roman-kulish/power-quality/internal/report"
	"github.com/roman-kulish/power-quality/internal/spectrum"
)

// Output directories, relative to the output root. Periodic plots go into
// directories named after their kind, e.g. Harmonic_Voltage or Current_FFT_dB.
const (
	dirFinal   = "Final_Plots"
	dirPreview = "Preview"
	dirRatio   = "Ratio"
	dirExport  = "Export"

	fftTickStep = 100 // Hz
)

// Plan tells which plots an iteration produces
type Plan struct {
	Periodic bool // running harmonics and dB spectra into the per-cadence directories
	Final    bool // full set into Final_Plots and the waveform preview
}

// PlanFor returns the plot plan of a 1-based iteration out of total, with
// periodic plots every n-th iteration. A zero cadence disables periodic plots.
func PlanFor(iteration, total, every int) Plan {
	return Plan{
		Periodic: every > 0 && iteration%every == 0,
		Final:    iteration == total,
	}
}

// Any reports whether the plan produces at least one plot
func (p Plan) Any() bool {
	return p.Periodic || p.Final
}

// channelPlot names one channel on the charts and in file names
type channelPlot struct {
	name  string // file name prefix, "Voltage" or "Current"
	label string // lower case axis wording
	unit  string
}

var (
	voltagePlot = channelPlot{name: "Voltage", label: "voltage", unit: "V"}
	currentPlot = channelPlot{name: "Current", label: "current", unit: "A"}
)

// plotter lays out the campaign charts under the output root
type plotter struct {
	renderer   *report.Renderer
	root       string
	sampleRate float64
	resolution float64 // spectrum bin width, Hz
	duration   time.Duration
}

func (p *plotter) path(dir, name string) string {
	return filepath.Join(p.root, dir, name)
}

func (p *plotter) harmonics(path string, ch channelPlot, h spectrum.HarmonicVector) error {
	return p.renderer.RenderHarmonics(path, report.Chart{
		Title:  fmt.Sprintf("%s harmonics - Sampling %g Hz", ch.name, p.sampleRate),
		XLabel: "Harmonic number",
		YLabel: fmt.Sprintf("%s per harmonic [%s]", ch.name, ch.unit),
	}, h)
}

func (p *plotter) spectrum(path string, ch channelPlot, iteration int, magnitudes []float64, decibels bool) error {
	s := spectrum.Spectrum{Magnitudes: magnitudes, Resolution: p.resolution}
	values := s.Magnitudes
	yLabel := fmt.Sprintf("Normalized %s FFT amplitude |X(freq)|", ch.label)
	if decibels {
		values = s.Decibels()
		yLabel += " [dB]"
	}

	return p.renderer.RenderSpectrum(path, report.Chart{
		Title:  fmt.Sprintf("Sampling %g Hz | Iteration %d", p.sampleRate, iteration),
		XLabel: fmt.Sprintf("Frequency [Hz] (Time = %g seconds)", p.duration.Seconds()*float64(iteration)),
		YLabel: yLabel,
		XUnit:  "Hz",
		XStep:  fftTickStep,
	}, s.Frequencies(), values)
}

func (p *plotter) preview(ch channelPlot, samples []float64) error {
	return p.renderer.RenderWaveform(p.path(dirPreview, ch.name+"_Preview.png"), report.Chart{
		Title:  fmt.Sprintf("%s preview", ch.name),
		XLabel: "Time [s]",
		YLabel: fmt.Sprintf("%s [%s]", ch.name, ch.unit),
		XUnit:  "s",
	}, samples, p.sampleRate)
}

func (p *plotter) ratios(ch channelPlot, ratios []float64, at time.Time) error {
	name := fmt.Sprintf("Harmonic_%s_Rat_%s.png", ch.name, at.Format("20060102_150405"))
	return p.renderer.RenderRatios(p.path(dirRatio, name), report.Chart{
		Title:  fmt.Sprintf("%s harmonic ratios", ch.name),
		XLabel: "Harmonic number",
		YLabel: "Ratio to the 1st harmonic [%]",
	}, ratios)
}

// channel renders the plots of one channel required by the plan
func (p *plotter) channel(plan Plan, iteration int, ch channelPlot, running *spectrum.Running) error {
	name := func(kind string) string {
		return fmt.Sprintf("%s_%d.png", kind, iteration)
	}

	harmonicKind := "Harmonic_" + ch.name
	fftKind := ch.name + "_FFT"
	dBKind := ch.name + "_FFT_dB"

	if plan.Periodic {
		if err := p.harmonics(p.path(harmonicKind, name(harmonicKind)), ch, running.Harmonics); err != nil {
			return err
		}
		if err := p.spectrum(p.path(dBKind, name(dBKind)), ch, iteration, running.Spectrum, true); err != nil {
			return err
		}
	}

	if plan.Final {
		if err := p.harmonics(p.path(dirFinal, name(harmonicKind)), ch, running.Harmonics); err != nil {
			return err
		}
		if err := p.spectrum(p.path(dirFinal, name(fftKind)), ch, iteration, running.Spectrum, false); err != nil {
			return err
		}
		if err := p.spectrum(p.path(dirFinal, name(dBKind)), ch, iteration, running.Spectrum, true); err != nil {
			return err
		}
	}

	return nil
}
