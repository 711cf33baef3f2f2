package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/notify"
	"github.com/roman-kulish/power-quality/internal/report"
	"github.com/roman-kulish/power-quality/internal/spectrum"
	"github.com/roman-kulish/power-quality/internal/storage"
)

const (
	// clearScreen is the ANSI sequence moving the cursor home and erasing the display
	clearScreen = "\033[H\033[2J"

	// DefaultNotifyTimeout bounds sending the final summary
	DefaultNotifyTimeout = time.Minute
)

// WithLogger sets the logger of the campaign and its collector
func WithLogger(logger *slog.Logger) func(*Campaign) {
	return func(c *Campaign) {
		c.logger = logger
	}
}

// WithNotifier sets the notifier receiving the final summary
func WithNotifier(n notify.Notifier) func(*Campaign) {
	return func(c *Campaign) {
		c.notifier = n
	}
}

// WithTerminal clears w after every iteration
func WithTerminal(w io.Writer) func(*Campaign) {
	return func(c *Campaign) {
		c.terminal = w
	}
}

// WithRenderer replaces the default chart renderer
func WithRenderer(r *report.Renderer) func(*Campaign) {
	return func(c *Campaign) {
		c.renderer = r
	}
}

// WithNotifyTimeout sets how long sending the final summary may take
func WithNotifyTimeout(d time.Duration) func(*Campaign) {
	return func(c *Campaign) {
		c.notifyTimeout = d
	}
}

func withClock(now func() time.Time) func(*Campaign) {
	return func(c *Campaign) {
		c.now = now
	}
}

// Result is the outcome of a finished campaign
type Result struct {
	CampaignID    int64
	Summary       notify.Summary
	Voltage       spectrum.Running
	Current       spectrum.Running
	VoltageRatios []float64
	CurrentRatios []float64
}

// Campaign runs the configured number of acquire, analyze and aggregate
// iterations against one instrument, then writes the final report.
type Campaign struct {
	config *Config
	opener instrument.Opener
	store  storage.Store

	collector  *instrument.Collector
	analyzer   *spectrum.Analyzer
	aggregator *spectrum.Aggregator
	renderer   *report.Renderer
	plots      *plotter

	notifier      notify.Notifier
	notifyTimeout time.Duration
	terminal      io.Writer
	logger        *slog.Logger
	now           func() time.Time

	// preview keeps the leading samples of the latest iteration
	voltagePreview []float64
	currentPreview []float64
	lossy          int
}

// NewCampaign wires the collector, analyzer and aggregator for config
func NewCampaign(config *Config, opener instrument.Opener, store storage.Store, options ...func(*Campaign)) (*Campaign, error) {
	c := Campaign{
		config: config,
		opener: opener,
		store:  store,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		notifyTimeout: DefaultNotifyTimeout,
	}

	for _, option := range options {
		option(&c)
	}

	acq := &config.Acquisition

	var err error
	if c.analyzer, err = spectrum.NewAnalyzer(acq.SampleRate, acq.Samples(),
		spectrum.WithWindow(config.Analysis.Window),
		spectrum.WithFundamental(acq.Fundamental),
		spectrum.WithHarmonics(acq.Harmonics),
	); err != nil {
		return nil, err
	}

	if c.aggregator, err = spectrum.NewAggregator(config.Analysis.Averaging); err != nil {
		return nil, err
	}

	if c.renderer == nil {
		if c.renderer, err = report.NewRenderer(report.RenderConfig{}); err != nil {
			return nil, err
		}
	}

	c.collector = instrument.NewCollector(
		instrument.WithLogger(c.logger),
		instrument.WithDeviceIndex(config.Device.Index),
		instrument.WithChannels(instrument.Channel(config.Device.VoltageChannel), instrument.Channel(config.Device.CurrentChannel)),
		instrument.WithPollInterval(config.Device.PollInterval.Duration()),
		instrument.WithMaxIdlePolls(config.Device.MaxIdlePolls),
		instrument.WithLostSamples(config.Device.LostSamples),
	)

	c.plots = &plotter{
		renderer:   c.renderer,
		root:       config.Settings.OutputDirectory,
		sampleRate: acq.SampleRate,
		resolution: c.analyzer.Resolution(),
		duration:   acq.Duration.Duration(),
	}

	return &c, nil
}

// Run executes all iterations. An open failure or a collector error aborts
// the campaign, while store, plot and notification failures are only logged.
func (c *Campaign) Run(ctx context.Context) (*Result, error) {
	start := c.now()
	acq := &c.config.Acquisition

	campaignID, err := c.store.CreateCampaign(ctx, c.opener.Device(), strconv.Itoa(c.config.Device.Index), c.config)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	logger := c.logger.With(slog.Int64("campaign", campaignID))
	logger.Info("campaign started",
		slog.String("device", c.opener.Device()),
		slog.Int("iterations", acq.Iterations),
		slog.Int("samples", acq.Samples()),
		slog.Float64("sampleRate", acq.SampleRate))

	for i := 1; i <= acq.Iterations; i++ {
		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("campaign interrupted before iteration %d: %w", i, err)
		}

		if err = c.iteration(ctx, logger.With(slog.Int("iteration", i)), campaignID, i); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		if c.terminal != nil {
			_, _ = io.WriteString(c.terminal, clearScreen)
		}
	}

	return c.finish(ctx, logger, campaignID, start)
}

func (c *Campaign) iteration(ctx context.Context, logger *slog.Logger, campaignID int64, i int) error {
	acq := &c.config.Acquisition

	logger.Info("recording samples...")

	data, err := c.collector.Acquire(ctx, c.opener, acq)
	if err != nil {
		return err
	}

	voltage, err := c.analyzer.Analyze(data.Voltage)
	if err != nil {
		return fmt.Errorf("analyzing voltage: %w", err)
	}
	current, err := c.analyzer.Analyze(data.Current)
	if err != nil {
		return fmt.Errorf("analyzing current: %w", err)
	}

	if err = c.aggregator.Update(voltage, current); err != nil {
		return fmt.Errorf("aggregating: %w", err)
	}

	running := struct{ voltage, current float64 }{
		voltage: c.aggregator.Voltage().THD(),
		current: c.aggregator.Current().THD(),
	}

	logger.Info("calculation done",
		slog.Float64("voltageTHD", running.voltage),
		slog.Float64("currentTHD", running.current))

	if data.Status.AnyLost || data.Status.AnyCorrupted {
		c.lossy++
	}

	record := spectrum.IterationRecord{
		CampaignID:        campaignID,
		Iteration:         i,
		Timestamp:         c.now().UTC(),
		Written:           int64(data.Status.Written),
		Available:         data.Status.Available,
		Lost:              data.Status.Lost,
		Corrupted:         data.Status.Corrupted,
		AnyLost:           data.Status.AnyLost,
		AnyCorrupted:      data.Status.AnyCorrupted,
		VoltageTHD:        voltage.THD,
		CurrentTHD:        current.THD,
		RunningVoltageTHD: running.voltage,
		RunningCurrentTHD: running.current,
		VoltageHarmonics:  voltage.Harmonics,
		CurrentHarmonics:  current.Harmonics,
	}
	if err = c.store.StoreIteration(ctx, &record); err != nil {
		logger.Error("storing iteration", slog.String("error", err.Error()))
	}

	n := acq.PreviewSamples()
	c.voltagePreview = append(c.voltagePreview[:0], data.Voltage[:n]...)
	c.currentPreview = append(c.currentPreview[:0], data.Current[:n]...)

	plan := PlanFor(i, acq.Iterations, c.config.Settings.PlotEvery)
	if plan.Any() {
		if err = c.render(plan, i); err != nil {
			logger.Error("rendering plots", slog.String("error", err.Error()))
		} else {
			logger.Info("plots have been saved")
		}
	}

	return nil
}

func (c *Campaign) render(plan Plan, i int) error {
	if err := c.plots.channel(plan, i, voltagePlot, c.aggregator.Voltage()); err != nil {
		return err
	}
	if err := c.plots.channel(plan, i, currentPlot, c.aggregator.Current()); err != nil {
		return err
	}

	if plan.Final && len(c.voltagePreview) > 0 {
		if err := c.plots.preview(voltagePlot, c.voltagePreview); err != nil {
			return err
		}
		if err := c.plots.preview(currentPlot, c.currentPreview); err != nil {
			return err
		}
	}

	return nil
}

func (c *Campaign) finish(ctx context.Context, logger *slog.Logger, campaignID int64, start time.Time) (*Result, error) {
	acq := &c.config.Acquisition
	voltage, current := c.aggregator.Voltage(), c.aggregator.Current()

	result := Result{
		CampaignID:    campaignID,
		Voltage:       *voltage,
		Current:       *current,
		VoltageRatios: spectrum.Ratios(voltage.Harmonics, c.config.Analysis.VoltageRatioEpsilon),
		CurrentRatios: spectrum.Ratios(current.Harmonics, c.config.Analysis.CurrentRatioEpsilon),
	}

	measurement := time.Duration(acq.Iterations) * acq.Duration.Duration()
	logger.Info("final total harmonic distortion",
		slog.String("afterTime", measurement.String()),
		slog.Float64("voltageTHD", voltage.THD()),
		slog.Float64("currentTHD", current.THD()))

	at := c.now()
	if err := c.plots.ratios(voltagePlot, result.VoltageRatios, at); err != nil {
		logger.Error("rendering voltage ratios", slog.String("error", err.Error()))
	}
	if err := c.plots.ratios(currentPlot, result.CurrentRatios, at); err != nil {
		logger.Error("rendering current ratios", slog.String("error", err.Error()))
	}

	if c.config.Storage.Export {
		if err := c.export(campaignID, &result); err != nil {
			logger.Error("exporting spectrum", slog.String("error", err.Error()))
		}
	}

	if err := c.store.FinishCampaign(ctx, campaignID, voltage.THD(), current.THD()); err != nil {
		logger.Error("finishing campaign", slog.String("error", err.Error()))
	}

	wallClock := c.now().Sub(start)
	logger.Info("total operation time", slog.String("duration", wallClock.String()))

	result.Summary = notify.Summary{
		CampaignID:      campaignID,
		StartTime:       start,
		MeasurementTime: measurement,
		Iterations:      acq.Iterations,
		VoltageTHD:      voltage.THD(),
		CurrentTHD:      current.THD(),
		WallClock:       wallClock,
		LossyIterations: c.lossy,
	}
	if err := c.lossSummary(ctx, campaignID, &result.Summary); err != nil {
		logger.Error("reading iterations", slog.String("error", err.Error()))
	}

	if c.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
		if err := c.notifier.Notify(notifyCtx, result.Summary); err != nil {
			logger.Error("sending notification", slog.String("error", err.Error()))
		}
		cancel()
	}

	return &result, nil
}

// lossSummary sets the sticky loss flags of the summary from the stored iterations
func (c *Campaign) lossSummary(ctx context.Context, campaignID int64, s *notify.Summary) (err error) {
	reader, err := c.store.ReadIterations(ctx, campaignID)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	for reader.Next(ctx) {
		r := reader.Current()
		s.AnyLost = s.AnyLost || r.AnyLost
		s.AnyCorrupted = s.AnyCorrupted || r.AnyCorrupted
	}

	return reader.Error()
}

func (c *Campaign) export(campaignID int64, result *Result) error {
	dir := filepath.Join(c.config.Settings.OutputDirectory, dirExport)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	metadata := map[string]string{
		"campaign":   strconv.FormatInt(campaignID, 10),
		"device":     c.opener.Device(),
		"sampleRate": strconv.FormatFloat(c.config.Acquisition.SampleRate, 'f', -1, 64),
		"duration":   c.config.Acquisition.Duration.String(),
		"iterations": strconv.Itoa(c.config.Acquisition.Iterations),
		"window":     c.config.Analysis.Window.String(),
		"averaging":  c.config.Analysis.Averaging.String(),
	}

	freqs := c.analyzer.Frequencies()
	rows := make([]storage.SpectrumRow, len(freqs))
	for k, f := range freqs {
		rows[k] = storage.SpectrumRow{Frequency: f, Voltage: result.Voltage.Spectrum[k], Current: result.Current.Spectrum[k]}
	}
	if err := storage.ExportSpectrum(filepath.Join(dir, fmt.Sprintf("spectrum_%d.parquet", campaignID)), rows, metadata); err != nil {
		return err
	}

	harmonics := make([]storage.HarmonicRow, len(result.Voltage.Harmonics))
	for i := range harmonics {
		h := storage.HarmonicRow{
			Order:     int32(i + 1),
			Frequency: float64(i+1) * c.config.Acquisition.Fundamental,
			Voltage:   result.Voltage.Harmonics[i],
			Current:   result.Current.Harmonics[i],
		}
		if i > 0 && i-1 < len(result.VoltageRatios) {
			h.VoltageRatio = result.VoltageRatios[i-1]
			h.CurrentRatio = result.CurrentRatios[i-1]
		}
		harmonics[i] = h
	}

	return storage.ExportHarmonics(filepath.Join(dir, fmt.Sprintf("harmonics_%d.parquet", campaignID)), harmonics, metadata)
}
