package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// PollErrorsThreshold defines the number of consecutive driver errors allowed while polling
	PollErrorsThreshold = 5

	// DefaultVoltageChannel and DefaultCurrentChannel match the channel wiring of the reference bench
	DefaultVoltageChannel Channel = 1
	DefaultCurrentChannel Channel = 0

	// LostSamplesGap counts lost samples toward completion, leaving a zero-filled gap
	LostSamplesGap LostSamplesPolicy = "gap"

	// LostSamplesSkip treats lost samples as informational and keeps filling contiguously.
	// A record that ends short because of the loss is zero-padded at the tail.
	LostSamplesSkip LostSamplesPolicy = "skip"
)

var (
	// ErrTooManyPollErrors is returned when the number of consecutive poll errors exceeds the threshold
	ErrTooManyPollErrors = errors.New("too many consecutive poll errors")

	// ErrStalled is returned when the instrument produced no data for the maximum number of polls
	ErrStalled = errors.New("acquisition stalled")

	// ErrRecordEnded is returned when the instrument finished before the buffer was filled
	ErrRecordEnded = errors.New("record ended before buffer was filled")
)

type LostSamplesPolicy string

func (p LostSamplesPolicy) String() string {
	return string(p)
}

func (p LostSamplesPolicy) Validate() error {
	switch p {
	case LostSamplesGap, LostSamplesSkip:
		return nil
	default:
		return fmt.Errorf("instrument.LostSamplesPolicy: invalid policy: %s", p)
	}
}

// AcquisitionStatus summarizes one acquisition. Counters are cumulative over
// all polls, the flags are sticky for the acquisition.
type AcquisitionStatus struct {
	Polls        int
	Written      int
	Available    int64
	Lost         int64
	Corrupted    int64
	AnyLost      bool
	AnyCorrupted bool
}

func (s *AcquisitionStatus) observe(r Record) {
	s.Available += int64(r.Available)
	s.Lost += int64(r.Lost)
	s.Corrupted += int64(r.Corrupted)

	if r.Lost > 0 {
		s.AnyLost = true
	}
	if r.Corrupted > 0 {
		s.AnyCorrupted = true
	}
}

// Acquisition holds the filled voltage and current buffers of one record
type Acquisition struct {
	Voltage []float64
	Current []float64
	Status  AcquisitionStatus
}

// WithLogger sets the logger for the collector
func WithLogger(logger *slog.Logger) func(c *Collector) {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithPollInterval sets the pause between polls. Zero busy-waits.
func WithPollInterval(d time.Duration) func(c *Collector) {
	return func(c *Collector) {
		c.pollInterval = d
	}
}

// WithMaxIdlePolls limits consecutive polls that produce no samples. Zero means unlimited.
func WithMaxIdlePolls(n int) func(c *Collector) {
	return func(c *Collector) {
		c.maxIdlePolls = n
	}
}

// WithPollErrorsThreshold sets the threshold for consecutive poll errors
func WithPollErrorsThreshold(threshold uint8) func(c *Collector) {
	return func(c *Collector) {
		c.pollErrorsThreshold = threshold
	}
}

// WithLostSamples sets how lost samples are accounted for
func WithLostSamples(policy LostSamplesPolicy) func(c *Collector) {
	return func(c *Collector) {
		c.lostSamples = policy
	}
}

// WithChannels sets the voltage and current input channels
func WithChannels(voltage, current Channel) func(c *Collector) {
	return func(c *Collector) {
		c.voltageChannel = voltage
		c.currentChannel = current
	}
}

// WithDeviceIndex sets the index passed to Opener.Open
func WithDeviceIndex(index int) func(c *Collector) {
	return func(c *Collector) {
		c.deviceIndex = index
	}
}

// Collector drives a record-mode acquisition and copies streamed chunks of
// both channels into fixed-size buffers.
type Collector struct {
	deviceIndex    int
	voltageChannel Channel
	currentChannel Channel

	pollInterval        time.Duration
	maxIdlePolls        int
	pollErrorsThreshold uint8
	lostSamples         LostSamplesPolicy

	logger *slog.Logger
}

// NewCollector creates a new Collector instance with a discard logger
func NewCollector(options ...func(c *Collector)) *Collector {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	c := Collector{
		deviceIndex:         -1,
		voltageChannel:      DefaultVoltageChannel,
		currentChannel:      DefaultCurrentChannel,
		pollErrorsThreshold: PollErrorsThreshold,
		lostSamples:         LostSamplesGap,
		logger:              logger,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Acquire opens a session, records one buffer of cfg.Samples() per channel
// and closes the session on every path. An open failure is returned as is.
func (c *Collector) Acquire(ctx context.Context, opener Opener, cfg *AcquisitionConfig) (acq *Acquisition, err error) {
	logger := c.logger.With(slog.String("device", opener.Device()), slog.Int("deviceIndex", c.deviceIndex))

	logger.Debug("opening device")

	session, err := opener.Open(c.deviceIndex)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cErr := session.Close(); cErr != nil {
			err = errors.Join(err, fmt.Errorf("closing session: %w", cErr))
		}
	}()

	if err = session.Configure(cfg.RecordConfig(c.voltageChannel, c.currentChannel)); err != nil {
		return nil, fmt.Errorf("configuring session: %w", err)
	}

	if err = session.Start(); err != nil {
		return nil, fmt.Errorf("starting acquisition: %w", err)
	}

	logger.Info("recording samples...", slog.Int("samples", cfg.Samples()), slog.String("duration", cfg.Duration.String()))

	if acq, err = c.Collect(ctx, session, cfg.Samples()); err != nil {
		return nil, err
	}

	logger.Info("recording done", slog.Int("written", acq.Status.Written), slog.Int("polls", acq.Status.Polls))

	if acq.Status.AnyLost {
		logger.Warn("samples were lost", slog.Int64("lost", acq.Status.Lost))
	}
	if acq.Status.AnyCorrupted {
		logger.Warn("samples could be corrupted", slog.Int64("corrupted", acq.Status.Corrupted))
	}

	return acq, nil
}

// Collect polls an armed session until n samples per channel are accounted
// for. Polls made before the first sample arrives, while the instrument is
// still configuring, prefilling or armed, never count as failed polls and
// reset the failure count.
func (c *Collector) Collect(ctx context.Context, session Session, n int) (*Acquisition, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", n)
	}

	voltage := NewChannelBuffer(n)
	current := NewChannelBuffer(n)

	var (
		status     AcquisitionStatus
		offset     int
		idle       int
		pollErrors uint8
	)

	pollFailed := func(what string, err error) error {
		pollErrors++
		c.logger.Warn(fmt.Sprintf("error polling %s: %s", what, err.Error()))

		if pollErrors >= c.pollErrorsThreshold {
			return fmt.Errorf("%w: %w", ErrTooManyPollErrors, err)
		}
		return nil
	}

	for offset < n {
		if err := c.wait(ctx); err != nil {
			return nil, fmt.Errorf("acquisition interrupted at %d of %d samples: %w", offset, n, err)
		}

		state, err := session.Status()
		if err != nil {
			if err = pollFailed("status", err); err != nil {
				return nil, err
			}
			continue
		}

		status.Polls++

		if offset == 0 && state.Waiting() {
			pollErrors = 0
			if err = c.idle(&idle); err != nil {
				return nil, fmt.Errorf("%w: instrument still %s", err, state)
			}
			continue
		}

		record, err := session.Record()
		if err != nil {
			if err = pollFailed("record", err); err != nil {
				return nil, err
			}
			continue
		}

		pollErrors = 0 // reset counter
		status.observe(record)

		if record.Lost > 0 && c.lostSamples == LostSamplesGap {
			offset += record.Lost
		}

		if record.Available == 0 {
			if state == StateDone && c.lostSamples == LostSamplesSkip && status.AnyLost {
				// lost samples were part of the record, the tail stays zero
				c.logger.Warn("record ended short after sample loss",
					slog.Int("written", offset), slog.Int("samples", n), slog.Int("missing", n-offset))
				break
			}
			if state == StateDone && record.Lost == 0 {
				return nil, fmt.Errorf("%w: %d of %d samples", ErrRecordEnded, offset, n)
			}
			if err = c.idle(&idle); err != nil {
				return nil, fmt.Errorf("%w: %d of %d samples", err, offset, n)
			}
			continue
		}

		idle = 0

		dstVoltage := voltage.Window(offset, record.Available)
		if len(dstVoltage) == 0 {
			break // lost samples pushed past the end
		}
		dstCurrent := current.Window(offset, len(dstVoltage))

		if err = session.Read(c.voltageChannel, dstVoltage); err != nil {
			return nil, fmt.Errorf("reading voltage channel %d: %w", c.voltageChannel, err)
		}
		if err = session.Read(c.currentChannel, dstCurrent); err != nil {
			return nil, fmt.Errorf("reading current channel %d: %w", c.currentChannel, err)
		}

		voltage.Commit(len(dstVoltage))
		current.Commit(len(dstCurrent))
		offset += len(dstVoltage)
	}

	status.Written = voltage.Written()

	return &Acquisition{
		Voltage: voltage.Samples(),
		Current: current.Samples(),
		Status:  status,
	}, nil
}

func (c *Collector) idle(count *int) error {
	*count++
	if c.maxIdlePolls > 0 && *count >= c.maxIdlePolls {
		return ErrStalled
	}
	return nil
}

func (c *Collector) wait(ctx context.Context) error {
	if c.pollInterval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
