package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/instrument/driver"
)

const Device = "simulator"

var errClosed = errors.New("session closed")

// Opener opens simulated sessions
type Opener struct {
	config *Config
}

// New creates a simulator Opener
func New(config *Config) (*Opener, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, driver.NewConfigError(err.Error())
	}
	return &Opener{config: config}, nil
}

func (o *Opener) Device() string {
	return Device
}

func (o *Opener) Open(index int) (instrument.Session, error) {
	if o.config.FailOpen != "" {
		return nil, driver.NewOpenError(index, o.config.FailOpen)
	}

	return &Session{
		config: o.config,
		rnd:    rand.New(rand.NewPCG(o.config.Seed, uint64(index))),
	}, nil
}

// Session streams synthetic voltage and current chunks in record mode.
// The first configured channel carries voltage, the second current.
type Session struct {
	config *Config
	rnd    *rand.Rand

	record     *instrument.RecordConfig
	total      int // samples in the record
	produced   int // samples delivered or lost so far
	started    bool
	closed     bool
	prefill    int
	dataPolls  int
	chunkStart int
	last       instrument.Record
}

func (s *Session) Configure(cfg *instrument.RecordConfig) error {
	if s.closed {
		return errClosed
	}
	if cfg == nil || cfg.SampleRate <= 0 || cfg.Duration <= 0 {
		return driver.NewConfigError("simulator: invalid record configuration")
	}
	if len(cfg.Channels) != 2 {
		return driver.NewConfigError(fmt.Sprintf("simulator: expected 2 channels, got %d", len(cfg.Channels)))
	}

	s.record = cfg
	s.total = int(math.Round(cfg.SampleRate * cfg.Duration.Seconds()))
	return nil
}

func (s *Session) Start() error {
	if s.closed {
		return errClosed
	}
	if s.record == nil {
		return driver.NewRuntimeError("Start", "session is not configured")
	}
	s.started = true
	s.prefill = s.config.PrefillPolls
	return nil
}

func (s *Session) Status() (instrument.State, error) {
	switch {
	case s.closed:
		return instrument.StateReady, errClosed
	case !s.started:
		return instrument.StateConfig, nil
	case s.prefill > 0:
		s.prefill--
		s.last = instrument.Record{}
		return instrument.StatePrefill, nil
	case s.produced >= s.total:
		s.last = instrument.Record{}
		return instrument.StateDone, nil
	}

	s.dataPolls++

	var rec instrument.Record
	if s.config.LostEvery > 0 && s.dataPolls%s.config.LostEvery == 0 {
		rec.Lost = min(s.config.LostSamples, s.total-s.produced)
		s.produced += rec.Lost
	}
	if s.config.CorruptedEvery > 0 && s.dataPolls%s.config.CorruptedEvery == 0 {
		rec.Corrupted = 1
	}

	s.chunkStart = s.produced
	rec.Available = min(s.config.ChunkSize, s.total-s.produced)
	s.produced += rec.Available
	s.last = rec

	return instrument.StateRunning, nil
}

func (s *Session) Record() (instrument.Record, error) {
	if s.closed {
		return instrument.Record{}, errClosed
	}
	return s.last, nil
}

func (s *Session) Read(ch instrument.Channel, dst []float64) error {
	if s.closed {
		return errClosed
	}
	if len(dst) > s.last.Available {
		return driver.NewRuntimeError("Read", fmt.Sprintf("requested %d samples, %d available", len(dst), s.last.Available))
	}

	var amplitude float64
	var harmonics map[int]float64
	switch ch {
	case s.record.Channels[0]:
		amplitude, harmonics = s.config.VoltageAmplitude, s.config.VoltageHarmonics
	case s.record.Channels[1]:
		amplitude, harmonics = s.config.CurrentAmplitude, s.config.CurrentHarmonics
	default:
		return driver.NewRuntimeError("Read", fmt.Sprintf("channel %d is not enabled", ch))
	}

	w := 2 * math.Pi * s.config.Fundamental
	for i := range dst {
		t := float64(s.chunkStart+i) / s.record.SampleRate

		v := amplitude * math.Sin(w*t)
		for order, percent := range harmonics {
			v += amplitude * percent / 100 * math.Sin(w*float64(order)*t)
		}
		if s.config.Noise > 0 {
			v += s.rnd.NormFloat64() * s.config.Noise
		}

		dst[i] = v
	}

	return nil
}

func (s *Session) Close() error {
	if s.closed {
		return errClosed
	}
	s.closed = true
	return nil
}
