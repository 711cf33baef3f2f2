package instrument

import (
	"fmt"
	"time"
)

const (
	StateReady State = iota
	StateArmed
	StateDone
	StateRunning
	StateConfig
	StatePrefill
)

// State is the acquisition state reported by the instrument
type State uint8

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateArmed:
		return "armed"
	case StateDone:
		return "done"
	case StateRunning:
		return "running"
	case StateConfig:
		return "config"
	case StatePrefill:
		return "prefill"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Waiting reports whether the instrument has not started recording yet
func (s State) Waiting() bool {
	return s == StateConfig || s == StatePrefill || s == StateArmed
}

// Channel is a zero-based analog input channel index
type Channel int

// RecordConfig describes a record-mode acquisition of all listed channels.
type RecordConfig struct {
	SampleRate float64
	Duration   time.Duration
	Channels   []Channel
}

// Record is the per-poll sample accounting reported by the instrument.
type Record struct {
	Available int // samples ready to be read
	Lost      int // samples overwritten before they could be read
	Corrupted int // samples that may have been overwritten while being read
}

// Session is an open connection to a record-mode instrument. A Session is
// used from a single goroutine and must be closed exactly once.
type Session interface {
	// Configure enables the channels and sets up record mode.
	Configure(cfg *RecordConfig) error

	// Start begins the acquisition.
	Start() error

	// Status polls the instrument and returns its current state.
	Status() (State, error)

	// Record returns the sample accounting of the last Status call.
	Record() (Record, error)

	// Read copies len(dst) samples of the channel from the last Status call.
	Read(ch Channel, dst []float64) error

	// Close stops any output, resets the device and releases it.
	Close() error
}

// Opener opens instrument sessions
type Opener interface {
	// Open connects to the device with the given index. A failure carries
	// the driver's last error message and is not retried.
	Open(index int) (Session, error)

	// Device returns the device type name
	Device() string
}
