//go:build dwf && cgo

package dwf

/*
#cgo linux CFLAGS: -I/usr/include/digilent/waveforms
#cgo LDFLAGS: -ldwf
#include <dwf.h>
*/
import "C"

import (
	"errors"
	"strings"
	"time"
	"unsafe"

	"github.com/roman-kulish/power-quality/internal/instrument"
	"github.com/roman-kulish/power-quality/internal/instrument/driver"
)

const (
	acqmodeRecord = 3

	// allChannels addresses every analog output channel
	allChannels = -1
)

// Opener opens WaveForms devices through libdwf
type Opener struct {
	config *Config
}

// New creates an Opener
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

// Version returns the libdwf version string
func (o *Opener) Version() (string, error) {
	var buf [32]C.char
	if C.FDwfGetVersion(&buf[0]) == 0 {
		return "", driver.NewRuntimeError("FDwfGetVersion", lastError())
	}
	return C.GoString(&buf[0]), nil
}

func (o *Opener) Open(index int) (instrument.Session, error) {
	var hdwf C.HDWF
	if C.FDwfDeviceConfigOpen(C.int(index), C.int(o.config.DeviceConfig), &hdwf) == 0 || hdwf == 0 {
		return nil, driver.NewOpenError(index, lastError())
	}

	return &Session{hdwf: hdwf, config: o.config}, nil
}

// Session is an open WaveForms device in analog-in record mode
type Session struct {
	hdwf   C.HDWF
	config *Config
	closed bool
}

func (s *Session) Configure(cfg *instrument.RecordConfig) error {
	for _, ch := range cfg.Channels {
		if C.FDwfAnalogInChannelEnableSet(s.hdwf, C.int(ch), C.int(1)) == 0 {
			return callError("FDwfAnalogInChannelEnableSet")
		}
		if C.FDwfAnalogInChannelRangeSet(s.hdwf, C.int(ch), C.double(s.config.ChannelRange)) == 0 {
			return callError("FDwfAnalogInChannelRangeSet")
		}
	}

	if C.FDwfAnalogInAcquisitionModeSet(s.hdwf, C.ACQMODE(acqmodeRecord)) == 0 {
		return callError("FDwfAnalogInAcquisitionModeSet")
	}
	if C.FDwfAnalogInFrequencySet(s.hdwf, C.double(cfg.SampleRate)) == 0 {
		return callError("FDwfAnalogInFrequencySet")
	}
	if C.FDwfAnalogInRecordLengthSet(s.hdwf, C.double(cfg.Duration.Seconds())) == 0 {
		return callError("FDwfAnalogInRecordLengthSet")
	}

	return nil
}

func (s *Session) Start() error {
	time.Sleep(s.config.SettleTime.Duration())

	if C.FDwfAnalogInConfigure(s.hdwf, C.int(0), C.int(1)) == 0 {
		return callError("FDwfAnalogInConfigure")
	}
	return nil
}

func (s *Session) Status() (instrument.State, error) {
	var sts C.DwfState
	if C.FDwfAnalogInStatus(s.hdwf, C.int(1), &sts) == 0 {
		return instrument.StateReady, callError("FDwfAnalogInStatus")
	}
	return instrument.State(sts), nil
}

func (s *Session) Record() (instrument.Record, error) {
	var available, lost, corrupted C.int
	if C.FDwfAnalogInStatusRecord(s.hdwf, &available, &lost, &corrupted) == 0 {
		return instrument.Record{}, callError("FDwfAnalogInStatusRecord")
	}
	return instrument.Record{
		Available: int(available),
		Lost:      int(lost),
		Corrupted: int(corrupted),
	}, nil
}

func (s *Session) Read(ch instrument.Channel, dst []float64) error {
	if len(dst) == 0 {
		return nil
	}
	if C.FDwfAnalogInStatusData(s.hdwf, C.int(ch), (*C.double)(unsafe.Pointer(&dst[0])), C.int(len(dst))) == 0 {
		return callError("FDwfAnalogInStatusData")
	}
	return nil
}

func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if C.FDwfAnalogOutReset(s.hdwf, C.int(allChannels)) == 0 {
		errs = append(errs, callError("FDwfAnalogOutReset"))
	}
	if C.FDwfDeviceClose(s.hdwf) == 0 {
		errs = append(errs, callError("FDwfDeviceClose"))
	}

	return errors.Join(errs...)
}

func callError(call string) error {
	return driver.NewRuntimeError(call, lastError())
}

func lastError() string {
	var buf [512]C.char
	C.FDwfGetLastErrorMsg(&buf[0])
	return strings.TrimSpace(C.GoString(&buf[0]))
}
