package instrument

import (
	"errors"
	"fmt"
)

// step is one scripted poll of the stub session
type step struct {
	state     State
	statusErr error
	record    Record
	recordErr error
}

// stubSession replays a scripted sequence of polls. Every read fills the
// destination with the running sample index so gaps and clamping are visible.
type stubSession struct {
	steps []step
	poll  int
	next  float64

	configured *RecordConfig
	started    bool
	closed     int
	closeErr   error
	readErr    error
	reads      map[Channel][]int
}

func newStubSession(steps ...step) *stubSession {
	return &stubSession{steps: steps, reads: make(map[Channel][]int)}
}

func (s *stubSession) Configure(cfg *RecordConfig) error {
	s.configured = cfg
	return nil
}

func (s *stubSession) Start() error {
	s.started = true
	return nil
}

func (s *stubSession) current() step {
	if s.poll == 0 || s.poll > len(s.steps) {
		return step{state: StateDone}
	}
	return s.steps[s.poll-1]
}

func (s *stubSession) Status() (State, error) {
	s.poll++
	st := s.current()
	return st.state, st.statusErr
}

func (s *stubSession) Record() (Record, error) {
	st := s.current()
	return st.record, st.recordErr
}

func (s *stubSession) Read(ch Channel, dst []float64) error {
	if s.readErr != nil {
		return s.readErr
	}
	if len(dst) > s.current().record.Available {
		return fmt.Errorf("read %d samples, only %d available", len(dst), s.current().record.Available)
	}

	s.reads[ch] = append(s.reads[ch], len(dst))
	for i := range dst {
		dst[i] = s.next + float64(i) + 1
	}
	if ch == DefaultCurrentChannel {
		s.next += float64(len(dst))
	}
	return nil
}

func (s *stubSession) Close() error {
	s.closed++
	return s.closeErr
}

type stubOpener struct {
	session *stubSession
	openErr error
	index   int
}

func (o *stubOpener) Open(index int) (Session, error) {
	o.index = index
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.session, nil
}

func (o *stubOpener) Device() string {
	return "stub"
}

var errFlaky = errors.New("usb hiccup")

func chunk(available int) step {
	return step{state: StateRunning, record: Record{Available: available}}
}
