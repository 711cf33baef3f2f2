package instrument

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/power-quality/internal/instrument/driver"
)

func TestCollector_Clamping(t *testing.T) {
	tests := []struct {
		name      string
		samples   int
		wantReads []int
		wantPolls int
	}{
		{name: "third poll clamped", samples: 400, wantReads: []int{100, 250, 50}, wantPolls: 3},
		{name: "second poll clamped", samples: 300, wantReads: []int{100, 200}, wantPolls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newStubSession(chunk(100), chunk(250), chunk(9999))

			acq, err := NewCollector().Collect(context.Background(), session, tt.samples)
			require.NoError(t, err)

			assert.Equal(t, tt.samples, acq.Status.Written)
			assert.Equal(t, tt.wantPolls, acq.Status.Polls)
			assert.Equal(t, tt.wantReads, session.reads[DefaultVoltageChannel])
			assert.Equal(t, tt.wantReads, session.reads[DefaultCurrentChannel])

			require.Len(t, acq.Voltage, tt.samples)
			require.Len(t, acq.Current, tt.samples)
			assert.Equal(t, float64(tt.samples), acq.Voltage[tt.samples-1])
			assert.Equal(t, float64(tt.samples), acq.Current[tt.samples-1])
			assert.False(t, acq.Status.AnyLost)
			assert.False(t, acq.Status.AnyCorrupted)
		})
	}
}

func TestCollector_WaitsForAcquisitionStart(t *testing.T) {
	session := newStubSession(
		step{state: StateConfig, statusErr: nil},
		step{state: StatePrefill},
		step{state: StateArmed},
		chunk(300),
	)

	acq, err := NewCollector(WithPollErrorsThreshold(1)).Collect(context.Background(), session, 300)
	require.NoError(t, err)

	assert.Equal(t, 4, acq.Status.Polls)
	assert.Equal(t, 300, acq.Status.Written)
	assert.Equal(t, int64(300), acq.Status.Available)
}

func TestCollector_StalledWhileArmed(t *testing.T) {
	session := newStubSession(
		step{state: StateArmed},
		step{state: StateArmed},
		step{state: StateArmed},
	)

	_, err := NewCollector(WithMaxIdlePolls(2)).Collect(context.Background(), session, 100)
	assert.ErrorIs(t, err, ErrStalled)
}

func TestCollector_StalledWithoutData(t *testing.T) {
	session := newStubSession(chunk(10), chunk(0), chunk(0), chunk(0), chunk(90))

	_, err := NewCollector(WithMaxIdlePolls(3)).Collect(context.Background(), session, 100)
	assert.ErrorIs(t, err, ErrStalled)

	session = newStubSession(chunk(10), chunk(0), chunk(0), chunk(90))

	acq, err := NewCollector(WithMaxIdlePolls(3)).Collect(context.Background(), session, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, acq.Status.Written)
}

func TestCollector_LostSamples(t *testing.T) {
	lossy := func() *stubSession {
		return newStubSession(
			chunk(100),
			step{state: StateRunning, record: Record{Available: 50, Lost: 50}},
			chunk(100),
		)
	}

	t.Run("gap", func(t *testing.T) {
		acq, err := NewCollector(WithLostSamples(LostSamplesGap)).Collect(context.Background(), lossy(), 300)
		require.NoError(t, err)

		assert.True(t, acq.Status.AnyLost)
		assert.Equal(t, int64(50), acq.Status.Lost)
		assert.Equal(t, 250, acq.Status.Written)

		// lost samples leave a zero-filled gap, later samples keep their time position
		assert.Equal(t, 100.0, acq.Voltage[99])
		assert.Equal(t, 0.0, acq.Voltage[100])
		assert.Equal(t, 0.0, acq.Voltage[149])
		assert.Equal(t, 101.0, acq.Voltage[150])
		assert.Equal(t, 250.0, acq.Voltage[299])
	})

	t.Run("skip", func(t *testing.T) {
		acq, err := NewCollector(WithLostSamples(LostSamplesSkip)).Collect(context.Background(), lossy(), 250)
		require.NoError(t, err)

		assert.True(t, acq.Status.AnyLost)
		assert.Equal(t, 250, acq.Status.Written)
		assert.Equal(t, 101.0, acq.Voltage[100])
		assert.Equal(t, 250.0, acq.Voltage[249])
	})

	t.Run("skip pads a short record", func(t *testing.T) {
		acq, err := NewCollector(WithLostSamples(LostSamplesSkip)).Collect(context.Background(), lossy(), 300)
		require.NoError(t, err)

		assert.True(t, acq.Status.AnyLost)
		assert.Equal(t, 250, acq.Status.Written)
		require.Len(t, acq.Voltage, 300)
		require.Len(t, acq.Current, 300)
		assert.Equal(t, 250.0, acq.Voltage[249])
		assert.Equal(t, 0.0, acq.Voltage[250])
		assert.Equal(t, 0.0, acq.Current[299])
	})

	t.Run("loss past the end", func(t *testing.T) {
		session := newStubSession(
			chunk(100),
			step{state: StateRunning, record: Record{Available: 10, Lost: 500}},
		)

		acq, err := NewCollector().Collect(context.Background(), session, 300)
		require.NoError(t, err)
		assert.Equal(t, 100, acq.Status.Written)
		assert.Len(t, session.reads[DefaultVoltageChannel], 1)
	})
}

func TestCollector_CorruptedFlagIsSticky(t *testing.T) {
	session := newStubSession(
		step{state: StateRunning, record: Record{Available: 50, Corrupted: 5}},
		chunk(50),
	)

	acq, err := NewCollector().Collect(context.Background(), session, 100)
	require.NoError(t, err)

	assert.True(t, acq.Status.AnyCorrupted)
	assert.Equal(t, int64(5), acq.Status.Corrupted)
	assert.False(t, acq.Status.AnyLost)
}

func TestCollector_PollErrors(t *testing.T) {
	flaky := step{state: StateRunning, statusErr: errFlaky}

	t.Run("below threshold", func(t *testing.T) {
		session := newStubSession(flaky, flaky, flaky, flaky, chunk(100))

		acq, err := NewCollector().Collect(context.Background(), session, 100)
		require.NoError(t, err)
		assert.Equal(t, 100, acq.Status.Written)
	})

	t.Run("threshold reached", func(t *testing.T) {
		session := newStubSession(flaky, flaky, flaky, flaky, flaky, chunk(100))

		_, err := NewCollector().Collect(context.Background(), session, 100)
		assert.ErrorIs(t, err, ErrTooManyPollErrors)
		assert.ErrorIs(t, err, errFlaky)
	})

	t.Run("interleaved with waiting polls", func(t *testing.T) {
		armed := step{state: StateArmed}
		session := newStubSession(
			flaky, armed, flaky, armed, flaky, armed, flaky, armed, flaky, armed,
			flaky, armed, chunk(100),
		)

		acq, err := NewCollector().Collect(context.Background(), session, 100)
		require.NoError(t, err)
		assert.Equal(t, 100, acq.Status.Written)
	})

	t.Run("record errors", func(t *testing.T) {
		bad := step{state: StateRunning, recordErr: errFlaky}
		session := newStubSession(bad, bad)

		_, err := NewCollector(WithPollErrorsThreshold(2)).Collect(context.Background(), session, 100)
		assert.ErrorIs(t, err, ErrTooManyPollErrors)
	})
}

func TestCollector_RecordEnded(t *testing.T) {
	for _, policy := range []LostSamplesPolicy{LostSamplesGap, LostSamplesSkip} {
		t.Run(policy.String(), func(t *testing.T) {
			session := newStubSession(chunk(100))

			_, err := NewCollector(WithLostSamples(policy)).Collect(context.Background(), session, 300)
			assert.ErrorIs(t, err, ErrRecordEnded)
		})
	}
}

func TestCollector_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector().Collect(ctx, newStubSession(chunk(100)), 100)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = NewCollector(WithPollInterval(time.Hour)).Collect(ctx, newStubSession(chunk(100)), 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCollector_InvalidSampleCount(t *testing.T) {
	_, err := NewCollector().Collect(context.Background(), newStubSession(), 0)
	assert.Error(t, err)
}

func testAcquisitionConfig() *AcquisitionConfig {
	cfg := DefaultAcquisitionConfig()
	cfg.Duration = NewTimeDuration(time.Second)
	cfg.Iterations = 1
	return &cfg
}

func TestCollector_Acquire(t *testing.T) {
	cfg := testAcquisitionConfig()

	t.Run("end to end", func(t *testing.T) {
		session := newStubSession(step{state: StatePrefill}, chunk(1000), chunk(1000), chunk(5000))
		opener := &stubOpener{session: session}

		acq, err := NewCollector(WithDeviceIndex(2)).Acquire(context.Background(), opener, cfg)
		require.NoError(t, err)

		assert.Equal(t, 2, opener.index)
		assert.True(t, session.started)
		assert.Equal(t, 1, session.closed)
		require.NotNil(t, session.configured)
		assert.Equal(t, 4000.0, session.configured.SampleRate)
		assert.Equal(t, time.Second, session.configured.Duration)
		assert.Equal(t, []Channel{DefaultVoltageChannel, DefaultCurrentChannel}, session.configured.Channels)

		assert.Equal(t, 4000, acq.Status.Written)
		assert.Len(t, acq.Voltage, 4000)
		assert.Len(t, acq.Current, 4000)
	})

	t.Run("open failure is not wrapped", func(t *testing.T) {
		opener := &stubOpener{openErr: driver.NewOpenError(-1, "Device not found")}

		_, err := NewCollector().Acquire(context.Background(), opener, cfg)

		var openErr *driver.OpenError
		require.ErrorAs(t, err, &openErr)
		assert.Equal(t, "Device not found", openErr.Message)
	})

	t.Run("session closed on read failure", func(t *testing.T) {
		session := newStubSession(chunk(100))
		session.readErr = errFlaky
		session.closeErr = errors.New("close failed")

		_, err := NewCollector().Acquire(context.Background(), &stubOpener{session: session}, cfg)
		assert.ErrorIs(t, err, errFlaky)
		assert.ErrorContains(t, err, "close failed")
		assert.Equal(t, 1, session.closed)
	})
}
