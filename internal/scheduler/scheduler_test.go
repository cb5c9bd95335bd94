package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPoller struct {
	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
	err         error

	mu        sync.Mutex
	deadlines []bool
}

func (m *mockPoller) Poll(ctx context.Context) error {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	_, hasDeadline := ctx.Deadline()
	m.mu.Lock()
	m.deadlines = append(m.deadlines, hasDeadline)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
		}
	}
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsImmediately(t *testing.T) {
	p := &mockPoller{}
	s := New(p, time.Hour, time.Second, testLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond,
		"first poll should not wait for the interval")
}

func TestScheduler_RepeatsWithDeadline(t *testing.T) {
	p := &mockPoller{}
	s := New(p, 50*time.Millisecond, time.Second, testLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, hasDeadline := range p.deadlines {
		assert.True(t, hasDeadline)
	}
}

func TestScheduler_PollErrorsDoNotStopSchedule(t *testing.T) {
	p := &mockPoller{err: errors.New("upstream down")}
	s := New(p, 20*time.Millisecond, time.Second, testLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	p := &mockPoller{delay: 60 * time.Millisecond}
	s := New(p, 10*time.Millisecond, time.Second, testLogger())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), p.maxInFlight.Load())
}

func TestScheduler_StopCancelsInFlightPoll(t *testing.T) {
	p := &mockPoller{delay: 10 * time.Second}
	s := New(p, time.Hour, time.Minute, testLogger())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return p.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	require.Eventually(t, func() bool { return p.inFlight.Load() == 0 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := New(&mockPoller{}, 0, time.Second, testLogger())
	require.Error(t, s.Start(context.Background()))
}
