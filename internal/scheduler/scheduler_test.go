package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework_notifier/internal/domain"
)

// scriptedPoller returns the scripted outcome for each call, then succeeds.
// Every call is announced on called before the outcome runs.
type scriptedPoller struct {
	mu      sync.Mutex
	results []func() error
	ctxs    []context.Context
	called  chan struct{}
}

func newScriptedPoller(results ...func() error) *scriptedPoller {
	return &scriptedPoller{results: results, called: make(chan struct{}, 16)}
}

func (p *scriptedPoller) Poll(ctx context.Context) (*domain.PollStats, error) {
	p.mu.Lock()
	p.ctxs = append(p.ctxs, ctx)
	i := len(p.ctxs) - 1
	p.mu.Unlock()

	p.called <- struct{}{}

	if i < len(p.results) {
		if err := p.results[i](); err != nil {
			return nil, err
		}
	}
	return &domain.PollStats{}, nil
}

func (p *scriptedPoller) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ctxs)
}

func (p *scriptedPoller) context(i int) context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctxs[i]
}

func testConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		ErrorBackoff: 5 * time.Second,
		CycleTimeout: time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// running is a scheduler started in the background on a fake clock.
type running struct {
	clock  *clockwork.FakeClock
	poller *scriptedPoller
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, poller *scriptedPoller) *running {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		clock:  clockwork.NewFakeClock(),
		poller: poller,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	t.Cleanup(cancel)

	s := NewScheduler(poller, testConfig(), r.clock, testLogger())
	go func() { r.done <- s.Start(ctx) }()

	return r
}

func (r *running) awaitPoll(t *testing.T) {
	t.Helper()
	select {
	case <-r.poller.called:
	case <-time.After(time.Second):
		t.Fatal("poll cycle did not run")
	}
}

func (r *running) assertNoPoll(t *testing.T) {
	t.Helper()
	select {
	case <-r.poller.called:
		t.Fatal("poll cycle ran before its wait elapsed")
	case <-time.After(20 * time.Millisecond):
	}
}

// advance waits until the scheduler sleeps on the clock, then moves it by d.
func (r *running) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.clock.BlockUntilContext(ctx, 1), "scheduler is not sleeping")
	r.clock.Advance(d)
}

func (r *running) stop(t *testing.T) error {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		return err
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
		return nil
	}
}

func TestStart_WaitsIntervalAfterSuccess(t *testing.T) {
	r := start(t, newScriptedPoller())
	r.awaitPoll(t)

	r.advance(t, 5*time.Minute-time.Millisecond)
	r.assertNoPoll(t)

	r.clock.Advance(time.Millisecond)
	r.awaitPoll(t)

	assert.ErrorIs(t, r.stop(t), context.Canceled)
	assert.Equal(t, 2, r.poller.calls())
}

func TestStart_BacksOffAfterFetchError(t *testing.T) {
	r := start(t, newScriptedPoller(
		func() error { return &domain.FetchError{Err: errors.New("connection refused")} },
	))
	r.awaitPoll(t)

	r.advance(t, 5*time.Second)
	r.awaitPoll(t)

	// The successful retry resets the wait to the normal interval.
	r.advance(t, 5*time.Second)
	r.assertNoPoll(t)

	r.clock.Advance(5*time.Minute - 5*time.Second)
	r.awaitPoll(t)

	assert.ErrorIs(t, r.stop(t), context.Canceled)
	assert.Equal(t, 3, r.poller.calls())
}

func TestStart_RecoversFromPanic(t *testing.T) {
	r := start(t, newScriptedPoller(
		func() error { panic("boom") },
		func() error { return errors.New("anything else") },
	))
	r.awaitPoll(t)

	r.advance(t, 5*time.Second)
	r.awaitPoll(t)

	r.advance(t, 5*time.Second)
	r.awaitPoll(t)

	assert.ErrorIs(t, r.stop(t), context.Canceled)
	assert.Equal(t, 3, r.poller.calls())
}

func TestStart_AppliesCycleTimeout(t *testing.T) {
	r := start(t, newScriptedPoller())
	r.awaitPoll(t)

	_, ok := r.poller.context(0).Deadline()
	assert.True(t, ok)

	assert.ErrorIs(t, r.stop(t), context.Canceled)
}

func TestStart_StopsWhileSleeping(t *testing.T) {
	r := start(t, newScriptedPoller())
	r.awaitPoll(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.clock.BlockUntilContext(ctx, 1))

	assert.ErrorIs(t, r.stop(t), context.Canceled)
	assert.Equal(t, 1, r.poller.calls())
}

func TestStart_StopsBeforeSleepWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := clockwork.NewFakeClock()

	poller := newScriptedPoller(func() error { cancel(); return nil })

	err := NewScheduler(poller, testConfig(), clk, testLogger()).Start(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, poller.calls())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, clk.BlockUntilContext(waitCtx, 1), context.DeadlineExceeded, "scheduler must not sleep after cancellation")
}

func TestRunCycle_PanicIsUnclassified(t *testing.T) {
	poller := newScriptedPoller(func() error { panic("boom") })

	s := NewScheduler(poller, testConfig(), clockwork.NewFakeClock(), testLogger())
	err := s.runCycle(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnclassified)
	assert.Contains(t, err.Error(), "boom")
}
