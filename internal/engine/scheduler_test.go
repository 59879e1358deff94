package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "stockwatch/pkg/types"
)

func testScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		PollInterval:     10 * time.Millisecond,
		Jitter:           2 * time.Millisecond,
		MinWait:          time.Millisecond,
		FailureThreshold: 3,
		FailureCooldown:  5 * time.Millisecond,
		SummaryInterval:  time.Hour,
	}
}

func TestNewScheduler_RegistersSummaryJob(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	rn := &recordingNotifier{}
	eng := NewEngine(fs, &fakeExtractor{}, rn, WithLogger(quietLogger()))

	sched, err := NewScheduler(eng, rn, testScheduleConfig(), quietLogger())
	require.NoError(t, err)
	assert.Len(t, sched.Entries(), 1)
}

func TestNewScheduler_NoSummaryJobWhenDisabled(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	rn := &recordingNotifier{}
	eng := NewEngine(fs, &fakeExtractor{}, rn, WithLogger(quietLogger()))

	cfg := testScheduleConfig()
	cfg.SummaryInterval = 0

	sched, err := NewScheduler(eng, rn, cfg, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, sched.Entries())
}

func TestScheduler_RunsCyclesUntilCancelled(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fx := &fakeExtractor{products: listing("a")}
	rn := &recordingNotifier{}
	eng := NewEngine(fs, fx, rn, WithLogger(quietLogger()))

	sched, err := NewScheduler(eng, rn, testScheduleConfig(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}

	fx.mu.Lock()
	calls := fx.calls
	fx.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2, "expected multiple poll cycles")
}

func TestScheduler_FailureThresholdTriggersErrorNotification(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fx := &fakeExtractor{err: errors.New("listing down")}
	rn := &recordingNotifier{}
	eng := NewEngine(fs, fx, rn, WithLogger(quietLogger()))

	cfg := testScheduleConfig()
	cfg.FailureThreshold = 2

	sched, err := NewScheduler(eng, rn, cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	require.GreaterOrEqual(t, rn.errorCount(), 1)
	rn.mu.Lock()
	msg := rn.errMsgs[0]
	rn.mu.Unlock()
	assert.Contains(t, msg, "2 consecutive poll failures")
}

func TestScheduler_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	// Fail once, then succeed forever: the threshold of 2 must never trip.
	fx := &flakyExtractor{failFirst: 1}
	rn := &recordingNotifier{}
	eng := NewEngine(fs, fx, rn, WithLogger(quietLogger()))

	cfg := testScheduleConfig()
	cfg.FailureThreshold = 2

	sched, err := NewScheduler(eng, rn, cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	assert.Zero(t, rn.errorCount())
}

func TestScheduler_NextWaitBounds(t *testing.T) {
	t.Parallel()

	cfg := ScheduleConfig{
		PollInterval: 3 * time.Minute,
		Jitter:       30 * time.Second,
		MinWait:      time.Minute,
	}
	s := &Scheduler{cfg: cfg}

	for range 100 {
		wait := s.nextWait()
		assert.GreaterOrEqual(t, wait, cfg.PollInterval-cfg.Jitter)
		assert.Less(t, wait, cfg.PollInterval+cfg.Jitter)
	}
}

func TestScheduler_NextWaitFloor(t *testing.T) {
	t.Parallel()

	cfg := ScheduleConfig{
		PollInterval: 30 * time.Second,
		Jitter:       25 * time.Second,
		MinWait:      time.Minute,
	}
	s := &Scheduler{cfg: cfg}

	for range 100 {
		assert.Equal(t, time.Minute, s.nextWait())
	}
}

// flakyExtractor fails the first failFirst calls, then returns a listing.
type flakyExtractor struct {
	mu        sync.Mutex
	failFirst int
	calls     int
}

func (f *flakyExtractor) FetchListing(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return nil, errors.New("listing down")
	}
	return listing("a"), nil
}
