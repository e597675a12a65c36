package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDebouncer(t *testing.T, quiet, maxDelay time.Duration) *Debouncer {
	t.Helper()
	d, err := NewDebouncer(quiet, maxDelay)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = d.Run(ctx) }()
	return d
}

func TestDebouncer_CoalescesBurstAfterQuietWindow(t *testing.T) {
	d := runDebouncer(t, 50*time.Millisecond, 5*time.Second)

	for i := 0; i < 5; i++ {
		d.Notify()
	}

	select {
	case trigger := <-d.Triggers():
		assert.Equal(t, "quiet", trigger.Cause)
		assert.Equal(t, 5, trigger.RequestCount)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a trigger after the quiet window")
	}

	// The burst must produce exactly one trigger.
	select {
	case trigger := <-d.Triggers():
		t.Fatalf("unexpected second trigger: %+v", trigger)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayBoundsContinuousChanges(t *testing.T) {
	d := runDebouncer(t, time.Hour, 100*time.Millisecond)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.Notify()
			}
		}
	}()
	defer close(stop)

	select {
	case trigger := <-d.Triggers():
		assert.Equal(t, "max_delay", trigger.Cause)
		assert.GreaterOrEqual(t, trigger.RequestCount, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a max-delay trigger despite continuous changes")
	}
}

func TestNewDebouncer_RejectsZeroWindows(t *testing.T) {
	_, err := NewDebouncer(0, time.Second)
	assert.Error(t, err)
	_, err = NewDebouncer(time.Second, 0)
	assert.Error(t, err)
}
