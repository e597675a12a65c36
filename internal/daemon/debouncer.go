package daemon

import (
	"context"
	"errors"
	"time"
)

// Trigger is one coalesced rebuild request emitted by the Debouncer.
type Trigger struct {
	RequestCount int
	Cause        string // "quiet" or "max_delay"
	FirstRequest time.Time
	LastRequest  time.Time
}

// Debouncer coalesces bursts of change notifications into single rebuild
// triggers:
//   - quiet window: a trigger fires once no notification arrived for QuietWindow
//   - max delay: a burst cannot postpone the trigger beyond MaxDelay from its
//     first notification
//
// Run is a single goroutine; Notify is safe from any goroutine.
type Debouncer struct {
	quietWindow time.Duration
	maxDelay    time.Duration

	in  chan time.Time
	out chan Trigger
}

// NewDebouncer validates the windows and returns a ready debouncer.
func NewDebouncer(quietWindow, maxDelay time.Duration) (*Debouncer, error) {
	if quietWindow <= 0 {
		return nil, errors.New("quiet window must be > 0")
	}
	if maxDelay <= 0 {
		return nil, errors.New("max delay must be > 0")
	}
	return &Debouncer{
		quietWindow: quietWindow,
		maxDelay:    maxDelay,
		in:          make(chan time.Time, 64),
		out:         make(chan Trigger, 1),
	}, nil
}

// Notify records one change. Never blocks; a full buffer is fine because the
// burst is coalesced anyway.
func (d *Debouncer) Notify() {
	select {
	case d.in <- time.Now():
	default:
	}
}

// Triggers delivers coalesced rebuild requests.
func (d *Debouncer) Triggers() <-chan Trigger { return d.out }

// Run processes notifications until ctx is canceled.
func (d *Debouncer) Run(ctx context.Context) error {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time

		count       int
		first, last time.Time
	)

	emit := func(cause string) {
		trigger := Trigger{RequestCount: count, Cause: cause, FirstRequest: first, LastRequest: last}
		count = 0
		quietC, maxC = nil, nil
		select {
		case d.out <- trigger:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ts := <-d.in:
			if count == 0 {
				first = ts
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}
			count++
			last = ts
			resetTimer(quietTimer, d.quietWindow)
			quietC = quietTimer.C
		case <-quietC:
			emit("quiet")
		case <-maxC:
			emit("max_delay")
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
