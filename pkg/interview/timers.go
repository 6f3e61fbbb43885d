package interview

import (
	"sync"
	"time"
)

// TimerSet owns the countdown, warning, and hard-timeout schedule for one
// active session.
//
// A session holds at most one live TimerSet. Start cancels any previous
// schedule before arming a new one, so re-entering the timed state never
// leaves two countdowns ticking. All three handles are torn down together by
// Cancel on any terminal transition.
type TimerSet struct {
	duration time.Duration
	lead     time.Duration
	tick     time.Duration

	mu        sync.Mutex
	active    bool
	remaining int
	warned    bool
	stop      chan struct{}
	warnT     *time.Timer
	timeoutT  *time.Timer

	// Callbacks
	onTick    func(remaining int)
	onWarning func(remaining int)
	onTimeout func()
}

// NewTimerSet creates a TimerSet for the given budget. The warning fires
// lead before the hard timeout; tick is the countdown resolution.
func NewTimerSet(duration, lead, tick time.Duration) *TimerSet {
	return &TimerSet{
		duration: duration,
		lead:     lead,
		tick:     tick,
	}
}

// SetCallbacks sets the schedule callbacks. Callbacks run on timer
// goroutines; they must not call back into the TimerSet while holding locks
// of their own that Start/Cancel callers hold.
func (t *TimerSet) SetCallbacks(
	onTick func(remaining int),
	onWarning func(remaining int),
	onTimeout func(),
) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = onTick
	t.onWarning = onWarning
	t.onTimeout = onTimeout
}

// Start arms the full schedule, cancelling any previous one first.
func (t *TimerSet) Start() {
	t.mu.Lock()
	t.cancelLocked()

	t.active = true
	t.warned = false
	t.remaining = int(t.duration / time.Second)
	stop := make(chan struct{})
	t.stop = stop

	t.warnT = time.AfterFunc(t.duration-t.lead, t.fireWarning)
	t.timeoutT = time.AfterFunc(t.duration, t.fireTimeout)
	t.mu.Unlock()

	go t.countdown(stop)
}

// countdown decrements remaining once per tick, flooring at zero.
func (t *TimerSet) countdown(stop chan struct{}) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if !t.active {
				t.mu.Unlock()
				return
			}
			if t.remaining > 0 {
				t.remaining--
			}
			remaining := t.remaining
			cb := t.onTick
			t.mu.Unlock()

			if cb != nil {
				cb(remaining)
			}
		}
	}
}

func (t *TimerSet) fireWarning() {
	t.mu.Lock()
	if !t.active || t.warned {
		t.mu.Unlock()
		return
	}
	t.warned = true
	remaining := t.remaining
	cb := t.onWarning
	t.mu.Unlock()

	if cb != nil {
		cb(remaining)
	}
}

func (t *TimerSet) fireTimeout() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.remaining = 0
	t.stopHandlesLocked()
	cb := t.onTimeout
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Cancel tears down all handles without firing callbacks. Idempotent.
func (t *TimerSet) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *TimerSet) cancelLocked() {
	t.active = false
	t.stopHandlesLocked()
}

func (t *TimerSet) stopHandlesLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	if t.warnT != nil {
		t.warnT.Stop()
		t.warnT = nil
	}
	if t.timeoutT != nil {
		t.timeoutT.Stop()
		t.timeoutT = nil
	}
}

// Active reports whether the schedule is armed.
func (t *TimerSet) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Remaining returns the current countdown value in seconds. It never goes
// negative and is monotonically non-increasing between Starts.
func (t *TimerSet) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Warned reports whether the warning already fired for this schedule.
func (t *TimerSet) Warned() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warned
}
