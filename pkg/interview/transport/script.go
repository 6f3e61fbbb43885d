package transport

import (
	"context"
	"sync"
	"time"

	"github.com/voxprep/voxprep/pkg/interview"
)

// ScriptStep is one beat of a scripted call: wait Delay, then emit Event.
type ScriptStep struct {
	Delay time.Duration
	Event interview.TransportEvent
}

// ScriptTransport replays a fixed sequence of transport events. It dials
// nothing; Start succeeds immediately (or fails FailStarts times first,
// which exercises the retry path). Each Start replays the script from the
// beginning.
type ScriptTransport struct {
	Steps []ScriptStep

	// FailStarts makes the first N Start calls return an error.
	FailStarts int

	// EndAfter, when true, appends a CallEnded once the script is exhausted.
	EndAfter bool

	events chan interview.TransportEvent

	mu      sync.Mutex
	starts  int
	stop    chan struct{}
	running bool
}

// NewScript creates a scripted transport.
func NewScript(steps []ScriptStep) *ScriptTransport {
	return &ScriptTransport{
		Steps:  steps,
		events: make(chan interview.TransportEvent, 256),
	}
}

// Events yields the replayed events.
func (t *ScriptTransport) Events() <-chan interview.TransportEvent {
	return t.events
}

// Starts returns how many times Start has been called.
func (t *ScriptTransport) Starts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.starts
}

// Start replays the script on a background goroutine.
func (t *ScriptTransport) Start(ctx context.Context, cfg interview.CallConfig) error {
	t.mu.Lock()
	t.starts++
	if t.starts <= t.FailStarts {
		t.mu.Unlock()
		return context.DeadlineExceeded
	}
	if t.running {
		t.stopLocked()
	}
	t.running = true
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	t.emit(interview.CallStarted{})

	go func() {
		for _, step := range t.Steps {
			if step.Delay > 0 {
				select {
				case <-time.After(step.Delay):
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			} else {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				default:
				}
			}
			t.emit(step.Event)
		}
		if t.EndAfter {
			t.emit(interview.CallEnded{})
		}
	}()
	return nil
}

// Stop halts replay and emits the CallEnded the real transport would.
func (t *ScriptTransport) Stop() error {
	t.mu.Lock()
	wasRunning := t.running
	t.stopLocked()
	t.mu.Unlock()

	if wasRunning {
		t.emit(interview.CallEnded{})
	}
	return nil
}

func (t *ScriptTransport) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.running = false
}

func (t *ScriptTransport) emit(ev interview.TransportEvent) {
	select {
	case t.events <- ev:
	default:
	}
}
