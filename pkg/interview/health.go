package interview

import (
	"sync"
	"time"
)

// HealthMonitor derives a coarse connection health signal from receive
// activity. It knows nothing about the wire protocol; the session feeds it
// observations and it periodically classifies the silence gap.
type HealthMonitor struct {
	poll      time.Duration
	fairAfter time.Duration
	poorAfter time.Duration

	mu       sync.Mutex
	health   Health
	lastSeen time.Time
	forced   bool
	running  bool
	stop     chan struct{}

	onChange func(Health)

	now func() time.Time
}

// NewHealthMonitor creates a monitor that polls every poll interval and
// degrades to fair/poor once the silence gap crosses the given thresholds.
func NewHealthMonitor(poll, fairAfter, poorAfter time.Duration) *HealthMonitor {
	return &HealthMonitor{
		poll:      poll,
		fairAfter: fairAfter,
		poorAfter: poorAfter,
		health:    HealthGood,
		now:       time.Now,
	}
}

// SetOnChange sets the callback invoked whenever the derived health value
// changes. Must be called before Start.
func (h *HealthMonitor) SetOnChange(fn func(Health)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Start begins polling. Starting an already-running monitor restarts it with
// a fresh good baseline.
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.stopLocked()
	}
	h.running = true
	h.forced = false
	h.lastSeen = h.now()
	stop := make(chan struct{})
	h.stop = stop
	prev := h.health
	h.health = HealthGood
	cb := h.onChange
	h.mu.Unlock()

	if prev != HealthGood && cb != nil {
		cb(HealthGood)
	}
	go h.loop(stop)
}

// Stop halts polling. Idempotent.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *HealthMonitor) stopLocked() {
	h.running = false
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
}

func (h *HealthMonitor) loop(stop chan struct{}) {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.evaluate()
		}
	}
}

func (h *HealthMonitor) evaluate() {
	h.mu.Lock()
	if !h.running || h.forced {
		h.mu.Unlock()
		return
	}
	next := h.classify(h.now().Sub(h.lastSeen))
	changed := next != h.health
	h.health = next
	cb := h.onChange
	h.mu.Unlock()

	if changed && cb != nil {
		cb(next)
	}
}

// classify maps a silence gap onto a health value.
func (h *HealthMonitor) classify(gap time.Duration) Health {
	switch {
	case gap > h.poorAfter:
		return HealthPoor
	case gap > h.fairAfter:
		return HealthFair
	default:
		return HealthGood
	}
}

// Observe records receive activity. Any observed traffic resets the monitor
// to good and clears a forced-poor state.
func (h *HealthMonitor) Observe(t time.Time) {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.lastSeen = t
	h.forced = false
	changed := h.health != HealthGood
	h.health = HealthGood
	cb := h.onChange
	h.mu.Unlock()

	if changed && cb != nil {
		cb(HealthGood)
	}
}

// ForcePoor pins health to poor until the next observation, used when the
// transport reports an audio or quota fault that silence-based polling would
// miss.
func (h *HealthMonitor) ForcePoor() { h.force(HealthPoor) }

// ForceFair pins health to fair until the next observation, used for
// transient transport timeouts.
func (h *HealthMonitor) ForceFair() { h.force(HealthFair) }

func (h *HealthMonitor) force(level Health) {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.forced = true
	changed := h.health != level
	h.health = level
	cb := h.onChange
	h.mu.Unlock()

	if changed && cb != nil {
		cb(level)
	}
}

// Health returns the current derived value.
func (h *HealthMonitor) Health() Health {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.health
}
