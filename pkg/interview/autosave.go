package interview

import (
	"context"
	"sync"
	"time"
)

// Autosaver writes session snapshots to a ProgressStore on two triggers: a
// debounce timer reset by each assistant turn, and a fixed safety interval.
// The snapshot supplier is called at fire time so writes always capture the
// latest transcript, not the one that scheduled them.
//
// Save failures are advisory. The session keeps running and the error is
// reported through the onError callback.
type Autosaver struct {
	store    ProgressStore
	supplier func() (Snapshot, bool)
	debounce time.Duration
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	debounceT *time.Timer

	onSaved func(Snapshot)
	onError func(error)
}

// NewAutosaver creates an Autosaver. The supplier returns the snapshot to
// write and whether there is anything worth writing; empty transcripts are
// skipped by returning false.
func NewAutosaver(store ProgressStore, supplier func() (Snapshot, bool), debounce, interval time.Duration) *Autosaver {
	return &Autosaver{
		store:    store,
		supplier: supplier,
		debounce: debounce,
		interval: interval,
	}
}

// SetCallbacks sets the saved/error callbacks. Must be called before Start.
func (a *Autosaver) SetCallbacks(onSaved func(Snapshot), onError func(error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSaved = onSaved
	a.onError = onError
}

// Start begins the interval schedule. Idempotent while running.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	stop := make(chan struct{})
	a.stop = stop
	go a.loop(stop)
}

// Stop cancels both triggers. Pending debounce writes are dropped; the
// session writes its own final snapshot on teardown.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	close(a.stop)
	a.stop = nil
	if a.debounceT != nil {
		a.debounceT.Stop()
		a.debounceT = nil
	}
}

func (a *Autosaver) loop(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.save()
		}
	}
}

// NoteAssistantEntry resets the debounce window. The write lands once the
// assistant has been quiet for the debounce duration.
func (a *Autosaver) NoteAssistantEntry() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	if a.debounceT != nil {
		a.debounceT.Stop()
	}
	a.debounceT = time.AfterFunc(a.debounce, a.save)
}

// save runs one serialized snapshot write.
func (a *Autosaver) save() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	snap, ok := a.supplier()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.store.Put(ctx, snap.SessionID, snap); err != nil {
		a.mu.Lock()
		cb := a.onError
		a.mu.Unlock()
		if cb != nil {
			cb(NewPersistenceError("autosave", err))
		}
		return
	}

	a.mu.Lock()
	cb := a.onSaved
	a.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}
