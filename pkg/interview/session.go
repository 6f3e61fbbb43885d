package interview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Deps are the collaborators a session orchestrates. Transport and Store are
// required; Feedback and Recoverer may be nil, in which case finalize and
// recovery degrade to snapshot-only behavior.
type Deps struct {
	Transport Transport
	Store     ProgressStore
	Feedback  FeedbackService
	Recoverer Recoverer
	Logger    *slog.Logger
}

// Session is the orchestrator for one timed interview attempt. It owns the
// lifecycle state machine, the time budget, connection health, autosave, and
// the finalize handoff to feedback generation.
//
// A Session is single-use. Once it reaches Finished it never leaves it; a
// new attempt gets a new Session.
type Session struct {
	cfg    Config
	params Params

	transport Transport
	store     ProgressStore
	feedback  FeedbackService
	recoverer Recoverer
	logger    *slog.Logger

	// Components
	timers    *TimerSet
	health    *HealthMonitor
	autosaver *Autosaver

	// State
	mu         sync.RWMutex
	status     Status
	transcript []Entry
	answered   int
	retryCount int
	endReason  EndReason
	recovering bool

	// Channels
	events chan Event
	done   chan struct{}
	closed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// NewSession creates a session in the Inactive state. Zero Config fields are
// filled with production defaults.
func NewSession(cfg Config, params Params, deps Deps) *Session {
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:       cfg,
		params:    params,
		transport: deps.Transport,
		store:     deps.Store,
		feedback:  deps.Feedback,
		recoverer: deps.Recoverer,
		logger:    logger.With("session_id", params.SessionID),
		status:    StatusInactive,
		events:    make(chan Event, 100),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	s.timers = NewTimerSet(cfg.Duration, cfg.WarningLead, cfg.CountdownTick)
	s.timers.SetCallbacks(
		func(remaining int) { s.emit(&TimerTickEvent{RemainingSeconds: remaining}) },
		func(remaining int) { s.emit(&TimerWarningEvent{RemainingSeconds: remaining}) },
		func() { s.finish(EndReasonTimeout) },
	)

	s.health = NewHealthMonitor(cfg.HealthPollInterval, cfg.HealthFairAfter, cfg.HealthPoorAfter)
	s.health.SetOnChange(func(h Health) {
		s.emit(&HealthChangedEvent{Health: h})
	})

	s.autosaver = NewAutosaver(deps.Store, s.snapshotForSave, cfg.AutosaveDebounce, cfg.AutosaveInterval)
	s.autosaver.SetCallbacks(
		func(snap Snapshot) {
			s.emit(&AutosaveWrittenEvent{SavedAt: snap.SavedAt, Entries: len(snap.Transcript)})
		},
		func(err error) {
			s.logger.Warn("autosave failed", "error", err)
			s.emit(&ErrorEvent{Kind: ErrKindPersistence, Message: err.Error()})
		},
	)

	return s
}

// Start binds the session to a context and begins consuming transport
// events. It does not place the call; StartSession does.
func (s *Session) Start(ctx context.Context) error {
	if s.transport == nil {
		return NewTransportError("", "no transport configured")
	}
	if s.store == nil {
		return NewPersistenceError("init", fmt.Errorf("no progress store configured"))
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.eventLoop()
	return nil
}

// Events returns the event stream. The channel is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// SessionID returns the interview identifier.
func (s *Session) SessionID() string {
	return s.params.SessionID
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RemainingSeconds returns the countdown value, or the full budget before
// the session goes Active.
func (s *Session) RemainingSeconds() int {
	if s.timers.Active() {
		return s.timers.Remaining()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == StatusFinished {
		return s.timers.Remaining()
	}
	return int(s.cfg.Duration / time.Second)
}

// Health returns the current connection health.
func (s *Session) Health() Health {
	return s.health.Health()
}

// RetryCount returns the number of failed connect attempts in the current
// connect cycle. It resets to zero once the call is live.
func (s *Session) RetryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retryCount
}

// AnsweredCount returns how many assistant turns have been recorded. It is
// the progress numerator shown against TotalQuestions.
func (s *Session) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answered
}

// TotalQuestions returns the progress denominator.
func (s *Session) TotalQuestions() int {
	return s.totalQuestions()
}

func (s *Session) totalQuestions() int {
	if n := len(s.params.Questions); n > 0 {
		return n
	}
	return s.cfg.DefaultTotalQuestions
}

// LastEntry returns the most recent transcript entry, if any.
func (s *Session) LastEntry() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.transcript) == 0 {
		return Entry{}, false
	}
	return s.transcript[len(s.transcript)-1], true
}

// Transcript returns a copy of the transcript in arrival order.
func (s *Session) Transcript() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Snapshot builds the current persistence projection.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a Snapshot; callers hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	transcript := make([]Entry, len(s.transcript))
	copy(transcript, s.transcript)
	return Snapshot{
		SessionID:        s.params.SessionID,
		UserID:           s.params.UserID,
		Transcript:       transcript,
		AnsweredCount:    s.answered,
		TotalQuestions:   s.totalQuestions(),
		RemainingSeconds: s.timers.Remaining(),
		SavedAt:          s.now(),
		EndReason:        s.endReason,
	}
}

// snapshotForSave is the autosave supplier. Empty transcripts are not worth
// persisting.
func (s *Session) snapshotForSave() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusActive || len(s.transcript) == 0 {
		return Snapshot{}, false
	}
	return s.snapshotLocked(), true
}

// StartSession places the call. Duplicate calls and calls on a finished
// session are no-ops.
func (s *Session) StartSession() {
	s.mu.Lock()
	if s.status != StatusInactive || s.recovering {
		s.mu.Unlock()
		return
	}
	s.status = StatusConnecting
	s.retryCount = 0
	s.mu.Unlock()

	s.emit(&StatusChangedEvent{From: StatusInactive, To: StatusConnecting})

	s.wg.Add(1)
	go s.connectLoop()
}

// connectLoop runs the bounded dial-retry cycle. One initial attempt plus
// MaxRetries retries with a fixed backoff between them.
func (s *Session) connectLoop() {
	defer s.wg.Done()

	questions := FormatQuestions(s.params.Questions)
	callCfg := CallConfig{
		SessionID:    s.params.SessionID,
		UserName:     s.params.UserName,
		Questions:    questions,
		SystemPrompt: InterviewerSystemPrompt(questions),
		Greeting:     InterviewerGreeting,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries+1; attempt++ {
		if attempt > 1 {
			s.mu.Lock()
			s.retryCount = attempt - 1
			s.mu.Unlock()
			s.emit(&RetryScheduledEvent{Attempt: attempt - 1, MaxRetries: s.cfg.MaxRetries})

			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-s.done:
				return
			case <-s.ctx.Done():
				return
			}
		}

		if s.Status() != StatusConnecting {
			return
		}

		err := s.transport.Start(s.ctx, callCfg)
		if err == nil {
			// Activation happens on the CallStarted transport event.
			return
		}
		lastErr = err
		s.logger.Warn("connect attempt failed", "attempt", attempt, "error", err)
	}

	attempts := s.cfg.MaxRetries + 1
	s.mu.Lock()
	if s.status != StatusConnecting {
		s.mu.Unlock()
		return
	}
	s.status = StatusInactive
	s.mu.Unlock()

	connErr := NewConnectError(attempts, lastErr)
	s.emit(&StatusChangedEvent{From: StatusConnecting, To: StatusInactive})
	s.emit(&ConnectFailedEvent{Attempts: attempts})
	s.emit(&ErrorEvent{Kind: ErrKindConnect, Message: connErr.Error()})
}

// FormatQuestions renders the question plan handed to the remote agent, one
// numbered line per question.
func FormatQuestions(questions []string) string {
	if len(questions) == 0 {
		return ""
	}
	out := ""
	for i, q := range questions {
		out += fmt.Sprintf("%d. %s\n", i+1, q)
	}
	return out
}

// eventLoop consumes the transport event stream until shutdown.
func (s *Session) eventLoop() {
	defer s.wg.Done()

	events := s.transport.Events()
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleTransportEvent(ev)
		}
	}
}

func (s *Session) handleTransportEvent(ev TransportEvent) {
	switch e := ev.(type) {
	case CallStarted:
		s.onCallStarted()
	case CallEnded:
		s.finish(EndReasonRemote)
	case TranscriptReceived:
		s.onTranscript(e)
	case SpeechStarted:
		s.onSpeech(true)
	case SpeechEnded:
		s.onSpeech(false)
	case TransportIssue:
		s.onIssue(e)
	}
}

// onCallStarted moves Connecting -> Active and arms the timed components.
// The budget always restarts in full, so a reconnect gets a fresh schedule.
func (s *Session) onCallStarted() {
	s.mu.Lock()
	if s.status != StatusConnecting {
		s.mu.Unlock()
		return
	}
	s.status = StatusActive
	s.retryCount = 0
	s.mu.Unlock()

	s.emit(&StatusChangedEvent{From: StatusConnecting, To: StatusActive})
	s.logger.Info("interview call live")

	s.timers.Start()
	s.health.Start()
	s.autosaver.Start()
}

// onTranscript appends final utterances in arrival order. Interim fragments
// only refresh the health signal.
func (s *Session) onTranscript(e TranscriptReceived) {
	at := e.At
	if at.IsZero() {
		at = s.now()
	}
	s.health.Observe(at)

	if !e.IsFinal || e.Text == "" {
		return
	}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	entry := Entry{Role: e.Role, Content: e.Text, CapturedAt: at}
	s.transcript = append(s.transcript, entry)
	if e.Role == RoleAssistant {
		s.answered++
	}
	answered := s.answered
	s.mu.Unlock()

	s.emit(&TranscriptAppendedEvent{Entry: entry, AnsweredCount: answered})

	if e.Role == RoleAssistant {
		s.autosaver.NoteAssistantEntry()
	}
}

func (s *Session) onSpeech(speaking bool) {
	if speaking {
		s.health.Observe(s.now())
	}
	s.emit(&AssistantSpeechEvent{Speaking: speaking})
}

// onIssue surfaces a live-call problem without ending the session.
func (s *Session) onIssue(e TransportIssue) {
	switch e.Kind {
	case "audio":
		s.health.ForcePoor()
	case "timeout":
		s.health.ForceFair()
		s.emit(&NoticeEvent{Severity: "warning", Message: "Connection timeout. Try speaking again."})
	case "quota":
		s.health.ForcePoor()
		s.emit(&NoticeEvent{Severity: "error", Message: "The interview service is at capacity. Try again shortly."})
	case "permission":
		s.emit(&NoticeEvent{Severity: "error", Message: "Microphone access is blocked. Check browser permissions."})
	}
	s.logger.Warn("transport issue", "kind", e.Kind, "message", e.Message)
	s.emit(&ErrorEvent{Kind: ErrKindTransport, Message: e.Message})
}

// EndSession ends the interview at the user's request. No-op unless Active.
func (s *Session) EndSession() {
	s.finish(EndReasonUser)
}

// finish performs the single Active -> Finished transition. Every later
// call, whatever the reason, is a no-op.
func (s *Session) finish(reason EndReason) {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	s.status = StatusFinished
	s.endReason = reason
	snap := s.snapshotLocked()
	answered := s.answered
	s.mu.Unlock()

	s.timers.Cancel()
	s.health.Stop()
	s.autosaver.Stop()

	if err := s.transport.Stop(); err != nil {
		s.logger.Warn("transport stop failed", "error", err)
	}

	s.emit(&StatusChangedEvent{From: StatusActive, To: StatusFinished})
	s.logger.Info("interview ended", "reason", string(reason), "entries", len(snap.Transcript))

	hasTranscript := len(snap.Transcript) > 0
	if hasTranscript {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.store.Put(ctx, snap.SessionID, snap); err != nil {
			s.logger.Warn("final snapshot write failed", "error", err)
			s.emit(&ErrorEvent{Kind: ErrKindPersistence, Message: err.Error()})
		}
		cancel()
	}

	s.emit(&SessionEndedEvent{Reason: reason, AnsweredCount: answered})

	if hasTranscript && s.feedback != nil {
		s.wg.Add(1)
		go s.finalize(snap)
	}
}

// finalize hands the finished transcript to the feedback service. On
// success the recovery snapshot is retired; on failure it stays so the
// recovery path can retry later.
func (s *Session) finalize(snap Snapshot) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RecoveryTimeout)
	defer cancel()

	result, err := s.feedback.CreateFeedback(ctx, FeedbackRequest{
		SessionID:  snap.SessionID,
		UserID:     snap.UserID,
		Transcript: snap.Transcript,
		FeedbackID: s.params.FeedbackID,
	})
	if err != nil {
		fbErr := NewFeedbackError("finalize", err)
		s.logger.Error("feedback generation failed", "error", fbErr)
		s.emit(&ErrorEvent{Kind: ErrKindFeedback, Message: fbErr.Error()})
		return
	}

	delCtx, delCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := s.store.Delete(delCtx, snap.SessionID); err != nil {
		s.logger.Warn("snapshot cleanup failed", "error", err)
	}
	delCancel()

	s.emit(&FeedbackReadyEvent{FeedbackID: result.FeedbackID})
}

// Reconnect tears down the live call and re-dials with fresh retry budget.
// The time budget restarts in full when the call comes back. No-op unless
// Active.
func (s *Session) Reconnect() {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	s.status = StatusConnecting
	s.retryCount = 0
	s.mu.Unlock()

	// Connecting status makes the CallEnded from the stop below a no-op.
	s.timers.Cancel()
	s.health.Stop()
	s.autosaver.Stop()

	s.emit(&StatusChangedEvent{From: StatusActive, To: StatusConnecting})
	s.logger.Info("reconnecting call")

	if err := s.transport.Stop(); err != nil {
		s.logger.Warn("transport stop failed", "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-time.After(s.cfg.ReconnectGrace):
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		}
		s.wg.Add(1)
		go s.connectLoop()
	}()
}

// CheckRecovery looks for a resumable snapshot from a previous crashed
// attempt. A snapshot counts only if it belongs to the same user and is
// younger than the recovery window. Stale or foreign snapshots are not
// offered but stay in the store; only successful feedback or an explicit
// decline removes a snapshot.
func (s *Session) CheckRecovery(ctx context.Context) (Snapshot, bool, error) {
	snap, err := s.store.Get(ctx, s.params.SessionID)
	if err != nil {
		if err == ErrSnapshotNotFound {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, NewPersistenceError("recovery check", err)
	}

	if snap.UserID != s.params.UserID {
		return Snapshot{}, false, nil
	}
	if s.now().Sub(snap.SavedAt) >= s.cfg.RecoveryWindow {
		return Snapshot{}, false, nil
	}

	s.emit(&RecoveryAvailableEvent{
		SavedAt:        snap.SavedAt,
		AnsweredCount:  snap.AnsweredCount,
		TotalQuestions: snap.TotalQuestions,
	})
	return snap, true, nil
}

// AcceptRecovery sends the saved transcript for feedback generation without
// reopening the call. At most one recovery call is in flight per session.
func (s *Session) AcceptRecovery(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusInactive || s.recovering {
		s.mu.Unlock()
		return NewFeedbackError("recover", fmt.Errorf("session busy"))
	}
	s.recovering = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.recovering = false
		s.mu.Unlock()
	}()

	snap, err := s.store.Get(ctx, s.params.SessionID)
	if err != nil {
		return NewPersistenceError("recover", err)
	}
	if snap.UserID != s.params.UserID {
		return NewPersistenceError("recover", fmt.Errorf("snapshot belongs to another user"))
	}
	if s.now().Sub(snap.SavedAt) >= s.cfg.RecoveryWindow {
		return NewFeedbackError("recover", fmt.Errorf("snapshot is outside the recovery window"))
	}

	if s.recoverer == nil {
		return NewFeedbackError("recover", fmt.Errorf("no recoverer configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RecoveryTimeout)
	defer cancel()

	result, err := s.recoverer.Recover(callCtx, FeedbackRequest{
		SessionID:  snap.SessionID,
		UserID:     snap.UserID,
		Transcript: snap.Transcript,
		FeedbackID: s.params.FeedbackID,
	})
	if err != nil {
		fbErr := NewFeedbackError("recover", err)
		s.emit(&ErrorEvent{Kind: ErrKindFeedback, Message: fbErr.Error()})
		return fbErr
	}

	delCtx, delCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := s.store.Delete(delCtx, s.params.SessionID); err != nil {
		s.logger.Warn("snapshot cleanup failed", "error", err)
	}
	delCancel()

	s.emit(&RecoveryFinishedEvent{Accepted: true, FeedbackID: result.FeedbackID})
	s.emit(&FeedbackReadyEvent{FeedbackID: result.FeedbackID})
	return nil
}

// DeclineRecovery discards the saved snapshot.
func (s *Session) DeclineRecovery(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.params.SessionID); err != nil {
		return NewPersistenceError("decline recovery", err)
	}
	s.emit(&RecoveryFinishedEvent{Accepted: false})
	return nil
}

// Close releases all resources. Safe to call repeatedly.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}

	s.timers.Cancel()
	s.health.Stop()
	s.autosaver.Stop()

	if s.transport != nil {
		if err := s.transport.Stop(); err != nil {
			s.logger.Warn("transport stop failed", "error", err)
		}
	}

	s.wg.Wait()
	close(s.events)
	return nil
}

// emit sends an event to the events channel without blocking.
func (s *Session) emit(event Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- event:
	case <-s.done:
	default:
		// Channel full, drop event
	}
}
