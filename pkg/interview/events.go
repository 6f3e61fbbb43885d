package interview

import "time"

// Event is the interface for all session events surfaced to the UI layer.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StatusChangedEvent is emitted on every lifecycle transition.
type StatusChangedEvent struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

func (e *StatusChangedEvent) EventType() string { return "status.changed" }

// TimerTickEvent is emitted once per countdown tick while Active.
type TimerTickEvent struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

func (e *TimerTickEvent) EventType() string { return "timer.tick" }

// TimerWarningEvent is emitted once when the warning lead is reached.
type TimerWarningEvent struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

func (e *TimerWarningEvent) EventType() string { return "timer.warning" }

// TranscriptAppendedEvent carries each transcript entry in arrival order.
type TranscriptAppendedEvent struct {
	Entry         Entry `json:"entry"`
	AnsweredCount int   `json:"answered_count"`
}

func (e *TranscriptAppendedEvent) EventType() string { return "transcript.appended" }

// AssistantSpeechEvent mirrors the remote agent's speaking state for UI cues.
type AssistantSpeechEvent struct {
	Speaking bool `json:"speaking"`
}

func (e *AssistantSpeechEvent) EventType() string { return "assistant.speech" }

// HealthChangedEvent is emitted when the cadence-derived health level moves.
type HealthChangedEvent struct {
	Health Health `json:"health"`
}

func (e *HealthChangedEvent) EventType() string { return "health.changed" }

// RetryScheduledEvent is emitted before each connect retry wait.
type RetryScheduledEvent struct {
	Attempt    int `json:"attempt"`
	MaxRetries int `json:"max_retries"`
}

func (e *RetryScheduledEvent) EventType() string { return "connect.retry" }

// ConnectFailedEvent is emitted when all connect attempts are exhausted.
type ConnectFailedEvent struct {
	Attempts int `json:"attempts"`
}

func (e *ConnectFailedEvent) EventType() string { return "connect.failed" }

// SessionEndedEvent is emitted exactly once on the Active -> Finished
// transition.
type SessionEndedEvent struct {
	Reason        EndReason `json:"reason"`
	AnsweredCount int       `json:"answered_count"`
}

func (e *SessionEndedEvent) EventType() string { return "session.ended" }

// AutosaveWrittenEvent is emitted after a successful snapshot write.
type AutosaveWrittenEvent struct {
	SavedAt time.Time `json:"saved_at"`
	Entries int       `json:"entries"`
}

func (e *AutosaveWrittenEvent) EventType() string { return "autosave.written" }

// RecoveryAvailableEvent is emitted when a fresh snapshot for this user is
// found on load.
type RecoveryAvailableEvent struct {
	SavedAt        time.Time `json:"saved_at"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
}

func (e *RecoveryAvailableEvent) EventType() string { return "recovery.available" }

// RecoveryFinishedEvent closes a recovery flow, accepted or declined.
type RecoveryFinishedEvent struct {
	Accepted   bool   `json:"accepted"`
	FeedbackID string `json:"feedback_id,omitempty"`
}

func (e *RecoveryFinishedEvent) EventType() string { return "recovery.finished" }

// FeedbackReadyEvent hands off the generated assessment reference.
type FeedbackReadyEvent struct {
	FeedbackID string `json:"feedback_id"`
}

func (e *FeedbackReadyEvent) EventType() string { return "feedback.ready" }

// NoticeEvent is a user-facing message (the UI renders it as a toast).
type NoticeEvent struct {
	Severity string `json:"severity"` // "info", "warning", "error"
	Message  string `json:"message"`
}

func (e *NoticeEvent) EventType() string { return "notice" }

// ErrorEvent is emitted when an error occurs.
type ErrorEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }
