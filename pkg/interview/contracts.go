package interview

import (
	"context"
	"errors"
	"time"
)

// Transport is the voice-call channel the session rides on. Implementations
// wrap an external conversational agent; the session only consumes the event
// stream and the two control calls.
type Transport interface {
	// Start establishes the call. It returns once the connection attempt has
	// succeeded or failed; the Started event follows on the event channel.
	Start(ctx context.Context, cfg CallConfig) error

	// Stop tears the call down. Safe to call repeatedly.
	Stop() error

	// Events yields call lifecycle and transcript events. The channel is
	// closed when the transport is closed for good.
	Events() <-chan TransportEvent
}

// CallConfig is what the transport needs to place one interview call.
type CallConfig struct {
	SessionID string `json:"session_id"`
	UserName  string `json:"user_name,omitempty"`

	// Questions is the formatted question plan handed to the remote agent,
	// one numbered question per line.
	Questions string `json:"questions,omitempty"`

	// SystemPrompt is the interviewer persona, with the question plan
	// already substituted in.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Greeting is the agent's opening line.
	Greeting string `json:"greeting,omitempty"`
}

// TransportEvent is the sealed set of events a Transport can emit.
type TransportEvent interface {
	transportEventType() string
}

// CallStarted signals the call is live.
type CallStarted struct{}

func (CallStarted) transportEventType() string { return "call.started" }

// CallEnded signals the call ended on the remote side (or after Stop).
type CallEnded struct{}

func (CallEnded) transportEventType() string { return "call.ended" }

// TranscriptReceived carries one transcribed utterance.
type TranscriptReceived struct {
	Role    Role
	Text    string
	IsFinal bool
	At      time.Time
}

func (TranscriptReceived) transportEventType() string { return "transcript" }

// SpeechStarted signals the remote agent began speaking.
type SpeechStarted struct{}

func (SpeechStarted) transportEventType() string { return "speech.started" }

// SpeechEnded signals the remote agent stopped speaking.
type SpeechEnded struct{}

func (SpeechEnded) transportEventType() string { return "speech.ended" }

// TransportIssue reports a runtime problem on the live call. It never ends
// the session by itself.
type TransportIssue struct {
	Kind    string // "audio", "permission", "quota", "timeout", or ""
	Message string
}

func (TransportIssue) transportEventType() string { return "issue" }

// ErrSnapshotNotFound is returned by ProgressStore.Get when no snapshot
// exists for the session.
var ErrSnapshotNotFound = errors.New("interview: progress snapshot not found")

// Snapshot is the persisted projection of a session used for crash recovery.
// It is overwritten wholesale on every save; last write wins.
type Snapshot struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	Transcript       []Entry   `json:"transcript"`
	AnsweredCount    int       `json:"answered_count"`
	TotalQuestions   int       `json:"total_questions"`
	RemainingSeconds int       `json:"remaining_seconds"`
	SavedAt          time.Time `json:"saved_at"`
	EndReason        EndReason `json:"end_reason,omitempty"`
}

// ProgressStore is durable key-value persistence keyed by session id.
// The session owning a given id is the only writer for it.
type ProgressStore interface {
	Get(ctx context.Context, sessionID string) (Snapshot, error)
	Put(ctx context.Context, sessionID string, snap Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// FeedbackRequest is the payload handed to the Feedback Service on finalize
// and on recovery.
type FeedbackRequest struct {
	SessionID  string  `json:"session_id"`
	UserID     string  `json:"user_id"`
	Transcript []Entry `json:"transcript"`
	FeedbackID string  `json:"feedback_id,omitempty"`
}

// FeedbackResult references the generated assessment.
type FeedbackResult struct {
	FeedbackID string `json:"feedback_id"`
}

// FeedbackService generates an assessment from a full transcript.
type FeedbackService interface {
	CreateFeedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
}

// Recoverer turns a saved snapshot into feedback without reopening the call.
// It is typically the recovery endpoint, reached over HTTP, or the Feedback
// Service adapted in-process.
type Recoverer interface {
	Recover(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
}
