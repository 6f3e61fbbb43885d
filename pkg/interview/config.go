package interview

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of one interview session.
type Status int

const (
	// StatusInactive is the initial state before the call is started.
	StatusInactive Status = iota
	// StatusConnecting is when the transport is being established (with retries).
	StatusConnecting
	// StatusActive is when the voice call is live and timers are running.
	StatusActive
	// StatusFinished is terminal for this session instance.
	StatusFinished
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusConnecting:
		return "CONNECTING"
	case StatusActive:
		return "ACTIVE"
	case StatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// EndReason records why a session reached Finished.
type EndReason string

const (
	EndReasonUser    EndReason = "user"
	EndReasonTimeout EndReason = "timeout"
	EndReasonRemote  EndReason = "remote"
)

// Health is the coarse connection-quality signal derived from transcript cadence.
type Health int

const (
	HealthGood Health = iota
	HealthFair
	HealthPoor
)

// String returns a human-readable health name.
func (h Health) String() string {
	switch h {
	case HealthGood:
		return "good"
	case HealthFair:
		return "fair"
	case HealthPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Entry is one transcript line. The transcript is append-only in arrival
// order; duplicate delivery from the transport is kept as-is.
type Entry struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
}

// Params identifies one interview attempt.
type Params struct {
	// SessionID is the interview identifier; it also keys persisted progress.
	SessionID string `json:"session_id"`

	// UserID is the interviewee's identity; recovery requires a match.
	UserID string `json:"user_id"`

	// UserName is used for the personalized greeting in the call config.
	UserName string `json:"user_name,omitempty"`

	// FeedbackID, when set, updates an existing assessment instead of
	// creating a new one.
	FeedbackID string `json:"feedback_id,omitempty"`

	// Questions is the ordered question plan. May be empty; progress display
	// then falls back to Config.DefaultTotalQuestions.
	Questions []string `json:"questions,omitempty"`
}

// Config holds all policy values for a session.
type Config struct {
	// Duration is the hard interview time budget. Default: 10 minutes.
	Duration time.Duration `json:"duration"`

	// WarningLead is how long before the hard timeout the warning fires.
	// Default: 2 minutes.
	WarningLead time.Duration `json:"warning_lead"`

	// CountdownTick is the countdown resolution. Default: 1 second.
	CountdownTick time.Duration `json:"countdown_tick"`

	// MaxRetries is the number of connect retries after the first attempt.
	// Default: 2.
	MaxRetries int `json:"max_retries"`

	// RetryBackoff is the fixed wait between connect attempts. Default: 2s.
	RetryBackoff time.Duration `json:"retry_backoff"`

	// ReconnectGrace is the pause between stopping the transport and
	// re-dialing on a manual reconnect. Default: 1s.
	ReconnectGrace time.Duration `json:"reconnect_grace"`

	// HealthPollInterval is how often transcript cadence is sampled while
	// Active. Default: 10s.
	HealthPollInterval time.Duration `json:"health_poll_interval"`

	// HealthFairAfter is the silence span that degrades health to fair.
	// Default: 25s.
	HealthFairAfter time.Duration `json:"health_fair_after"`

	// HealthPoorAfter is the silence span that degrades health to poor.
	// Default: 45s.
	HealthPoorAfter time.Duration `json:"health_poor_after"`

	// AutosaveDebounce is the quiet window after an assistant transcript
	// entry before a snapshot write. Default: 2s.
	AutosaveDebounce time.Duration `json:"autosave_debounce"`

	// AutosaveInterval is the unconditional snapshot cadence. Default: 90s.
	AutosaveInterval time.Duration `json:"autosave_interval"`

	// RecoveryWindow is the max snapshot age that still offers recovery.
	// Default: 30 minutes.
	RecoveryWindow time.Duration `json:"recovery_window"`

	// RecoveryTimeout bounds each recovery/finalize network call. Default: 30s.
	RecoveryTimeout time.Duration `json:"recovery_timeout"`

	// DefaultTotalQuestions is the progress denominator when the question
	// plan is empty. Default: 10.
	DefaultTotalQuestions int `json:"default_total_questions"`
}

// DefaultConfig returns a Config with the production policy values.
func DefaultConfig() Config {
	return Config{
		Duration:              10 * time.Minute,
		WarningLead:           2 * time.Minute,
		CountdownTick:         time.Second,
		MaxRetries:            2,
		RetryBackoff:          2 * time.Second,
		ReconnectGrace:        time.Second,
		HealthPollInterval:    10 * time.Second,
		HealthFairAfter:       25 * time.Second,
		HealthPoorAfter:       45 * time.Second,
		AutosaveDebounce:      2 * time.Second,
		AutosaveInterval:      90 * time.Second,
		RecoveryWindow:        30 * time.Minute,
		RecoveryTimeout:       30 * time.Second,
		DefaultTotalQuestions: 10,
	}
}

// withDefaults fills zero values so a partially specified Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Duration <= 0 {
		c.Duration = d.Duration
	}
	if c.WarningLead <= 0 || c.WarningLead >= c.Duration {
		c.WarningLead = d.WarningLead
		if c.WarningLead >= c.Duration {
			c.WarningLead = c.Duration / 5
		}
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = d.CountdownTick
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.ReconnectGrace <= 0 {
		c.ReconnectGrace = d.ReconnectGrace
	}
	if c.HealthPollInterval <= 0 {
		c.HealthPollInterval = d.HealthPollInterval
	}
	if c.HealthFairAfter <= 0 {
		c.HealthFairAfter = d.HealthFairAfter
	}
	if c.HealthPoorAfter <= c.HealthFairAfter {
		c.HealthPoorAfter = d.HealthPoorAfter
		if c.HealthPoorAfter <= c.HealthFairAfter {
			c.HealthPoorAfter = c.HealthFairAfter * 2
		}
	}
	if c.AutosaveDebounce <= 0 {
		c.AutosaveDebounce = d.AutosaveDebounce
	}
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = d.AutosaveInterval
	}
	if c.RecoveryWindow <= 0 {
		c.RecoveryWindow = d.RecoveryWindow
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
	if c.DefaultTotalQuestions <= 0 {
		c.DefaultTotalQuestions = d.DefaultTotalQuestions
	}
	return c
}

// ProgressPercent returns the share of the time budget already used,
// clamped to [0,100].
func ProgressPercent(duration time.Duration, remainingSeconds int) float64 {
	total := int(duration / time.Second)
	if total <= 0 {
		return 0
	}
	used := total - remainingSeconds
	pct := float64(used) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// FormatClock renders seconds as MM:SS for countdown display.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
