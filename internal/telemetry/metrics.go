package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voxprep/voxprep/pkg/interview"
)

// SessionMetrics records interview session activity on OpenTelemetry
// counters. The runner feeds it the session event stream.
type SessionMetrics struct {
	started   metric.Int64Counter
	finished  metric.Int64Counter
	entries   metric.Int64Counter
	retries   metric.Int64Counter
	autosaves metric.Int64Counter
	feedback  metric.Int64Counter
	errors    metric.Int64Counter
}

// NewSessionMetrics creates the session counters on the given meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	m := &SessionMetrics{}
	var err error
	if m.started, err = meter.Int64Counter("voxprep.sessions.started"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.finished, err = meter.Int64Counter("voxprep.sessions.finished"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.entries, err = meter.Int64Counter("voxprep.transcript.entries"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.retries, err = meter.Int64Counter("voxprep.connect.retries"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.autosaves, err = meter.Int64Counter("voxprep.autosaves.written"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.feedback, err = meter.Int64Counter("voxprep.feedback.generated"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.errors, err = meter.Int64Counter("voxprep.errors"); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	return m, nil
}

// Observe updates counters from one session event.
func (m *SessionMetrics) Observe(ctx context.Context, ev interview.Event) {
	switch e := ev.(type) {
	case *interview.StatusChangedEvent:
		if e.To == interview.StatusActive {
			m.started.Add(ctx, 1)
		}
	case *interview.SessionEndedEvent:
		m.finished.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", string(e.Reason))))
	case *interview.TranscriptAppendedEvent:
		m.entries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("role", string(e.Entry.Role))))
	case *interview.RetryScheduledEvent:
		m.retries.Add(ctx, 1)
	case *interview.AutosaveWrittenEvent:
		m.autosaves.Add(ctx, 1)
	case *interview.FeedbackReadyEvent:
		m.feedback.Add(ctx, 1)
	case *interview.ErrorEvent:
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(e.Kind))))
	}
}
