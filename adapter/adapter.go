// Package adapter publishes session completion notifications to downstream
// systems. A session publishes exactly once, after its outcome is known.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/packetstream/types"
)

// EventTypeSessionCompleted is the event_type of every published event.
const EventTypeSessionCompleted = "session_completed"

// SessionCompletedEvent is the payload published when a session finishes.
type SessionCompletedEvent struct {
	Version   string `json:"version"`
	EventType string `json:"event_type"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	Layout    string `json:"layout"`
	Attempt   int    `json:"attempt"`
	// Outcome is a types.OutcomeStatus value.
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	// StoragePath is empty when the session was not captured.
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"`
	BytesFed    int64  `json:"bytes_fed"`
	EventCount  int64  `json:"event_count"`
	Packets     uint64 `json:"packets"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewSessionCompletedEvent builds the event for a finished session.
func NewSessionCompletedEvent(meta *types.SessionMeta, outcome *types.SessionOutcome, completedAt time.Time, duration time.Duration) *SessionCompletedEvent {
	ev := &SessionCompletedEvent{
		Version:    types.Version,
		EventType:  EventTypeSessionCompleted,
		SessionID:  meta.SessionID,
		Source:     meta.Source,
		Layout:     meta.Layout,
		Attempt:    meta.Attempt,
		Timestamp:  completedAt.UTC().Format(time.RFC3339),
		DurationMs: duration.Milliseconds(),
	}
	if outcome != nil {
		ev.Outcome = string(outcome.Status)
		ev.Message = outcome.Message
		if outcome.ErrorKind != nil {
			ev.ErrorKind = *outcome.ErrorKind
		}
	}
	return ev
}

// Adapter publishes session completion events.
type Adapter interface {
	// Publish sends one event. It must respect ctx cancellation.
	Publish(ctx context.Context, event *SessionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the delay before retry n (1-based): 500ms, 1s, 2s, ...
func Backoff(n int) time.Duration {
	return time.Duration(1<<uint(n-1)) * 500 * time.Millisecond
}

// Retry calls attempt up to 1+retries times with exponential backoff
// between calls. It stops early when attempt succeeds, when permanent
// reports the error as non-retriable, or when ctx ends. name prefixes
// returned errors.
func Retry(ctx context.Context, name string, retries int, attempt func(context.Context) error, permanent func(error) bool) error {
	attempts := 1 + retries
	var lastErr error

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}
		if i > 0 {
			timer := time.NewTimer(Backoff(i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
