// Package types defines the domain types shared by the decode session, its
// sinks and its adapters.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SessionMeta identifies one decode session: one input stream decoded from
// start to end by one decoder.
type SessionMeta struct {
	// SessionID is the canonical session identifier. Must be globally unique.
	SessionID string
	// Source describes the input, e.g. "tcp://127.0.0.1:5672" or a file path.
	Source string
	// Layout is the name of the outer layout.
	Layout string
	// Attempt is the connection attempt number. Starts at 1.
	Attempt int
	// PreviousSessionID links a reconnect to the session it replaces.
	// Nil for the first attempt.
	PreviousSessionID *string
}

// NewSessionMeta returns metadata for a first attempt with a fresh ID.
func NewSessionMeta(source, layout string) *SessionMeta {
	return &SessionMeta{
		SessionID: NewSessionID(),
		Source:    source,
		Layout:    layout,
		Attempt:   1,
	}
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// Next returns metadata for a reconnect following m.
func (m *SessionMeta) Next() *SessionMeta {
	prev := m.SessionID
	return &SessionMeta{
		SessionID:         NewSessionID(),
		Source:            m.Source,
		Layout:            m.Layout,
		Attempt:           m.Attempt + 1,
		PreviousSessionID: &prev,
	}
}

// Validate checks the lineage rules:
//   - attempt >= 1
//   - attempt == 1 => previous_session_id must be nil
//   - attempt > 1 => previous_session_id must be present
func (m *SessionMeta) Validate() error {
	if m.SessionID == "" {
		return errors.New("session_id must be non-empty")
	}
	if m.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", m.Attempt)
	}
	if m.Attempt == 1 && m.PreviousSessionID != nil {
		return errors.New("first attempt must not have previous_session_id")
	}
	if m.Attempt > 1 && m.PreviousSessionID == nil {
		return fmt.Errorf("reconnect (attempt=%d) must have previous_session_id", m.Attempt)
	}
	return nil
}

// OutcomeStatus is the final status of a session.
type OutcomeStatus string

const (
	// OutcomeCompleted indicates the input ended cleanly on a packet boundary.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeDecodeError indicates the decoder rejected the input.
	OutcomeDecodeError OutcomeStatus = "decode_error"
	// OutcomeTransportError indicates reading the input failed.
	OutcomeTransportError OutcomeStatus = "transport_error"
	// OutcomeSinkError indicates an event handler failed.
	OutcomeSinkError OutcomeStatus = "sink_error"
	// OutcomeCanceled indicates the session was stopped by its context.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// SessionOutcome is the final outcome of a session.
type SessionOutcome struct {
	Status  OutcomeStatus
	Message string
	// ErrorKind is the decode error classification, for decode errors.
	ErrorKind *string
}

// IsSuccess reports whether the session completed.
func (o *SessionOutcome) IsSuccess() bool {
	return o != nil && o.Status == OutcomeCompleted
}
