package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/packetstream/lode"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

// ErrorKind classifies why a session stopped early.
type ErrorKind int

const (
	// ErrorDecode is a decoder rejection of the input.
	ErrorDecode ErrorKind = iota
	// ErrorTransport is a failed read of the input.
	ErrorTransport
	// ErrorSink is a failed event handler.
	ErrorSink
	// ErrorCanceled is context cancellation.
	ErrorCanceled
)

// Error is a classified session failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a session error. Unclassified errors are
// transport errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorTransport
}

// classify wraps a pump error with its kind. Decode and sink errors are
// already wrapped by the chunk callback; what remains is cancellation or a
// source.ReadError.
func classify(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorCanceled, Err: err}
	}
	return &Error{Kind: ErrorTransport, Err: err}
}

// outcomeFor maps a session error to an outcome. A nil error is a
// completed session.
func outcomeFor(err error) *types.SessionOutcome {
	if err == nil {
		return &types.SessionOutcome{
			Status:  types.OutcomeCompleted,
			Message: "input ended on a packet boundary",
		}
	}

	se := classify(err)
	switch se.Kind {
	case ErrorDecode:
		kind := packet.KindName(packet.KindOf(se.Err))
		return &types.SessionOutcome{
			Status:    types.OutcomeDecodeError,
			Message:   se.Err.Error(),
			ErrorKind: &kind,
		}
	case ErrorSink:
		out := &types.SessionOutcome{
			Status:  types.OutcomeSinkError,
			Message: fmt.Sprintf("sink failure: %v", se.Err),
		}
		if kind := lode.KindName(se.Err); kind != "" {
			out.ErrorKind = &kind
		}
		return out
	case ErrorCanceled:
		return &types.SessionOutcome{
			Status:  types.OutcomeCanceled,
			Message: fmt.Sprintf("session canceled: %v", se.Err),
		}
	default:
		return &types.SessionOutcome{
			Status:  types.OutcomeTransportError,
			Message: fmt.Sprintf("transport failure: %v", se.Err),
		}
	}
}

// Exit codes for a finished session.
const (
	ExitCodeCompleted      = 0
	ExitCodeDecodeError    = 1
	ExitCodeTransportError = 2
	ExitCodeSinkError      = 3
	ExitCodeCanceled       = 130
)

// ExitCode maps an outcome to a process exit code.
func ExitCode(o *types.SessionOutcome) int {
	if o == nil {
		return ExitCodeTransportError
	}
	switch o.Status {
	case types.OutcomeCompleted:
		return ExitCodeCompleted
	case types.OutcomeDecodeError:
		return ExitCodeDecodeError
	case types.OutcomeSinkError:
		return ExitCodeSinkError
	case types.OutcomeCanceled:
		return ExitCodeCanceled
	default:
		return ExitCodeTransportError
	}
}
