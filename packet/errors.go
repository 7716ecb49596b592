package packet

import (
	"errors"
	"fmt"
)

// Sentinel errors for decode failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions. All are terminal for the
// engine that reported them.
var (
	// ErrSizeResolution indicates a size reference to a field that was not
	// decoded in the current packet or did not decode to an integer.
	ErrSizeResolution = errors.New("size resolution failed")

	// ErrPrecision indicates an integer decode from more than
	// layout.MaxUintBytes bytes.
	ErrPrecision = errors.New("integer precision exceeded")

	// ErrEnumeration indicates a decoded integer with no symbolic mapping.
	ErrEnumeration = errors.New("value not in enumeration")

	// ErrTruncatedStream indicates the input ended mid-field or mid-packet.
	ErrTruncatedStream = errors.New("stream ended before a complete packet")

	// ErrNestedSize indicates an outer payload too small to hold the nested
	// layout's fixed prefix.
	ErrNestedSize = errors.New("payload smaller than nested prefix")
)

// DecodeError wraps a decode failure with its classification and position.
type DecodeError struct {
	// Kind is the sentinel error for classification (e.g., ErrPrecision).
	Kind error
	// Field is the field being decoded, if any.
	Field string
	// Packet is the sequence number of the packet being decoded.
	Packet uint64
	// Msg describes the failure.
	Msg string
	// Err is the underlying error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	var msg string
	if e.Field != "" {
		msg = fmt.Sprintf("packet %d: field %q: %v: %s", e.Packet, e.Field, e.Kind, e.Msg)
	} else {
		msg = fmt.Sprintf("packet %d: %v: %s", e.Packet, e.Kind, e.Msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *DecodeError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newDecodeError(kind error, field string, packet uint64, format string, args ...any) *DecodeError {
	return &DecodeError{
		Kind:   kind,
		Field:  field,
		Packet: packet,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// IsDecodeError reports whether err carries a decode classification.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// KindOf returns the classification sentinel of a decode error, or nil.
func KindOf(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return nil
}

// KindName returns a short stable label for a classification sentinel,
// suitable for metrics and outcome reporting.
func KindName(kind error) string {
	switch kind {
	case ErrSizeResolution:
		return "size_resolution"
	case ErrPrecision:
		return "precision"
	case ErrEnumeration:
		return "enumeration"
	case ErrTruncatedStream:
		return "truncated_stream"
	case ErrNestedSize:
		return "nested_size"
	default:
		return "unknown"
	}
}
