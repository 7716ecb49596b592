// Package packet implements the incremental, layout-driven packet decoder.
//
// Bytes arrive in chunks whose boundaries carry no meaning. The engine keeps
// a Cursor between chunks and emits exactly one Event per decoded field, or
// one Event per received piece of a streaming field. Feeding the same bytes
// under any chunking yields the same events.
package packet

import (
	"github.com/justapithecus/packetstream/layout"
)

// Engine decodes one input stream against one Layout.
//
// An Engine is not safe for concurrent use. After a failure every later call
// returns the same error.
type Engine struct {
	layout *layout.Layout
	cursor Cursor
	err    error
}

// NewEngine returns an engine positioned at the start of packet 0.
func NewEngine(l *layout.Layout) *Engine {
	return &Engine{layout: l}
}

// Layout returns the layout the engine decodes.
func (e *Engine) Layout() *layout.Layout {
	return e.layout
}

// Feed decodes chunk and returns the events it completed, in input order.
// On failure the events completed before the failure are returned with the
// error.
func (e *Engine) Feed(chunk []byte) ([]Event, error) {
	if e.err != nil {
		return nil, e.err
	}
	next, events, err := Step(e.layout, e.cursor, chunk)
	if err != nil {
		e.err = err
		return events, err
	}
	e.cursor = next
	return events, nil
}

// Finish reports the end of input. It fails with ErrTruncatedStream unless
// the engine sits exactly on a packet boundary.
func (e *Engine) Finish() error {
	if e.err != nil {
		return e.err
	}
	if err := Finish(e.layout, e.cursor); err != nil {
		e.err = err
		return err
	}
	return nil
}

// Cursor returns the current decode progress.
func (e *Engine) Cursor() Cursor {
	return e.cursor
}

// Packets returns the number of packets completed so far.
func (e *Engine) Packets() uint64 {
	return e.cursor.Packet
}

// Err returns the terminal error, if any.
func (e *Engine) Err() error {
	return e.err
}
