package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/justapithecus/packetstream/iox"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

// Recorder writes a session's events to an event log.
// It is used from the single goroutine that drives the session.
type Recorder struct {
	buf    *bufio.Writer
	enc    *FrameEncoder
	closer io.Closer
	seq    uint64
	closed bool
}

// NewRecorder writes the log header for meta to w and returns a Recorder.
func NewRecorder(w io.Writer, meta *types.SessionMeta) (*Recorder, error) {
	buf := bufio.NewWriter(w)
	r := &Recorder{buf: buf, enc: NewFrameEncoder(buf)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}

	header := &HeaderFrame{
		Type:      HeaderType,
		Version:   types.EventLogVersion,
		SessionID: meta.SessionID,
		Source:    meta.Source,
		Layout:    meta.Layout,
	}
	if err := r.enc.WriteFrame(header); err != nil {
		return nil, fmt.Errorf("write log header: %w", err)
	}
	return r, nil
}

// CreateRecorder creates the file at path and records into it.
func CreateRecorder(path string, meta *types.SessionMeta) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	r, err := NewRecorder(f, meta)
	if err != nil {
		iox.DiscardClose(f)
		return nil, err
	}
	return r, nil
}

// HandleEvents appends events to the log.
func (r *Recorder) HandleEvents(_ context.Context, events []packet.Event) error {
	for _, ev := range events {
		r.seq++
		if err := r.enc.WriteFrame(&EventFrame{Type: EventType, Seq: r.seq, Event: ev}); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the outcome frame, flushes and closes the underlying writer
// if it is closable. Close is idempotent.
func (r *Recorder) Close(_ context.Context, outcome *types.SessionOutcome) error {
	if r.closed {
		return nil
	}
	r.closed = true

	frame := &OutcomeFrame{Type: OutcomeType, Events: r.seq}
	if outcome != nil {
		frame.Status = string(outcome.Status)
		frame.Message = outcome.Message
		if outcome.ErrorKind != nil {
			frame.ErrorKind = *outcome.ErrorKind
		}
	}

	err := r.enc.WriteFrame(frame)
	err = errors.Join(err, r.buf.Flush())
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	return err
}

// Events returns the number of events recorded.
func (r *Recorder) Events() uint64 {
	return r.seq
}

// ErrNoHeader indicates a log that does not start with a header frame.
var ErrNoHeader = errors.New("event log has no header")

// Replay reads an event log and calls fn for each event in order.
// The outcome is nil when the log ends without one, which happens when the
// recording session was killed.
func Replay(r io.Reader, fn func(packet.Event) error) (*HeaderFrame, *OutcomeFrame, error) {
	dec := NewFrameDecoder(r)

	payload, err := dec.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, nil, ErrNoHeader
		}
		return nil, nil, err
	}
	first, err := DecodeFrame(payload)
	if err != nil {
		return nil, nil, err
	}
	header, ok := first.(*HeaderFrame)
	if !ok {
		return nil, nil, ErrNoHeader
	}

	var seq uint64
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return header, nil, nil
		}
		if err != nil {
			return header, nil, err
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			return header, nil, err
		}

		switch f := frame.(type) {
		case *EventFrame:
			seq++
			if f.Seq != seq {
				return header, nil, fmt.Errorf("event log: sequence gap: got %d, want %d", f.Seq, seq)
			}
			if err := fn(f.Event); err != nil {
				return header, nil, err
			}
		case *OutcomeFrame:
			return header, f, nil
		default:
			return header, nil, fmt.Errorf("event log: unexpected %T after header", frame)
		}
	}
}

// Log is a fully read event log.
type Log struct {
	Header  *HeaderFrame
	Events  []packet.Event
	Outcome *OutcomeFrame
}

// ReadLog reads a whole event log into memory.
func ReadLog(r io.Reader) (*Log, error) {
	l := &Log{}
	header, outcome, err := Replay(r, func(ev packet.Event) error {
		l.Events = append(l.Events, ev)
		return nil
	})
	l.Header, l.Outcome = header, outcome
	return l, err
}
