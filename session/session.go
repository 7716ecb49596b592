// Package session runs one decode session: it pumps an input stream
// through a decoder, hands every event to the configured handlers, and
// reports a classified outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/justapithecus/packetstream/adapter"
	"github.com/justapithecus/packetstream/frame"
	"github.com/justapithecus/packetstream/layout"
	"github.com/justapithecus/packetstream/log"
	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/source"
	"github.com/justapithecus/packetstream/types"
)

// closeTimeout bounds handler close and adapter publish after the input
// has ended, including after cancellation.
const closeTimeout = 30 * time.Second

// Decoder is the decode stage of a session. Both *packet.Engine and
// *frame.Decoder implement it.
type Decoder interface {
	Feed(chunk []byte) ([]packet.Event, error)
	Finish() error
	Packets() uint64
}

// Handler consumes decoded events. HandleEvents is called once per input
// chunk with the events it produced, in order. Close is called exactly once
// with the final outcome, on every termination path.
type Handler interface {
	HandleEvents(ctx context.Context, events []packet.Event) error
	Close(ctx context.Context, outcome *types.SessionOutcome) error
}

// Config configures a session.
type Config struct {
	// Meta is the session identity and lineage.
	Meta *types.SessionMeta
	// Outer is the top-level packet layout.
	Outer *layout.Layout
	// Assembler enables nested payload decoding. Nil decodes Outer only.
	Assembler *frame.Config
	// Handlers receive events in the order given.
	Handlers []Handler
	// ChunkSize is the input read size. Zero uses source.DefaultChunkSize.
	ChunkSize int
	// Collector records session metrics. Nil disables metrics.
	Collector *metrics.Collector
	// Adapter publishes the completion event. Nil disables publishing.
	Adapter adapter.Adapter
	// StoragePath is reported in the completion event.
	StoragePath string
	// Logger defaults to a logger built from Meta.
	Logger *log.Logger
}

// Result is the result of a session.
type Result struct {
	Meta     *types.SessionMeta
	Outcome  *types.SessionOutcome
	Duration time.Duration
	// Packets is the number of outer packets completed.
	Packets uint64
	// Nested is the number of nested payloads opened.
	Nested uint64
	// Events is the number of events dispatched to handlers.
	Events int64
	// Bytes is the number of input bytes read.
	Bytes   int64
	Metrics metrics.Snapshot
}

// Session runs a single decode session.
type Session struct {
	config    *Config
	decoder   Decoder
	logger    *log.Logger
	startTime time.Time
	events    int64
}

// New validates config and builds the decoder.
func New(config *Config) (*Session, error) {
	if config.Meta == nil {
		return nil, errors.New("session metadata is required")
	}
	if err := config.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session metadata: %w", err)
	}
	if config.Outer == nil {
		return nil, errors.New("outer layout is required")
	}

	var dec Decoder
	if config.Assembler != nil {
		fd, err := frame.NewDecoder(config.Outer, *config.Assembler)
		if err != nil {
			return nil, err
		}
		dec = fd
	} else {
		dec = packet.NewEngine(config.Outer)
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.Meta)
	}
	return &Session{config: config, decoder: dec, logger: logger}, nil
}

// StartTime returns when Run began.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Run decodes r to its end. The returned error is reserved for misuse;
// decode, transport, sink and cancellation failures are reported in the
// result's outcome.
func (s *Session) Run(ctx context.Context, r io.Reader) (*Result, error) {
	if !s.startTime.IsZero() {
		return nil, errors.New("session already run")
	}
	s.startTime = time.Now()
	collector := s.config.Collector
	collector.IncSessionStarted()

	s.logger.Info("starting session", map[string]any{
		"chunk_size": s.config.ChunkSize,
		"nested":     s.config.Assembler != nil,
	})

	bytesRead, err := source.Pump(ctx, r, s.config.ChunkSize, func(chunk []byte) error {
		collector.AddChunk(len(chunk))
		events, derr := s.decoder.Feed(chunk)
		// Events completed before a decode failure are still delivered.
		if herr := s.dispatch(ctx, events); herr != nil {
			return &Error{Kind: ErrorSink, Err: herr}
		}
		if derr != nil {
			return &Error{Kind: ErrorDecode, Err: derr}
		}
		return nil
	})
	if err == nil {
		if ferr := s.decoder.Finish(); ferr != nil {
			err = &Error{Kind: ErrorDecode, Err: ferr}
		}
	}

	if err != nil {
		if kind := KindOf(err); kind == ErrorDecode {
			collector.IncDecodeError(packet.KindName(packet.KindOf(err)))
		}
		s.logger.Error("session stopped", map[string]any{
			"error": err.Error(),
			"bytes": bytesRead,
		})
	}

	outcome := outcomeFor(err)
	collector.SetPackets(s.decoder.Packets(), s.nested())

	// Handlers see the outcome on every path; a close failure downgrades a
	// completed session to a sink error.
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if cerr := s.closeHandlers(closeCtx, outcome); cerr != nil {
		s.logger.Error("handler close failed", map[string]any{"error": cerr.Error()})
		if outcome.IsSuccess() {
			outcome = outcomeFor(&Error{Kind: ErrorSink, Err: cerr})
		}
	}

	result := s.buildResult(outcome, bytesRead)
	s.logger.Info("session finished", map[string]any{
		"outcome":  string(outcome.Status),
		"packets":  result.Packets,
		"events":   result.Events,
		"bytes":    result.Bytes,
		"duration": result.Duration.String(),
	})

	s.publish(closeCtx, result)
	result.Metrics = collector.Snapshot()
	return result, nil
}

// dispatch counts events and passes them to every handler.
func (s *Session) dispatch(ctx context.Context, events []packet.Event) error {
	if len(events) == 0 {
		return nil
	}
	collector := s.config.Collector
	for _, ev := range events {
		if ev.Streaming {
			collector.IncStreamEvent(ev.Nested())
		} else {
			collector.IncValueEvent(ev.Nested())
		}
	}
	s.events += int64(len(events))

	for _, h := range s.config.Handlers {
		if err := h.HandleEvents(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

// closeHandlers closes all handlers, even after a failure.
func (s *Session) closeHandlers(ctx context.Context, outcome *types.SessionOutcome) error {
	var errs []error
	for _, h := range s.config.Handlers {
		if err := h.Close(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) nested() uint64 {
	if fd, ok := s.decoder.(*frame.Decoder); ok {
		return fd.Nested()
	}
	return 0
}

func (s *Session) buildResult(outcome *types.SessionOutcome, bytesRead int64) *Result {
	result := &Result{
		Meta:     s.config.Meta,
		Outcome:  outcome,
		Duration: time.Since(s.startTime),
		Packets:  s.decoder.Packets(),
		Nested:   s.nested(),
		Events:   s.events,
		Bytes:    bytesRead,
	}

	collector := s.config.Collector
	if outcome.IsSuccess() {
		collector.IncSessionCompleted()
	} else {
		collector.IncSessionFailed()
	}
	return result
}

// publish sends the completion event. Failures are logged, never returned.
func (s *Session) publish(ctx context.Context, result *Result) {
	if s.config.Adapter == nil {
		return
	}
	ev := adapter.NewSessionCompletedEvent(result.Meta, result.Outcome, time.Now(), result.Duration)
	ev.StoragePath = s.config.StoragePath
	ev.BytesFed = result.Bytes
	ev.EventCount = result.Events
	ev.Packets = result.Packets

	if err := s.config.Adapter.Publish(ctx, ev); err != nil {
		s.config.Collector.IncPublishFailure()
		s.logger.Warn("publish failed", map[string]any{"error": err.Error()})
		return
	}
	s.config.Collector.IncPublishSuccess()
}

// Run is a shorthand for New followed by Session.Run.
func Run(ctx context.Context, config *Config, r io.Reader) (*Result, error) {
	s, err := New(config)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, r)
}
