// Package lode captures decoded sessions into a Lode dataset.
//
// Events are buffered by Sink and written in batches through a Client. Each
// batch becomes one snapshot of a Hive-partitioned JSONL dataset; the
// session ends with a summary record.
package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/packetstream/log"
	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "packetstream"

// DeriveDay computes the partition day from session start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// PartitionValue makes s safe for use as a Hive partition value by
// replacing everything outside [A-Za-z0-9._-] with '_'.
func PartitionValue(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Config holds capture partitioning. All fields are required.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition value derived from the session source.
	Source string
	// Day is derived from the session start time (YYYY-MM-DD UTC).
	Day string
	// SessionID is the session identifier.
	SessionID string
}

// NewConfig derives the capture configuration for a session.
func NewConfig(dataset string, meta *types.SessionMeta, startedAt time.Time) Config {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return Config{
		Dataset:   dataset,
		Source:    PartitionValue(meta.Source),
		Day:       DeriveDay(startedAt),
		SessionID: meta.SessionID,
	}
}

// Validate checks that all partition keys are present.
func (c Config) Validate() error {
	var missing []string
	if c.Dataset == "" {
		missing = append(missing, "dataset")
	}
	if c.Source == "" {
		missing = append(missing, "source")
	}
	if c.Day == "" {
		missing = append(missing, "day")
	}
	if c.SessionID == "" {
		missing = append(missing, "session_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("capture config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// BufferConfig bounds the events held in memory between writes.
type BufferConfig struct {
	// MaxEvents flushes once this many events are buffered.
	MaxEvents int
	// MaxBytes flushes once the estimated buffered size reaches this.
	MaxBytes int64
}

// DefaultBufferConfig returns sensible defaults.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		MaxEvents: 1000,
		MaxBytes:  10 * 1024 * 1024, // 10 MB
	}
}

// ErrInvalidBufferConfig is returned when neither limit is set.
var ErrInvalidBufferConfig = errors.New("invalid buffer config: at least one of MaxEvents or MaxBytes must be set")

// Sink buffers a session's events and writes them to a Client.
//
// A failed write keeps the buffer, so the next flush retries the same
// events (at-least-once). Write outcomes are counted on the collector.
// Sink is used from the single goroutine that drives the session.
type Sink struct {
	client    Client
	config    BufferConfig
	collector *metrics.Collector
	logger    *log.Logger

	buffer      []packet.Event
	bufferBytes int64
	closed      bool

	// summary is filled in by the session before Close.
	summary func() *SessionSummary
}

// NewSink creates a buffering sink over client.
func NewSink(client Client, config BufferConfig, collector *metrics.Collector, logger *log.Logger) (*Sink, error) {
	if config.MaxEvents <= 0 && config.MaxBytes <= 0 {
		return nil, ErrInvalidBufferConfig
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Sink{
		client:    client,
		config:    config,
		collector: collector,
		logger:    logger,
		buffer:    make([]packet.Event, 0, min(max(config.MaxEvents, 16), 4096)),
	}, nil
}

// SetSummary registers the function that builds the session summary
// written on Close.
func (s *Sink) SetSummary(fn func() *SessionSummary) {
	s.summary = fn
}

// HandleEvents buffers events and flushes when a limit is reached.
func (s *Sink) HandleEvents(ctx context.Context, events []packet.Event) error {
	for _, ev := range events {
		s.buffer = append(s.buffer, ev)
		s.bufferBytes += estimateSize(ev)
	}
	if s.full() {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) full() bool {
	if s.config.MaxEvents > 0 && len(s.buffer) >= s.config.MaxEvents {
		return true
	}
	return s.config.MaxBytes > 0 && s.bufferBytes >= s.config.MaxBytes
}

// estimateSize approximates the stored size of an event.
func estimateSize(ev packet.Event) int64 {
	return int64(64 + len(ev.Field) + 2*len(ev.Chunk) + 2*len(ev.Value.Bytes) + len(ev.Value.Name))
}

// Flush writes all buffered events.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}
	if err := s.client.WriteEvents(ctx, s.buffer); err != nil {
		s.collector.IncCaptureWriteFailure()
		s.logger.Error("capture write failed", map[string]any{
			"events": len(s.buffer),
			"error":  err.Error(),
		})
		return err
	}
	s.collector.IncCaptureWriteSuccess()
	s.logger.Debug("capture write", map[string]any{"events": len(s.buffer)})
	s.buffer = s.buffer[:0]
	s.bufferBytes = 0
	return nil
}

// Buffered returns the number of events awaiting a write.
func (s *Sink) Buffered() int {
	return len(s.buffer)
}

// Close flushes remaining events, writes the session summary and closes the
// client. The outcome argument overrides the outcome of the registered
// summary. Close is idempotent.
func (s *Sink) Close(ctx context.Context, outcome *types.SessionOutcome) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.Flush(ctx)
	if s.summary != nil {
		summary := s.summary()
		if outcome != nil {
			summary.Outcome = outcome
		}
		if serr := s.client.WriteSummary(ctx, summary); serr != nil {
			s.collector.IncCaptureWriteFailure()
			err = errors.Join(err, serr)
		} else {
			s.collector.IncCaptureWriteSuccess()
		}
	}
	return errors.Join(err, s.client.Close())
}
