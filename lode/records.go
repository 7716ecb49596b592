package lode

import (
	"encoding/hex"
	"time"

	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

// RecordKind discriminator values. record_kind is also the last partition
// key, so field values, stream chunks and session summaries land in
// separate partitions.
const (
	RecordKindField   = "field"
	RecordKindChunk   = "chunk"
	RecordKindSession = "session"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "session_id", "record_kind"}

// toEventRecordMap converts a decoded event to a map for storage.
// Lode HiveLayout requires records as map[string]any. Bytes are hex encoded
// so records stay readable as plain JSONL.
func toEventRecordMap(ev packet.Event, seq uint64, cfg Config) map[string]any {
	m := map[string]any{
		"seq":        seq,
		"field":      ev.Field,
		"packet":     ev.Packet,
		"depth":      ev.Depth,
		"source":     cfg.Source,
		"day":        cfg.Day,
		"session_id": cfg.SessionID,
	}
	if ev.Depth > 0 {
		m["parent"] = ev.Parent
	}

	if ev.Streaming {
		m["record_kind"] = RecordKindChunk
		m["size"] = ev.Size
		m["length"] = len(ev.Chunk)
		m["chunk"] = hex.EncodeToString(ev.Chunk)
		return m
	}

	m["record_kind"] = RecordKindField
	m["value_kind"] = ev.Value.Kind.String()
	switch ev.Value.Kind {
	case packet.KindBytes:
		m["value_bytes"] = hex.EncodeToString(ev.Value.Bytes)
	case packet.KindUint:
		m["value_uint"] = ev.Value.Uint
	case packet.KindEnum:
		m["value_uint"] = ev.Value.Uint
		m["value_name"] = ev.Value.Name
	}
	return m
}

// SessionSummary is the final record of a captured session.
type SessionSummary struct {
	Meta        *types.SessionMeta
	Outcome     *types.SessionOutcome
	Metrics     metrics.Snapshot
	StartedAt   time.Time
	CompletedAt time.Time
}

// toSessionRecordMap converts a session summary to a map for storage.
func toSessionRecordMap(s *SessionSummary, events uint64, cfg Config) map[string]any {
	m := map[string]any{
		"record_kind":       RecordKindSession,
		"source":            cfg.Source,
		"day":               cfg.Day,
		"session_id":        cfg.SessionID,
		"started_at":        s.StartedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":      s.CompletedAt.UTC().Format(time.RFC3339Nano),
		"events_captured":   events,
		"bytes_fed":         s.Metrics.BytesFed,
		"chunks_fed":        s.Metrics.ChunksFed,
		"packets_completed": s.Metrics.PacketsCompleted,
		"nested_opened":     s.Metrics.NestedOpened,
		"decode_errors":     s.Metrics.DecodeErrors,
		"version":           types.Version,
	}
	if s.Meta != nil {
		m["layout"] = s.Meta.Layout
		m["attempt"] = s.Meta.Attempt
		if s.Meta.PreviousSessionID != nil {
			m["previous_session_id"] = *s.Meta.PreviousSessionID
		}
	}
	if s.Outcome != nil {
		m["status"] = string(s.Outcome.Status)
		m["message"] = s.Outcome.Message
		if s.Outcome.ErrorKind != nil {
			m["error_kind"] = *s.Outcome.ErrorKind
		}
	}
	return m
}
