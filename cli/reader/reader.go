package reader

import (
	"encoding/hex"
	"fmt"

	"github.com/justapithecus/packetstream/frame"
	"github.com/justapithecus/packetstream/ipc"
	"github.com/justapithecus/packetstream/layout"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/session"
)

// Layout describes a resolved layout and its nested payload decoding.
func Layout(name string, outer *layout.Layout, asm *frame.Config) *LayoutResponse {
	resp := &LayoutResponse{
		Name:   name,
		Fields: layoutFields(outer),
	}
	if size, ok := outer.FixedSize(); ok {
		resp.FixedSize = &size
	}
	if asm != nil {
		prefixSize, _ := asm.Prefix.FixedSize()
		resp.Nested = &NestedLayout{
			Discriminator: asm.Discriminator,
			Match:         asm.Match,
			Payload:       asm.Payload,
			Trailer:       asm.Trailer,
			Prefix:        layoutFields(asm.Prefix),
			PrefixSize:    prefixSize,
			Remainder:     asm.Remainder,
			Unmatched:     asm.Unmatched.String(),
		}
	}
	return resp
}

func layoutFields(l *layout.Layout) []LayoutField {
	specs := layout.Describe(l)
	out := make([]LayoutField, 0, len(specs))
	for i, fs := range specs {
		size := fmt.Sprintf("from %s", fs.SizeFrom)
		if fs.Size != nil {
			size = fmt.Sprintf("%d", *fs.Size)
		}
		out = append(out, LayoutField{
			Name:   fs.Name,
			Size:   size,
			Type:   fs.Type,
			Enum:   layout.EnumEntries(l.Field(i)),
			Stream: fs.Stream,
		})
	}
	return out
}

// Session summarizes a session result.
func Session(result *session.Result) *SessionResponse {
	resp := &SessionResponse{
		DurationMs:      result.Duration.Milliseconds(),
		Bytes:           result.Bytes,
		Chunks:          result.Metrics.ChunksFed,
		Packets:         result.Packets,
		Nested:          result.Nested,
		Events:          result.Events,
		StreamEvents:    result.Metrics.StreamEvents,
		DecodeErrors:    result.Metrics.DecodeErrors,
		ErrorsByKind:    result.Metrics.ErrorsByKind,
		CaptureWrites:   result.Metrics.CaptureWriteSuccess,
		CaptureFailures: result.Metrics.CaptureWriteFailure,
		PublishFailures: result.Metrics.PublishFailure,
	}
	if m := result.Meta; m != nil {
		resp.SessionID = m.SessionID
		resp.Source = m.Source
		resp.Layout = m.Layout
		resp.Attempt = m.Attempt
		resp.PreviousSessionID = m.PreviousSessionID
	}
	if o := result.Outcome; o != nil {
		resp.Outcome = string(o.Status)
		resp.Message = o.Message
		resp.ErrorKind = o.ErrorKind
	}
	return resp
}

// Event flattens a decoded event.
func Event(ev packet.Event) EventRow {
	row := EventRow{
		Packet: ev.Packet,
		Depth:  ev.Depth,
		Parent: ev.Parent,
		Field:  ev.Field,
	}
	if ev.Streaming {
		row.Kind = "chunk"
		row.Value = hex.EncodeToString(ev.Chunk)
		row.Size = ev.Size
		return row
	}
	row.Kind = ev.Value.Kind.String()
	row.Value = ev.Value.String()
	return row
}

// Replay summarizes a recorded event log.
func Replay(log *ipc.Log) *ReplayResponse {
	resp := &ReplayResponse{Events: len(log.Events)}
	if h := log.Header; h != nil {
		resp.SessionID = h.SessionID
		resp.Source = h.Source
		resp.Layout = h.Layout
		resp.Version = h.Version
	}
	if o := log.Outcome; o != nil {
		resp.Status = o.Status
		resp.Message = o.Message
		resp.ErrorKind = o.ErrorKind
	}
	return resp
}
