package session

import (
	"context"

	"github.com/justapithecus/packetstream/log"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

// LogHandler logs every event at debug level.
type LogHandler struct {
	Logger *log.Logger
}

// HandleEvents logs events when debug logging is enabled.
func (h LogHandler) HandleEvents(_ context.Context, events []packet.Event) error {
	if !h.Logger.DebugEnabled() {
		return nil
	}
	for _, ev := range events {
		fields := map[string]any{
			"field":  ev.Field,
			"packet": ev.Packet,
			"depth":  ev.Depth,
		}
		if ev.Streaming {
			fields["size"] = ev.Size
			fields["chunk_len"] = len(ev.Chunk)
		} else {
			fields["value"] = ev.Value.String()
		}
		h.Logger.Debug("event", fields)
	}
	return nil
}

// Close is a no-op.
func (LogHandler) Close(context.Context, *types.SessionOutcome) error {
	return nil
}

// HandlerFunc adapts a function to a Handler with a no-op Close.
type HandlerFunc func(ctx context.Context, events []packet.Event) error

func (f HandlerFunc) HandleEvents(ctx context.Context, events []packet.Event) error {
	return f(ctx, events)
}

func (HandlerFunc) Close(context.Context, *types.SessionOutcome) error {
	return nil
}
