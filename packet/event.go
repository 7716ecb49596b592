package packet

import "fmt"

// Event is one decoding result: a fully decoded field value, or one streamed
// piece of a streaming field.
type Event struct {
	// Field is the field name from the layout that produced the event.
	Field string `msgpack:"field" json:"field"`
	// Packet is the sequence number of the layout pass the event belongs to.
	Packet uint64 `msgpack:"packet" json:"packet"`

	// Value is set when Streaming is false.
	Value Value `msgpack:"value" json:"value"`

	Streaming bool `msgpack:"streaming,omitempty" json:"streaming,omitempty"`
	// Size is the declared size of the streaming field.
	Size int `msgpack:"size,omitempty" json:"size,omitempty"`
	// Chunk is the piece of a streaming field carried by this event.
	Chunk []byte `msgpack:"chunk,omitempty" json:"chunk,omitempty"`

	// Depth is 0 for events of the top-level engine and 1 for events of an
	// engine nested inside a frame payload.
	Depth int `msgpack:"depth,omitempty" json:"depth,omitempty"`
	// Parent is the outer packet number of a nested event.
	Parent uint64 `msgpack:"parent,omitempty" json:"parent,omitempty"`
}

// Nested reports whether the event came from a nested engine.
func (e Event) Nested() bool {
	return e.Depth > 0
}

func (e Event) String() string {
	prefix := fmt.Sprintf("#%d %s", e.Packet, e.Field)
	if e.Depth > 0 {
		prefix = fmt.Sprintf("#%d/%d %s", e.Parent, e.Packet, e.Field)
	}
	if e.Streaming {
		return fmt.Sprintf("%s chunk[%d/%d]", prefix, len(e.Chunk), e.Size)
	}
	return fmt.Sprintf("%s = %s", prefix, e.Value)
}
