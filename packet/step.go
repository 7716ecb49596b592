package packet

import (
	"maps"

	"github.com/justapithecus/packetstream/layout"
)

// Cursor is the complete decode progress of one engine: everything needed to
// resume decoding at the next byte. The zero value is the start of packet 0.
type Cursor struct {
	// Field is the index of the field being decoded.
	Field int
	// Consumed is the number of bytes of the current field seen so far.
	Consumed int
	// Buffer holds the bytes of the current non-streaming field.
	Buffer []byte
	// Values holds the decoded values of the current packet by field name.
	Values map[string]Value
	// Packet is the sequence number of the packet being decoded.
	Packet uint64
}

// AtPacketStart reports whether the cursor sits on a packet boundary.
func (c Cursor) AtPacketStart() bool {
	return c.Field == 0 && c.Consumed == 0
}

// Step decodes chunk against l starting from c. It never modifies c or the
// memory c refers to; the returned cursor carries the progress.
//
// On failure Step returns the events completed before the failing field
// along with the error. The returned cursor is then meaningless and must not
// be stepped again.
func Step(l *layout.Layout, c Cursor, chunk []byte) (Cursor, []Event, error) {
	next := Cursor{
		Field:    c.Field,
		Consumed: c.Consumed,
		// Capacity is clipped so the first append copies.
		Buffer: c.Buffer[:len(c.Buffer):len(c.Buffer)],
		Values: maps.Clone(c.Values),
		Packet: c.Packet,
	}

	var events []Event
	for {
		// Zero-size fields at the start of a packet wait for input so that
		// a stream may end cleanly on a packet boundary.
		if len(chunk) == 0 && next.AtPacketStart() {
			return next, events, nil
		}

		f := l.Field(next.Field)
		size, err := next.resolveSize(f)
		if err != nil {
			return next, events, err
		}

		remaining := size - next.Consumed
		if remaining > 0 && len(chunk) == 0 {
			return next, events, nil
		}

		n := min(remaining, len(chunk))
		piece := chunk[:n]
		chunk = chunk[n:]

		if f.Streaming {
			if n > 0 {
				events = append(events, Event{
					Field:     f.Name,
					Packet:    next.Packet,
					Streaming: true,
					Size:      size,
					Chunk:     append([]byte(nil), piece...),
				})
			}
		} else {
			next.Buffer = append(next.Buffer, piece...)
		}
		next.Consumed += n
		if next.Consumed < size {
			continue
		}

		if !f.Streaming {
			v, err := decodeValue(f, next.Buffer, next.Packet)
			if err != nil {
				return next, events, err
			}
			if next.Values == nil {
				next.Values = make(map[string]Value, l.Len())
			}
			next.Values[f.Name] = v
			events = append(events, Event{Field: f.Name, Packet: next.Packet, Value: v})
		}

		next.Field++
		next.Consumed = 0
		next.Buffer = nil
		if next.Field == l.Len() {
			next.Field = 0
			next.Values = nil
			next.Packet++
		}
	}
}

// Finish reports whether a stream may end at c.
func Finish(l *layout.Layout, c Cursor) error {
	if c.AtPacketStart() {
		return nil
	}
	f := l.Field(c.Field)
	return newDecodeError(ErrTruncatedStream, f.Name, c.Packet,
		"ended at field %d of %d with %d bytes consumed", c.Field+1, l.Len(), c.Consumed)
}

func (c Cursor) resolveSize(f layout.Field) (int, error) {
	if n, ok := f.Size.Literal(); ok {
		return n, nil
	}

	ref, _ := f.Size.Ref()
	v, ok := c.Values[ref]
	if !ok {
		return 0, newDecodeError(ErrSizeResolution, f.Name, c.Packet,
			"size field %q has no decoded value in this packet", ref)
	}
	n, ok := v.Int()
	if !ok {
		return 0, newDecodeError(ErrSizeResolution, f.Name, c.Packet,
			"size field %q decoded to %s %q, not an integer", ref, v.Kind, v)
	}
	return n, nil
}

func decodeValue(f layout.Field, buf []byte, packet uint64) (Value, error) {
	if f.Representation == layout.Opaque {
		return BytesValue(append([]byte(nil), buf...)), nil
	}

	if len(buf) > layout.MaxUintBytes {
		return Value{}, newDecodeError(ErrPrecision, f.Name, packet,
			"cannot decode an unsigned integer from %d bytes (max %d)", len(buf), layout.MaxUintBytes)
	}
	var n uint64
	for _, b := range buf {
		n = n<<8 | uint64(b)
	}

	if f.Enum == nil {
		return UintValue(n), nil
	}
	name, ok := f.Enum[n]
	if !ok {
		return Value{}, newDecodeError(ErrEnumeration, f.Name, packet,
			"value %d has no symbolic name", n)
	}
	return EnumValue(n, name), nil
}
