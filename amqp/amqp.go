// Package amqp defines the AMQP 0-9-1 frame envelope and method prefix as
// packet layouts, and the client side of the protocol handshake.
package amqp

import (
	"fmt"
	"io"

	"github.com/justapithecus/packetstream/frame"
	"github.com/justapithecus/packetstream/layout"
)

// Field names of the frame envelope.
const (
	FieldType     = "type"
	FieldChannel  = "channel"
	FieldSize     = "size"
	FieldPayload  = "payload"
	FieldFrameEnd = "frame-end"
)

// Field names of a method frame payload.
const (
	FieldClassID   = "class-id"
	FieldMethodID  = "method-id"
	FieldArguments = "arguments"
)

// Frame type octets.
const (
	FrameMethod    uint64 = 1
	FrameHeader    uint64 = 2
	FrameBody      uint64 = 3
	FrameHeartbeat uint64 = 8
)

// Symbolic frame type names, as decoded from the type field.
const (
	Method    = "METHOD"
	Header    = "HEADER"
	Body      = "BODY"
	Heartbeat = "HEARTBEAT"
)

// FrameEnd is the octet closing every frame.
const FrameEnd byte = 0xCE

// ProtocolHeader is sent by the client to open a 0-9-1 connection.
var ProtocolHeader = []byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}

func frameTypes() map[uint64]string {
	return map[uint64]string{
		FrameMethod:    Method,
		FrameHeader:    Header,
		FrameBody:      Body,
		FrameHeartbeat: Heartbeat,
	}
}

// FrameLayout returns the general frame envelope. The payload is streamed
// and the frame-end octet is checked through its enumeration.
func FrameLayout() *layout.Layout {
	return layout.MustNew(
		layout.Field{Name: FieldType, Size: layout.Fixed(1), Representation: layout.UintBE, Enum: frameTypes()},
		layout.Field{Name: FieldChannel, Size: layout.Fixed(2), Representation: layout.UintBE},
		layout.Field{Name: FieldSize, Size: layout.Fixed(4), Representation: layout.UintBE},
		layout.Field{Name: FieldPayload, Size: layout.FromField(FieldSize), Streaming: true},
		layout.Field{
			Name: FieldFrameEnd, Size: layout.Fixed(1), Representation: layout.UintBE,
			Enum: map[uint64]string{uint64(FrameEnd): "FRAME_END"},
		},
	)
}

// MethodPrefix returns the fixed head of a method frame payload.
func MethodPrefix() *layout.Layout {
	return layout.MustNew(
		layout.Field{Name: FieldClassID, Size: layout.Fixed(2), Representation: layout.UintBE},
		layout.Field{Name: FieldMethodID, Size: layout.Fixed(2), Representation: layout.UintBE},
	)
}

// AssemblerConfig decodes method frame payloads as class-id, method-id and
// opaque arguments.
func AssemblerConfig(unmatched frame.UnmatchedPolicy) frame.Config {
	return frame.Config{
		Discriminator: FieldType,
		Match:         []string{Method},
		Payload:       FieldPayload,
		Trailer:       FieldFrameEnd,
		Prefix:        MethodPrefix(),
		Remainder:     FieldArguments,
		Unmatched:     unmatched,
	}
}

// NewDecoder returns a frame decoder with method payload decoding.
func NewDecoder(unmatched frame.UnmatchedPolicy) (*frame.Decoder, error) {
	return frame.NewDecoder(FrameLayout(), AssemblerConfig(unmatched))
}

// Handshake writes the protocol header.
func Handshake(w io.Writer) error {
	if _, err := w.Write(ProtocolHeader); err != nil {
		return fmt.Errorf("write protocol header: %w", err)
	}
	return nil
}
