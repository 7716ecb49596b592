// Package frame decodes the nested payload of framed packets.
//
// An Assembler watches the events of an outer packet engine. When the
// discriminator of a frame matches, it opens an inner engine sized from the
// payload's declared length and splices the inner events into the output
// right after the payload chunk that produced them. The inner engine lives
// for exactly one payload and is discarded when the trailer arrives.
package frame

import (
	"fmt"

	"github.com/justapithecus/packetstream/layout"
	"github.com/justapithecus/packetstream/packet"
)

type state int

const (
	awaitingDiscriminator state = iota
	awaitingPayload
)

// Assembler is not safe for concurrent use.
type Assembler struct {
	cfg        Config
	prefixSize int

	state         state
	discriminator string
	matched       bool
	// inner is set only while a matching payload is being decoded.
	inner *packet.Engine

	opened uint64
	err    error
}

// NewAssembler validates cfg and returns an Assembler awaiting a
// discriminator.
func NewAssembler(cfg Config) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	size, _ := cfg.Prefix.FixedSize()
	return &Assembler{cfg: cfg, prefixSize: size}, nil
}

// Feed consumes one outer event and returns the events to emit in its place.
func (a *Assembler) Feed(ev packet.Event) ([]packet.Event, error) {
	if a.err != nil {
		return nil, a.err
	}

	switch {
	case ev.Field == a.cfg.Discriminator && !ev.Streaming:
		a.discriminator = ev.Value.String()
		a.matched = a.cfg.matches(a.discriminator)
		a.inner = nil
		a.state = awaitingPayload
		return []packet.Event{ev}, nil

	case ev.Field == a.cfg.Payload && a.state == awaitingPayload:
		return a.feedPayload(ev)

	case ev.Field == a.cfg.Trailer && !ev.Streaming:
		err := a.closePayload(ev.Packet)
		a.state = awaitingDiscriminator
		a.matched = false
		if err != nil {
			a.err = err
			return nil, err
		}
		return []packet.Event{ev}, nil
	}
	return []packet.Event{ev}, nil
}

func (a *Assembler) feedPayload(ev packet.Event) ([]packet.Event, error) {
	if !a.matched {
		if a.cfg.Unmatched == DropUnmatched {
			return nil, nil
		}
		return []packet.Event{ev}, nil
	}

	declared, chunk := ev.Size, ev.Chunk
	if !ev.Streaming {
		declared, chunk = len(ev.Value.Bytes), ev.Value.Bytes
	}

	if a.inner == nil {
		if err := a.open(declared, ev.Packet); err != nil {
			a.err = err
			return nil, err
		}
	}

	out := []packet.Event{ev}
	events, err := a.inner.Feed(chunk)
	for _, inner := range events {
		inner.Depth = ev.Depth + 1
		inner.Parent = ev.Packet
		out = append(out, inner)
	}
	if err != nil {
		a.err = err
		return out, err
	}
	return out, nil
}

func (a *Assembler) open(declared int, outerPacket uint64) error {
	if declared < a.prefixSize {
		return &packet.DecodeError{
			Kind:   packet.ErrNestedSize,
			Field:  a.cfg.Payload,
			Packet: outerPacket,
			Msg:    fmt.Sprintf("declared size %d is smaller than the %d-byte prefix", declared, a.prefixSize),
		}
	}
	l, err := a.cfg.Prefix.Append(layout.Field{
		Name: a.cfg.Remainder,
		Size: layout.Fixed(declared - a.prefixSize),
	})
	if err != nil {
		return fmt.Errorf("build nested layout: %w", err)
	}
	a.inner = packet.NewEngine(l)
	a.opened++
	return nil
}

// closePayload ends the inner engine's life. A matching frame whose payload
// produced no chunk had a declared size of zero.
func (a *Assembler) closePayload(outerPacket uint64) error {
	if a.state != awaitingPayload || !a.matched {
		return nil
	}
	if a.inner == nil {
		if err := a.open(0, outerPacket); err != nil {
			return err
		}
	}
	err := a.inner.Finish()
	a.inner = nil
	return err
}

// Finish reports the end of the outer stream. It fails if a nested payload
// was left incomplete.
func (a *Assembler) Finish() error {
	if a.err != nil {
		return a.err
	}
	if a.inner != nil {
		if err := a.inner.Finish(); err != nil {
			a.err = err
			return err
		}
	}
	return nil
}

// Opened returns the number of nested engines constructed so far.
func (a *Assembler) Opened() uint64 {
	return a.opened
}

// Active reports whether a nested engine is currently open.
func (a *Assembler) Active() bool {
	return a.inner != nil
}
