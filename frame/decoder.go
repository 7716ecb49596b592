package frame

import (
	"github.com/justapithecus/packetstream/layout"
	"github.com/justapithecus/packetstream/packet"
)

// Decoder runs an outer packet engine through an Assembler.
type Decoder struct {
	engine    *packet.Engine
	assembler *Assembler
}

// NewDecoder validates cfg against outer and returns a Decoder at the start
// of the stream.
func NewDecoder(outer *layout.Layout, cfg Config) (*Decoder, error) {
	if err := cfg.ValidateAgainst(outer); err != nil {
		return nil, err
	}
	a, err := NewAssembler(cfg)
	if err != nil {
		return nil, err
	}
	return &Decoder{engine: packet.NewEngine(outer), assembler: a}, nil
}

// Feed decodes chunk and returns outer and nested events in order.
func (d *Decoder) Feed(chunk []byte) ([]packet.Event, error) {
	events, err := d.engine.Feed(chunk)

	var out []packet.Event
	for _, ev := range events {
		more, aerr := d.assembler.Feed(ev)
		out = append(out, more...)
		if aerr != nil {
			return out, aerr
		}
	}
	return out, err
}

// Finish reports the end of input.
func (d *Decoder) Finish() error {
	if err := d.engine.Finish(); err != nil {
		return err
	}
	return d.assembler.Finish()
}

// Packets returns the number of outer packets completed.
func (d *Decoder) Packets() uint64 {
	return d.engine.Packets()
}

// Nested returns the number of nested payloads opened.
func (d *Decoder) Nested() uint64 {
	return d.assembler.Opened()
}
