package frame

import (
	"errors"
	"fmt"
	"slices"

	"github.com/justapithecus/packetstream/layout"
)

// UnmatchedPolicy decides what happens to payload chunks of frames whose
// discriminator does not trigger nested decoding.
type UnmatchedPolicy int

const (
	// ForwardUnmatched passes the raw payload chunks through.
	ForwardUnmatched UnmatchedPolicy = iota
	// DropUnmatched discards them.
	DropUnmatched
)

func (p UnmatchedPolicy) String() string {
	switch p {
	case ForwardUnmatched:
		return "forward"
	case DropUnmatched:
		return "drop"
	default:
		return fmt.Sprintf("unmatched(%d)", int(p))
	}
}

// ParseUnmatchedPolicy parses "forward" or "drop". Empty means forward.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch s {
	case "", "forward":
		return ForwardUnmatched, nil
	case "drop":
		return DropUnmatched, nil
	default:
		return ForwardUnmatched, fmt.Errorf("invalid unmatched policy %q (want forward or drop)", s)
	}
}

// Config describes how to find and decode the nested payload of a frame.
type Config struct {
	// Discriminator is the outer field whose value selects nested decoding.
	Discriminator string
	// Match lists the discriminator values, in their string form, that
	// trigger nested decoding. Enum fields match by symbolic name, plain
	// integers by decimal value.
	Match []string
	// Payload is the outer field carrying the nested bytes.
	Payload string
	// Trailer is the outer field that closes a frame.
	Trailer string
	// Prefix is the fixed-size head of the nested layout.
	Prefix *layout.Layout
	// Remainder names the opaque field that takes the rest of the payload.
	Remainder string
	// Unmatched handles payload chunks of non-matching frames.
	Unmatched UnmatchedPolicy
}

// Validate checks the configuration on its own.
func (c Config) Validate() error {
	var errs []error
	if c.Discriminator == "" {
		errs = append(errs, errors.New("discriminator field is required"))
	}
	if len(c.Match) == 0 {
		errs = append(errs, errors.New("at least one matching discriminator value is required"))
	}
	if c.Payload == "" {
		errs = append(errs, errors.New("payload field is required"))
	}
	if c.Trailer == "" {
		errs = append(errs, errors.New("trailer field is required"))
	}
	if c.Remainder == "" {
		errs = append(errs, errors.New("remainder field is required"))
	}
	if c.Prefix == nil {
		errs = append(errs, errors.New("prefix layout is required"))
	} else {
		if _, ok := c.Prefix.FixedSize(); !ok {
			errs = append(errs, errors.New("prefix layout must have only fixed-size fields"))
		}
		if _, dup := c.Prefix.Index(c.Remainder); dup && c.Remainder != "" {
			errs = append(errs, fmt.Errorf("remainder field %q collides with a prefix field", c.Remainder))
		}
	}
	switch c.Unmatched {
	case ForwardUnmatched, DropUnmatched:
	default:
		errs = append(errs, fmt.Errorf("invalid %s", c.Unmatched))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("frame config: %w", err)
	}
	return nil
}

// ValidateAgainst checks that the configured fields exist in the outer
// layout in discriminator, payload, trailer order.
func (c Config) ValidateAgainst(outer *layout.Layout) error {
	if err := c.Validate(); err != nil {
		return err
	}
	var idx []int
	for _, name := range []string{c.Discriminator, c.Payload, c.Trailer} {
		i, ok := outer.Index(name)
		if !ok {
			return fmt.Errorf("frame config: outer layout has no field %q", name)
		}
		idx = append(idx, i)
	}
	if !slices.IsSorted(idx) || idx[0] == idx[1] || idx[1] == idx[2] {
		return fmt.Errorf("frame config: fields must appear as %s < %s < %s in the outer layout",
			c.Discriminator, c.Payload, c.Trailer)
	}
	if outer.Field(idx[0]).Streaming {
		return fmt.Errorf("frame config: discriminator %q cannot be a streaming field", c.Discriminator)
	}
	if outer.Field(idx[2]).Streaming {
		return fmt.Errorf("frame config: trailer %q cannot be a streaming field", c.Trailer)
	}
	return nil
}

func (c Config) matches(value string) bool {
	return slices.Contains(c.Match, value)
}
