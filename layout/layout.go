// Package layout describes the shape of a packet: an ordered, immutable list
// of field descriptors consumed by the packet engine.
//
// A Layout is pure data. Construction validates the descriptors so that an
// engine bound to a Layout only ever fails on the bytes it is given, never on
// the Layout itself.
package layout

import (
	"fmt"
	"strings"
)

// MaxUintBytes is the widest big-endian integer a field may decode.
// Wider buffers fail at decode time with a precision error.
const MaxUintBytes = 6

// Representation selects how a buffered field is decoded.
type Representation int

const (
	// Opaque keeps the raw bytes.
	Opaque Representation = iota
	// UintBE decodes the bytes as a big-endian unsigned integer.
	UintBE
)

func (r Representation) String() string {
	switch r {
	case Opaque:
		return "bytes"
	case UintBE:
		return "uint"
	default:
		return fmt.Sprintf("representation(%d)", int(r))
	}
}

// SizeSource says where a field's byte count comes from: a literal fixed at
// layout definition time, or the decoded integer value of an earlier field.
type SizeSource struct {
	fixed int
	ref   string
}

// Fixed returns a literal size source.
func Fixed(n int) SizeSource {
	return SizeSource{fixed: n}
}

// FromField returns a size source resolved at decode time from the named
// earlier field.
func FromField(name string) SizeSource {
	return SizeSource{ref: name}
}

// Literal returns the fixed size, if this is a literal source.
func (s SizeSource) Literal() (int, bool) {
	if s.ref != "" {
		return 0, false
	}
	return s.fixed, true
}

// Ref returns the referenced field name, if this is a field reference.
func (s SizeSource) Ref() (string, bool) {
	return s.ref, s.ref != ""
}

func (s SizeSource) String() string {
	if s.ref != "" {
		return "from:" + s.ref
	}
	return fmt.Sprintf("%d", s.fixed)
}

// Field describes one field of a packet.
type Field struct {
	Name           string
	Size           SizeSource
	Representation Representation
	// Enum maps decoded integers to symbolic names. Unmapped values fail.
	Enum map[uint64]string
	// Streaming fields emit each sub-chunk as it arrives and are never
	// buffered whole.
	Streaming bool
}

// Layout is an ordered, validated sequence of fields.
// The zero value is not usable; build one with New.
type Layout struct {
	fields []Field
	index  map[string]int
}

// Error reports an invalid layout definition.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "layout: " + e.Reason
	}
	return fmt.Sprintf("layout: field %q: %s", e.Field, e.Reason)
}

// New validates fields and returns an immutable Layout.
func New(fields ...Field) (*Layout, error) {
	if len(fields) == 0 {
		return nil, &Error{Reason: "no fields"}
	}

	l := &Layout{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	progresses := false
	for i, f := range fields {
		if err := validateField(f, l.index); err != nil {
			return nil, err
		}
		if n, ok := f.Size.Literal(); ok && n > 0 {
			progresses = true
		}
		f.Enum = cloneEnum(f.Enum)
		l.fields[i] = f
		l.index[f.Name] = i
	}

	// A layout made only of zero-size fields would complete packets
	// forever without consuming input.
	if !progresses {
		return nil, &Error{Reason: "no field has a fixed size greater than zero"}
	}
	return l, nil
}

// MustNew is like New but panics on an invalid definition.
// Intended for package-level protocol layouts.
func MustNew(fields ...Field) *Layout {
	l, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return l
}

func validateField(f Field, seen map[string]int) error {
	if strings.TrimSpace(f.Name) == "" {
		return &Error{Reason: "field name is required"}
	}
	if _, dup := seen[f.Name]; dup {
		return &Error{Field: f.Name, Reason: "duplicate field name"}
	}

	if ref, ok := f.Size.Ref(); ok {
		if _, earlier := seen[ref]; !earlier {
			return &Error{Field: f.Name, Reason: fmt.Sprintf("size references %q, which is not an earlier field", ref)}
		}
	} else if n, _ := f.Size.Literal(); n < 0 {
		return &Error{Field: f.Name, Reason: fmt.Sprintf("negative size %d", n)}
	}

	switch f.Representation {
	case Opaque, UintBE:
	default:
		return &Error{Field: f.Name, Reason: fmt.Sprintf("unknown %s", f.Representation)}
	}

	if f.Streaming && (f.Representation != Opaque || f.Enum != nil) {
		return &Error{Field: f.Name, Reason: "streaming field cannot carry a representation or enum"}
	}
	if f.Enum != nil && f.Representation != UintBE {
		return &Error{Field: f.Name, Reason: "enum requires uint representation"}
	}
	return nil
}

func cloneEnum(m map[uint64]string) map[uint64]string {
	if m == nil {
		return nil
	}
	out := make(map[uint64]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Len returns the number of fields.
func (l *Layout) Len() int {
	return len(l.fields)
}

// Field returns the i-th field.
func (l *Layout) Field(i int) Field {
	return l.fields[i]
}

// Fields returns a copy of the field list.
func (l *Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Index returns the position of the named field.
func (l *Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// FixedSize returns the total size of the layout when every field has a
// literal size. ok is false when any field size is resolved at decode time.
func (l *Layout) FixedSize() (size int, ok bool) {
	for _, f := range l.fields {
		n, lit := f.Size.Literal()
		if !lit {
			return 0, false
		}
		size += n
	}
	return size, true
}

// Append returns a new Layout with extra fields after the existing ones.
func (l *Layout) Append(fields ...Field) (*Layout, error) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	return New(all...)
}
