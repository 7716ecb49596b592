package packet

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the shape of a decoded Value.
type Kind uint8

const (
	// KindBytes is a raw opaque value.
	KindBytes Kind = iota + 1
	// KindUint is a decoded big-endian integer.
	KindUint
	// KindEnum is a decoded integer mapped to its symbolic name.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindUint:
		return "uint"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is the decoded content of one non-streaming field.
type Value struct {
	Kind  Kind   `msgpack:"kind" json:"kind"`
	Bytes []byte `msgpack:"bytes,omitempty" json:"bytes,omitempty"`
	// Uint is set for KindUint and KindEnum.
	Uint uint64 `msgpack:"uint,omitempty" json:"uint,omitempty"`
	// Name is the symbolic value for KindEnum.
	Name string `msgpack:"name,omitempty" json:"name,omitempty"`
}

// BytesValue returns an opaque value.
func BytesValue(b []byte) Value {
	return Value{Kind: KindBytes, Bytes: b}
}

// UintValue returns an integer value.
func UintValue(n uint64) Value {
	return Value{Kind: KindUint, Uint: n}
}

// EnumValue returns a symbolic value together with the integer it came from.
func EnumValue(n uint64, name string) Value {
	return Value{Kind: KindEnum, Uint: n, Name: name}
}

// Int returns the value as a size. Only plain integers qualify; symbolic
// values and raw bytes do not.
func (v Value) Int() (int, bool) {
	if v.Kind != KindUint || v.Uint > math.MaxInt {
		return 0, false
	}
	return int(v.Uint), true
}

// Symbol returns the symbolic name of an enum value.
func (v Value) Symbol() (string, bool) {
	return v.Name, v.Kind == KindEnum
}

// Any returns the natural Go representation: []byte, uint64 or string.
func (v Value) Any() any {
	switch v.Kind {
	case KindBytes:
		return v.Bytes
	case KindUint:
		return v.Uint
	case KindEnum:
		return v.Name
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBytes:
		return hex.EncodeToString(v.Bytes)
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindEnum:
		return v.Name
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
