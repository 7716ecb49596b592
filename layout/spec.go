package layout

import (
	"fmt"
	"sort"
)

// FieldSpec is the serializable description of a Field, as it appears in
// YAML configuration files.
type FieldSpec struct {
	Name     string            `yaml:"name" json:"name"`
	Size     *int              `yaml:"size,omitempty" json:"size,omitempty"`
	SizeFrom string            `yaml:"size_from,omitempty" json:"size_from,omitempty"`
	Type     string            `yaml:"type,omitempty" json:"type,omitempty"`
	Enum     map[uint64]string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Stream   bool              `yaml:"stream,omitempty" json:"stream,omitempty"`
}

// Spec is the serializable description of a Layout.
type Spec []FieldSpec

// Build converts the description into a validated Layout.
func (s Spec) Build() (*Layout, error) {
	fields := make([]Field, 0, len(s))
	for _, fs := range s {
		f, err := fs.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return New(fields...)
}

func (fs FieldSpec) field() (Field, error) {
	f := Field{
		Name:      fs.Name,
		Enum:      fs.Enum,
		Streaming: fs.Stream,
	}

	switch {
	case fs.Size != nil && fs.SizeFrom != "":
		return Field{}, &Error{Field: fs.Name, Reason: "size and size_from are mutually exclusive"}
	case fs.Size != nil:
		f.Size = Fixed(*fs.Size)
	case fs.SizeFrom != "":
		f.Size = FromField(fs.SizeFrom)
	default:
		return Field{}, &Error{Field: fs.Name, Reason: "one of size or size_from is required"}
	}

	rep, err := ParseRepresentation(fs.Type)
	if err != nil {
		return Field{}, &Error{Field: fs.Name, Reason: err.Error()}
	}
	f.Representation = rep
	return f, nil
}

// ParseRepresentation parses a representation name. Empty means Opaque.
func ParseRepresentation(s string) (Representation, error) {
	switch s {
	case "", "bytes", "opaque":
		return Opaque, nil
	case "uint", "uint_be", "UIntBE":
		return UintBE, nil
	default:
		return Opaque, fmt.Errorf("unknown type %q (want bytes or uint)", s)
	}
}

// Describe returns the serializable description of l.
func Describe(l *Layout) Spec {
	out := make(Spec, 0, l.Len())
	for _, f := range l.fields {
		fs := FieldSpec{
			Name:   f.Name,
			Type:   f.Representation.String(),
			Enum:   cloneEnum(f.Enum),
			Stream: f.Streaming,
		}
		if ref, ok := f.Size.Ref(); ok {
			fs.SizeFrom = ref
		} else {
			n, _ := f.Size.Literal()
			fs.Size = &n
		}
		out = append(out, fs)
	}
	return out
}

// EnumEntries returns the enum mapping of f sorted by value, formatted as
// "value=name".
func EnumEntries(f Field) []string {
	keys := make([]uint64, 0, len(f.Enum))
	for k := range f.Enum {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%d=%s", k, f.Enum[k]))
	}
	return out
}
