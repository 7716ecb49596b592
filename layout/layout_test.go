package layout

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNew_Valid(t *testing.T) {
	l, err := New(
		Field{Name: "type", Size: Fixed(1), Representation: UintBE, Enum: map[uint64]string{1: "METHOD"}},
		Field{Name: "size", Size: Fixed(4), Representation: UintBE},
		Field{Name: "payload", Size: FromField("size"), Streaming: true},
		Field{Name: "end", Size: Fixed(1)},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
	if i, ok := l.Index("payload"); !ok || i != 2 {
		t.Errorf("Index(payload) = %d, %v, want 2, true", i, ok)
	}
	if _, ok := l.Index("missing"); ok {
		t.Error("Index(missing) reported ok")
	}
	if _, ok := l.FixedSize(); ok {
		t.Error("FixedSize() ok = true for layout with a size reference")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   string
	}{
		{
			name: "empty",
			want: "no fields",
		},
		{
			name:   "missing name",
			fields: []Field{{Size: Fixed(1)}},
			want:   "name is required",
		},
		{
			name:   "duplicate",
			fields: []Field{{Name: "a", Size: Fixed(1)}, {Name: "a", Size: Fixed(1)}},
			want:   "duplicate",
		},
		{
			name:   "negative size",
			fields: []Field{{Name: "a", Size: Fixed(-1)}},
			want:   "negative size",
		},
		{
			name:   "forward reference",
			fields: []Field{{Name: "a", Size: FromField("b")}, {Name: "b", Size: Fixed(1)}},
			want:   "not an earlier field",
		},
		{
			name:   "self reference",
			fields: []Field{{Name: "x", Size: Fixed(1)}, {Name: "a", Size: FromField("a")}},
			want:   "not an earlier field",
		},
		{
			name:   "streaming uint",
			fields: []Field{{Name: "a", Size: Fixed(2), Representation: UintBE, Streaming: true}},
			want:   "streaming field",
		},
		{
			name:   "streaming enum",
			fields: []Field{{Name: "a", Size: Fixed(2), Enum: map[uint64]string{1: "x"}, Streaming: true}},
			want:   "streaming field",
		},
		{
			name:   "enum on bytes",
			fields: []Field{{Name: "a", Size: Fixed(1), Enum: map[uint64]string{1: "x"}}},
			want:   "enum requires uint",
		},
		{
			name:   "no progress",
			fields: []Field{{Name: "a", Size: Fixed(0)}, {Name: "b", Size: FromField("a")}},
			want:   "greater than zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fields...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var layoutErr *Error
			if !errors.As(err, &layoutErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

// A seven-byte uint field is a decode-time failure, not a definition error.
func TestNew_WideUintAllowed(t *testing.T) {
	if _, err := New(Field{Name: "wide", Size: Fixed(7), Representation: UintBE}); err != nil {
		t.Errorf("New failed: %v", err)
	}
}

func TestNew_CopiesEnum(t *testing.T) {
	enum := map[uint64]string{1: "ONE"}
	l := MustNew(Field{Name: "a", Size: Fixed(1), Representation: UintBE, Enum: enum})
	enum[1] = "CHANGED"

	if got := l.Field(0).Enum[1]; got != "ONE" {
		t.Errorf("Enum[1] = %q, want %q", got, "ONE")
	}
}

func TestMustNew_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew did not panic")
		}
	}()
	MustNew()
}

func TestAppend(t *testing.T) {
	prefix := MustNew(
		Field{Name: "class-id", Size: Fixed(2), Representation: UintBE},
		Field{Name: "method-id", Size: Fixed(2), Representation: UintBE},
	)
	size, ok := prefix.FixedSize()
	if !ok || size != 4 {
		t.Fatalf("FixedSize() = %d, %v, want 4, true", size, ok)
	}

	full, err := prefix.Append(Field{Name: "arguments", Size: Fixed(6)})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if full.Len() != 3 {
		t.Errorf("Len() = %d, want 3", full.Len())
	}
	if prefix.Len() != 2 {
		t.Errorf("prefix Len() = %d after Append, want 2", prefix.Len())
	}
	if _, err := prefix.Append(Field{Name: "class-id", Size: Fixed(1)}); err == nil {
		t.Error("Append with duplicate name succeeded")
	}
}

func TestSizeSource(t *testing.T) {
	if n, ok := Fixed(3).Literal(); !ok || n != 3 {
		t.Errorf("Fixed(3).Literal() = %d, %v", n, ok)
	}
	if _, ok := Fixed(3).Ref(); ok {
		t.Error("Fixed(3).Ref() ok = true")
	}
	if ref, ok := FromField("size").Ref(); !ok || ref != "size" {
		t.Errorf("FromField(size).Ref() = %q, %v", ref, ok)
	}
	if got := FromField("size").String(); got != "from:size" {
		t.Errorf("String() = %q, want %q", got, "from:size")
	}
}

func TestSpec_BuildFromYAML(t *testing.T) {
	doc := `
- name: type
  size: 1
  type: uint
  enum:
    1: METHOD
    2: HEADER
- name: size
  size: 4
  type: uint
- name: payload
  size_from: size
  stream: true
- name: frame-end
  size: 1
`
	var spec Spec
	if err := yaml.Unmarshal([]byte(doc), &spec); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	l, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	typ := l.Field(0)
	if typ.Representation != UintBE {
		t.Errorf("type representation = %v, want uint", typ.Representation)
	}
	if typ.Enum[2] != "HEADER" {
		t.Errorf("type enum[2] = %q, want HEADER", typ.Enum[2])
	}
	payload := l.Field(2)
	if ref, _ := payload.Size.Ref(); ref != "size" || !payload.Streaming {
		t.Errorf("payload = %+v, want streaming from size", payload)
	}

	round := Describe(l)
	if len(round) != 4 || round[2].SizeFrom != "size" || *round[3].Size != 1 {
		t.Errorf("Describe() = %+v", round)
	}
	if got := EnumEntries(typ); strings.Join(got, ",") != "1=METHOD,2=HEADER" {
		t.Errorf("EnumEntries() = %v", got)
	}
}

func TestSpec_BuildErrors(t *testing.T) {
	one := 1
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"both sizes", Spec{{Name: "a", Size: &one, SizeFrom: "b"}}, "mutually exclusive"},
		{"no size", Spec{{Name: "a"}}, "is required"},
		{"bad type", Spec{{Name: "a", Size: &one, Type: "float"}}, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build() error = %v, want %q", err, tt.want)
			}
		})
	}
}
