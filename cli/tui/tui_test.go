package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/packetstream/cli/reader"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{ViewInspectLayout, true},
		{ViewStatsSession, true},
		{ViewStatsCapture, true},

		{"inspect_run", false},
		{"decode", false},
		{"replay", false},
		{"version", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	views := SupportedTUIViews()
	if len(views) != 3 {
		t.Errorf("SupportedTUIViews() returned %d views, want 3", len(views))
	}
	for _, v := range views {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews() returned %q but IsTUISupported returns false", v)
		}
	}
}

func TestRun_UnsupportedViewType(t *testing.T) {
	if err := Run("list_sessions", nil); err == nil {
		t.Error("expected error for unsupported view type")
	}
}

func testLayout() *reader.LayoutResponse {
	return &reader.LayoutResponse{
		Name: "amqp",
		Fields: []reader.LayoutField{
			{Name: "type", Size: "1", Type: "uint", Enum: []string{"1=METHOD", "8=HEARTBEAT"}},
			{Name: "size", Size: "4", Type: "uint"},
			{Name: "payload", Size: "from size", Type: "bytes", Stream: true},
		},
		Nested: &reader.NestedLayout{
			Discriminator: "type",
			Match:         []string{"METHOD"},
			Payload:       "payload",
			Trailer:       "frame-end",
			Prefix:        []reader.LayoutField{{Name: "class-id", Size: "2"}, {Name: "method-id", Size: "2"}},
			PrefixSize:    4,
			Remainder:     "arguments",
			Unmatched:     "forward",
		},
	}
}

func TestRenderInspectStatic_Layout(t *testing.T) {
	out := RenderInspectStatic(ViewInspectLayout, testLayout())

	for _, want := range []string{"Layout amqp", "variable", "payload", "from size", "1=METHOD", "Nested Payload", "arguments", "class-id(2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderInspectStatic_WrongData(t *testing.T) {
	out := RenderInspectStatic(ViewInspectLayout, "not a layout")
	if !strings.Contains(out, "Invalid data type") {
		t.Errorf("output = %q, want invalid data message", out)
	}
}

func TestRenderStatsStatic_Session(t *testing.T) {
	data := &reader.SessionResponse{
		SessionID:    "sess-1",
		Outcome:      "decode_error",
		Message:      "frame-end: value not in enumeration",
		Bytes:        1024,
		Packets:      7,
		Events:       42,
		DecodeErrors: 1,
		ErrorsByKind: map[string]int64{"enumeration": 1},
	}
	out := RenderStatsStatic(ViewStatsSession, data)

	for _, want := range []string{"Session sess-1", "decode_error", "1024", "42", "Decode Errors", "enumeration:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatsStatic_Capture(t *testing.T) {
	data := &reader.CaptureSessionResponse{
		SessionID:      "sess-2",
		Source:         "dump.bin",
		Day:            "2026-10-19",
		Status:         "completed",
		EventsCaptured: 12,
	}
	out := RenderStatsStatic(ViewStatsCapture, data)

	for _, want := range []string{"Captured Session sess-2", "completed", "dump.bin/2026-10-19", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsModel_Quit(t *testing.T) {
	m := NewStatsModel(ViewStatsSession, &reader.SessionResponse{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if view := next.(StatsModel).View(); view != "" {
		t.Errorf("View() after quit = %q, want empty", view)
	}
}

func TestInspectModel_WindowSize(t *testing.T) {
	m := NewInspectModel(ViewInspectLayout, testLayout())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	im := next.(InspectModel)
	if im.width != 120 || im.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", im.width, im.height)
	}
}
