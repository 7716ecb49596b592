package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/packetstream/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views. Layout fields are
// shown in a scrollable table.
type InspectModel struct {
	viewType string
	data     any
	fields   table.Model
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{
		viewType: viewType,
		data:     data,
	}
	if l, ok := data.(*reader.LayoutResponse); ok {
		m.fields = fieldTable(l.Fields)
	}
	return m
}

func fieldTable(fields []reader.LayoutField) table.Model {
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		stream := ""
		if f.Stream {
			stream = "yes"
		}
		rows = append(rows, table.Row{f.Name, f.Size, f.Type, stream, strings.Join(f.Enum, " ")})
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Field", Width: 14},
			{Title: "Size", Width: 12},
			{Title: "Type", Width: 6},
			{Title: "Stream", Width: 6},
			{Title: "Enum", Width: 40},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 12)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(primaryColor)
	s.Selected = s.Selected.Foreground(highlightColor).Bold(false)
	t.SetStyles(s)
	return t
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.fields, cmd = m.fields.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectLayout:
		content = m.renderInspectLayout()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ to scroll, q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectLayout() string {
	data, ok := m.data.(*reader.LayoutResponse)
	if !ok {
		return "Invalid data type for " + ViewInspectLayout
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Layout " + data.Name))
	b.WriteString("\n")

	size := "variable"
	if data.FixedSize != nil {
		size = fmt.Sprintf("%d bytes", *data.FixedSize)
	}
	writeRow(&b, "Packet Size", size)
	writeRow(&b, "Fields", fmt.Sprintf("%d", len(data.Fields)))
	b.WriteString("\n")
	b.WriteString(m.fields.View())
	b.WriteString("\n")

	if n := data.Nested; n != nil {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Nested Payload"))
		b.WriteString("\n")
		writeRow(&b, "Discriminator", n.Discriminator)
		writeRow(&b, "Match", strings.Join(n.Match, ", "))
		writeRow(&b, "Payload", n.Payload)
		writeRow(&b, "Trailer", n.Trailer)
		prefix := make([]string, 0, len(n.Prefix))
		for _, f := range n.Prefix {
			prefix = append(prefix, fmt.Sprintf("%s(%s)", f.Name, f.Size))
		}
		writeRow(&b, "Prefix", fmt.Sprintf("%s = %d bytes", strings.Join(prefix, " "), n.PrefixSize))
		writeRow(&b, "Remainder", n.Remainder)
		writeRow(&b, "Unmatched", n.Unmatched)
	}

	return BoxStyle.Render(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", LabelStyle.Render(label+":"), ValueStyle.Render(value))
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	p := tea.NewProgram(NewInspectModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
