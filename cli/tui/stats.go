package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/packetstream/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsSession:
		content = m.renderStatsSession()
	case ViewStatsCapture:
		content = m.renderStatsCapture()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsSession() string {
	data, ok := m.data.(*reader.SessionResponse)
	if !ok {
		return "Invalid data type for " + ViewStatsSession
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session " + data.SessionID))
	b.WriteString("\n")
	b.WriteString(m.outcomeLine(data.Outcome, data.Message))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Bytes", data.Bytes, highlightColor),
		m.renderStatBox("Packets", int64(data.Packets), successColor),
		m.renderStatBox("Nested", int64(data.Nested), primaryColor),
		m.renderStatBox("Events", data.Events, highlightColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Chunks", data.Chunks, mutedColor),
		m.renderStatBox("Stream Events", data.StreamEvents, mutedColor),
		m.renderStatBox("Capture Writes", data.CaptureWrites, successColor),
		m.renderStatBox("Decode Errors", data.DecodeErrors, errorColor),
	))

	if len(data.ErrorsByKind) > 0 {
		b.WriteString("\n\n")
		kinds := make([]string, 0, len(data.ErrorsByKind))
		for k := range data.ErrorsByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(k+":"), ErrorStyle.Render(fmt.Sprintf("%d", data.ErrorsByKind[k])))
		}
	}
	return b.String()
}

func (m StatsModel) renderStatsCapture() string {
	data, ok := m.data.(*reader.CaptureSessionResponse)
	if !ok {
		return "Invalid data type for " + ViewStatsCapture
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Captured Session " + data.SessionID))
	b.WriteString("\n")
	b.WriteString(m.outcomeLine(data.Status, data.Message))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Partition:"), ValueStyle.Render(data.Source+"/"+data.Day))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Captured", data.EventsCaptured, successColor),
		m.renderStatBox("Bytes", data.BytesFed, highlightColor),
		m.renderStatBox("Packets", data.PacketsCompleted, successColor),
		m.renderStatBox("Decode Errors", data.DecodeErrors, errorColor),
	))
	return b.String()
}

func (m StatsModel) outcomeLine(status, message string) string {
	line := LabelStyle.Render("Outcome:") + " " + StateStyle(status).Render(status)
	if message != "" {
		line += " " + HelpStyle.UnsetMarginTop().Render(message)
	}
	return line
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	p := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
