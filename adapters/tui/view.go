package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

const errorPrefix = "Error: "

func (m *Model) renderTranscript() string {
	var b strings.Builder
	for i, turn := range m.coordinator.Transcript() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(turn))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTurn(turn domain.ChatTurn) string {
	switch turn.Role {
	case domain.UserRole:
		return m.styles.user.Render("You") + "\n" + turn.Content
	case domain.SystemRole:
		return m.styles.system.Render("System: " + turn.Content)
	}

	label := m.styles.assistant.Render("Assistant")
	if strings.HasPrefix(turn.Content, errorPrefix) {
		return label + "\n" + m.styles.failure.Render(turn.Content)
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(turn.Content); err == nil {
			return label + "\n" + strings.Trim(out, "\n")
		}
	}
	return label + "\n" + turn.Content
}

func (m *Model) statusLine() string {
	parts := []string{fmt.Sprintf("creativity %.1f", m.coordinator.Settings().Creativity), m.theme}
	if m.coordinator.InFlight(domain.SpeechTask) {
		parts = append(parts, m.spinner.View()+" listening")
	}
	if m.coordinator.InFlight(domain.PredictionTask) {
		parts = append(parts, m.spinner.View()+" thinking")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return m.styles.status.Render(strings.Join(parts, " · "))
}

func (m *Model) helpLine() string {
	var items []string
	for _, b := range m.keys.help(m.coordinator.CanSpeak()) {
		h := b.Help()
		items = append(items, h.Key+" "+h.Desc)
	}
	return m.styles.help.Render(strings.Join(items, "  "))
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render("Vertex Chat"),
		m.viewport.View(),
		m.styles.input.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.statusLine(),
		m.helpLine(),
	)
}
