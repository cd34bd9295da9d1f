package tui

import "github.com/charmbracelet/lipgloss"

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

type palette struct {
	accent  lipgloss.Color
	user    lipgloss.Color
	system  lipgloss.Color
	failure lipgloss.Color
	muted   lipgloss.Color
	border  lipgloss.Color
}

var palettes = map[string]palette{
	ThemeDark: {
		accent:  lipgloss.Color("#A78BFA"),
		user:    lipgloss.Color("#22D3EE"),
		system:  lipgloss.Color("#FBBF24"),
		failure: lipgloss.Color("#F87171"),
		muted:   lipgloss.Color("#9CA3AF"),
		border:  lipgloss.Color("#4B5563"),
	},
	ThemeLight: {
		accent:  lipgloss.Color("#7C3AED"),
		user:    lipgloss.Color("#0891B2"),
		system:  lipgloss.Color("#B45309"),
		failure: lipgloss.Color("#DC2626"),
		muted:   lipgloss.Color("#6B7280"),
		border:  lipgloss.Color("#D1D5DB"),
	},
}

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	failure   lipgloss.Style
	status    lipgloss.Style
	help      lipgloss.Style
	input     lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[ThemeDark]
	}
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		user:      lipgloss.NewStyle().Bold(true).Foreground(p.user),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		system:    lipgloss.NewStyle().Italic(true).Foreground(p.system),
		failure:   lipgloss.NewStyle().Foreground(p.failure),
		status:    lipgloss.NewStyle().Foreground(p.muted),
		help:      lipgloss.NewStyle().Foreground(p.muted).Faint(true),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
	}
}

func nextTheme(theme string) string {
	if theme == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
