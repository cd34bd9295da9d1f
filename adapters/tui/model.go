// Package tui is the interactive terminal front end. The bubbletea Update loop is the
// interface goroutine: it owns the coordinator and applies task outcomes one at a time.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/usecase"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const (
	creativityStep = 0.1
	chromeHeight   = 7
	defaultWidth   = 80
)

type Options struct {
	Theme string
	// Store receives the transcript on quit. Optional.
	Store domain.TranscriptStore
}

// outcomeMsg carries a finished task back into Update.
type outcomeMsg domain.Outcome

type Model struct {
	ctx         context.Context
	coordinator *usecase.Coordinator
	store       domain.TranscriptStore

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	keys     keyMap

	theme  string
	styles styles
	status string
	width  int
	ready  bool
	saved  bool
}

func New(ctx context.Context, coordinator *usecase.Coordinator, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message, or press ctrl+r to speak..."
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := opts.Theme
	if _, ok := palettes[theme]; !ok {
		theme = ThemeDark
	}

	m := &Model{
		ctx:         ctx,
		coordinator: coordinator,
		store:       opts.Store,
		input:       input,
		viewport:    viewport.New(defaultWidth, 20),
		spinner:     sp,
		keys:        defaultKeyMap(),
		theme:       theme,
		styles:      newStyles(theme),
		width:       defaultWidth,
	}
	m.renderer = newRenderer(theme, defaultWidth)
	m.refresh()
	return m
}

func newRenderer(theme string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		log.With(zap.Error(err)).Warn("Markdown renderer unavailable")
		return nil
	}
	return r
}

// waitForOutcome blocks on the coordinator's outcome channel. Exactly one is pending at a time.
func waitForOutcome(ch <-chan domain.Outcome) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(<-ch)
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForOutcome(m.coordinator.Outcomes()))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.renderer = newRenderer(m.theme, msg.Width)
		m.ready = true
		m.refresh()

	case outcomeMsg:
		m.coordinator.HandleOutcome(m.ctx, domain.Outcome(msg))
		m.status = ""
		m.refresh()
		cmds = append(cmds, waitForOutcome(m.coordinator.Outcomes()))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.persist()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Send):
			m.send()
			return m, nil

		case key.Matches(msg, m.keys.Voice):
			m.startVoice()
			return m, nil

		case key.Matches(msg, m.keys.Speak):
			m.speak()
			return m, nil

		case key.Matches(msg, m.keys.Theme):
			m.theme = nextTheme(m.theme)
			m.styles = newStyles(m.theme)
			m.renderer = newRenderer(m.theme, m.width)
			m.refresh()
			return m, nil

		case key.Matches(msg, m.keys.Warmer):
			m.coordinator.SetCreativity(m.coordinator.Settings().Creativity + creativityStep)
			return m, nil

		case key.Matches(msg, m.keys.Cooler):
			m.coordinator.SetCreativity(m.coordinator.Settings().Creativity - creativityStep)
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDn):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) send() {
	err := m.coordinator.Submit(m.ctx, m.input.Value())
	switch {
	case err == nil:
		m.input.Reset()
		m.status = ""
	case errors.Is(err, domain.ErrEmptyInput):
		m.input.Reset()
	case errors.Is(err, domain.ErrBusy):
		m.status = "Still waiting for the previous response"
	default:
		m.status = fmt.Sprintf("Send failed: %v", err)
	}
	m.refresh()
}

func (m *Model) startVoice() {
	err := m.coordinator.StartVoiceCapture(m.ctx)
	switch {
	case err == nil:
		m.status = "🎤 Listening..."
	case errors.Is(err, domain.ErrBusy):
		m.status = "Already listening"
	default:
		m.status = err.Error()
	}
}

// speak blocks the interface until playback ends.
func (m *Model) speak() {
	if !m.coordinator.CanSpeak() {
		return
	}
	if err := m.coordinator.SpeakLatest(m.ctx); err != nil {
		log.WithCtx(m.ctx).Error("Speaking failed", zap.Error(err))
		m.status = fmt.Sprintf("Speaking failed: %v", err)
		return
	}
	m.status = ""
}

func (m *Model) persist() {
	if m.saved || m.store == nil {
		return
	}
	m.saved = true
	if err := m.coordinator.Persist(context.WithoutCancel(m.ctx), m.store); err != nil {
		log.WithCtx(m.ctx).Error("Error storing history", zap.Error(err))
		return
	}
	log.WithCtx(m.ctx).Info("History stored", zap.String("session_id", m.coordinator.SessionID()))
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
