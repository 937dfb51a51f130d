package ui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/wschat/pkg/chatview"
	"github.com/go-go-golems/wschat/pkg/transport"
)

type focus int

const (
	focusInput focus = iota
	focusSend
)

// Options configures the TUI host.
type Options struct {
	// Title is shown in the header, usually the connection URI.
	Title string
	// Markdown renders assistant entries through glamour.
	Markdown bool
	// Clipboard overrides the clipboard writer used by ctrl+y.
	Clipboard func(string) error
}

type eventMsg transport.Event

// Model is the terminal chat host: a scrollable log, a single-line input and
// a send button, all driven through one chatview.Controller.
type Model struct {
	ctrl   *chatview.Controller
	log    *chatview.Log
	events *transport.EventChannel

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	focus  focus
	state  transport.State
	status string
	title  string

	markdown  bool
	clipboard func(string) error

	width  int
	height int
}

var _ tea.Model = (*Model)(nil)

type inputField struct{ m *Model }

func (f inputField) Value() string { return f.m.input.Value() }
func (f inputField) Reset()        { f.m.input.Reset() }

func NewModel(l *chatview.Log, sender chatview.Sender, events *transport.EventChannel, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message"
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := &Model{
		log:       l,
		events:    events,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		state:     transport.StateConnecting,
		title:     opts.Title,
		markdown:  opts.Markdown,
		clipboard: opts.Clipboard,
		width:     80,
		height:    24,
	}
	if m.clipboard == nil {
		m.clipboard = clipboard.WriteAll
	}
	m.ctrl = chatview.NewController(l, inputField{m}, sender, chatview.ScrollerFunc(m.scrollToNewest))
	m.resize(m.width, m.height)
	return m
}

func (m *Model) Controller() *chatview.Controller { return m.ctrl }

func waitForEvent(ch *transport.EventChannel) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch.Events()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case eventMsg:
		m.apply(transport.Event(msg))
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		if m.state != transport.StateConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			return m, m.toggleFocus()
		case "ctrl+y":
			m.copyLastReply()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			// consumed here so the input widget never sees it
			m.submit()
			return m, nil
		case " ":
			if m.focus == focusSend {
				m.submit()
				return m, nil
			}
		}
	}

	if m.focus != focusInput {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit is the single path behind both the enter key on the input and the
// send button.
func (m *Model) submit() {
	if _, err := m.ctrl.Submit(); err != nil {
		m.status = "not sent: " + errors.Cause(err).Error()
		return
	}
	m.status = ""
}

func (m *Model) apply(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpen:
		m.state = transport.StateOpen
	case transport.EventError:
		m.state = transport.StateErrored
	case transport.EventClose:
		m.state = transport.StateClosed
	}
	ev.Deliver(m.ctrl)
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusInput {
		m.focus = focusSend
		m.input.Blur()
		return nil
	}
	m.focus = focusInput
	return m.input.Focus()
}

func (m *Model) copyLastReply() {
	e, ok := m.log.LastOf(chatview.RoleAssistant)
	if !ok {
		m.status = "nothing to copy"
		return
	}
	if err := m.clipboard(chatview.PlainText(e.Text)); err != nil {
		log.Warn().Err(err).Str("component", "ui").Msg("clipboard write failed")
		m.status = "copy failed"
		return
	}
	m.status = "copied reply to clipboard"
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	// header, input row, status row
	vpHeight := height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = max(10, width-lipgloss.Width(m.sendButton())-lipgloss.Width(m.input.Prompt)-2)

	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(20, width-2)),
		)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("markdown renderer unavailable")
			m.renderer = nil
		} else {
			m.renderer = r
		}
	}
	m.scrollToNewest()
}

func (m *Model) scrollToNewest() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m *Model) renderEntries() string {
	entries := m.log.Entries()
	body := lipgloss.NewStyle().Width(max(10, m.width-2))

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		text := chatview.PlainText(e.Text)
		b.WriteString(roleLabel(e.Role))
		b.WriteString("\n")
		if e.Role == chatview.RoleAssistant && m.renderer != nil {
			if out, err := m.renderer.Render(text); err == nil {
				b.WriteString(strings.TrimRight(out, "\n"))
				b.WriteString("\n")
				continue
			}
		}
		b.WriteString(body.Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) sendButton() string {
	if m.focus == focusSend {
		return buttonFocusedStyle.Render("[ Send ]")
	}
	return buttonStyle.Render("[ Send ]")
}

func (m *Model) View() string {
	state := stateStyle(m.state).Render(m.state.String())
	if m.state == transport.StateConnecting {
		state = m.spinner.View() + " " + state
	}
	header := headerStyle.Render("wschat") + " " + statusStyle.Render(m.title) + "  " + state

	status := statusStyle.Render("enter: send · tab: focus button · pgup/pgdown: scroll · ctrl+y: copy reply · esc: quit")
	if m.status != "" {
		status = errorStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.input.View(), " ", m.sendButton()),
		status,
	)
}

// Run drives the model until the user quits or ctx is cancelled.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run tui")
	}
	return nil
}
