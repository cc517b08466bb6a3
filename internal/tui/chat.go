// Package tui is the terminal front end for the symptom interview.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
	"github.com/mycare-ai/intake/internal/widget"
)

type focus int

const (
	focusQuery focus = iota
	focusWidget
)

// eventMsg carries a store change into the update loop.
type eventMsg conversation.Event

// emitted is a widget answer waiting to be sent.
type emitted struct {
	questionID string
	answer     question.Answer
}

// Model is the chat screen. It renders the active session and routes
// committed widget answers to the manager.
type Model struct {
	ctx     context.Context
	manager *conversation.Manager

	events      <-chan conversation.Event
	unsubscribe func()

	renderer *widget.Renderer
	outbox   *[]emitted
	view     *WidgetView

	query   textinput.Model
	spinner spinner.Model
	focus   focus

	session *interview.Session
	status  string
	width   int
	height  int
}

func NewModel(ctx context.Context, manager *conversation.Manager) *Model {
	outbox := &[]emitted{}
	emit := func(qid string, a question.Answer) {
		*outbox = append(*outbox, emitted{questionID: qid, answer: a})
	}

	q := textinput.New()
	q.Placeholder = "Describe your symptoms..."
	q.CharLimit = 1000
	q.Width = 60
	q.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = assistantStyle

	events, unsubscribe := manager.Store().Subscribe(64)
	m := &Model{
		ctx:         ctx,
		manager:     manager,
		events:      events,
		unsubscribe: unsubscribe,
		renderer:    widget.NewRenderer(emit),
		outbox:      outbox,
		query:       q,
		spinner:     sp,
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(ch <-chan conversation.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Close stops listening for store changes.
func (m *Model) Close() {
	m.unsubscribe()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if msg.Width > 10 {
			m.query.Width = msg.Width - 6
		}
		return m, nil

	case eventMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+n":
		m.manager.Store().Create()
		m.status = ""
		m.refresh()
		return m, nil
	case "pgup", "ctrl+p":
		m.cycle(-1)
		return m, nil
	case "pgdown", "ctrl+o":
		m.cycle(1)
		return m, nil
	case "tab":
		if m.view != nil && m.view.Answerable() {
			m.setFocus(1 - m.focus)
		}
		return m, nil
	}

	if m.focus == focusWidget && m.view != nil {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		m.flush()
		return m, cmd
	}

	if msg.Type == tea.KeyEnter {
		m.submitQuery()
		return m, nil
	}
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m *Model) submitQuery() {
	text := strings.TrimSpace(m.query.Value())
	if text == "" {
		return
	}
	if _, err := m.manager.Query(m.ctx, text); err != nil {
		m.status = err.Error()
		return
	}
	m.query.SetValue("")
	m.status = ""
	m.refresh()
}

// flush sends answers emitted by the widget during the last key press.
func (m *Model) flush() {
	pending := *m.outbox
	*m.outbox = nil
	if m.session == nil {
		return
	}
	for _, e := range pending {
		err := m.manager.Answer(m.ctx, m.session.ID, e.questionID, e.answer.Value())
		switch {
		case errors.Is(err, question.ErrInvalidAnswer):
			m.status = err.Error()
		case err != nil:
			m.status = fmt.Sprintf("Answer not sent: %v", err)
		default:
			m.status = ""
		}
	}
	if len(pending) > 0 {
		m.refresh()
	}
}

func (m *Model) cycle(dir int) {
	store := m.manager.Store()
	sessions := store.List()
	if len(sessions) == 0 {
		return
	}
	idx := 0
	active := store.ActiveID()
	for i, s := range sessions {
		if s.ID == active {
			idx = i
		}
	}
	idx = (idx + dir + len(sessions)) % len(sessions)
	store.Select(sessions[idx].ID)
	m.status = ""
	m.refresh()
}

// refresh reloads the active session and rebinds the widget for its
// current question.
func (m *Model) refresh() {
	s, ok := m.manager.Store().Active()
	if !ok {
		m.session = nil
		m.renderer.Bind(0, nil)
		m.view = nil
		m.setFocus(focusQuery)
		return
	}

	prev := m.renderer.Current()
	sameSession := m.session != nil && m.session.ID == s.ID
	if !sameSession {
		// Drop the previous chat's widget state.
		m.renderer.Bind(-1, nil)
	}
	m.session = s

	var cur *question.Descriptor
	if s.State() == interview.StateAwaitingAnswer {
		cur = s.Current
	}
	w := m.renderer.Bind(s.Turn, cur)
	if w == nil {
		m.view = nil
		m.setFocus(focusQuery)
		return
	}
	if w != prev || m.view == nil {
		m.view = NewWidgetView(w)
		if w.Answerable() {
			m.setFocus(focusWidget)
		} else {
			m.setFocus(focusQuery)
		}
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusQuery {
		m.query.Focus()
	} else {
		m.query.Blur()
	}
}

func (m *Model) View() string {
	var b strings.Builder

	store := m.manager.Store()
	sessions := store.List()
	header := "intake"
	if m.session != nil {
		pos := 0
		for i, s := range sessions {
			if s.ID == m.session.ID {
				pos = i + 1
			}
		}
		header = fmt.Sprintf("%s  %s", m.session.Title, mutedStyle.Render(fmt.Sprintf("(chat %d/%d)", pos, len(sessions))))
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	body := m.renderBody()
	b.WriteString(m.clip(body))

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.query.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter send  tab switch focus  ctrl+n new chat  pgup/pgdn switch chat  esc quit"))
	return b.String()
}

func (m *Model) renderBody() string {
	s := m.session
	if s == nil || (len(s.Messages) == 0 && !s.Pending) {
		return mutedStyle.Render("Tell me what is bothering you and I will ask a few questions.")
	}

	var b strings.Builder
	for _, msg := range s.Messages {
		if msg.Role == interview.RoleUser {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch s.State() {
	case interview.StateAwaitingAgentReply:
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render("Thinking..."))
	case interview.StateAwaitingAnswer:
		if m.view != nil {
			b.WriteString(m.view.View())
		}
	case interview.StateTerminal:
		var a strings.Builder
		a.WriteString(titleStyle.Render("Preliminary assessment"))
		a.WriteString("\n")
		a.WriteString(s.Assessment)
		if len(s.Recommendations) > 0 {
			a.WriteString("\n\n")
			a.WriteString(userStyle.Render("Recommendations"))
			for _, r := range s.Recommendations {
				a.WriteString("\n• " + r)
			}
		}
		b.WriteString(assessmentBox.Render(a.String()))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("This is not a medical diagnosis. Start a new query to continue."))
	case interview.StateIdle:
		if s.LastError != "" {
			b.WriteString(errorStyle.Render("The assistant could not be reached: " + s.LastError))
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render("Send your message again to retry."))
		}
	}
	return b.String()
}

// clip keeps the tail of body when it does not fit the window.
func (m *Model) clip(body string) string {
	if m.height <= 0 {
		return body
	}
	avail := m.height - 8
	if avail < 5 {
		avail = 5
	}
	lines := strings.Split(body, "\n")
	if len(lines) <= avail {
		return body
	}
	return strings.Join(lines[len(lines)-avail:], "\n")
}
