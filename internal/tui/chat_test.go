package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
)

type stubAgent struct {
	mu      sync.Mutex
	replies []interview.Reply
	err     error
	calls   int
}

func (a *stubAgent) Send(ctx context.Context, req interview.Request) (interview.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return interview.Reply{}, a.err
	}
	r := a.replies[a.calls]
	a.calls++
	return r, nil
}

func newTestModel(t *testing.T, agent *stubAgent) (*Model, *conversation.Manager) {
	t.Helper()
	mgr := conversation.NewManager(conversation.NewStore(), agent, nil)
	m := NewModel(context.Background(), mgr)
	t.Cleanup(m.Close)
	return m, mgr
}

// settle waits for in-flight agent calls and lets the model observe them.
func settle(m *Model, mgr *conversation.Manager) *Model {
	mgr.Wait()
	updated, _ := m.Update(eventMsg{})
	return updated.(*Model)
}

func send(m *Model, keys ...string) *Model {
	for _, k := range keys {
		updated, _ := m.Update(key(k))
		m = updated.(*Model)
	}
	return m
}

func typeText(m *Model, s string) *Model {
	for _, r := range s {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(*Model)
	}
	return m
}

func TestChat_FullInterview(t *testing.T) {
	agent := &stubAgent{replies: []interview.Reply{
		{Question: &question.Descriptor{ID: "q1", Prompt: "Any fever?", Body: question.YesNo{}}},
		{Question: &question.Descriptor{ID: "q2", Prompt: "Where?", Body: question.MultipleChoice{Options: []string{"Front", "Back"}}}},
		{Assessment: "Likely tension headache.", Recommendations: []string{"Rest", "Hydrate"}},
	}}
	m, mgr := newTestModel(t, agent)

	if !strings.Contains(m.View(), "Tell me what is bothering you") {
		t.Errorf("empty view = %s", m.View())
	}

	m = typeText(m, "I have a headache")
	m = send(m, "enter")
	if m.session == nil || m.session.Title != "I have a headache" {
		t.Fatalf("session = %+v", m.session)
	}

	m = settle(m, mgr)
	if m.focus != focusWidget || m.view == nil {
		t.Fatalf("widget not focused after first question")
	}
	if !strings.Contains(m.View(), "Any fever?") {
		t.Errorf("question not rendered: %s", m.View())
	}

	m = send(m, "y")
	m = settle(m, mgr)
	if !strings.Contains(m.View(), "Where?") {
		t.Fatalf("second question not rendered: %s", m.View())
	}

	m = send(m, "down", "enter")
	m = settle(m, mgr)

	out := m.View()
	if !strings.Contains(out, "Likely tension headache.") || !strings.Contains(out, "Hydrate") {
		t.Errorf("assessment not rendered: %s", out)
	}
	if m.focus != focusQuery {
		t.Error("query input not focused after assessment")
	}

	s, _ := mgr.Store().Active()
	if len(s.Answers) != 2 || s.Answers[1].Answer.Text != "Back" {
		t.Errorf("answers = %+v", s.Answers)
	}
}

func TestChat_AgentErrorShown(t *testing.T) {
	m, mgr := newTestModel(t, &stubAgent{err: errors.New("unexpected status 500")})

	m = typeText(m, "cough")
	m = send(m, "enter")
	m = settle(m, mgr)

	if !strings.Contains(m.View(), "unexpected status 500") {
		t.Errorf("error not shown: %s", m.View())
	}
}

func TestChat_NewChatAndSwitch(t *testing.T) {
	agent := &stubAgent{replies: []interview.Reply{
		{Question: &question.Descriptor{ID: "q1", Prompt: "Any fever?", Body: question.YesNo{}}},
	}}
	m, mgr := newTestModel(t, agent)

	m = typeText(m, "headache")
	m = send(m, "enter")
	m = settle(m, mgr)
	first := m.session.ID

	m = send(m, "ctrl+n")
	if m.session == nil || m.session.ID == first || m.view != nil {
		t.Fatalf("ctrl+n did not open a fresh chat")
	}
	if !strings.Contains(m.View(), "chat 2/2") {
		t.Errorf("header = %s", m.View())
	}

	m = send(m, "pgup")
	if m.session.ID != first {
		t.Fatalf("pgup did not switch back")
	}
	if m.view == nil || !strings.Contains(m.View(), "Any fever?") {
		t.Errorf("pending question of first chat not restored: %s", m.View())
	}
}

func TestChat_TabSwitchesFocus(t *testing.T) {
	agent := &stubAgent{replies: []interview.Reply{
		{Question: &question.Descriptor{ID: "q1", Prompt: "Describe it", Body: question.Text{}}},
	}}
	m, mgr := newTestModel(t, agent)

	m = typeText(m, "rash")
	m = send(m, "enter")
	m = settle(m, mgr)
	if m.focus != focusWidget {
		t.Fatal("widget not focused")
	}
	m = send(m, "tab")
	if m.focus != focusQuery {
		t.Error("tab did not move focus to the query input")
	}
	m = typeText(m, "x")
	if m.query.Value() != "x" {
		t.Errorf("query = %q", m.query.Value())
	}
}

func TestChat_Quit(t *testing.T) {
	m, _ := newTestModel(t, &stubAgent{})
	_, cmd := m.Update(key("esc"))
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not quit")
	}
}
