// Package interview implements the per-chat interview state machine.
package interview

import (
	"fmt"
	"strings"
	"time"

	"github.com/mycare-ai/intake/internal/question"
)

// Session is a single chat. It is not safe for concurrent use; callers
// serialize access (see conversation.Store).
type Session struct {
	ID              string
	Title           string
	Subject         string
	Messages        []Message
	Current         *question.Descriptor
	Assessment      string
	Recommendations []string
	Answers         []AnsweredQuestion
	Turn            int
	Pending         bool
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	seq uint64
}

func New(id, title string) *Session {
	if title == "" {
		title = NewChatTitle
	}
	now := time.Now().UTC()
	return &Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
}

func (s *Session) State() State {
	switch {
	case s.Pending:
		return StateAwaitingAgentReply
	case s.Assessment != "":
		return StateTerminal
	case s.Current != nil:
		return StateAwaitingAnswer
	case len(s.Messages) == 0:
		return StateAwaitingFirstQuery
	}
	return StateIdle
}

// PendingSeq returns the sequence number of the outstanding request.
func (s *Session) PendingSeq() uint64 { return s.seq }

// SubmitQuery starts (or restarts) an interview about q.
func (s *Session) SubmitQuery(q string) (Request, error) {
	switch s.State() {
	case StateAwaitingFirstQuery, StateIdle, StateTerminal:
	default:
		return Request{}, fmt.Errorf("%w: query while %s", ErrInvalidTransition, s.State())
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return Request{}, ErrEmptyQuery
	}

	if s.Title == "" || s.Title == NewChatTitle {
		s.Title = q
	}
	s.Subject = q
	s.Answers = nil
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: q})
	return s.dispatch(q), nil
}

// SubmitAnswer accepts raw as the answer to the pending question qid.
func (s *Session) SubmitAnswer(qid string, raw any) (Request, AnsweredQuestion, error) {
	if st := s.State(); st != StateAwaitingAnswer {
		return Request{}, AnsweredQuestion{}, fmt.Errorf("%w: answer while %s", ErrInvalidTransition, st)
	}
	cur := s.Current
	if cur.ID != qid {
		return Request{}, AnsweredQuestion{}, fmt.Errorf("%w: %q (pending %q)", ErrStaleQuestion, qid, cur.ID)
	}
	a, err := question.Normalize(*cur, raw)
	if err != nil {
		return Request{}, AnsweredQuestion{}, err
	}

	aq := AnsweredQuestion{
		Turn:       s.Turn,
		QuestionID: cur.ID,
		Question:   cur.Prompt,
		Title:      cur.Title,
		Type:       cur.Type(),
		Options:    cur.Options(),
		Answer:     a,
	}
	if n := len(s.Answers); n > 0 && s.Answers[n-1].Turn == s.Turn {
		s.Answers[n-1] = aq
	} else {
		s.Answers = append(s.Answers, aq)
	}

	s.Messages = append(s.Messages, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("%s - %s", cur.Prompt, a.String()),
	})
	input := fmt.Sprintf("%s - %s: %s", s.Subject, cur.ID, a.String())
	return s.dispatch(input), aq, nil
}

func (s *Session) dispatch(input string) Request {
	s.seq++
	s.Pending = true
	s.LastError = ""
	s.touch()

	answers := make([]AnsweredQuestion, len(s.Answers))
	copy(answers, s.Answers)
	transcript := make([]Message, len(s.Messages))
	copy(transcript, s.Messages)

	return Request{
		SessionID:  s.ID,
		Seq:        s.seq,
		Subject:    s.Subject,
		Input:      input,
		Answers:    answers,
		Transcript: transcript,
	}
}

// Resolve applies the agent's reply to the request numbered seq.
func (s *Session) Resolve(seq uint64, r Reply) error {
	if !s.Pending || seq != s.seq {
		return ErrStaleReply
	}
	switch {
	case r.IsAssessment():
		s.Pending = false
		s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: r.Assessment})
		s.Assessment = r.Assessment
		s.Recommendations = append([]string(nil), r.Recommendations...)
		s.Current = nil
	case r.Question != nil:
		s.Pending = false
		d := r.Question.Clone()
		s.Current = &d
		s.Assessment = ""
		s.Recommendations = nil
		s.Turn++
	default:
		s.Pending = false
		s.LastError = ErrEmptyReply.Error()
		s.touch()
		return ErrEmptyReply
	}
	s.LastError = ""
	s.touch()
	return nil
}

// Fail records a gateway failure for the request numbered seq. Messages and
// the pending question are left as they were so the user can retry.
func (s *Session) Fail(seq uint64, err error) error {
	if !s.Pending || seq != s.seq {
		return ErrStaleReply
	}
	s.Pending = false
	if err != nil {
		s.LastError = err.Error()
	}
	s.touch()
	return nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.Recommendations = append([]string(nil), s.Recommendations...)
	if s.Current != nil {
		d := s.Current.Clone()
		c.Current = &d
	}
	if s.Answers == nil {
		return &c
	}
	c.Answers = make([]AnsweredQuestion, len(s.Answers))
	for i, a := range s.Answers {
		a.Options = append([]string(nil), a.Options...)
		a.Answer.Set = append([]string(nil), a.Answer.Set...)
		c.Answers[i] = a
	}
	return &c
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
