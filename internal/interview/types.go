package interview

import (
	"errors"

	"github.com/mycare-ai/intake/internal/question"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyQuery        = errors.New("query is empty")
	ErrStaleQuestion     = errors.New("question is no longer pending")
	ErrStaleReply        = errors.New("reply does not match the outstanding request")
	ErrEmptyReply        = errors.New("reply carries neither a question nor an assessment")
)

// NewChatTitle is the title of a session before its first query.
const NewChatTitle = "New Chat"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the visible transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is derived from a session's fields; it is never stored.
type State string

const (
	StateAwaitingFirstQuery State = "awaiting_first_query"
	StateAwaitingAgentReply State = "awaiting_agent_reply"
	StateAwaitingAnswer     State = "awaiting_answer"
	StateTerminal           State = "terminal"
	// StateIdle follows a gateway failure that left no question pending.
	StateIdle State = "idle"
)

// AnsweredQuestion is one accepted answer together with the question it
// answers.
type AnsweredQuestion struct {
	Turn       int             `json:"turn"`
	QuestionID string          `json:"questionId"`
	Question   string          `json:"question"`
	Title      string          `json:"title,omitempty"`
	Type       question.Type   `json:"type"`
	Options    []string        `json:"options,omitempty"`
	Answer     question.Answer `json:"answer"`
}

// Request is the session context handed to the agent for one call. Seq ties
// the eventual reply back to the call that produced it.
type Request struct {
	SessionID string
	Seq       uint64
	Subject   string
	// Input is the single-string encoding of the latest step:
	// the query itself, or "<subject> - <questionId>: <answer>".
	Input      string
	Answers    []AnsweredQuestion
	Transcript []Message
}

// Reply is the agent's answer to a Request: either the next question or a
// final assessment.
type Reply struct {
	Question        *question.Descriptor
	Assessment      string
	Recommendations []string
}

func (r Reply) IsAssessment() bool { return r.Assessment != "" }
