package api

import (
	"time"

	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
)

// Snapshot is the JSON form of a chat session.
type Snapshot struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	State           interview.State      `json:"state"`
	Pending         bool                 `json:"pending"`
	Messages        []interview.Message  `json:"messages"`
	CurrentQuestion *question.Descriptor `json:"currentQuestion"`
	FinalAssessment string               `json:"finalAssessment,omitempty"`
	Recommendations []string             `json:"recommendations,omitempty"`
	LastError       string               `json:"lastError,omitempty"`
	Turn            int                  `json:"turn"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// ChatSummary is one entry of the chat list.
type ChatSummary struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	State     interview.State `json:"state"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ChatList struct {
	Chats    []ChatSummary `json:"chats"`
	ActiveID string        `json:"activeId"`
}

func NewSnapshot(s *interview.Session) Snapshot {
	msgs := s.Messages
	if msgs == nil {
		msgs = []interview.Message{}
	}
	return Snapshot{
		ID:              s.ID,
		Title:           s.Title,
		State:           s.State(),
		Pending:         s.Pending,
		Messages:        msgs,
		CurrentQuestion: s.Current,
		FinalAssessment: s.Assessment,
		Recommendations: s.Recommendations,
		LastError:       s.LastError,
		Turn:            s.Turn,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func newChatList(sessions []*interview.Session, activeID string) ChatList {
	out := ChatList{Chats: make([]ChatSummary, 0, len(sessions)), ActiveID: activeID}
	for _, s := range sessions {
		out.Chats = append(out.Chats, ChatSummary{ID: s.ID, Title: s.Title, State: s.State(), UpdatedAt: s.UpdatedAt})
	}
	return out
}
