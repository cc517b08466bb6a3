package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ToolRecord is one persisted question/answer pair.
type ToolRecord struct {
	ID           string          `json:"id"`
	QuestionID   string          `json:"questionId"`
	MainQuestion string          `json:"mainQuestion"`
	Question     string          `json:"question"`
	Answer       json.RawMessage `json:"answer"`
	Type         string          `json:"type"`
	Options      []string        `json:"options"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
