// Package record persists answered interview questions as tool records.
// Answers are queued as jobs so that a slow or unavailable database never
// blocks the interview itself.
package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/storage"
)

// JobType is the queue type of answer-recording jobs.
const JobType = "record_answer"

// Enqueuer adds jobs to the queue.
type Enqueuer interface {
	EnqueueJob(job storage.Job) error
}

type payload struct {
	SessionID string                     `json:"sessionId"`
	Subject   string                     `json:"subject"`
	Answered  interview.AnsweredQuestion `json:"answeredQuestion"`
}

// Recorder queues a record_answer job for every accepted answer.
type Recorder struct {
	queue Enqueuer
}

func NewRecorder(queue Enqueuer) *Recorder {
	return &Recorder{queue: queue}
}

// Record enqueues aq for persistence. subject becomes the record's main question.
func (r *Recorder) Record(ctx context.Context, sessionID, subject string, aq interview.AnsweredQuestion) error {
	body, err := json.Marshal(payload{SessionID: sessionID, Subject: subject, Answered: aq})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := r.queue.EnqueueJob(storage.Job{
		ID:          uuid.New().String(),
		Type:        JobType,
		PayloadJSON: string(body),
	}); err != nil {
		return fmt.Errorf("enqueueing %s job: %w", JobType, err)
	}
	return nil
}
