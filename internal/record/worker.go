package record

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mycare-ai/intake/internal/storage"
)

// JobStore abstracts the job queue and tool record operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	CreateTool(rec storage.ToolRecord) (storage.ToolRecord, error)
}

// Worker processes record_answer jobs from the queue.
type Worker struct {
	store  JobStore
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("record worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single record_answer job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(job); err != nil {
		w.logger.Warn("record job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(job *storage.Job) error {
	var p payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &p); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if p.Answered.QuestionID == "" {
		return fmt.Errorf("payload has no question id")
	}

	answer, err := json.Marshal(p.Answered.Answer)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}

	options := p.Answered.Options
	if options == nil {
		options = []string{}
	}
	rec, err := w.store.CreateTool(storage.ToolRecord{
		QuestionID:   p.Answered.QuestionID,
		MainQuestion: p.Subject,
		Question:     p.Answered.Question,
		Answer:       answer,
		Type:         string(p.Answered.Type),
		Options:      options,
	})
	if err != nil {
		return fmt.Errorf("writing tool record: %w", err)
	}
	w.logger.Debug("answer recorded", "session_id", p.SessionID, "question_id", rec.QuestionID, "record_id", rec.ID)
	return nil
}
