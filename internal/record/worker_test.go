package record

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
	"github.com/mycare-ai/intake/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// flakyStore fails the first n CreateTool calls.
type flakyStore struct {
	*storage.Store
	failures atomic.Int32
}

func (f *flakyStore) CreateTool(rec storage.ToolRecord) (storage.ToolRecord, error) {
	if f.failures.Add(-1) >= 0 {
		return storage.ToolRecord{}, errors.New("disk full")
	}
	return f.Store.CreateTool(rec)
}

// resetRunAfter makes a backed-off job immediately claimable.
func resetRunAfter(t *testing.T, store *storage.Store) {
	t.Helper()
	past := time.Now().Add(-time.Second).UTC().Format("2006-01-02T15:04:05.000000Z07:00")
	if _, err := store.DB().Exec(`UPDATE jobs SET run_after = ? WHERE status = 'pending'`, past); err != nil {
		t.Fatalf("resetRunAfter: %v", err)
	}
}

func record(t *testing.T, store *storage.Store, aq interview.AnsweredQuestion) {
	t.Helper()
	if err := NewRecorder(store).Record(context.Background(), "s1", "headache", aq); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestWorker_WritesToolRecord(t *testing.T) {
	store := openTestStore(t)
	record(t, store, interview.AnsweredQuestion{
		Turn:       1,
		QuestionID: "q2",
		Question:   "Where does it hurt?",
		Type:       question.TypeMultiSelect,
		Options:    []string{"Front", "Back", "Side"},
		Answer:     question.SetAnswer([]string{"Front", "Side"}),
	})

	w := NewWorker(store, 0)
	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	recs, err := store.ListTools()
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.QuestionID != "q2" || rec.MainQuestion != "headache" || rec.Question != "Where does it hurt?" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Type != "multi-select" {
		t.Errorf("Type = %q, want multi-select", rec.Type)
	}
	if string(rec.Answer) != `["Front","Side"]` {
		t.Errorf("Answer = %s", rec.Answer)
	}
	if len(rec.Options) != 3 {
		t.Errorf("Options = %v", rec.Options)
	}

	counts, err := store.JobCounts()
	if err != nil {
		t.Fatalf("JobCounts: %v", err)
	}
	if counts["completed"] != 1 {
		t.Errorf("job counts = %v, want 1 completed", counts)
	}
}

func TestWorker_NoJobs(t *testing.T) {
	store := openTestStore(t)

	didWork, err := NewWorker(store, 0).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if didWork {
		t.Error("RunOnce reported work on an empty queue")
	}
}

func TestWorker_RetryOnFailure(t *testing.T) {
	store := openTestStore(t)
	record(t, store, interview.AnsweredQuestion{QuestionID: "q1", Question: "Pain level?", Type: question.TypeSlider, Answer: question.NumberAnswer(7)})

	fs := &flakyStore{Store: store}
	fs.failures.Store(2)
	w := NewWorker(fs, 0)
	ctx := context.Background()

	for attempt := 1; attempt <= 2; attempt++ {
		didWork, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce %d error: %v", attempt, err)
		}
		if !didWork {
			t.Fatalf("RunOnce %d returned false", attempt)
		}
		var status string
		var attempts int
		if err := store.DB().QueryRow(`SELECT status, attempts FROM jobs`).Scan(&status, &attempts); err != nil {
			t.Fatalf("query after fail %d: %v", attempt, err)
		}
		if status != "pending" || attempts != attempt {
			t.Errorf("after fail %d: status=%q attempts=%d", attempt, status, attempts)
		}
		resetRunAfter(t, store)
	}

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce 3 error: %v", err)
	}
	recs, err := store.ListTools()
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(recs) != 1 || string(recs[0].Answer) != "7" {
		t.Errorf("records = %+v", recs)
	}
}

func TestWorker_BadPayloadFails(t *testing.T) {
	store := openTestStore(t)
	if err := store.EnqueueJob(storage.Job{ID: "bad", Type: JobType, PayloadJSON: `not json`, MaxAttempts: 1}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if _, err := NewWorker(store, 0).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	counts, err := store.JobCounts()
	if err != nil {
		t.Fatalf("JobCounts: %v", err)
	}
	if counts["failed"] != 1 {
		t.Errorf("job counts = %v, want 1 failed", counts)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	record(t, store, interview.AnsweredQuestion{QuestionID: "q1", Question: "Fever?", Type: question.TypeYesNo, Answer: question.TextAnswer("No")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(store, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		recs, err := store.ListTools()
		if err != nil {
			t.Fatalf("ListTools: %v", err)
		}
		if len(recs) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker did not process job")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
