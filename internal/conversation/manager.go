package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mycare-ai/intake/internal/interview"
)

// Agent produces the next question or the final assessment for a request.
type Agent interface {
	Send(ctx context.Context, req interview.Request) (interview.Reply, error)
}

// Recorder is notified of each accepted answer once the agent has replied
// to it.
type Recorder interface {
	Record(ctx context.Context, sessionID, subject string, aq interview.AnsweredQuestion) error
}

// Manager runs agent calls for sessions in the store. Each call runs in its
// own goroutine and its result is applied to the session it was made for,
// regardless of which session is selected by then.
type Manager struct {
	store    *Store
	agent    Agent
	recorder Recorder

	wg       sync.WaitGroup
	inflight atomic.Int64
}

// NewManager creates a Manager. recorder may be nil.
func NewManager(store *Store, agent Agent, recorder Recorder) *Manager {
	return &Manager{store: store, agent: agent, recorder: recorder}
}

func (m *Manager) Store() *Store { return m.store }

// Query submits q to the active session, creating one when none is active
// or when the active session cannot take a new query right now.
func (m *Manager) Query(ctx context.Context, q string) (string, error) {
	if strings.TrimSpace(q) == "" {
		return "", interview.ErrEmptyQuery
	}
	id := m.store.ActiveID()
	if id == "" {
		id = m.store.Create()
	}
	err := m.QueryTo(ctx, id, q)
	if errors.Is(err, interview.ErrInvalidTransition) {
		id = m.store.Create()
		err = m.QueryTo(ctx, id, q)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// QueryTo submits q to the session with the given id.
func (m *Manager) QueryTo(ctx context.Context, id, q string) error {
	var req interview.Request
	_, err := m.store.Mutate(id, func(s *interview.Session) error {
		var err error
		req, err = s.SubmitQuery(q)
		return err
	})
	if err != nil {
		return err
	}
	m.dispatch(ctx, req, nil)
	return nil
}

// Answer submits raw as the answer to question qid of session id.
func (m *Manager) Answer(ctx context.Context, id, qid string, raw any) error {
	var (
		req interview.Request
		aq  interview.AnsweredQuestion
	)
	_, err := m.store.Mutate(id, func(s *interview.Session) error {
		var err error
		req, aq, err = s.SubmitAnswer(qid, raw)
		return err
	})
	if err != nil {
		return err
	}

	m.dispatch(ctx, req, &aq)
	return nil
}

// Wait blocks until all in-flight agent calls have been applied.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if calls are
// still outstanding when ctx is done.
func (m *Manager) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports the number of agent calls not yet applied.
func (m *Manager) InFlight() int {
	return int(m.inflight.Load())
}

// dispatch runs the agent call for req. When aq is set it is recorded once
// the reply has been applied, so a turn re-answered after a failed call
// produces a single record.
func (m *Manager) dispatch(ctx context.Context, req interview.Request, aq *interview.AnsweredQuestion) {
	// The call outlives the request that started it.
	ctx = context.WithoutCancel(ctx)

	m.wg.Add(1)
	m.inflight.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.inflight.Add(-1)

		reply, err := m.agent.Send(ctx, req)
		_, applyErr := m.store.Mutate(req.SessionID, func(s *interview.Session) error {
			if err != nil {
				return s.Fail(req.Seq, err)
			}
			return s.Resolve(req.Seq, reply)
		})

		switch {
		case err != nil:
			slog.Warn("agent call failed", "session_id", req.SessionID, "seq", req.Seq, "error", err)
		case applyErr != nil:
			slog.Warn("agent reply not applied", "session_id", req.SessionID, "seq", req.Seq, "error", applyErr)
		default:
			slog.Debug("agent reply applied", "session_id", req.SessionID, "seq", req.Seq, "assessment", reply.IsAssessment())
			if aq != nil && m.recorder != nil {
				if err := m.recorder.Record(ctx, req.SessionID, req.Subject, *aq); err != nil {
					slog.Warn("failed to record answer", "session_id", req.SessionID, "question_id", aq.QuestionID, "error", err)
				}
			}
		}
	}()
}
