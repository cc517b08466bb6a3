// Package conversation keeps the set of chat sessions and drives their
// interviews against the agent.
package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/mycare-ai/intake/internal/interview"
)

var ErrUnknownSession = errors.New("unknown session")

// Event is published after every change to the store. Session is a snapshot
// of the changed session and is nil for selection-only changes.
type Event struct {
	SessionID string
	Session   *interview.Session
	ActiveID  string
}

// Store maps session ids to sessions. All reads return deep copies; writes go
// through Mutate, which holds the lock for exactly one transition.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*interview.Session
	order    []string
	active   string

	subs    map[int]chan Event
	nextSub int
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*interview.Session),
		subs:     make(map[int]chan Event),
	}
}

// Create inserts an empty session, selects it and returns its id.
func (s *Store) Create() string {
	return s.CreateWithTitle("")
}

func (s *Store) CreateWithTitle(title string) string {
	id := uuid.NewString()
	sess := interview.New(id, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
	s.order = append(s.order, id)
	s.active = id
	s.publish(Event{SessionID: id, Session: sess.Clone(), ActiveID: id})
	return id
}

// Select makes id the active session. Unknown ids are ignored.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	if s.active != id {
		s.active = id
		s.publish(Event{ActiveID: id})
	}
	return true
}

func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active returns a snapshot of the selected session.
func (s *Store) Active() (*interview.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[s.active]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

func (s *Store) Get(id string) (*interview.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// List returns snapshots of all sessions in creation order.
func (s *Store) List() []*interview.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*interview.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out
}

// Mutate applies fn to the session with the given id and returns a snapshot
// of the result. Subscribers are notified even when fn fails, since a failing
// transition may still have changed the session.
func (s *Store) Mutate(id string, fn func(*interview.Session) error) (*interview.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	err := fn(sess)
	snap := sess.Clone()
	s.publish(Event{SessionID: id, Session: snap.Clone(), ActiveID: s.active})
	return snap, err
}

// Subscribe returns a change feed. Events are dropped for subscribers whose
// buffer is full. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// publish must be called with mu held.
func (s *Store) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
