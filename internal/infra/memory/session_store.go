package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.ActiveSessionRepository.
// Sessions idle for longer than ttl are treated as gone.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]activeSession
}

type activeSession struct {
	session   *domain.QuizSession
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]activeSession),
	}
}

func (s *SessionStore) Save(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := activeSession{session: cloneSession(session)}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.QuizSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(entry.session), nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func cloneSession(s *domain.QuizSession) *domain.QuizSession {
	c := *s
	c.Questions = cloneQuestions(s.Questions)
	c.Responses = make(map[int]domain.Answer, len(s.Responses))
	for k, v := range s.Responses {
		c.Responses[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// HistoryStore is an in-memory implementation of app.HistoryRepository.
type HistoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.SessionSummary
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{byUser: make(map[string][]domain.SessionSummary)}
}

func (h *HistoryStore) Append(_ context.Context, summary domain.SessionSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, stored := range h.byUser[summary.UserID] {
		if stored.ID == summary.ID {
			return domain.ErrSessionCompleted
		}
	}
	h.byUser[summary.UserID] = append(h.byUser[summary.UserID], summary)
	return nil
}

func (h *HistoryStore) ListByUser(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	h.mu.RLock()
	stored := h.byUser[userID]
	out := make([]domain.SessionSummary, len(stored))
	copy(out, stored)
	h.mu.RUnlock()

	// Appends arrive in completion order; newest first for readers.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}
