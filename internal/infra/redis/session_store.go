package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// SessionStore keeps active solo sessions as JSON under quiz:session:{id}.
// Every save refreshes the TTL, so abandoned sessions disappear on their own.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, session *domain.QuizSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return s.client.Set(ctx, s.key(session.ID), payload, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.QuizSession, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session domain.QuizSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if session.Responses == nil {
		session.Responses = make(map[int]domain.Answer)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}

// HistoryStore is a per-user list of finished sessions. LPUSH keeps the
// newest summary at the head. Appending an id twice fails with
// domain.ErrSessionCompleted.
type HistoryStore struct {
	client redis.UniversalClient
}

func NewHistoryStore(client redis.UniversalClient) *HistoryStore {
	return &HistoryStore{client: client}
}

func (h *HistoryStore) Append(ctx context.Context, summary domain.SessionSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", summary.ID, err)
	}
	index := h.indexKey(summary.UserID)
	for i := 0; i < maxTxRetries; i++ {
		err = h.client.Watch(ctx, func(tx *redis.Tx) error {
			seen, err := tx.SIsMember(ctx, index, summary.ID).Result()
			if err != nil {
				return err
			}
			if seen {
				return domain.ErrSessionCompleted
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SAdd(ctx, index, summary.ID)
				pipe.LPush(ctx, h.key(summary.UserID), payload)
				return nil
			})
			return err
		}, index)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("append summary %s: %w", summary.ID, err)
}

func (h *HistoryStore) ListByUser(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	raw, err := h.client.LRange(ctx, h.key(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionSummary, 0, len(raw))
	for _, item := range raw {
		var summary domain.SessionSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", userID, err)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (h *HistoryStore) key(userID string) string {
	return "user:" + userID + ":history"
}

// indexKey holds the ids already appended, so a session is recorded once.
func (h *HistoryStore) indexKey(userID string) string {
	return "user:" + userID + ":history:ids"
}
