package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-quiz-service/internal/domain"
)

// HistoryStore appends finished solo sessions to quiz_sessions.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (h *HistoryStore) Append(ctx context.Context, s domain.SessionSummary) error {
	_, err := h.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (id, user_id, subject, chapter, difficulty, score, total_questions, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.Subject, s.Chapter, string(s.Difficulty), s.Score, s.TotalQuestions, s.CreatedAt, s.CompletedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("session %s already recorded: %w", s.ID, domain.ErrSessionCompleted)
	}
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

func (h *HistoryStore) ListByUser(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	rows, err := h.pool.Query(ctx, `
		SELECT id, user_id, subject, chapter, difficulty, score, total_questions, created_at, completed_at
		FROM quiz_sessions WHERE user_id = $1
		ORDER BY completed_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SessionSummary, 0)
	for rows.Next() {
		var (
			s          domain.SessionSummary
			difficulty string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Subject, &s.Chapter, &difficulty, &s.Score, &s.TotalQuestions, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, err
		}
		s.Difficulty = domain.Difficulty(difficulty)
		out = append(out, s)
	}
	return out, rows.Err()
}
