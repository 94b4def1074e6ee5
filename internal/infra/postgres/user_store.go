package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-quiz-service/internal/domain"
)

// UserStore is the user directory backed by the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, last_difficulty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.LastDifficulty), u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *UserStore) SetLastDifficulty(ctx context.Context, id string, d domain.Difficulty) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_difficulty = $2 WHERE id = $1`, id, string(d))
	if err != nil {
		return fmt.Errorf("set last difficulty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// getBy looks a user up by one of the fixed column names above.
func (s *UserStore) getBy(ctx context.Context, column, value string) (domain.User, error) {
	var (
		u          domain.User
		difficulty string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, last_difficulty, created_at
		FROM users WHERE `+column+` = $1`, value).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &difficulty, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.LastDifficulty = domain.Difficulty(difficulty)
	return u, nil
}
