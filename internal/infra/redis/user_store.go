package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// UserStore keeps users as hashes (user:{id}) with a user:email:{email} -> id index.
type UserStore struct {
	client redis.UniversalClient
}

func NewUserStore(client redis.UniversalClient) *UserStore {
	return &UserStore{client: client}
}

type userRecord struct {
	ID             string `redis:"id"`
	Name           string `redis:"name"`
	Email          string `redis:"email"`
	PasswordHash   string `redis:"passwordHash"`
	LastDifficulty string `redis:"lastDifficulty"`
	CreatedAt      int64  `redis:"createdAt"`
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	// The email index is claimed first; SETNX is the uniqueness check.
	ok, err := s.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrEmailTaken
	}
	rec := userRecord{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		LastDifficulty: string(user.LastDifficulty),
		CreatedAt:      user.CreatedAt.UnixNano(),
	}
	if err := s.client.HSet(ctx, userKey(user.ID), rec).Err(); err != nil {
		_ = s.client.Del(ctx, emailKey(user.Email)).Err()
		return err
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	cmd := s.client.HGetAll(ctx, userKey(id))
	if err := cmd.Err(); err != nil {
		return domain.User{}, err
	}
	if len(cmd.Val()) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	var rec userRecord
	if err := cmd.Scan(&rec); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:             rec.ID,
		Name:           rec.Name,
		Email:          rec.Email,
		PasswordHash:   rec.PasswordHash,
		LastDifficulty: domain.Difficulty(rec.LastDifficulty),
		CreatedAt:      time.Unix(0, rec.CreatedAt).UTC(),
	}, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return s.Get(ctx, id)
}

func (s *UserStore) SetLastDifficulty(ctx context.Context, id string, d domain.Difficulty) error {
	n, err := s.client.Exists(ctx, userKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return s.client.HSet(ctx, userKey(id), "lastDifficulty", string(d)).Err()
}

func userKey(id string) string { return "user:" + id }
func emailKey(email string) string { return "user:email:" + email }
