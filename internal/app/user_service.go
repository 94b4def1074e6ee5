package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
)

// UserService is the user directory: signup, login and profile lookup.
type UserService struct {
	users UserRepository
	now   func() time.Time
	cost  int
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users, now: time.Now, cost: bcrypt.DefaultCost}
}

// Signup registers a user starting at easy. A registered email is a conflict.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return domain.User{}, apperrors.InvalidArgument("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, apperrors.InvalidArgument("invalid email %q", email)
	}
	if len(password) < 6 {
		return domain.User{}, apperrors.InvalidArgument("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}

	user := domain.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   string(hash),
		LastDifficulty: domain.DifficultyEasy,
		CreatedAt:      s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("signup: %w", storeErr(err))
	}
	logging.FromContext(ctx).WithField("user", user.ID).Info("user signed up")
	return user, nil
}

// Login checks the password. Unknown emails and wrong passwords look the same to callers.
func (s *UserService) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", storeErr(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, storeErr(err))
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
