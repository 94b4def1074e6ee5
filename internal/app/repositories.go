package app

import (
	"context"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// RoomRepository abstracts how rooms are stored (in-memory, Redis, Postgres).
// Every mutation is atomic per room code; in particular UpsertProgress touches
// only the given user's entry so concurrent reports never lose each other.
type RoomRepository interface {
	// Insert stores a new room, failing with domain.ErrRoomCodeTaken if the code exists.
	Insert(ctx context.Context, room domain.Room) error
	Get(ctx context.Context, code string) (domain.Room, error)
	// AddParticipant is idempotent and keeps first join order.
	AddParticipant(ctx context.Context, code, userID string, joinedAt time.Time) error
	// SetQuiz overwrites questions and config and marks the room ready.
	// Completed rooms are rejected with domain.ErrRoomCompleted.
	SetQuiz(ctx context.Context, code string, questions []domain.Question, cfg domain.RoomConfig) error
	UpsertProgress(ctx context.Context, code, userID string, progress domain.Progress) error
	// End marks the room completed and inactive. Ending twice keeps the first end time.
	End(ctx context.Context, code string, endedAt time.Time) error
	// ListByOwner returns the owner's rooms, most recent first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Room, error)
}

// ActiveSessionRepository holds solo sessions that are still being answered.
type ActiveSessionRepository interface {
	Save(ctx context.Context, session *domain.QuizSession) error
	Get(ctx context.Context, id string) (*domain.QuizSession, error)
	Delete(ctx context.Context, id string) error
}

// HistoryRepository is the append-only log of finished solo sessions.
type HistoryRepository interface {
	Append(ctx context.Context, summary domain.SessionSummary) error
	// ListByUser returns the user's sessions, most recent first.
	ListByUser(ctx context.Context, userID string) ([]domain.SessionSummary, error)
}

type UserRepository interface {
	// Create fails with domain.ErrEmailTaken when the email is registered.
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	SetLastDifficulty(ctx context.Context, id string, d domain.Difficulty) error
}

// RoomEvents relays room change notifications between service instances.
type RoomEvents interface {
	Publish(ctx context.Context, code string) error
}
