package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"adaptive-quiz-service/internal/domain"
)

// RoomStore keeps rooms in Postgres. Participants and progress are separate
// tables keyed by (room_id, user_id), so joins and progress reports are single
// row statements that never rewrite other students' data.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) Insert(ctx context.Context, room domain.Room) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, owner_id, status, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		room.ID, room.OwnerID, string(room.Status), room.IsActive, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomCodeTaken
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, code string) (domain.Room, error) {
	var room domain.Room
	// One snapshot for the room row and its child rows.
	err := s.pool.BeginTxFunc(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		room, err = loadRoom(ctx, tx, code)
		return err
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *RoomStore) AddParticipant(ctx context.Context, code, userID string, joinedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		code, userID, joinedAt)
	if isForeignKeyViolation(err) {
		return domain.ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (s *RoomStore) SetQuiz(ctx context.Context, code string, questions []domain.Question, cfg domain.RoomConfig) error {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET questions = $2, config = $3, status = $4
		WHERE id = $1 AND status <> $5`,
		code, string(questionsJSON), string(configJSON), string(domain.RoomReady), string(domain.RoomCompleted))
	if err != nil {
		return fmt.Errorf("set quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.whyUnchanged(ctx, code)
	}
	return nil
}

func (s *RoomStore) UpsertProgress(ctx context.Context, code, userID string, progress domain.Progress) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO room_progress (room_id, user_id, current_question_index, completed, score, updated_at)
		SELECT id, $2, $3, $4, $5, $6 FROM rooms WHERE id = $1 AND status <> $7
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			current_question_index = EXCLUDED.current_question_index,
			completed = EXCLUDED.completed,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`,
		code, userID, progress.CurrentQuestionIndex, progress.Completed, progress.Score, progress.UpdatedAt,
		string(domain.RoomCompleted))
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.whyUnchanged(ctx, code)
	}
	return nil
}

func (s *RoomStore) End(ctx context.Context, code string, endedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET status = $2, is_active = FALSE, ended_at = COALESCE(ended_at, $3)
		WHERE id = $1`,
		code, string(domain.RoomCompleted), endedAt)
	if err != nil {
		return fmt.Errorf("end room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM rooms WHERE owner_id = $1 ORDER BY created_at DESC, seq DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, err
		}
		codes = append(codes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(codes))
	for _, code := range codes {
		room, err := s.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// whyUnchanged explains a guarded write that touched no rows.
func (s *RoomStore) whyUnchanged(ctx context.Context, code string) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM rooms WHERE id = $1`, code).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if domain.RoomStatus(status) == domain.RoomCompleted {
		return domain.ErrRoomCompleted
	}
	return fmt.Errorf("room %s unchanged in status %s", code, status)
}

func loadRoom(ctx context.Context, tx pgx.Tx, code string) (domain.Room, error) {
	room := domain.Room{
		ID:              code,
		Participants:    []string{},
		StudentProgress: map[string]domain.Progress{},
	}
	var (
		status     string
		configJSON []byte
		questions  []byte
	)
	err := tx.QueryRow(ctx, `
		SELECT owner_id, status, is_active, config, questions, created_at, ended_at
		FROM rooms WHERE id = $1`, code).
		Scan(&room.OwnerID, &status, &room.IsActive, &configJSON, &questions, &room.CreatedAt, &room.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}
	room.Status = domain.RoomStatus(status)

	if len(configJSON) > 0 {
		var cfg domain.RoomConfig
		if err := json.Unmarshal(configJSON, &cfg); err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s config: %w", code, err)
		}
		room.Config = &cfg
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &room.Questions); err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s questions: %w", code, err)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT user_id FROM room_participants WHERE room_id = $1 ORDER BY joined_at, seq`, code)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load participants: %w", err)
	}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return domain.Room{}, err
		}
		room.Participants = append(room.Participants, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Room{}, err
	}

	rows, err = tx.Query(ctx, `
		SELECT user_id, current_question_index, completed, score, updated_at
		FROM room_progress WHERE room_id = $1`, code)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			userID string
			p      domain.Progress
		)
		if err := rows.Scan(&userID, &p.CurrentQuestionIndex, &p.Completed, &p.Score, &p.UpdatedAt); err != nil {
			return domain.Room{}, err
		}
		room.StudentProgress[userID] = p
	}
	return room, rows.Err()
}
