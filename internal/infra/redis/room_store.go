package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// maxTxRetries bounds optimistic transaction retries on contended rooms.
const maxTxRetries = 16

// RoomStore keeps rooms in Redis so several service instances share them.
//
// Layout per room code:
//
//	HSET room:{code}              owner status active createdAt endedAt config questions
//	ZADD room:{code}:participants {joinedAtNanos} {userID}   (NX keeps first join)
//	HSET room:{code}:progress     {userID} {progress json}
//	ZADD owner:{ownerID}:rooms    {createdAtNanos} {code}
//
// Progress lives in its own hash so each report writes only its own field.
type RoomStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRoomStore returns a store whose room keys all expire ttl after the room's
// last write; zero keeps them forever.
func NewRoomStore(client redis.UniversalClient, ttl time.Duration) *RoomStore {
	return &RoomStore{client: client, ttl: ttl}
}

func roomKey(code string) string { return "room:" + code }
func participantsKey(code string) string { return "room:" + code + ":participants" }
func progressKey(code string) string { return "room:" + code + ":progress" }
func ownerRoomsKey(ownerID string) string {
	return "owner:" + ownerID + ":rooms"
}

func (s *RoomStore) Insert(ctx context.Context, room domain.Room) error {
	key := roomKey(room.ID)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrRoomCodeTaken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"owner", room.OwnerID,
				"status", string(room.Status),
				"active", room.IsActive,
				"createdAt", room.CreatedAt.UnixNano(),
			)
			pipe.ZAdd(ctx, ownerRoomsKey(room.OwnerID), redis.Z{Score: float64(room.CreatedAt.UnixNano()), Member: room.ID})
			s.touch(ctx, pipe, room.ID, room.OwnerID)
			return nil
		})
		return err
	}, key)
}

func (s *RoomStore) Get(ctx context.Context, code string) (domain.Room, error) {
	var (
		fields   *redis.MapStringStringCmd
		members  *redis.StringSliceCmd
		progress *redis.MapStringStringCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, roomKey(code))
		members = pipe.ZRange(ctx, participantsKey(code), 0, -1)
		progress = pipe.HGetAll(ctx, progressKey(code))
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	if len(fields.Val()) == 0 {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return decodeRoom(code, fields.Val(), members.Val(), progress.Val())
}

// AddParticipant is allowed on completed rooms.
func (s *RoomStore) AddParticipant(ctx context.Context, code, userID string, joinedAt time.Time) error {
	key := roomKey(code)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		owner, _, err := roomState(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAddNX(ctx, participantsKey(code), redis.Z{Score: float64(joinedAt.UnixNano()), Member: userID})
			s.touch(ctx, pipe, code, owner)
			return nil
		})
		return err
	}, key)
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

	key := roomKey(code)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		owner, err := requireOpen(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"questions", questionsJSON,
				"config", configJSON,
				"status", string(domain.RoomReady),
			)
			s.touch(ctx, pipe, code, owner)
			return nil
		})
		return err
	}, key)
}

func (s *RoomStore) UpsertProgress(ctx context.Context, code, userID string, progress domain.Progress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	key := roomKey(code)
	// Watching only the room hash lets reports from different students commit
	// in parallel while an End in between still aborts the write.
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		owner, err := requireOpen(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, progressKey(code), userID, payload)
			s.touch(ctx, pipe, code, owner)
			return nil
		})
		return err
	}, key)
}

func (s *RoomStore) End(ctx context.Context, code string, endedAt time.Time) error {
	key := roomKey(code)
	return s.withRetry(ctx, func(tx *redis.Tx) error {
		owner, _, err := roomState(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSetNX(ctx, key, "endedAt", endedAt.UnixNano())
			pipe.HSet(ctx, key, "status", string(domain.RoomCompleted), "active", false)
			s.touch(ctx, pipe, code, owner)
			return nil
		})
		return err
	}, key)
}

func (s *RoomStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Room, error) {
	codes, err := s.client.ZRevRange(ctx, ownerRoomsKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	rooms := make([]domain.Room, 0, len(codes))
	for _, code := range codes {
		room, err := s.Get(ctx, code)
		if errors.Is(err, domain.ErrRoomNotFound) {
			// expired room still indexed
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// roomState reads the owner and status of a watched room hash.
func roomState(ctx context.Context, tx *redis.Tx, key string) (string, domain.RoomStatus, error) {
	vals, err := tx.HMGet(ctx, key, "owner", "status").Result()
	if err != nil {
		return "", "", err
	}
	owner, _ := vals[0].(string)
	status, _ := vals[1].(string)
	if status == "" {
		return "", "", domain.ErrRoomNotFound
	}
	return owner, domain.RoomStatus(status), nil
}

// requireOpen returns the room owner unless the room is missing or completed.
func requireOpen(ctx context.Context, tx *redis.Tx, key string) (string, error) {
	owner, status, err := roomState(ctx, tx, key)
	if err != nil {
		return "", err
	}
	if status == domain.RoomCompleted {
		return "", domain.ErrRoomCompleted
	}
	return owner, nil
}

func (s *RoomStore) withRetry(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("room %v: too much contention: %w", keys, redis.TxFailedErr)
}

// touch restarts the TTL of every key of a room, and of its owner index, so
// that they expire together.
func (s *RoomStore) touch(ctx context.Context, pipe redis.Pipeliner, code, ownerID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, roomKey(code), s.ttl)
	pipe.Expire(ctx, participantsKey(code), s.ttl)
	pipe.Expire(ctx, progressKey(code), s.ttl)
	if ownerID != "" {
		pipe.Expire(ctx, ownerRoomsKey(ownerID), s.ttl)
	}
}

func decodeRoom(code string, fields map[string]string, participants []string, progress map[string]string) (domain.Room, error) {
	room := domain.Room{
		ID:              code,
		OwnerID:         fields["owner"],
		Status:          domain.RoomStatus(fields["status"]),
		Participants:    participants,
		StudentProgress: make(map[string]domain.Progress, len(progress)),
	}
	if room.Participants == nil {
		room.Participants = []string{}
	}
	room.IsActive, _ = strconv.ParseBool(fields["active"])

	created, err := strconv.ParseInt(fields["createdAt"], 10, 64)
	if err != nil {
		return domain.Room{}, fmt.Errorf("decode room %s: createdAt: %w", code, err)
	}
	room.CreatedAt = time.Unix(0, created).UTC()
	if v, ok := fields["endedAt"]; ok {
		ended, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s: endedAt: %w", code, err)
		}
		t := time.Unix(0, ended).UTC()
		room.EndedAt = &t
	}

	if v, ok := fields["config"]; ok {
		var cfg domain.RoomConfig
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s: config: %w", code, err)
		}
		room.Config = &cfg
	}
	if v, ok := fields["questions"]; ok {
		if err := json.Unmarshal([]byte(v), &room.Questions); err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s: questions: %w", code, err)
		}
	}
	for userID, raw := range progress {
		var p domain.Progress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return domain.Room{}, fmt.Errorf("decode room %s: progress of %s: %w", code, userID, err)
		}
		room.StudentProgress[userID] = p
	}
	return room, nil
}
