package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
// A single mutex makes every operation atomic per room.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*storedRoom
	seq   int64
}

type storedRoom struct {
	room domain.Room
	seq  int64
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*storedRoom),
	}
}

func (s *RoomStore) Insert(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return domain.ErrRoomCodeTaken
	}
	s.seq++
	s.rooms[room.ID] = &storedRoom{room: cloneRoom(room), seq: s.seq}
	return nil
}

func (s *RoomStore) Get(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.rooms[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return cloneRoom(stored.room), nil
}

func (s *RoomStore) AddParticipant(_ context.Context, code, userID string, _ time.Time) error {
	return s.update(code, func(room *domain.Room) error {
		if !room.HasParticipant(userID) {
			room.Participants = append(room.Participants, userID)
		}
		return nil
	})
}

func (s *RoomStore) SetQuiz(_ context.Context, code string, questions []domain.Question, cfg domain.RoomConfig) error {
	return s.update(code, func(room *domain.Room) error {
		if room.Status == domain.RoomCompleted {
			return domain.ErrRoomCompleted
		}
		room.Questions = cloneQuestions(questions)
		room.Config = &cfg
		room.Status = domain.RoomReady
		return nil
	})
}

func (s *RoomStore) UpsertProgress(_ context.Context, code, userID string, progress domain.Progress) error {
	return s.update(code, func(room *domain.Room) error {
		if room.Status == domain.RoomCompleted {
			return domain.ErrRoomCompleted
		}
		if room.StudentProgress == nil {
			room.StudentProgress = make(map[string]domain.Progress)
		}
		room.StudentProgress[userID] = progress
		return nil
	})
}

func (s *RoomStore) End(_ context.Context, code string, endedAt time.Time) error {
	return s.update(code, func(room *domain.Room) error {
		if room.EndedAt == nil {
			room.EndedAt = &endedAt
		}
		room.IsActive = false
		room.Status = domain.RoomCompleted
		return nil
	})
}

func (s *RoomStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]*storedRoom, 0)
	for _, stored := range s.rooms {
		if stored.room.OwnerID == ownerID {
			owned = append(owned, stored)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].room.CreatedAt.Equal(owned[j].room.CreatedAt) {
			return owned[i].room.CreatedAt.After(owned[j].room.CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})

	out := make([]domain.Room, 0, len(owned))
	for _, stored := range owned {
		out = append(out, cloneRoom(stored.room))
	}
	return out, nil
}

func (s *RoomStore) update(code string, fn func(*domain.Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[code]
	if !ok {
		return domain.ErrRoomNotFound
	}
	return fn(&stored.room)
}

func cloneRoom(r domain.Room) domain.Room {
	c := r
	c.Participants = append([]string{}, r.Participants...)
	c.Questions = cloneQuestions(r.Questions)
	c.StudentProgress = make(map[string]domain.Progress, len(r.StudentProgress))
	for k, v := range r.StudentProgress {
		c.StudentProgress[k] = v
	}
	if r.Config != nil {
		cfg := *r.Config
		c.Config = &cfg
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return c
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	if qs == nil {
		return nil
	}
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = q
		if q.Options != nil {
			out[i].Options = append([]string(nil), q.Options...)
		}
		if q.CorrectAnswerIndex != nil {
			idx := *q.CorrectAnswerIndex
			out[i].CorrectAnswerIndex = &idx
		}
	}
	return out
}
