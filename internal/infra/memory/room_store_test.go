package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func TestRoomStoreInsertRejectsTakenCode(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Insert(ctx, domain.NewRoom("000042", "t1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := store.Insert(ctx, domain.NewRoom("000042", "t2", now))
	if !errors.Is(err, domain.ErrRoomCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}

	room, err := store.Get(ctx, "000042")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.OwnerID != "t1" {
		t.Fatalf("first insert must win, owner %q", room.OwnerID)
	}
}

func TestRoomStoreConcurrentProgressKeepsEveryUser(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	if err := store.Insert(ctx, domain.NewRoom("123456", "t1", time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("s%d", i)
			if err := store.UpsertProgress(ctx, "123456", user, domain.Progress{Score: float64(i)}); err != nil {
				t.Errorf("upsert %s: %v", user, err)
			}
		}(i)
	}
	wg.Wait()

	room, err := store.Get(ctx, "123456")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(room.StudentProgress) != 50 {
		t.Fatalf("expected 50 progress entries, got %d", len(room.StudentProgress))
	}
}

func TestRoomStoreCompletedRoomRejectsWrites(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	ended := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Insert(ctx, domain.NewRoom("000001", "t1", ended.Add(-time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.End(ctx, "000001", ended); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := store.End(ctx, "000001", ended.Add(time.Minute)); err != nil {
		t.Fatalf("end again: %v", err)
	}

	room, _ := store.Get(ctx, "000001")
	if room.Status != domain.RoomCompleted || room.IsActive {
		t.Fatalf("unexpected room state %+v", room)
	}
	if room.EndedAt == nil || !room.EndedAt.Equal(ended) {
		t.Fatalf("ended at must be set once, got %v", room.EndedAt)
	}

	if err := store.UpsertProgress(ctx, "000001", "s1", domain.Progress{}); !errors.Is(err, domain.ErrRoomCompleted) {
		t.Fatalf("expected room completed, got %v", err)
	}
	if err := store.SetQuiz(ctx, "000001", nil, domain.RoomConfig{}); !errors.Is(err, domain.ErrRoomCompleted) {
		t.Fatalf("expected room completed, got %v", err)
	}
	if err := store.AddParticipant(ctx, "000001", "s1", ended); err != nil {
		t.Fatalf("join completed room: %v", err)
	}
}

func TestRoomStoreListByOwnerNewestFirst(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, code := range []string{"000001", "000002", "000003"} {
		if err := store.Insert(ctx, domain.NewRoom(code, "t1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %s: %v", code, err)
		}
	}
	if err := store.Insert(ctx, domain.NewRoom("000009", "t2", base)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rooms, err := store.ListByOwner(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != "000003" || rooms[2].ID != "000001" {
		t.Fatalf("unexpected order %s %s %s", rooms[0].ID, rooms[1].ID, rooms[2].ID)
	}
}

func TestRoomStoreReturnsCopies(t *testing.T) {
	store := NewRoomStore()
	ctx := context.Background()
	_ = store.Insert(ctx, domain.NewRoom("000007", "t1", time.Now()))
	_ = store.AddParticipant(ctx, "000007", "s1", time.Now())

	room, _ := store.Get(ctx, "000007")
	room.Participants[0] = "mutated"

	again, _ := store.Get(ctx, "000007")
	if again.Participants[0] != "s1" {
		t.Fatalf("store leaked internal slice")
	}
}
