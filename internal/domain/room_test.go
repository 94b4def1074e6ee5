package domain

import (
	"testing"
	"time"
)

func TestBuildLeaderboardRanksByScoreStably(t *testing.T) {
	now := time.Now()
	room := NewRoom("004217", "teacher-1", now)
	room.Participants = []string{"ana", "ben", "cai", "dev"}
	room.StudentProgress = map[string]Progress{
		"ana": {CurrentQuestionIndex: 3, Score: 2},
		"ben": {CurrentQuestionIndex: 5, Score: 4, Completed: true},
		"dev": {CurrentQuestionIndex: 2, Score: 2},
	}

	lb := BuildLeaderboard(room, now)

	want := []string{"ben", "ana", "dev", "cai"}
	if len(lb.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), lb.Entries)
	}
	for i, userID := range want {
		if lb.Entries[i].UserID != userID {
			t.Fatalf("position %d: expected %s, got %s (%+v)", i, userID, lb.Entries[i].UserID, lb.Entries)
		}
	}
	if lb.Entries[3].Score != 0 {
		t.Fatalf("participant without progress must score zero")
	}
	if !lb.Entries[0].Completed {
		t.Fatalf("expected completion carried into the entry")
	}
}

func TestBuildLeaderboardIncludesProgressWithoutJoin(t *testing.T) {
	room := NewRoom("123456", "teacher-1", time.Now())
	room.Participants = []string{"ana"}
	room.StudentProgress = map[string]Progress{
		"zed": {Score: 1},
	}

	lb := BuildLeaderboard(room, time.Now())
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "zed" {
		t.Fatalf("expected zed ranked first, got %+v", lb.Entries)
	}
}

func TestFormatRoomCodePadsToSixDigits(t *testing.T) {
	if got := FormatRoomCode(42); got != "000042" {
		t.Fatalf("expected 000042, got %s", got)
	}
	if got := FormatRoomCode(999999); got != "999999" {
		t.Fatalf("expected 999999, got %s", got)
	}
}
