package domain

import (
	"fmt"
	"sort"
	"time"
)

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomReady     RoomStatus = "ready"
	RoomCompleted RoomStatus = "completed"
)

// RoomConfig describes the quiz pushed into a room.
type RoomConfig struct {
	Subject         string     `json:"subject" binding:"required"`
	Topic           string     `json:"topic"`
	Difficulty      Difficulty `json:"difficulty" binding:"required,difficulty"`
	QuestionCount   int        `json:"questionCount" binding:"omitempty,gte=1,lte=50"`
	DurationSeconds int        `json:"durationSeconds" binding:"gte=0"`
}

// Progress is one student's live position inside a room.
type Progress struct {
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Completed            bool      `json:"completed"`
	Score                float64   `json:"score"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Room is the shared state of one teacher-led session, addressed by a 6 digit code.
// Participants keep join order.
type Room struct {
	ID              string              `json:"id"`
	OwnerID         string              `json:"ownerId"`
	Status          RoomStatus          `json:"status"`
	IsActive        bool                `json:"isActive"`
	Participants    []string            `json:"participants"`
	Config          *RoomConfig         `json:"config,omitempty"`
	Questions       []Question          `json:"questions,omitempty"`
	StudentProgress map[string]Progress `json:"studentProgress"`
	CreatedAt       time.Time           `json:"createdAt"`
	EndedAt         *time.Time          `json:"endedAt,omitempty"`
}

func NewRoom(code, ownerID string, now time.Time) Room {
	return Room{
		ID:              code,
		OwnerID:         ownerID,
		Status:          RoomWaiting,
		IsActive:        true,
		Participants:    []string{},
		StudentProgress: map[string]Progress{},
		CreatedAt:       now,
	}
}

// FormatRoomCode renders n as a zero padded 6 digit code.
func FormatRoomCode(n int) string {
	return fmt.Sprintf("%06d", n)
}

func (r Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Participant pairs a user id with the display name resolved from the user directory.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant's progress.
type LeaderboardEntry struct {
	UserID               string  `json:"userId"`
	Score                float64 `json:"score"`
	CurrentQuestionIndex int     `json:"currentQuestionIndex"`
	Completed            bool    `json:"completed"`
}

// Leaderboard captures the ordered scoreboard for a room.
type Leaderboard struct {
	RoomID    string             `json:"roomId"`
	Status    RoomStatus         `json:"status"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// BuildLeaderboard ranks every participant by score, highest first. Participants
// without progress score zero, and ties keep join order.
func BuildLeaderboard(room Room, now time.Time) Leaderboard {
	entries := make([]LeaderboardEntry, 0, len(room.Participants))
	seen := make(map[string]struct{}, len(room.Participants))
	for _, userID := range room.Participants {
		seen[userID] = struct{}{}
		entries = append(entries, entryFor(userID, room.StudentProgress[userID]))
	}
	// Progress reported without a join still ranks, after the joined students.
	extra := make([]string, 0)
	for userID := range room.StudentProgress {
		if _, ok := seen[userID]; !ok {
			extra = append(extra, userID)
		}
	}
	sort.Strings(extra)
	for _, userID := range extra {
		entries = append(entries, entryFor(userID, room.StudentProgress[userID]))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return Leaderboard{
		RoomID:    room.ID,
		Status:    room.Status,
		Entries:   entries,
		UpdatedAt: now,
	}
}

func entryFor(userID string, p Progress) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:               userID,
		Score:                p.Score,
		CurrentQuestionIndex: p.CurrentQuestionIndex,
		Completed:            p.Completed,
	}
}
