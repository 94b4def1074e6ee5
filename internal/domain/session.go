package domain

import (
	"fmt"
	"time"
)

// QuizSession is one user's solo attempt at a fixed list of questions.
type QuizSession struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Subject     string         `json:"subject"`
	Chapter     string         `json:"chapter,omitempty"`
	Difficulty  Difficulty     `json:"difficulty"`
	Questions   []Question     `json:"questions"`
	Responses   map[int]Answer `json:"responses"`
	Score       int            `json:"score"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

func NewQuizSession(id, userID, subject, chapter string, difficulty Difficulty, questions []Question, now time.Time) *QuizSession {
	return &QuizSession{
		ID:         id,
		UserID:     userID,
		Subject:    subject,
		Chapter:    chapter,
		Difficulty: difficulty,
		Questions:  questions,
		Responses:  make(map[int]Answer, len(questions)),
		CreatedAt:  now,
	}
}

func (s *QuizSession) Completed() bool {
	return s.CompletedAt != nil
}

// RecordResponse stores the answer for index and scores it. Answering the last
// question finalizes the session, which requires every other index to hold an answer.
// A rejected call leaves the session untouched.
func (s *QuizSession) RecordResponse(index int, answer Answer, now time.Time) (bool, error) {
	if s.Completed() {
		return false, ErrSessionCompleted
	}
	if index < 0 || index >= len(s.Questions) {
		return false, fmt.Errorf("index %d of %d: %w", index, len(s.Questions), ErrQuestionIndexOutOfRange)
	}
	if prev, ok := s.Responses[index]; ok && prev.IsSet() {
		return false, fmt.Errorf("index %d: %w", index, ErrAlreadyAnswered)
	}

	last := index == len(s.Questions)-1
	if last {
		if !answer.IsSet() {
			return false, ErrIncompleteSession
		}
		for i := 0; i < index; i++ {
			if r, ok := s.Responses[i]; !ok || !r.IsSet() {
				return false, fmt.Errorf("index %d unanswered: %w", i, ErrIncompleteSession)
			}
		}
	}

	if s.Responses == nil {
		s.Responses = make(map[int]Answer, len(s.Questions))
	}
	s.Responses[index] = answer

	correct := answer.IsSet() && s.Questions[index].IsCorrect(answer)
	if correct {
		s.Score++
	}
	if last {
		completed := now
		s.CompletedAt = &completed
	}
	return correct, nil
}

// ScorePercent is the share of correct answers in 0..100.
func (s *QuizSession) ScorePercent() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(s.Score) * 100 / float64(len(s.Questions))
}
