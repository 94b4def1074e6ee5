package domain

import "time"

// User is an entry of the user directory. The quiz core only reads ID and LastDifficulty.
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	LastDifficulty Difficulty `json:"lastDifficulty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// SessionSummary is the persisted, append-only record of a finished solo session.
type SessionSummary struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Subject        string     `json:"subject"`
	Chapter        string     `json:"chapter,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    time.Time  `json:"completedAt"`
}

func (s SessionSummary) ScorePercent() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.Score) * 100 / float64(s.TotalQuestions)
}

// Summarize freezes a finalized session into its history record.
func (s *QuizSession) Summarize() SessionSummary {
	summary := SessionSummary{
		ID:             s.ID,
		UserID:         s.UserID,
		Subject:        s.Subject,
		Chapter:        s.Chapter,
		Difficulty:     s.Difficulty,
		Score:          s.Score,
		TotalQuestions: len(s.Questions),
		CreatedAt:      s.CreatedAt,
	}
	if s.CompletedAt != nil {
		summary.CompletedAt = *s.CompletedAt
	}
	return summary
}

// Dashboard aggregates a user's solo history.
type Dashboard struct {
	TotalQuizzes        int              `json:"totalQuizzes"`
	AverageScorePercent float64          `json:"averageScorePercent"`
	Subjects            []string         `json:"subjects"`
	Recent              []SessionSummary `json:"recent"`
	SuggestedDifficulty Difficulty       `json:"suggestedDifficulty"`
}
