package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
	"adaptive-quiz-service/internal/telemetry"
)

const (
	dashboardSubjects = 3
	dashboardRecent   = 5
)

type QuizServiceConfig struct {
	Active    ActiveSessionRepository
	History   HistoryRepository
	Users     UserRepository
	Questions *QuestionSource
	// DefaultCount is used when a start request has no count; MaxCount caps it.
	DefaultCount int
	MaxCount     int
	Now          func() time.Time
	NewID        func() string
}

// QuizService contains the solo quiz use cases.
type QuizService struct {
	active       ActiveSessionRepository
	history      HistoryRepository
	users        UserRepository
	questions    *QuestionSource
	defaultCount int
	maxCount     int
	now          func() time.Time
	newID        func() string
	locks        sessionLocks
}

func NewQuizService(c QuizServiceConfig) *QuizService {
	s := &QuizService{
		active:       c.Active,
		history:      c.History,
		users:        c.Users,
		questions:    c.Questions,
		defaultCount: c.DefaultCount,
		maxCount:     c.MaxCount,
		now:          c.Now,
		newID:        c.NewID,
	}
	if s.defaultCount <= 0 {
		s.defaultCount = defaultQuestionCount
	}
	if s.maxCount <= 0 {
		s.maxCount = 20
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

type StartQuizRequest struct {
	UserID  string
	Subject string
	Chapter string
	// Difficulty is optional; when empty the user's suggested difficulty is used.
	Difficulty domain.Difficulty
	Count      int
}

// StartQuiz creates an active session with generated questions, or bank
// questions when generation fails.
func (s *QuizService) StartQuiz(ctx context.Context, req StartQuizRequest) (*domain.QuizSession, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, apperrors.InvalidArgument("user id and subject are required")
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		d, err := s.SuggestedDifficulty(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		difficulty = d
	}
	if !difficulty.Valid() {
		return nil, domain.ErrInvalidDifficulty
	}

	count := req.Count
	if count <= 0 {
		count = s.defaultCount
	}
	if count > s.maxCount {
		count = s.maxCount
	}

	questions, fallback := s.questions.Questions(ctx, req.Subject, req.Chapter, difficulty, count)
	session := domain.NewQuizSession(s.newID(), req.UserID, req.Subject, req.Chapter, difficulty, questions, s.now())
	if err := s.active.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("start quiz: %w", storeErr(err))
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"session":    session.ID,
		"user":       req.UserID,
		"difficulty": difficulty,
		"fallback":   fallback,
	}).Info("quiz started")
	return session, nil
}

func (s *QuizService) GetSession(ctx context.Context, id string) (*domain.QuizSession, error) {
	session, err := s.active.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, storeErr(err))
	}
	return session, nil
}

// AnswerResult summarizes the outcome of one recorded response.
type AnswerResult struct {
	QuestionID  string `json:"questionId"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
	Score       int    `json:"score"`
	Completed   bool   `json:"completed"`

	// Summary and NextDifficulty are set once the session is finalized.
	Summary        *domain.SessionSummary `json:"summary,omitempty"`
	NextDifficulty domain.Difficulty      `json:"nextDifficulty,omitempty"`
}

// Answer records a response. The final answer persists the session to history,
// updates the user's difficulty and retires the active session.
func (s *QuizService) Answer(ctx context.Context, sessionID string, index int, answer domain.Answer) (AnswerResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.active.Get(ctx, sessionID)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer session %s: %w", sessionID, storeErr(err))
	}

	correct, err := session.RecordResponse(index, answer, s.now())
	if err != nil {
		return AnswerResult{}, err
	}

	q := session.Questions[index]
	result := AnswerResult{
		QuestionID:  q.ID,
		Correct:     correct,
		Explanation: q.Explanation,
		Score:       session.Score,
		Completed:   session.Completed(),
	}

	if !session.Completed() {
		if err := s.active.Save(ctx, session); err != nil {
			return AnswerResult{}, fmt.Errorf("save session %s: %w", sessionID, storeErr(err))
		}
		return result, nil
	}

	summary, next, err := s.finalize(ctx, session)
	if err != nil {
		return AnswerResult{}, err
	}
	result.Summary = &summary
	result.NextDifficulty = next
	return result, nil
}

func (s *QuizService) finalize(ctx context.Context, session *domain.QuizSession) (domain.SessionSummary, domain.Difficulty, error) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"session": session.ID, "user": session.UserID})

	summary := session.Summarize()
	if err := s.history.Append(ctx, summary); err != nil {
		return domain.SessionSummary{}, "", fmt.Errorf("persist session %s: %w", session.ID, storeErr(err))
	}

	percent := summary.ScorePercent()
	next := domain.SuggestDifficulty(&percent, session.Difficulty)
	if s.users != nil {
		err := s.users.SetLastDifficulty(ctx, session.UserID, next)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			log.Debug("session owner not in user directory, difficulty not stored")
		case err != nil:
			log.WithError(err).Warn("store next difficulty")
		}
	}

	if err := s.active.Delete(ctx, session.ID); err != nil {
		log.WithError(err).Warn("remove finished session")
	}

	telemetry.SessionsCompleted.WithLabelValues(string(session.Difficulty)).Inc()
	log.WithFields(logrus.Fields{"score": summary.Score, "total": summary.TotalQuestions, "next": next}).Info("quiz completed")
	return summary, next, nil
}

// History lists a user's finished sessions, most recent first.
func (s *QuizService) History(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	sessions, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", userID, storeErr(err))
	}
	return sessions, nil
}

// Dashboard aggregates totals, the rounded average percentage, the first
// distinct subjects and the most recent sessions.
func (s *QuizService) Dashboard(ctx context.Context, userID string) (domain.Dashboard, error) {
	sessions, err := s.History(ctx, userID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	d := domain.Dashboard{
		TotalQuizzes: len(sessions),
		Subjects:     []string{},
		Recent:       sessions[:min(dashboardRecent, len(sessions))],
	}

	seen := map[string]struct{}{}
	var sum float64
	for _, session := range sessions {
		sum += session.ScorePercent()
		if _, ok := seen[session.Subject]; !ok && len(d.Subjects) < dashboardSubjects {
			seen[session.Subject] = struct{}{}
			d.Subjects = append(d.Subjects, session.Subject)
		}
	}
	if len(sessions) > 0 {
		d.AverageScorePercent = math.Round(sum / float64(len(sessions)))
	}

	d.SuggestedDifficulty, err = s.suggestFrom(ctx, userID, sessions)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return d, nil
}

// SuggestedDifficulty is the level the user's next quiz should start at.
func (s *QuizService) SuggestedDifficulty(ctx context.Context, userID string) (domain.Difficulty, error) {
	sessions, err := s.History(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.suggestFrom(ctx, userID, sessions)
}

// suggestFrom prefers the difficulty stored on the user, then the latest
// session, then easy.
func (s *QuizService) suggestFrom(ctx context.Context, userID string, sessions []domain.SessionSummary) (domain.Difficulty, error) {
	if s.users != nil {
		user, err := s.users.Get(ctx, userID)
		switch {
		case err == nil && user.LastDifficulty.Valid():
			return user.LastDifficulty, nil
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return "", fmt.Errorf("suggest difficulty for %s: %w", userID, storeErr(err))
		}
	}
	if len(sessions) == 0 {
		return domain.DifficultyEasy, nil
	}
	latest := sessions[0]
	percent := latest.ScorePercent()
	return domain.SuggestDifficulty(&percent, latest.Difficulty), nil
}

// sessionLocks serializes answers to the same session within this process.
type sessionLocks struct {
	stripes [64]sync.Mutex
}

func (l *sessionLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
