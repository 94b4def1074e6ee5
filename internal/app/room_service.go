package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/logging"
	"adaptive-quiz-service/internal/telemetry"
)

const (
	maxCodeAttempts      = 20
	defaultQuestionCount = 5
	roomReadTimeout      = 5 * time.Second
)

// RoomServiceConfig wires the room coordinator's collaborators.
type RoomServiceConfig struct {
	Rooms     RoomRepository
	Users     UserRepository
	Questions *QuestionSource
	Hub       *RoomHub
	// Events is optional; without it notifications stay in process.
	Events RoomEvents
	// NewCode and Now are overridable for tests.
	NewCode func() string
	Now     func() time.Time
}

// RoomService drives rooms through waiting -> ready -> completed and aggregates
// student progress. Completed is terminal.
type RoomService struct {
	rooms     RoomRepository
	users     UserRepository
	questions *QuestionSource
	hub       *RoomHub
	events    RoomEvents
	newCode   func() string
	now       func() time.Time
	sf        singleflight.Group
}

func NewRoomService(c RoomServiceConfig) *RoomService {
	s := &RoomService{
		rooms:     c.Rooms,
		users:     c.Users,
		questions: c.Questions,
		hub:       c.Hub,
		events:    c.Events,
		newCode:   c.NewCode,
		now:       c.Now,
	}
	if s.hub == nil {
		s.hub = NewRoomHub()
	}
	if s.newCode == nil {
		s.newCode = randomRoomCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func randomRoomCode() string {
	return domain.FormatRoomCode(rand.IntN(1_000_000))
}

// CreateRoom allocates a fresh 6 digit code for ownerID, retrying on collisions.
// Nothing is stored unless the insert succeeds.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID string) (domain.Room, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.Room{}, apperrors.InvalidArgument("owner id is required")
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		room := domain.NewRoom(s.newCode(), ownerID, s.now())
		err := s.rooms.Insert(ctx, room)
		if errors.Is(err, domain.ErrRoomCodeTaken) {
			logging.FromContext(ctx).WithField("attempt", attempt).Debug("room code collision, retrying")
			continue
		}
		if err != nil {
			return domain.Room{}, fmt.Errorf("create room: %w", storeErr(err))
		}
		telemetry.RoomsCreated.Inc()
		logging.FromContext(ctx).WithFields(logrus.Fields{"room": room.ID, "owner": ownerID}).Info("room created")
		return room, nil
	}
	return domain.Room{}, domain.ErrRoomCodesExhausted
}

// JoinRoom adds userID to the room's participants. Joining again is a no-op,
// and joining a completed room is allowed.
func (s *RoomService) JoinRoom(ctx context.Context, code, userID string) (domain.Room, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Room{}, apperrors.InvalidArgument("user id is required")
	}
	if err := s.rooms.AddParticipant(ctx, code, userID, s.now()); err != nil {
		return domain.Room{}, fmt.Errorf("join room %s: %w", code, storeErr(err))
	}
	return s.afterWrite(ctx, code)
}

// PushQuiz attaches questions and config and moves the room to ready. Pushing
// again overwrites the quiz and keeps student progress.
func (s *RoomService) PushQuiz(ctx context.Context, code string, questions []domain.Question, cfg domain.RoomConfig) (domain.Room, error) {
	if len(questions) == 0 {
		return domain.Room{}, apperrors.InvalidArgument("a quiz needs at least one question")
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return domain.Room{}, err
		}
	}
	if cfg.Difficulty != "" && !cfg.Difficulty.Valid() {
		return domain.Room{}, domain.ErrInvalidDifficulty
	}
	cfg.QuestionCount = len(questions)

	if err := s.rooms.SetQuiz(ctx, code, questions, cfg); err != nil {
		return domain.Room{}, fmt.Errorf("push quiz to room %s: %w", code, storeErr(err))
	}
	return s.afterWrite(ctx, code)
}

// GenerateQuiz produces questions for cfg, falling back to the static bank, and pushes them.
func (s *RoomService) GenerateQuiz(ctx context.Context, code string, cfg domain.RoomConfig) (domain.Room, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return domain.Room{}, err
	}
	if room.Status == domain.RoomCompleted {
		return domain.Room{}, domain.ErrRoomCompleted
	}
	if !cfg.Difficulty.Valid() {
		return domain.Room{}, domain.ErrInvalidDifficulty
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = defaultQuestionCount
	}

	questions, fallback := s.questions.Questions(ctx, cfg.Subject, cfg.Topic, cfg.Difficulty, cfg.QuestionCount)
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"room":       code,
		"difficulty": cfg.Difficulty,
		"count":      len(questions),
		"fallback":   fallback,
	}).Info("room quiz generated")
	return s.PushQuiz(ctx, code, questions, cfg)
}

// ReportProgress upserts one student's progress. Reports for an ended room are
// rejected as stale.
func (s *RoomService) ReportProgress(ctx context.Context, code, userID string, progress domain.Progress) (domain.Room, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Room{}, apperrors.InvalidArgument("user id is required")
	}
	if progress.CurrentQuestionIndex < 0 || progress.Score < 0 {
		return domain.Room{}, apperrors.InvalidArgument("progress index and score must not be negative")
	}
	progress.UpdatedAt = s.now()

	if err := s.rooms.UpsertProgress(ctx, code, userID, progress); err != nil {
		return domain.Room{}, fmt.Errorf("report progress to room %s: %w", code, storeErr(err))
	}
	telemetry.ProgressReports.Inc()
	return s.afterWrite(ctx, code)
}

// EndSession completes the room. Progress stays readable for the leaderboard.
func (s *RoomService) EndSession(ctx context.Context, code string) (domain.Room, error) {
	if err := s.rooms.End(ctx, code, s.now()); err != nil {
		return domain.Room{}, fmt.Errorf("end room %s: %w", code, storeErr(err))
	}
	logging.FromContext(ctx).WithField("room", code).Info("room session ended")
	return s.afterWrite(ctx, code)
}

// GetRoom returns the latest committed snapshot. Concurrent polls for the same
// code share one store read. The shared read is detached from any one caller's
// cancellation and bounded by roomReadTimeout instead.
func (s *RoomService) GetRoom(ctx context.Context, code string) (domain.Room, error) {
	ch := s.sf.DoChan(code, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), roomReadTimeout)
		defer cancel()
		return s.rooms.Get(readCtx, code)
	})
	select {
	case <-ctx.Done():
		return domain.Room{}, fmt.Errorf("get room %s: %w", code, storeErr(ctx.Err()))
	case res := <-ch:
		if res.Err != nil {
			return domain.Room{}, fmt.Errorf("get room %s: %w", code, storeErr(res.Err))
		}
		return res.Val.(domain.Room), nil
	}
}

// TeacherRoom is a room annotated with its participants' display names.
type TeacherRoom struct {
	domain.Room
	Roster []domain.Participant `json:"roster"`
}

// GetTeacherRooms lists every room owned by ownerID, most recent first.
func (s *RoomService) GetTeacherRooms(ctx context.Context, ownerID string) ([]TeacherRoom, error) {
	rooms, err := s.rooms.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list rooms of %s: %w", ownerID, storeErr(err))
	}

	names := make(map[string]string)
	out := make([]TeacherRoom, 0, len(rooms))
	for _, room := range rooms {
		roster := make([]domain.Participant, 0, len(room.Participants))
		for _, userID := range room.Participants {
			roster = append(roster, domain.Participant{ID: userID, Name: s.displayName(ctx, names, userID)})
		}
		out = append(out, TeacherRoom{Room: room, Roster: roster})
	}
	return out, nil
}

func (s *RoomService) displayName(ctx context.Context, cache map[string]string, userID string) string {
	if name, ok := cache[userID]; ok {
		return name
	}
	name := "Unknown"
	if s.users != nil {
		if u, err := s.users.Get(ctx, userID); err == nil && u.Name != "" {
			name = u.Name
		}
	}
	cache[userID] = name
	return name
}

// Leaderboard ranks the room's participants by score. It is computed on every call.
func (s *RoomService) Leaderboard(ctx context.Context, code string) (domain.Leaderboard, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.BuildLeaderboard(room, s.now()), nil
}

// Subscribe streams room snapshots after every change, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(ctx context.Context, code string) (<-chan domain.Room, func(), error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(code, room)
	return ch, cancel, nil
}

// Refresh re-reads a room and pushes it to local subscribers. It is the
// receiving end of RoomEvents.
func (s *RoomService) Refresh(ctx context.Context, code string) {
	if !s.hub.HasSubscribers(code) {
		return
	}
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("room", code).Warn("refresh room for subscribers")
		return
	}
	s.hub.Publish(room)
}

// afterWrite reads back the committed room and notifies subscribers.
func (s *RoomService) afterWrite(ctx context.Context, code string) (domain.Room, error) {
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return domain.Room{}, fmt.Errorf("read room %s: %w", code, storeErr(err))
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, code); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("room", code).Warn("publish room event")
			s.hub.Publish(room)
		}
	} else {
		s.hub.Publish(room)
	}
	return room, nil
}

// storeErr keeps coded errors and reports anything else as an unavailable store.
func storeErr(err error) error {
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return apperrors.UpstreamUnavailable(err)
}
