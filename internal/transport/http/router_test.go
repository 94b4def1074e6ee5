package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
	"adaptive-quiz-service/internal/infra/memory"
	"adaptive-quiz-service/internal/questionbank"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	questions := app.NewQuestionSource(nil, questionbank.Default())
	users := memory.NewUserStore()

	return NewRouter(Config{
		Rooms: app.NewRoomService(app.RoomServiceConfig{
			Rooms:     memory.NewRoomStore(),
			Users:     users,
			Questions: questions,
		}),
		Quizzes: app.NewQuizService(app.QuizServiceConfig{
			Active:    memory.NewSessionStore(0),
			History:   memory.NewHistoryStore(),
			Users:     users,
			Questions: questions,
		}),
		Users: app.NewUserService(users),
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/rooms", map[string]any{"ownerId": "teacher-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[domain.Room](t, rec)
	require.Len(t, room.ID, 6)
	assert.Equal(t, domain.RoomWaiting, room.Status)

	base := "/api/rooms/" + room.ID
	rec = doJSON(t, r, http.MethodPost, base+"/join", map[string]any{"userId": "s1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, r, http.MethodPost, base+"/join", map[string]any{"userId": "s2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, base+"/generate", map[string]any{
		"subject": "Science", "difficulty": "medium", "questionCount": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	room = decode[domain.Room](t, rec)
	assert.Equal(t, domain.RoomReady, room.Status)
	assert.Len(t, room.Questions, 3)

	rec = doJSON(t, r, http.MethodPut, base+"/progress", map[string]any{"userId": "s2", "currentQuestionIndex": 3, "completed": true, "score": 90})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, r, http.MethodPut, base+"/progress", map[string]any{"userId": "s1", "currentQuestionIndex": 1, "score": 40})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, base+"/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decode[domain.Leaderboard](t, rec)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "s2", lb.Entries[0].UserID)
	assert.Equal(t, "s1", lb.Entries[1].UserID)

	rec = doJSON(t, r, http.MethodPut, base+"/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RoomCompleted, decode[domain.Room](t, rec).Status)

	rec = doJSON(t, r, http.MethodPut, base+"/progress", map[string]any{"userId": "s1", "currentQuestionIndex": 2, "score": 60})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidState, decode[errorResponse](t, rec).Code)

	rec = doJSON(t, r, http.MethodGet, "/api/teachers/teacher-1/rooms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rooms := decode[[]app.TeacherRoom](t, rec)
	require.Len(t, rooms, 1)
	assert.Equal(t, []domain.Participant{{ID: "s1", Name: "Unknown"}, {ID: "s2", Name: "Unknown"}}, rooms[0].Roster)
}

func TestRoomErrors(t *testing.T) {
	r := newTestRouter(t)

	tests := map[string]struct {
		method string
		path   string
		body   any
		status int
	}{
		"unknown room": {
			method: http.MethodGet, path: "/api/rooms/000000", status: http.StatusNotFound,
		},
		"missing owner": {
			method: http.MethodPost, path: "/api/rooms", body: map[string]any{}, status: http.StatusBadRequest,
		},
		"bad difficulty on generate": {
			method: http.MethodPost, path: "/api/rooms/000000/generate",
			body:   map[string]any{"subject": "Science", "difficulty": "extreme"},
			status: http.StatusBadRequest,
		},
		"push without questions": {
			method: http.MethodPut, path: "/api/rooms/000000/quiz",
			body:   map[string]any{"questions": []any{}, "config": map[string]any{"subject": "Science", "difficulty": "easy"}},
			status: http.StatusBadRequest,
		},
		"push with unknown question type": {
			method: http.MethodPut, path: "/api/rooms/000000/quiz",
			body: map[string]any{
				"questions": []any{map[string]any{"id": "q1", "type": "essay", "text": "Why?"}},
				"config":    map[string]any{"subject": "Science", "difficulty": "easy"},
			},
			status: http.StatusBadRequest,
		},
		"negative progress": {
			method: http.MethodPut, path: "/api/rooms/000000/progress",
			body:   map[string]any{"userId": "s1", "score": -1},
			status: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSoloQuizOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/signup", map[string]any{"name": "Ada", "email": "Ada@Example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[domain.User](t, rec)
	assert.Equal(t, domain.DifficultyEasy, user.LastDifficulty)
	assert.NotContains(t, rec.Body.String(), "secret1")

	rec = doJSON(t, r, http.MethodPost, "/api/auth/signup", map[string]any{"name": "Ada", "email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]any{"email": "ada@example.com", "password": "wrong!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/quizzes", map[string]any{"userId": user.ID, "subject": "Mathematics", "count": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[domain.QuizSession](t, rec)
	require.Len(t, session.Questions, 2)
	assert.Equal(t, domain.DifficultyEasy, session.Difficulty)

	// answer every question correctly
	var last app.AnswerResult
	for i, q := range session.Questions {
		var answer any = q.CorrectAnswerText
		if q.CorrectAnswerIndex != nil {
			answer = *q.CorrectAnswerIndex
		}
		rec = doJSON(t, r, http.MethodPost, "/api/quizzes/"+session.ID+"/answers", map[string]any{"index": i, "answer": answer})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[app.AnswerResult](t, rec)
		assert.True(t, last.Correct)
	}
	require.True(t, last.Completed)
	assert.Equal(t, domain.DifficultyMedium, last.NextDifficulty)

	rec = doJSON(t, r, http.MethodPost, "/api/quizzes/"+session.ID+"/answers", map[string]any{"index": 0, "answer": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/users/"+user.ID+"/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[domain.Dashboard](t, rec)
	assert.Equal(t, 1, dash.TotalQuizzes)
	assert.Equal(t, float64(100), dash.AverageScorePercent)
	assert.Equal(t, []string{"Mathematics"}, dash.Subjects)
	assert.Equal(t, domain.DifficultyMedium, dash.SuggestedDifficulty)

	rec = doJSON(t, r, http.MethodGet, "/api/users/"+user.ID+"/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.SessionSummary](t, rec), 1)
}

func TestSuggestDifficultyEndpoint(t *testing.T) {
	r := newTestRouter(t)

	tests := map[string]struct {
		query  string
		status int
		want   domain.Difficulty
	}{
		"no prior attempt":    {query: "?current=medium", status: http.StatusOK, want: domain.DifficultyMedium},
		"high score steps up": {query: "?lastScore=80&current=medium", status: http.StatusOK, want: domain.DifficultyHard},
		"low score steps down": {
			query: "?lastScore=39.9&current=medium", status: http.StatusOK, want: domain.DifficultyEasy,
		},
		"saturates at hard":  {query: "?lastScore=100&current=HARD", status: http.StatusOK, want: domain.DifficultyHard},
		"unknown difficulty": {query: "?lastScore=50&current=expert", status: http.StatusBadRequest},
		"score not a number": {query: "?lastScore=abc&current=easy", status: http.StatusBadRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodGet, "/api/difficulty/suggest"+tt.query, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.want, decode[difficultyResponse](t, rec).Difficulty)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quiz_http_request_duration_seconds")
}
