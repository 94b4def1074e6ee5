package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	apperrors "adaptive-quiz-service/internal/errors"
)

type userHandler struct {
	users   *app.UserService
	quizzes *app.QuizService
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type difficultyResponse struct {
	Difficulty domain.Difficulty `json:"difficulty"`
}

func (h *userHandler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.users.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *userHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *userHandler) get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *userHandler) sessions(c *gin.Context) {
	sessions, err := h.quizzes.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *userHandler) dashboard(c *gin.Context) {
	d, err := h.quizzes.Dashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *userHandler) suggestedDifficulty(c *gin.Context) {
	d, err := h.quizzes.SuggestedDifficulty(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, difficultyResponse{Difficulty: d})
}

// suggestDifficulty exposes the advisor directly: ?lastScore=<0..100>&current=<level>.
// A missing lastScore means no prior attempt.
func suggestDifficulty(c *gin.Context) {
	current := domain.DifficultyEasy
	if raw := c.Query("current"); raw != "" {
		d, err := domain.ParseDifficulty(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		current = d
	}

	var last *float64
	if raw := c.Query("lastScore"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			writeError(c, apperrors.InvalidArgument("lastScore must be a number between 0 and 100"))
			return
		}
		last = &v
	}
	c.JSON(http.StatusOK, difficultyResponse{Difficulty: domain.SuggestDifficulty(last, current)})
}
