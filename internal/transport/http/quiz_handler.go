package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

type quizHandler struct {
	quizzes *app.QuizService
}

type startQuizRequest struct {
	UserID     string            `json:"userId" binding:"required"`
	Subject    string            `json:"subject" binding:"required"`
	Chapter    string            `json:"chapter"`
	Difficulty domain.Difficulty `json:"difficulty" binding:"omitempty,difficulty"`
	Count      int               `json:"count" binding:"gte=0,lte=50"`
}

type answerRequest struct {
	Index  *int          `json:"index" binding:"required,gte=0"`
	Answer domain.Answer `json:"answer"`
}

func (h *quizHandler) start(c *gin.Context) {
	var req startQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	session, err := h.quizzes.StartQuiz(c.Request.Context(), app.StartQuizRequest{
		UserID:     req.UserID,
		Subject:    req.Subject,
		Chapter:    req.Chapter,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *quizHandler) get(c *gin.Context) {
	session, err := h.quizzes.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *quizHandler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.quizzes.Answer(c.Request.Context(), c.Param("id"), *req.Index, req.Answer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
