package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

type roomHandler struct {
	rooms *app.RoomService
}

type createRoomRequest struct {
	OwnerID string `json:"ownerId" binding:"required"`
}

type joinRoomRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type pushQuizRequest struct {
	Questions []domain.Question `json:"questions" binding:"required,min=1,dive"`
	Config    domain.RoomConfig `json:"config"`
}

type progressRequest struct {
	UserID               string  `json:"userId" binding:"required"`
	CurrentQuestionIndex int     `json:"currentQuestionIndex" binding:"gte=0"`
	Completed            bool    `json:"completed"`
	Score                float64 `json:"score" binding:"gte=0"`
}

func (h *roomHandler) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	room, err := h.rooms.CreateRoom(c.Request.Context(), req.OwnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *roomHandler) get(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) join(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	room, err := h.rooms.JoinRoom(c.Request.Context(), c.Param("code"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) pushQuiz(c *gin.Context) {
	var req pushQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	room, err := h.rooms.PushQuiz(c.Request.Context(), c.Param("code"), req.Questions, req.Config)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) generate(c *gin.Context) {
	var cfg domain.RoomConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		bindError(c, err)
		return
	}
	room, err := h.rooms.GenerateQuiz(c.Request.Context(), c.Param("code"), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) progress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	room, err := h.rooms.ReportProgress(c.Request.Context(), c.Param("code"), req.UserID, domain.Progress{
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		Completed:            req.Completed,
		Score:                req.Score,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) end(c *gin.Context) {
	room, err := h.rooms.EndSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandler) leaderboard(c *gin.Context) {
	lb, err := h.rooms.Leaderboard(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

func (h *roomHandler) teacherRooms(c *gin.Context) {
	rooms, err := h.rooms.GetTeacherRooms(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}
