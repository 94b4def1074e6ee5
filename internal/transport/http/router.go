package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adaptive-quiz-service/internal/app"
)

// Config wires the use cases served over HTTP.
type Config struct {
	Rooms   *app.RoomService
	Quizzes *app.QuizService
	Users   *app.UserService
	// CORSOrigins lists browser origins allowed to call the API; empty allows all.
	CORSOrigins []string
	// Profiling mounts /debug/pprof.
	Profiling bool
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(c Config) *gin.Engine {
	registerValidators()

	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(), requestMetrics())
	e.Use(cors.New(corsConfig(c.CORSOrigins)))

	e.GET("/healthz", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if c.Profiling {
		pprof.Register(e, "/debug/pprof")
	}

	users := &userHandler{users: c.Users, quizzes: c.Quizzes}
	quizzes := &quizHandler{quizzes: c.Quizzes}
	rooms := &roomHandler{rooms: c.Rooms}
	ws := NewWSHandler(c.Rooms)

	api := e.Group("/api")
	{
		api.POST("/auth/signup", users.signup)
		api.POST("/auth/login", users.login)

		api.GET("/users/:id", users.get)
		api.GET("/users/:id/sessions", users.sessions)
		api.GET("/users/:id/dashboard", users.dashboard)
		api.GET("/users/:id/suggested-difficulty", users.suggestedDifficulty)

		api.GET("/difficulty/suggest", suggestDifficulty)

		api.POST("/quizzes", quizzes.start)
		api.GET("/quizzes/:id", quizzes.get)
		api.POST("/quizzes/:id/answers", quizzes.answer)

		api.POST("/rooms", rooms.create)
		api.GET("/rooms/:code", rooms.get)
		api.POST("/rooms/:code/join", rooms.join)
		api.PUT("/rooms/:code/quiz", rooms.pushQuiz)
		api.POST("/rooms/:code/generate", rooms.generate)
		api.PUT("/rooms/:code/progress", rooms.progress)
		api.PUT("/rooms/:code/end", rooms.end)
		api.GET("/rooms/:code/leaderboard", rooms.leaderboard)

		api.GET("/teachers/:teacherId/rooms", rooms.teacherRooms)
	}

	e.GET("/ws/rooms/:code", ws.ServeWS)
	return e
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Request-ID")
	return cfg
}
