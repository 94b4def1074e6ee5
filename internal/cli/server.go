package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/generator"
	"adaptive-quiz-service/internal/infra/memory"
	pgstore "adaptive-quiz-service/internal/infra/postgres"
	redisstore "adaptive-quiz-service/internal/infra/redis"
	"adaptive-quiz-service/internal/logging"
	"adaptive-quiz-service/internal/questionbank"
	"adaptive-quiz-service/internal/telemetry"
	transport "adaptive-quiz-service/internal/transport/http"
)

const userCacheTTL = 30 * time.Second

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores is the set of repositories chosen for this process. users is the
// shared directory; names caches it per process and only serves roster names,
// so difficulty reads never see another instance's stale entry.
type stores struct {
	rooms   app.RoomRepository
	active  app.ActiveSessionRepository
	history app.HistoryRepository
	users   app.UserRepository
	names   app.UserRepository
	events  *redisstore.RoomEvents
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format, nil)
	log := logging.FromContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var gen app.QuestionGenerator
	if cfg.Generator.APIKey != "" {
		g, err := generator.NewGemini(ctx, generator.Config{
			APIKey:         cfg.Generator.APIKey,
			Model:          cfg.Generator.Model,
			MaxAttempts:    cfg.Generator.MaxAttempts,
			InitialBackoff: config.TTLDuration(cfg.Generator.InitialBackoff, 500*time.Millisecond),
		})
		if err != nil {
			return err
		}
		gen = g
	} else {
		log.Warn("no generator api key, serving questions from the static bank")
	}
	questions := app.NewQuestionSource(gen, questionbank.Default())

	rooms, quizzes := newServices(st, cfg, questions)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.Config{
			Rooms:       rooms,
			Quizzes:     quizzes,
			Users:       app.NewUserService(st.users),
			CORSOrigins: cfg.Server.CORSOrigins,
			Profiling:   cfg.Server.Profiling,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	if st.events != nil {
		g.Go(func() error {
			return st.events.Run(gctx, rooms.Refresh)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServices builds the room and quiz services over the chosen stores.
func newServices(st stores, cfg config.Config, questions *app.QuestionSource) (*app.RoomService, *app.QuizService) {
	roomCfg := app.RoomServiceConfig{
		Rooms:     st.rooms,
		Users:     st.names,
		Questions: questions,
	}
	if st.events != nil {
		roomCfg.Events = st.events
	}
	quizzes := app.NewQuizService(app.QuizServiceConfig{
		Active:       st.active,
		History:      st.history,
		Users:        st.users,
		Questions:    questions,
		DefaultCount: cfg.Quiz.DefaultCount,
		MaxCount:     cfg.Quiz.MaxCount,
	})
	return app.NewRoomService(roomCfg), quizzes
}

// openStores picks Postgres for durable data when configured, Redis when it is
// the only backend, and memory otherwise. Active solo sessions and room events
// go to Redis whenever it is available.
func openStores(ctx context.Context, cfg config.Config) (stores, func(), error) {
	log := logging.FromContext(ctx)
	var (
		st      stores
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := telemetry.MonitorRedis(rdb); err != nil {
			cleanup()
			return stores{}, nil, fmt.Errorf("redis: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			cleanup()
			return stores{}, nil, fmt.Errorf("redis: ping: %w", err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL); err != nil {
			cleanup()
			return stores{}, nil, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return stores{}, nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pool.Close)
	}

	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 2*time.Hour)

	switch {
	case pool != nil:
		st.rooms = pgstore.NewRoomStore(pool)
		st.history = pgstore.NewHistoryStore(pool)
		st.users = pgstore.NewUserStore(pool)
	case rdb != nil:
		st.rooms = redisstore.NewRoomStore(rdb, redisTTL)
		st.history = redisstore.NewHistoryStore(rdb)
		st.users = redisstore.NewUserStore(rdb)
	default:
		st.rooms = memory.NewRoomStore()
		st.history = memory.NewHistoryStore()
		st.users = memory.NewUserStore()
	}
	st.names = memory.NewUserCache(st.users, userCacheTTL)

	if rdb != nil {
		st.active = redisstore.NewSessionStore(rdb, sessionTTL)
		st.events = redisstore.NewRoomEvents(rdb)
	} else {
		st.active = memory.NewSessionStore(sessionTTL)
	}

	log.WithFields(logrus.Fields{
		"postgres": pool != nil,
		"redis":    rdb != nil,
	}).Info("stores ready")
	return st, cleanup, nil
}
