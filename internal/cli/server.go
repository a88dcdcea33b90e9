package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	pgloader "trivia-room-service/internal/infra/postgres"
	redisinfra "trivia-room-service/internal/infra/redis"
	transport "trivia-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	roomTTL := config.TTLDuration(cfg.Redis.TTL, 6*time.Hour)

	static := defaultQuestionSets()
	if cfg.Questions.File != "" {
		fileSets, err := memory.ReadQuestionFile(cfg.Questions.File)
		if err != nil {
			return err
		}
		for id, set := range fileSets {
			static[id] = set
		}
	}
	var loader memory.QuestionSetLoader = memory.NewStaticQuestionLoader(static)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = memory.NewChainQuestionLoader(pgloader.NewQuestionLoader(pool), loader)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	var rooms app.RoomStore
	serviceOpts := []app.ServiceOption{app.WithLogger(logger)}
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		rooms = redisinfra.NewRoomStore(redisClient, roomTTL)
		serviceOpts = append(serviceOpts, app.WithResultRecorder(redisinfra.NewResultPublisher(redisClient, "")))
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		rooms = memory.NewRoomStore()
	}

	registry := app.NewRoomRegistry(rooms, questions, cfg.Questions.Set,
		app.WithMaxCreateAttempts(cfg.Game.MaxCreateAttempts))
	service := app.NewGameService(registry, app.NewGameEngine(), app.NewHub(), serviceOpts...)
	wsHandler := transport.NewWSHandler(service, logger,
		transport.WithRateLimit(cfg.WS.MessagesPerSecond, cfg.WS.Burst))

	// no Read/WriteTimeout: they would cut off long-lived websocket sessions
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, wsHandler, logger),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": finalPort, "question_set": cfg.Questions.Set}).Info("starting trivia service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// defaultQuestionSets is the built-in "default" set used when nothing else provides one.
func defaultQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"default": {
			ID: "default",
			Questions: []domain.QuizQuestion{
				{
					Text:             "What year is it today?",
					Choices:          []string{"2024", "2025", "2026", "2027"},
					CorrectIndex:     2,
					TimeLimitSeconds: 15,
				},
				{
					Text:             "Which one is a fruit?",
					Choices:          []string{"Carrot", "Apple", "Celery", "Potato"},
					CorrectIndex:     1,
					TimeLimitSeconds: 12,
				},
				{
					Text:             "2 + 2 = ?",
					Choices:          []string{"3", "4", "5", "22"},
					CorrectIndex:     1,
					TimeLimitSeconds: 10,
				},
			},
		},
	}
}
