package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	pgstore "trivia-room-service/internal/infra/postgres"
	infraredis "trivia-room-service/internal/infra/redis"
)

func TestGameEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestionSet(t, ctx, pgURL, sampleSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := memory.NewChainQuestionLoader(pgstore.NewQuestionLoader(pool), memory.NewStaticQuestionLoader(nil))
	questions := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)
	rooms := infraredis.NewRoomStore(redisClient, 5*time.Minute)
	logger, _ := test.NewNullLogger()
	registry := app.NewRoomRegistry(rooms, questions, "family")
	service := app.NewGameService(registry, app.NewGameEngine(), app.NewHub(),
		app.WithLogger(logger),
		app.WithResultRecorder(infraredis.NewResultPublisher(redisClient, "")))

	_, cancelHost := service.Connect("host")
	defer cancelHost()

	code, err := service.CreateRoom(ctx, "host")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if exists, err := redisClient.Exists(ctx, "trivia:room:"+code).Result(); err != nil || exists != 1 {
		t.Fatalf("expected room marker for %s, got %d (%v)", code, exists, err)
	}

	if err := service.JoinRoom(ctx, code, "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.JoinRoom(ctx, code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.StartGame(ctx, code, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.SubmitAnswer(ctx, code, "u2", 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.SubmitAnswer(ctx, code, "u1", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	round, err := service.RevealAnswers(ctx, code, "host")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if len(round.Scoreboard) != 2 || round.Scoreboard[0].Name != "Bob" || round.Scoreboard[0].Score < app.BasePoints {
		t.Fatalf("expected bob leading, got %+v", round.Scoreboard)
	}

	done, err := service.NextQuestion(ctx, code, "host")
	if err != nil || !done {
		t.Fatalf("expected game to end, done=%v err=%v", done, err)
	}

	raw, err := redisClient.LPop(ctx, infraredis.DefaultResultsQueue).Result()
	if err != nil {
		t.Fatalf("pop result: %v", err)
	}
	var result domain.GameResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RoomCode != code || result.QuestionCount != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	if err := service.EndRoom(ctx, code, "host"); err != nil {
		t.Fatalf("end room: %v", err)
	}
	if exists, _ := redisClient.Exists(ctx, "trivia:room:"+code).Result(); exists != 0 {
		t.Fatalf("expected room marker cleared")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestionSet(t *testing.T, ctx context.Context, dsn string, set domain.QuestionSet) {
	t.Helper()
	db := pgstore.OpenDB(dsn)
	defer db.Close()

	if err := pgstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := pgstore.NewQuestionWriter(db).SaveQuestionSet(ctx, set); err != nil {
		t.Fatalf("save set: %v", err)
	}
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "family",
		Questions: []domain.QuizQuestion{
			{
				Text:             "Which one is a fruit?",
				Choices:          []string{"Carrot", "Apple", "Celery"},
				CorrectIndex:     1,
				TimeLimitSeconds: 12,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
