package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
	"quiz-backend/internal/app"
	"quiz-backend/internal/auth"
	"quiz-backend/internal/domain"
	"quiz-backend/internal/infra/postgres"
	pgmigrations "quiz-backend/internal/infra/postgres/migrations"
	infraredis "quiz-backend/internal/infra/redis"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openMigrated(t, ctx, pgURL)
	store := postgres.NewStore(db)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	cache := infraredis.NewQuizCache(redisClient, 5*time.Minute)

	quizzes := app.NewQuizService(store, store, nil, app.WithQuizCache(cache))
	authoring := app.NewAuthoringService(store, cache, nil)

	quiz, err := quizzes.CreateQuiz(ctx, "Arithmetic", "warm-up")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question, err := authoring.CreateQuestion(ctx, quiz.ID, "What is 2 + 2?")
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if _, err := authoring.CreateOption(ctx, question.ID, "3", false); err != nil {
		t.Fatalf("create option: %v", err)
	}
	correct, err := authoring.CreateOption(ctx, question.ID, "4", true)
	if err != nil {
		t.Fatalf("create option: %v", err)
	}

	result, err := quizzes.Submit(ctx, quiz.ID, 42, domain.Answers{question.ID: correct.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || !result.Win || len(result.CorrectAnswers) != 1 || result.CorrectAnswers[0] != correct.ID {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, ok, err := cache.GetQuiz(ctx, quiz.ID); err != nil || !ok {
		t.Fatalf("expected assembled quiz cached, ok=%v err=%v", ok, err)
	}

	subs, err := store.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].UserID != 42 || subs[0].Answers[question.ID] != correct.ID {
		t.Fatalf("unexpected submissions %+v", subs)
	}

	if err := quizzes.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, ok, _ := cache.GetQuiz(ctx, quiz.ID); ok {
		t.Fatalf("cache entry survived delete")
	}
	if _, err := store.FindQuestion(ctx, question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("question survived cascade: %v", err)
	}
	if _, err := store.FindOption(ctx, correct.ID); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("option survived cascade: %v", err)
	}
	if subs, _ := store.ListSubmissions(ctx); len(subs) != 1 {
		t.Fatalf("submissions must outlive their quiz, got %d", len(subs))
	}
}

func TestPostgresStoreConstraints(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := openMigrated(t, ctx, pgURL)
	store := postgres.NewStore(db)

	question := domain.Question{QuizID: 999, Text: "orphan"}
	if err := store.InsertQuestion(ctx, &question); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound for missing parent, got %v", err)
	}
	if err := store.UpdateQuiz(ctx, &domain.Quiz{ID: 999, Title: "x"}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound on update, got %v", err)
	}
	if err := store.DeleteOption(ctx, 999); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound on delete, got %v", err)
	}

	quiz := domain.Quiz{Title: "constraints"}
	if err := store.InsertQuiz(ctx, &quiz); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	question = domain.Question{QuizID: quiz.ID, Text: "pick one"}
	if err := store.InsertQuestion(ctx, &question); err != nil {
		t.Fatalf("insert question: %v", err)
	}
	correct := domain.Option{QuestionID: question.ID, Text: "a", IsCorrect: true}
	if err := store.InsertOption(ctx, &correct); err != nil {
		t.Fatalf("insert option: %v", err)
	}
	second := domain.Option{QuestionID: question.ID, Text: "b", IsCorrect: true}
	if err := store.InsertOption(ctx, &second); !errors.Is(err, domain.ErrCorrectOptionTaken) {
		t.Fatalf("expected ErrCorrectOptionTaken from partial index, got %v", err)
	}
	second.IsCorrect = false
	if err := store.InsertOption(ctx, &second); err != nil {
		t.Fatalf("insert option: %v", err)
	}
	second.IsCorrect = true
	if err := store.UpdateOption(ctx, &second); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error on update, got %v", err)
	}

	for score := 1; score <= 3; score++ {
		sub := domain.Submission{UserID: 1, QuizID: 1, Answers: domain.Answers{1: int64(score)}, Score: score}
		if err := store.InsertSubmission(ctx, &sub); err != nil {
			t.Fatalf("insert submission: %v", err)
		}
	}
	subs, err := store.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	for i := 1; i < len(subs); i++ {
		if subs[i-1].ID < subs[i].ID {
			t.Fatalf("submissions not newest first: %+v", subs)
		}
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	issuer, err := auth.NewJWTIssuer("integration-secret", time.Minute)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	users := app.NewAuthService(postgres.NewUserStore(pool), auth.NewBcryptHasher(bcrypt.MinCost), issuer, nil)
	user, err := users.Register(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 || user.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", user)
	}
	if err := postgres.NewUserStore(pool).CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "x"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken from unique index, got %v", err)
	}
	token, err := users.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	identity, err := users.Authenticate(token.Value)
	if err != nil || identity.UserID != user.ID {
		t.Fatalf("authenticate: %+v %v", identity, err)
	}
}

func openMigrated(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	db := postgres.OpenDB(dsn)
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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
