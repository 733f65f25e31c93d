package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
	"quiz-backend/internal/auth"
	"quiz-backend/internal/config"
	"quiz-backend/internal/infra/memory"
	"quiz-backend/internal/infra/postgres"
	infraredis "quiz-backend/internal/infra/redis"
	"quiz-backend/internal/logger"
	"quiz-backend/internal/metrics"
	transport "quiz-backend/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// repositories groups the storage backends selected by storage.driver.
type repositories struct {
	users       app.UserRepository
	quizzes     app.QuizStore
	attempts    app.AttemptRepository
	submissions app.SubmissionRepository
	close       func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	var cache app.QuizCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, quiz cache will miss until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cache = infraredis.NewQuizCache(redisClient, config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute))
	}

	issuer, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	if err != nil {
		return err
	}
	feed := app.NewResultFeed()
	quizzes := app.NewQuizService(repos.quizzes, repos.submissions, log,
		app.WithQuizCache(cache),
		app.WithResultFeed(feed),
		app.WithFetchConcurrency(cfg.Quiz.FetchConcurrency),
	)
	services := transport.Services{
		Auth:      app.NewAuthService(repos.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), issuer, log),
		Quizzes:   quizzes,
		Authoring: app.NewAuthoringService(repos.quizzes, cache, log),
		Records:   app.NewRecordService(repos.attempts, repos.submissions, log),
		Feed:      feed,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if log.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(services, transport.Options{
		BasePath:    cfg.BasePath(),
		CORSOrigins: cfg.Server.CORSOrigins,
		LoginRate:   cfg.Auth.LoginRate,
		LoginBurst:  cfg.Auth.LoginBurst,
		Metrics:     metrics.New(registry),
		Logger:      log,
	})

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz api", zap.String("addr", server.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-serveErr:
		log.Error("server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg config.Config, log *zap.Logger) (repositories, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		store := memory.NewStore()
		if _, err := store.Seed(ctx, memory.SampleQuizzes()...); err != nil {
			return repositories{}, err
		}
		log.Warn("using in-memory storage; data is lost on restart")
		return repositories{users: store, quizzes: store, attempts: store, submissions: store, close: func() {}}, nil
	}

	dsn := cfg.PostgresDSN()
	db := postgres.OpenDB(dsn)
	if err := migrateDB(ctx, db, log); err != nil {
		db.Close()
		return repositories{}, err
	}
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		db.Close()
		return repositories{}, err
	}
	store := postgres.NewStore(db)
	return repositories{
		users:       postgres.NewUserStore(pool),
		quizzes:     store,
		attempts:    store,
		submissions: store,
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}
