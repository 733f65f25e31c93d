package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
	"quiz-backend/internal/metrics"
)

// Services are the use cases the router exposes.
type Services struct {
	Auth      *app.AuthService
	Quizzes   *app.QuizService
	Authoring *app.AuthoringService
	Records   *app.RecordService
	Feed      *app.ResultFeed
}

// Options tune the HTTP surface.
type Options struct {
	BasePath    string
	CORSOrigins []string
	LoginRate   float64
	LoginBurst  int
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewRouter wires middleware and routes. /metrics sits outside the base path.
func NewRouter(svc Services, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	router := gin.New()
	router.Use(RequestID(), Recovery(log), RequestLogger(log), corsMiddleware(opts.CORSOrigins))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	authMW := &authMiddleware{auth: svc.Auth, log: log}
	limiter := newLoginLimiter(opts.LoginRate, opts.LoginBurst)

	authH := NewAuthHandler(svc.Auth, log)
	quizH := NewQuizHandler(svc.Quizzes, opts.Metrics, log)
	authoringH := NewAuthoringHandler(svc.Authoring, log)
	recordH := NewRecordHandler(svc.Records, log)
	liveH := NewLiveHandler(svc.Quizzes, svc.Feed, log)

	api := router.Group(opts.BasePath)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := api.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", limiter.Middleware(), authH.Login)
	auth.GET("/profile", authMW.RequireAuth(), authH.Profile)

	quizzes := api.Group("/quizzes")
	quizzes.GET("", authMW.OptionalAuth(), quizH.List)
	quizzes.GET("/:id", authMW.OptionalAuth(), quizH.Get)
	quizzes.GET("/:id/questions", authMW.OptionalAuth(), quizH.Questions)
	quizzes.GET("/:id/live", authMW.OptionalAuth(), liveH.Serve)
	quizzes.POST("/:id/submit", authMW.OptionalAuth(), quizH.Submit)
	quizzes.POST("", authMW.RequireAuth(), quizH.Create)
	quizzes.PUT("/:id", authMW.RequireAuth(), quizH.Update)
	quizzes.DELETE("/:id", authMW.RequireAuth(), quizH.Delete)

	questions := api.Group("/questions")
	questions.GET("", authoringH.ListQuestions)
	questions.GET("/:id", authoringH.GetQuestion)
	questions.POST("", authMW.RequireAuth(), authoringH.CreateQuestion)
	questions.PUT("/:id", authMW.RequireAuth(), authoringH.UpdateQuestion)
	questions.DELETE("/:id", authMW.RequireAuth(), authoringH.DeleteQuestion)

	options := api.Group("/options")
	options.GET("", authoringH.ListOptions)
	options.GET("/:id", authoringH.GetOption)
	options.POST("", authMW.RequireAuth(), authoringH.CreateOption)
	options.PUT("/:id", authMW.RequireAuth(), authoringH.UpdateOption)
	options.DELETE("/:id", authMW.RequireAuth(), authoringH.DeleteOption)

	attempts := api.Group("/attempts")
	attempts.GET("", recordH.ListAttempts)
	attempts.GET("/:id", recordH.GetAttempt)
	attempts.POST("", authMW.OptionalAuth(), recordH.CreateAttempt)

	submissions := api.Group("/submissions")
	submissions.GET("", recordH.ListSubmissions)
	submissions.GET("/:id", recordH.GetSubmission)
	submissions.POST("", authMW.OptionalAuth(), recordH.CreateSubmission)

	return router
}

// corsMiddleware allows the configured origins, or reflects any origin when
// none are configured.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cfg)
}
