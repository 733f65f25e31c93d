package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
	"quiz-backend/internal/domain"
	"quiz-backend/internal/metrics"
)

type quizRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type submitRequest struct {
	Answers domain.Answers `json:"answers"`
}

type QuizHandler struct {
	quizzes *app.QuizService
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewQuizHandler(quizzes *app.QuizService, m *metrics.Metrics, log *zap.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, metrics: m, log: log}
}

func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.quizzes.ListQuizzes(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// Get returns the quiz with its questions and their options.
func (h *QuizHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tree, err := h.quizzes.GetQuizWithQuestions(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *QuizHandler) Questions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	questions, err := h.quizzes.QuestionsForQuiz(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *QuizHandler) Create(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), deref(req.Title), deref(req.Description))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), id, app.QuizPatch{Title: req.Title, Description: req.Description})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.quizzes.DeleteQuiz(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit scores the posted answers. Authenticated callers also get the
// result stored as a submission.
func (h *QuizHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "answers must map question ids to option ids")
		return
	}
	identity, _ := identityFrom(c)
	result, err := h.quizzes.Submit(c.Request.Context(), id, identity.UserID, req.Answers)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveSubmission(result.Win)
	}
	c.JSON(http.StatusOK, result)
}

// pathID parses a positive int64 path parameter, answering 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
