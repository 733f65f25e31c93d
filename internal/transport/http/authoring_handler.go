package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
)

type questionRequest struct {
	QuizID *int64  `json:"quiz_id"`
	Text   *string `json:"text"`
}

type optionRequest struct {
	QuestionID *int64  `json:"question_id"`
	Text       *string `json:"text"`
	IsCorrect  *bool   `json:"is_correct"`
}

// AuthoringHandler serves question and option CRUD.
type AuthoringHandler struct {
	authoring *app.AuthoringService
	log       *zap.Logger
}

func NewAuthoringHandler(authoring *app.AuthoringService, log *zap.Logger) *AuthoringHandler {
	return &AuthoringHandler{authoring: authoring, log: log}
}

func (h *AuthoringHandler) ListQuestions(c *gin.Context) {
	questions, err := h.authoring.ListQuestions(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *AuthoringHandler) GetQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	question, err := h.authoring.GetQuestion(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *AuthoringHandler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	question, err := h.authoring.CreateQuestion(c.Request.Context(), deref(req.QuizID), deref(req.Text))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *AuthoringHandler) UpdateQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	question, err := h.authoring.UpdateQuestion(c.Request.Context(), id, app.QuestionPatch{QuizID: req.QuizID, Text: req.Text})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *AuthoringHandler) DeleteQuestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.authoring.DeleteQuestion(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOptions accepts an optional question_id filter.
func (h *AuthoringHandler) ListOptions(c *gin.Context) {
	var questionID int64
	if raw := c.Query("question_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid question_id")
			return
		}
		questionID = id
	}
	options, err := h.authoring.ListOptions(c.Request.Context(), questionID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (h *AuthoringHandler) GetOption(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	option, err := h.authoring.GetOption(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, option)
}

func (h *AuthoringHandler) CreateOption(c *gin.Context) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	option, err := h.authoring.CreateOption(c.Request.Context(), deref(req.QuestionID), deref(req.Text), deref(req.IsCorrect))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, option)
}

func (h *AuthoringHandler) UpdateOption(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	option, err := h.authoring.UpdateOption(c.Request.Context(), id, app.OptionPatch{Text: req.Text, IsCorrect: req.IsCorrect})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, option)
}

func (h *AuthoringHandler) DeleteOption(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.authoring.DeleteOption(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
