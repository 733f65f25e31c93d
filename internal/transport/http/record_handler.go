package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
	"quiz-backend/internal/domain"
)

type attemptRequest struct {
	UserID int64 `json:"user_id"`
	QuizID int64 `json:"quiz_id"`
	Score  *int  `json:"score"`
}

type submissionRequest struct {
	UserID  int64          `json:"user_id"`
	QuizID  int64          `json:"quiz_id"`
	Answers domain.Answers `json:"answers"`
	Score   *int           `json:"score"`
}

// RecordHandler serves attempts and submissions. When user_id is omitted the
// authenticated caller is used.
type RecordHandler struct {
	records *app.RecordService
	log     *zap.Logger
}

func NewRecordHandler(records *app.RecordService, log *zap.Logger) *RecordHandler {
	return &RecordHandler{records: records, log: log}
}

func (h *RecordHandler) CreateAttempt(c *gin.Context) {
	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	attempt, err := h.records.RecordAttempt(c.Request.Context(), app.AttemptInput{
		UserID: callerOr(c, req.UserID),
		QuizID: req.QuizID,
		Score:  req.Score,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "attempt recorded", "attemptId": attempt.ID})
}

func (h *RecordHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.records.ListAttempts(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *RecordHandler) GetAttempt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	attempt, err := h.records.GetAttempt(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *RecordHandler) CreateSubmission(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	submission, err := h.records.RecordSubmission(c.Request.Context(), app.SubmissionInput{
		UserID:  callerOr(c, req.UserID),
		QuizID:  req.QuizID,
		Answers: req.Answers,
		Score:   req.Score,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "submission recorded", "submissionId": submission.ID})
}

func (h *RecordHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.records.ListSubmissions(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, submissions)
}

func (h *RecordHandler) GetSubmission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	submission, err := h.records.GetSubmission(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

func callerOr(c *gin.Context, userID int64) int64 {
	if userID != 0 {
		return userID
	}
	if identity, ok := identityFrom(c); ok {
		return identity.UserID
	}
	return 0
}
