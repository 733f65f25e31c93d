package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"quiz-backend/internal/app"
)

// LiveHandler streams scored submissions of one quiz over a websocket.
type LiveHandler struct {
	quizzes  *app.QuizService
	feed     *app.ResultFeed
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewLiveHandler(quizzes *app.QuizService, feed *app.ResultFeed, log *zap.Logger) *LiveHandler {
	return &LiveHandler{
		quizzes: quizzes,
		feed:    feed,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type joinedPayload struct {
	QuizID      int64 `json:"quizId"`
	Subscribers int   `json:"subscribers"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Serve upgrades the request once the quiz is known to exist. The client
// receives a joined frame, then one score frame per submit on the quiz.
func (h *LiveHandler) Serve(c *gin.Context) {
	quizID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.quizzes.GetQuiz(c.Request.Context(), quizID); err != nil {
		writeError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Int64("quiz_id", quizID), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", zap.Int64("quiz_id", quizID), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "score", Payload: event}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		QuizID:      quizID,
		Subscribers: h.feed.Subscribers(quizID),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "live feed is read-only"}}:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
