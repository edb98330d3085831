package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"music-quiz-service/internal/app"
	"music-quiz-service/internal/domain"
)

// WSHandler plays a quiz session over a websocket.
type WSHandler struct {
	service          *app.QuizService
	upgrader         websocket.Upgrader
	log              logrus.FieldLogger
	leaderboardLimit int
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger, allowedOrigins []string, leaderboardLimit int) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	if leaderboardLimit <= 0 {
		leaderboardLimit = app.DefaultLeaderboardLimit
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(allowed, origin)
			},
		},
		log:              log,
		leaderboardLimit: leaderboardLimit,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex *int   `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS expects ?sessionId= and an identity set by the auth middleware.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized.Error())
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}
	view, err := h.service.GetSession(r.Context(), sessionID, id.UserID)
	if err != nil {
		writeError(w, StatusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)
	// The server read timeout must not end a game in progress.
	_ = conn.SetReadDeadline(time.Time{})
	log := h.log.WithFields(logrus.Fields{"session": sessionID, "user": id.UserID})

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				for range send {
				}
				return
			}
		}
	}()

	sendError := func(status int, msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg, Status: status}}
	}

	send <- outboundMessage[any]{Type: "session", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionIndex == nil {
				sendError(http.StatusBadRequest, "invalid answer payload")
				continue
			}
			outcome, err := h.service.SubmitAnswer(r.Context(), sessionID, id.UserID, domain.AnswerSubmission{
				QuestionIndex: *payload.QuestionIndex,
				Answer:        payload.Answer,
			})
			if err != nil {
				status := StatusFor(err)
				if status == http.StatusInternalServerError {
					log.WithError(err).Error("ws answer failed")
					sendError(status, "internal error")
					continue
				}
				sendError(status, err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
			if outcome.IsLastQuestion {
				lb, err := h.service.Leaderboard(r.Context(), h.leaderboardLimit)
				if err != nil {
					log.WithError(err).Warn("leaderboard unavailable after completion")
					continue
				}
				send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}
			}
		default:
			sendError(http.StatusBadRequest, "unsupported message type")
		}
	}

	close(send)
	<-writerDone
}
