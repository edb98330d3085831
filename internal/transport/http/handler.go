package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"music-quiz-service/internal/app"
	"music-quiz-service/internal/domain"
)

const maxBodyBytes = 1 << 16

// Handler serves the REST API of the quiz service.
type Handler struct {
	service          *app.QuizService
	auth             *Authenticator
	validate         *validator.Validate
	log              logrus.FieldLogger
	leaderboardLimit int
}

func NewHandler(service *app.QuizService, auth *Authenticator, log logrus.FieldLogger, leaderboardLimit int) *Handler {
	if leaderboardLimit <= 0 {
		leaderboardLimit = app.DefaultLeaderboardLimit
	}
	return &Handler{
		service:          service,
		auth:             auth,
		validate:         validator.New(),
		log:              log,
		leaderboardLimit: leaderboardLimit,
	}
}

// Register mounts the API routes on mux. Every route requires a bearer token.
func (h *Handler) Register(mux *http.ServeMux, observer RequestObserver) {
	routes := map[string]http.HandlerFunc{
		"POST /api/users/me":         h.registerUser,
		"PUT /api/users/me":          h.updateProfile,
		"GET /api/users/me/stats":    h.userStats,
		"POST /api/quiz/start":       h.startQuiz,
		"POST /api/quiz/answer":      h.submitAnswer,
		"GET /api/quiz/session/{id}": h.getSession,
		"GET /api/leaderboard":       h.leaderboard,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, Instrument(pattern, observer, h.log, h.auth.Middleware(fn)))
	}
}

type registerRequest struct {
	DisplayName string `json:"displayName" validate:"max=64"`
}

type profileRequest struct {
	FavoriteGenres  []string `json:"favoriteGenres" validate:"omitempty,max=15,dive,required,max=40"`
	DifficultyLevel string   `json:"difficultyLevel" validate:"omitempty,oneof=easy medium hard"`
}

type startRequest struct {
	Mode       string `json:"mode" validate:"required,oneof=genre artist mood timed"`
	Mood       string `json:"mood" validate:"max=64"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type answerRequest struct {
	SessionID     string `json:"sessionId" validate:"required,max=64"`
	QuestionIndex *int   `json:"questionIndex" validate:"required,min=0"`
	Answer        string `json:"answer" validate:"max=256"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req registerRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	name := req.DisplayName
	if name == "" {
		name = id.Name
	}
	user, err := h.service.RegisterUser(r.Context(), id.UserID, name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req profileRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), id.UserID, req.FavoriteGenres, req.DifficultyLevel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	stats, err := h.service.UserStats(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req startRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	view, err := h.service.StartQuiz(r.Context(), id.UserID, domain.QuizRequest{
		Mode:       req.Mode,
		Mood:       req.Mood,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req answerRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	outcome, err := h.service.SubmitAnswer(r.Context(), req.SessionID, id.UserID, domain.AnswerSubmission{
		QuestionIndex: *req.QuestionIndex,
		Answer:        req.Answer,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	view, err := h.service.GetSession(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := h.leaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > h.leaderboardLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(h.leaderboardLimit))
			return
		}
		limit = n
	}
	lb, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// decode reads and validates a JSON body. An empty body is accepted only when allowEmpty is set.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientTracks):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionConflict):
		return http.StatusConflict
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + ": failed " + fe.Tag()
	}
	return "invalid request"
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
