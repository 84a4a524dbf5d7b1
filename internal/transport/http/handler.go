package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"contest-service/internal/identity"
	"contest-service/internal/metrics"
)

// Handler is the HTTP boundary: it decodes transport requests, authenticates
// principals, invokes the engine, and maps domain errors to status codes with
// machine-readable kinds.
type Handler struct {
	service  *app.Service
	identity *identity.Provider
	log      *logrus.Logger
	validate *validator.Validate
	metrics  *metrics.Metrics
	limiter  *ipLimiter
	registry *prometheus.Registry
}

// Config tunes the boundary middleware.
type Config struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func NewHandler(service *app.Service, provider *identity.Provider, log *logrus.Logger, cfg Config) *Handler {
	registry := prometheus.NewRegistry()
	rps := cfg.RateLimitPerSecond
	if rps <= 0 {
		rps = 30
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(rps)
	}
	return &Handler{
		service:  service,
		identity: provider,
		log:      log,
		validate: validator.New(),
		metrics:  metrics.New(registry),
		limiter:  newIPLimiter(rps, burst),
		registry: registry,
	}
}

// Routes assembles the mux with the middleware chain applied per route.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	h.route(mux, "POST /users/signup", h.handleSignup)
	h.route(mux, "POST /users/login", h.handleLogin)
	h.route(mux, "GET /users/me", h.authenticated(h.handleMe))

	h.route(mux, "POST /contests", h.authenticated(h.handleCreateContest))
	h.route(mux, "POST /contests/{id}/questions", h.authenticated(h.handleAddQuestion))
	h.route(mux, "POST /contests/{id}/join", h.authenticated(h.handleJoin))
	h.route(mux, "POST /participations/{id}/submit", h.authenticated(h.handleSubmit))
	h.route(mux, "POST /participations/{id}/score", h.authenticated(h.handleScore))
	h.route(mux, "GET /contests/{id}/leaderboard", h.handleLeaderboard)
	h.route(mux, "POST /contests/{id}/prize", h.authenticated(h.handleAwardPrize))

	return mux
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=NORMAL VIP ADMIN"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := h.identity.Signup(r.Context(), req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "signup successful",
		"userId":  userID,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "login successful",
		"token":   token,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":   principal.UserID,
			"name": principal.Name,
			"role": principal.Role,
		},
	})
}

type createContestRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Access      string `json:"access" validate:"omitempty,oneof=PUBLIC VIP"`
	StartTime   string `json:"startTime" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     string `json:"endTime" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Prize       string `json:"prize"`
}

func (h *Handler) handleCreateContest(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var req createContestRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := app.ContestInput{
		Title:       req.Title,
		Description: req.Description,
		Access:      domain.Access(req.Access),
		Prize:       req.Prize,
	}
	in.StartTime, _ = parseTime(req.StartTime)
	in.EndTime, _ = parseTime(req.EndTime)

	contest, err := h.service.CreateContest(r.Context(), principal, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "contest created",
		"contest": contest,
	})
}

type addQuestionRequest struct {
	Text    string `json:"question" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Options []struct {
		Text    string `json:"text" validate:"required"`
		Correct bool   `json:"correct"`
	} `json:"options" validate:"required,min=1,dive"`
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	contestID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	var req addQuestionRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := app.QuestionInput{Text: req.Text, Type: req.Type}
	for _, o := range req.Options {
		in.Options = append(in.Options, app.OptionInput{Text: o.Text, Correct: o.Correct})
	}
	question, err := h.service.AddQuestion(r.Context(), principal, contestID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "question added",
		"question": question,
	})
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	contestID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	participation, err := h.service.Join(r.Context(), principal, contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.JoinsTotal.Inc()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "joined",
		"participation": participation,
	})
}

type submitRequest struct {
	Answers []domain.Answer `json:"answers" validate:"required,min=1"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	participationID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Submit(r.Context(), principal, participationID, req.Answers); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.SubmissionsTotal.Inc()
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "answers submitted"})
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	participationID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	score, err := h.service.Score(r.Context(), principal, participationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"participationId": participationID,
		"score":           score,
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	entries, err := h.service.Rank(r.Context(), contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAwardPrize(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	contestID, ok := pathID(w, r, h)
	if !ok {
		return
	}
	record, err := h.service.AwardPrize(r.Context(), principal, contestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.AwardsTotal.Inc()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "prize awarded",
		"winner":  record.UserID,
		"prize":   record.Prize,
	})
}

// decode unmarshals and validates the request body, writing the error
// response itself when the payload is malformed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeErrorKind(w, http.StatusBadRequest, "validation", "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeErrorKind(w, http.StatusBadRequest, "validation", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, h *Handler) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeErrorKind(w, http.StatusBadRequest, "validation", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("write response")
	}
}

func (h *Handler) writeErrorKind(w http.ResponseWriter, status int, kind, msg string) {
	h.writeJSON(w, status, map[string]string{"kind": kind, "error": msg})
}

// writeError maps a domain error to a status and a machine-readable kind.
// Every failed precondition gets a distinct kind; only genuinely unexpected
// errors fall through to a logged 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorKind(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("unhandled error")
	}
	h.writeErrorKind(w, status, kind, err.Error())
}

func errorKind(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized, "bad_credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrContestNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrParticipationNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrNoSubmissions):
		return http.StatusNotFound, "no_submissions"
	case errors.Is(err, domain.ErrAlreadyJoined):
		return http.StatusConflict, "already_joined"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, domain.ErrAlreadyAwarded):
		return http.StatusConflict, "already_awarded"
	case errors.Is(err, domain.ErrDuplicateAnswer):
		return http.StatusConflict, "duplicate_answer"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
