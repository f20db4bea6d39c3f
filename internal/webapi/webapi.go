// ABOUTME: HTTP handlers for question submission, feeds, hide, and negotiate
// ABOUTME: Maps the lifecycle engine's error taxonomy onto response codes

package webapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/yuin/goldmark"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/askai-gateway/internal/question"
	"github.com/2389/askai-gateway/internal/realtime"
	"github.com/2389/askai-gateway/internal/store"
)

// ModeratorKeyHeader carries the moderator key for the hide endpoint.
const ModeratorKeyHeader = "X-Moderator-Key"

// API handles the public HTTP surface.
type API struct {
	questions  *question.Service
	negotiator *realtime.Negotiator

	// moderatorKeyHash is the bcrypt hash the hide endpoint checks the
	// X-Moderator-Key header against. Empty disables the check (logged as a
	// warning at construction).
	moderatorKeyHash string

	logger *slog.Logger
}

// New creates the API handler.
func New(questions *question.Service, negotiator *realtime.Negotiator, moderatorKeyHash string) *API {
	logger := slog.Default().With("component", "webapi")
	if moderatorKeyHash == "" {
		logger.Warn("no moderator key configured, hide endpoint is unprotected")
	}
	return &API{
		questions:        questions,
		negotiator:       negotiator,
		moderatorKeyHash: moderatorKeyHash,
		logger:           logger,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/questions", a.handleCreateQuestion)
	mux.HandleFunc("GET /api/questions", a.handleListQuestions)
	mux.HandleFunc("POST /api/questions/{id}/hide", a.handleHideQuestion)
	mux.HandleFunc("GET /api/my/{authorToken}", a.handleMyQuestions)
	mux.HandleFunc("GET /api/negotiate", a.handleNegotiate)
	mux.HandleFunc("POST /api/negotiate", a.handleNegotiate)
	mux.HandleFunc("GET /healthz", a.handleHealth)
}

// createQuestionRequest is the submission wire format.
type createQuestionRequest struct {
	Question    string `json:"question"`
	Industry    string `json:"industry"`
	SessionID   string `json:"sessionId"`
	AuthorToken string `json:"authorToken"`
	Email       string `json:"email,omitempty"`
}

func (a *API) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q, err := a.questions.Submit(r.Context(), question.SubmitInput{
		Text:        req.Question,
		Industry:    req.Industry,
		SessionID:   req.SessionID,
		AuthorToken: req.AuthorToken,
		Email:       req.Email,
		UserAgent:   r.UserAgent(),
		IPHash:      hashRemoteAddr(r.RemoteAddr),
	})

	var blocked *question.BlockedError
	switch {
	case errors.Is(err, question.ErrMissingFields):
		a.sendJSONError(w, http.StatusBadRequest, "Missing required fields")
		return
	case errors.Is(err, question.ErrRateLimited):
		a.sendJSONError(w, http.StatusTooManyRequests,
			"Rate limit exceeded. Please wait before submitting another question.")
		return
	case errors.As(err, &blocked):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":  "Question blocked by content moderation",
			"reason": blocked.Reason,
		})
		return
	case err != nil:
		a.logger.Error("failed to create question", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"id":     q.ID,
		"status": q.Status,
	})
}

// questionView decorates a question with its answer rendered to HTML for
// display clients.
type questionView struct {
	*store.Question
	AnswerHTML string `json:"answerHtml,omitempty"`
}

func (a *API) renderQuestions(questions []*store.Question) []questionView {
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		v := questionView{Question: q}
		if q.Answer != "" {
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(q.Answer), &buf); err != nil {
				a.logger.Error("failed to render answer markdown", "id", q.ID, "error", err)
			} else {
				v.AnswerHTML = buf.String()
			}
		}
		views = append(views, v)
	}
	return views
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		a.sendJSONError(w, http.StatusBadRequest, "sessionId required")
		return
	}

	questions, err := a.questions.ListBySession(r.Context(), sessionID)
	if err != nil {
		a.logger.Error("failed to list session questions", "session", sessionID, "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.renderQuestions(questions))
}

func (a *API) handleMyQuestions(w http.ResponseWriter, r *http.Request) {
	authorToken := r.PathValue("authorToken")
	if authorToken == "" {
		a.sendJSONError(w, http.StatusBadRequest, "authorToken required")
		return
	}

	questions, err := a.questions.ListByAuthor(r.Context(), authorToken)
	if err != nil {
		a.logger.Error("failed to list author questions", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.renderQuestions(questions))
}

func (a *API) handleHideQuestion(w http.ResponseWriter, r *http.Request) {
	if !a.checkModeratorKey(r) {
		a.sendJSONError(w, http.StatusForbidden, "invalid moderator key")
		return
	}

	id := r.PathValue("id")
	err := a.questions.Hide(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		a.sendJSONError(w, http.StatusNotFound, "Question not found")
		return
	case err != nil:
		a.logger.Error("failed to hide question", "id", id, "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// checkModeratorKey verifies the moderator key header against the
// configured bcrypt hash. No hash configured means no check.
func (a *API) checkModeratorKey(r *http.Request) bool {
	if a.moderatorKeyHash == "" {
		return true
	}
	key := r.Header.Get(ModeratorKeyHeader)
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.moderatorKeyHash), []byte(key)) == nil
}

func (a *API) handleNegotiate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	conn, err := a.negotiator.Negotiate(userID)
	if err != nil {
		a.logger.Error("failed to negotiate connection", "error", err)
		a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sendJSONError writes a JSON error response.
func (a *API) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// hashRemoteAddr hashes the client IP so meta never stores a raw address.
func hashRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:8])
}
