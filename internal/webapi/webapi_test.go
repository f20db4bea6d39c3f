// ABOUTME: Tests for the HTTP API handlers
// ABOUTME: Exercises status-code mapping, feed rendering, and the hide guard

package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/askai-gateway/internal/moderation"
	"github.com/2389/askai-gateway/internal/question"
	"github.com/2389/askai-gateway/internal/ratelimit"
	"github.com/2389/askai-gateway/internal/realtime"
	"github.com/2389/askai-gateway/internal/store"
)

// nopBroadcast drops all fanout emissions.
type nopBroadcast struct{}

func (nopBroadcast) BroadcastToSession(ctx context.Context, sessionID, event string, payload any) {}
func (nopBroadcast) BroadcastToUser(ctx context.Context, userID, event string, payload any)       {}

// flagAll flags every submission.
type flagAll struct{}

func (flagAll) Classify(ctx context.Context, text string) (moderation.Result, error) {
	return moderation.Result{Flagged: true, Reason: "Violence content detected"}, nil
}

type testEnv struct {
	mux   *http.ServeMux
	store *store.MockStore
}

func newTestAPI(t *testing.T, classifier moderation.Classifier, moderatorKeyHash string) *testEnv {
	t.Helper()
	m := store.NewMockStore()
	limiter := ratelimit.New(ratelimit.DefaultCooldown)
	t.Cleanup(limiter.Close)

	svc := question.NewService(m, limiter, moderation.NewGate(classifier), nopBroadcast{})
	issuer := realtime.NewTokenIssuer([]byte("webapi-test-secret-32-bytes-pad!"), time.Hour)
	negotiator := realtime.NewNegotiator("https://broker.example", "askai", issuer)

	api := New(svc, negotiator, moderatorKeyHash)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	return &testEnv{mux: mux, store: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

const submitBody = `{
	"question": "How do I start with AI governance?",
	"industry": "Banking",
	"sessionId": "session-1",
	"authorToken": "author-1"
}`

func TestCreateQuestion_Created(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, store.StatusPending, resp["status"])
}

func TestCreateQuestion_MissingFields(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions",
		`{"question": "hello"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuestion_InvalidJSON(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuestion_RateLimited(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCreateQuestion_Blocked(t *testing.T) {
	env := newTestAPI(t, flagAll{}, "")

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Question blocked by content moderation", resp["error"])
	assert.Equal(t, "Violence content detected", resp["reason"])

	// Persisted for audit, visible in the author's history only
	history, err := env.store.ListByAuthor(context.Background(), "author-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, store.StatusBlocked, history[0].Status)

	feed, err := env.store.ListBySession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestListQuestions_RequiresSession(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodGet, "/api/questions", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListQuestions_RendersAnswerHTML(t *testing.T) {
	env := newTestAPI(t, nil, "")

	answered := &store.Question{
		ID:          "q-1",
		SessionID:   "session-1",
		Text:        "How do I start with AI governance?",
		Industry:    "Banking",
		Status:      store.StatusAnswered,
		Answer:      "Start with a **risk inventory**.",
		CreatedAt:   time.Now().UTC(),
		AuthorToken: "author-1",
	}
	require.NoError(t, env.store.CreateQuestion(context.Background(), answered))

	rec := env.do(t, http.MethodGet, "/api/questions?sessionId=session-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var feed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "Start with a **risk inventory**.", feed[0]["answer"])
	assert.Contains(t, feed[0]["answerHtml"], "<strong>risk inventory</strong>")
}

func TestMyQuestions_IncludesBlocked(t *testing.T) {
	env := newTestAPI(t, flagAll{}, "")

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/my/author-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, store.StatusBlocked, history[0]["status"])
}

func TestHideQuestion(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, "/api/questions/"+created["id"]+"/hide", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := env.store.GetQuestion(context.Background(), created["id"])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHideQuestion_NotFound(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodPost, "/api/questions/nope/hide", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHideQuestion_ModeratorKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekret"), bcrypt.MinCost)
	require.NoError(t, err)
	env := newTestAPI(t, nil, string(hash))

	rec := env.do(t, http.MethodPost, "/api/questions", submitBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/questions/" + created["id"] + "/hide"

	rec = env.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing key is rejected")

	rec = env.do(t, http.MethodPost, path, "", map[string]string{ModeratorKeyHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "wrong key is rejected")

	rec = env.do(t, http.MethodPost, path, "", map[string]string{ModeratorKeyHeader: "sekret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNegotiate(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodGet, "/api/negotiate?userId=author-9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var conn map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conn))
	assert.Equal(t, "https://broker.example/client/?hub=askai", conn["url"])
	assert.NotEmpty(t, conn["accessToken"])
}

func TestHealthz(t *testing.T) {
	env := newTestAPI(t, nil, "")

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHashRemoteAddr(t *testing.T) {
	a := hashRemoteAddr("203.0.113.7:51234")
	b := hashRemoteAddr("203.0.113.7:9999")
	assert.Equal(t, a, b, "hash covers the host only")
	assert.NotContains(t, a, "203.0.113.7")
	assert.Empty(t, hashRemoteAddr(""))
}
