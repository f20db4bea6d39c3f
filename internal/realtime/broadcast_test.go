// ABOUTME: Tests for the fanout broadcaster and connection negotiator
// ABOUTME: Uses an httptest broker to verify URLs, tokens, and failure handling

package realtime

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
)

type recordedSend struct {
	path   string
	auth   string
	target string
	args   []any
}

func newBrokerServer(t *testing.T, status int) (*httptest.Server, *[]recordedSend) {
	t.Helper()
	var sends []recordedSend
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg sendMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		sends = append(sends, recordedSend{
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			target: msg.Target,
			args:   msg.Arguments,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &sends
}

func TestBroadcaster_SessionSend(t *testing.T) {
	srv, sends := newBrokerServer(t, http.StatusAccepted)
	issuer := NewTokenIssuer(testSecret, time.Hour)
	b := NewBroadcaster(srv.URL, "askai", issuer)

	b.BroadcastToSession(context.Background(), "session-1", "questionCreated",
		map[string]string{"id": "q-1"})

	require.Len(t, *sends, 1)
	send := (*sends)[0]
	assert.Equal(t, "/api/v1/hubs/askai/groups/session-1/:send", send.path)
	assert.Equal(t, "questionCreated", send.target)
	require.Len(t, send.args, 1)

	// The bearer token is scoped to the exact send URL
	token := strings.TrimPrefix(send.auth, "Bearer ")
	require.NotEqual(t, send.auth, token, "authorization header carries a bearer token")
	aud, sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/v1/hubs/askai/groups/session-1/:send", aud)
	assert.Empty(t, sub)
}

func TestBroadcaster_UserSend(t *testing.T) {
	srv, sends := newBrokerServer(t, http.StatusOK)
	b := NewBroadcaster(srv.URL, "askai", NewTokenIssuer(testSecret, time.Hour))

	b.BroadcastToUser(context.Background(), "author-1", "questionAnswered",
		map[string]string{"id": "q-1"})

	require.Len(t, *sends, 1)
	assert.Equal(t, "/api/v1/hubs/askai/users/author-1/:send", (*sends)[0].path)
}

func TestBroadcaster_BrokerRejectionSwallowed(t *testing.T) {
	srv, sends := newBrokerServer(t, http.StatusForbidden)
	b := NewBroadcaster(srv.URL, "askai", NewTokenIssuer(testSecret, time.Hour))

	// Must not panic or propagate: a push failure never fails the transition.
	b.BroadcastToSession(context.Background(), "session-1", "questionCreated", nil)
	assert.Len(t, *sends, 1)
}

func TestBroadcaster_UnreachableBrokerSwallowed(t *testing.T) {
	b := NewBroadcaster("http://127.0.0.1:1", "askai", NewTokenIssuer(testSecret, time.Hour))
	b.BroadcastToSession(context.Background(), "session-1", "questionCreated", nil)
}

func TestNegotiator(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	n := NewNegotiator("https://broker.example/", "askai", issuer)

	conn, err := n.Negotiate("author-7")
	require.NoError(t, err)
	assert.Equal(t, "https://broker.example/client/?hub=askai", conn.URL)

	aud, sub, err := issuer.Verify(conn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, conn.URL, aud)
	assert.Equal(t, "author-7", sub)
}

func TestNegotiator_AnonymousClient(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	n := NewNegotiator("https://broker.example", "askai", issuer)

	conn, err := n.Negotiate("")
	require.NoError(t, err)

	_, sub, err := issuer.Verify(conn.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, sub)
}
