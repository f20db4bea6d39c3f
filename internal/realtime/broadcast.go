// ABOUTME: Best-effort event fanout to a SignalR-style broadcast broker
// ABOUTME: Each send issues a fresh URL-scoped token and POSTs to the hub REST surface

package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultSendTimeout bounds a single broker push so a slow broker can never
// block a state transition indefinitely.
const DefaultSendTimeout = 10 * time.Second

// Broadcaster pushes named events to all subscribers of a session group, or
// to one specific user. Sends are best-effort: failures are logged with the
// target and status, and swallowed.
type Broadcaster struct {
	endpoint string
	hub      string
	issuer   *TokenIssuer
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// NewBroadcaster creates a broadcaster for the given broker endpoint and hub.
func NewBroadcaster(endpoint, hub string, issuer *TokenIssuer) *Broadcaster {
	return &Broadcaster{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		hub:      hub,
		issuer:   issuer,
		client:   &http.Client{},
		timeout:  DefaultSendTimeout,
		logger:   slog.Default().With("component", "realtime"),
	}
}

// sendMessage is the broker's wire format: the event name and its payload.
type sendMessage struct {
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// BroadcastToSession pushes an event to every subscriber of a session group.
func (b *Broadcaster) BroadcastToSession(ctx context.Context, sessionID, event string, payload any) {
	sendURL := fmt.Sprintf("%s/api/v1/hubs/%s/groups/%s/:send",
		b.endpoint, b.hub, url.PathEscape(sessionID))
	b.send(ctx, sendURL, event, payload, "session", sessionID)
}

// BroadcastToUser pushes an event to one user's connections.
func (b *Broadcaster) BroadcastToUser(ctx context.Context, userID, event string, payload any) {
	sendURL := fmt.Sprintf("%s/api/v1/hubs/%s/users/%s/:send",
		b.endpoint, b.hub, url.PathEscape(userID))
	b.send(ctx, sendURL, event, payload, "user", userID)
}

// send performs one signed push. Any failure is logged and swallowed: the
// persisted state is the source of truth and a polling fallback reconciles
// missed events.
func (b *Broadcaster) send(ctx context.Context, sendURL, event string, payload any, targetKind, targetID string) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	body, err := json.Marshal(sendMessage{Target: event, Arguments: []any{payload}})
	if err != nil {
		b.logger.Error("failed to marshal broadcast payload", "event", event, targetKind, targetID, "error", err)
		return
	}

	token, err := b.issuer.Issue(sendURL, "")
	if err != nil {
		b.logger.Error("failed to issue broadcast token", "event", event, targetKind, targetID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		b.logger.Error("failed to create broadcast request", "event", event, targetKind, targetID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("broadcast failed", "event", event, targetKind, targetID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Warn("broadcast rejected by broker", "event", event, targetKind, targetID, "status", resp.StatusCode)
		return
	}

	b.logger.Debug("broadcast sent", "event", event, targetKind, targetID)
}
