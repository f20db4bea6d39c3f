// ABOUTME: Tests for gateway construction and component wiring
// ABOUTME: Exercises config-driven wiring with an in-memory store

package gateway

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/askai-gateway/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		Database: config.DatabaseConfig{Path: ":memory:"},
		SignalR: config.SignalRConfig{
			Endpoint:  "https://askai.example.signalr.net",
			Hub:       "askai",
			AccessKey: "test-secret",
			TokenTTL:  time.Hour,
		},
		Worker:      config.WorkerConfig{Interval: time.Minute},
		Submissions: config.SubmissionsConfig{Cooldown: 20 * time.Second},
	}
}

func TestNewServesHealthz(t *testing.T) {
	gw, err := New(testConfig(), slog.Default())
	require.NoError(t, err)
	defer func() { _ = gw.store.Close() }()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	gw.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestTickWithoutCompletionBackend(t *testing.T) {
	gw, err := New(testConfig(), slog.Default())
	require.NoError(t, err)
	defer func() { _ = gw.store.Close() }()

	err = gw.Tick(context.Background())
	assert.ErrorContains(t, err, "completion backend")
}

func TestNewBuildsWorkerWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Completion.Endpoint = "https://openai.example.com"
	cfg.Completion.APIKey = "key"
	cfg.Completion.Timeout = time.Minute

	gw, err := New(cfg, slog.Default())
	require.NoError(t, err)
	defer func() { _ = gw.store.Close() }()

	assert.NotNil(t, gw.worker)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	gw, err := New(testConfig(), slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
