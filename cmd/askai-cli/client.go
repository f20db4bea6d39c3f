// ABOUTME: Gateway API client for the askai command line tool
// ABOUTME: Submits, lists, and hides questions over the gateway HTTP API

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Question mirrors the gateway's question wire format.
type Question struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionId"`
	Question    string `json:"question"`
	Industry    string `json:"industry"`
	Status      string `json:"status"`
	Answer      string `json:"answer,omitempty"`
	CreatedAt   string `json:"createdAt"`
	AuthorToken string `json:"authorToken,omitempty"`
	AnswerHTML  string `json:"answerHtml,omitempty"`
}

// SubmitRequest is the request body for POST /api/questions.
type SubmitRequest struct {
	Question    string `json:"question"`
	Industry    string `json:"industry"`
	SessionID   string `json:"sessionId"`
	AuthorToken string `json:"authorToken"`
	Email       string `json:"email,omitempty"`
}

// SubmitResponse is the creation acknowledgement.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// GatewayClient communicates with the askai-gateway HTTP API.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts a new question to the gateway.
func (g *GatewayClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/questions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, g.handleErrorResponse(resp)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

// Feed fetches the visible question feed for a session, newest first.
func (g *GatewayClient) Feed(ctx context.Context, sessionID string) ([]Question, error) {
	u := g.baseURL + "/api/questions?sessionId=" + url.QueryEscape(sessionID)
	return g.getQuestions(ctx, u, nil)
}

// My fetches every question the author has submitted, blocked ones included.
func (g *GatewayClient) My(ctx context.Context, authorToken string) ([]Question, error) {
	u := g.baseURL + "/api/my/" + url.PathEscape(authorToken)
	return g.getQuestions(ctx, u, nil)
}

// Hide removes a question from the session feed. Requires the moderator key.
func (g *GatewayClient) Hide(ctx context.Context, id, moderatorKey string) error {
	u := g.baseURL + "/api/questions/" + url.PathEscape(id) + "/hide"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("X-Moderator-Key", moderatorKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return g.handleErrorResponse(resp)
	}
	return nil
}

func (g *GatewayClient) getQuestions(ctx context.Context, u string, headers map[string]string) ([]Question, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.handleErrorResponse(resp)
	}

	var questions []Question
	if err := json.NewDecoder(resp.Body).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return questions, nil
}

// handleErrorResponse extracts error details from non-2xx responses.
func (g *GatewayClient) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		if errResp.Reason != "" {
			return fmt.Errorf("gateway error (%d): %s: %s", resp.StatusCode, errResp.Error, errResp.Reason)
		}
		return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, errResp.Error)
	}

	return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
}
