// ABOUTME: Text moderation client for a Content-Safety-style REST API
// ABOUTME: Flags text when any harm category scores above zero severity

package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the verdict for a piece of text. Reason names the first harm
// category that tripped, in the fixed category order.
type Result struct {
	Flagged bool
	Reason  string
}

// Classifier classifies text across harm categories.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// categories are scored in this order; the first category with severity
// above zero decides the reason string.
var categories = []struct {
	name   string
	reason string
}{
	{"Hate", "Hate content detected"},
	{"SelfHarm", "Self-harm content detected"},
	{"Sexual", "Sexual content detected"},
	{"Violence", "Violence content detected"},
}

// ContentSafetyClient implements Classifier against a Content-Safety-style
// text analysis endpoint.
type ContentSafetyClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewContentSafetyClient creates a classifier client for the given endpoint.
func NewContentSafetyClient(endpoint, apiKey string) *ContentSafetyClient {
	return &ContentSafetyClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type analyzeRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

// Classify scores the text and returns a flagged verdict if any category's
// severity exceeds zero.
func (c *ContentSafetyClient) Classify(ctx context.Context, text string) (Result, error) {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.name
	}

	body, err := json.Marshal(analyzeRequest{Text: text, Categories: names})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling analyze request: %w", err)
	}

	url := c.endpoint + "/contentsafety/text:analyze?api-version=2024-09-01"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling moderation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("moderation service returned status %d: %s", resp.StatusCode, respBody)
	}

	var analysis analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return Result{}, fmt.Errorf("decoding moderation response: %w", err)
	}

	severities := make(map[string]int, len(analysis.CategoriesAnalysis))
	for _, ca := range analysis.CategoriesAnalysis {
		severities[ca.Category] = ca.Severity
	}

	for _, cat := range categories {
		if severities[cat.name] > 0 {
			return Result{Flagged: true, Reason: cat.reason}, nil
		}
	}

	return Result{}, nil
}
