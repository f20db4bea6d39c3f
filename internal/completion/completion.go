// ABOUTME: OpenAI-compatible chat completions client for answer generation
// ABOUTME: Builds industry-aware system prompts and reports transient failures

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indicates a transient completion failure: the service was
// unreachable, timed out, or asked us to back off. The worker treats it the
// same as any other failure (revert and retry), but callers can distinguish
// it for logging.
var ErrUnavailable = errors.New("completion service unavailable")

// DefaultModel is used when the config does not name one.
const DefaultModel = "gpt-4o"

// fallbackAnswer is returned when the service responds successfully but
// with no content.
const fallbackAnswer = "Unable to generate answer at this time."

// Completer generates an answer for a question, tailored to the declared
// industry.
type Completer interface {
	Complete(ctx context.Context, question, industry string) (string, error)
}

// industryPrompts supplies extra system-prompt context per declared industry.
var industryPrompts = map[string]string{
	"Insurance":  "Focus on claims automation, underwriting triage, GDPR/FINMA compliance, and audit trails.",
	"Banking":    "Emphasize model risk management, PII handling, and record-keeping requirements.",
	"Healthcare": "Include HIPAA/clinical safety disclaimers and patient privacy considerations.",
}

const defaultIndustryPrompt = "Provide practical, industry-appropriate guidance."

// systemPrompt builds the on-stage answering prompt for the given industry.
func systemPrompt(industry string) string {
	industryContext, ok := industryPrompts[industry]
	if !ok {
		industryContext = defaultIndustryPrompt
	}

	return fmt.Sprintf(`You are the on-stage AI for an industry event.

Answer clearly, in 5-7 crisp sentences max.
If the question is broad, give a practical framework + first steps.
If the question asks for code or configs, provide a minimal, copyable block.
Respect the declared industry: %s. Use that context to tailor risks, regulations, and examples.
%s
If safety/compliance is uncertain, state assumptions and safe alternatives.
Return Markdown only. No external links unless explicitly asked.`, industry, industryContext)
}

// OpenAIClient implements Completer against an OpenAI-compatible
// chat completions endpoint.
type OpenAIClient struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIClient creates a completion client. endpoint is the service base
// URL; model defaults to DefaultModel when empty.
func NewOpenAIClient(endpoint, apiKey, model string) *OpenAIClient {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{
		url:    strings.TrimSuffix(endpoint, "/") + "/v1/chat/completions",
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete asks the model for an answer. Callers bound the call with a
// context deadline; a deadline hit surfaces as ErrUnavailable.
func (c *OpenAIClient) Complete(ctx context.Context, question, industry string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(industry)},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if transientStatus(resp.StatusCode) {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion service returned status %d: %s", resp.StatusCode, respBody)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return fallbackAnswer, nil
	}
	return chat.Choices[0].Message.Content, nil
}

// transientStatus reports whether an HTTP status is worth retrying later.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// WithTimeout wraps a Completer so every call runs under an upper-bound
// timeout regardless of the caller's context.
func WithTimeout(c Completer, timeout time.Duration) Completer {
	return &timeoutCompleter{inner: c, timeout: timeout}
}

type timeoutCompleter struct {
	inner   Completer
	timeout time.Duration
}

func (t *timeoutCompleter) Complete(ctx context.Context, question, industry string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	answer, err := t.inner.Complete(ctx, question, industry)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return answer, err
}
