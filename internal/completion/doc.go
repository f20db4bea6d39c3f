// ABOUTME: Package documentation for the completion package
// ABOUTME: Describes the AI answer generation collaborator

// Package completion generates answers for queued questions.
//
// Completer is the collaborator contract the answer worker consumes.
// OpenAIClient implements it against an OpenAI-compatible chat completions
// endpoint, building a system prompt from the question's declared industry.
// Transient failures (network errors, timeouts, 429/5xx) are reported as
// ErrUnavailable so the worker can revert the question for a later retry.
package completion
