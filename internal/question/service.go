// ABOUTME: Question lifecycle engine mediating all status transitions
// ABOUTME: Runs rate limiting and moderation on submit, fans out every transition

package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/askai-gateway/internal/moderation"
	"github.com/2389/askai-gateway/internal/store"
)

// Event names pushed to subscribers. These are part of the client contract.
// EventQuestionAnswered is emitted for both the interim "answering" state
// and the final answer; subscribers distinguish by the payload's status.
const (
	EventQuestionCreated  = "questionCreated"
	EventQuestionAnswered = "questionAnswered"
	EventQuestionHidden   = "questionHidden"
)

// ErrRateLimited is returned when an author submits again inside the
// cooldown window.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrMissingFields is returned when a submission lacks required fields.
var ErrMissingFields = errors.New("missing required fields")

// ErrEmptyAnswer is returned when CompleteAnswer is handed a blank answer.
// A question is answered iff it carries a non-empty answer, so a blank
// completion result is a generation failure, not a completion.
var ErrEmptyAnswer = errors.New("empty answer")

// BlockedError is returned when moderation flags a submission. The question
// is still persisted with terminal blocked status for audit, but is never
// queued for answering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "question blocked by content moderation: " + e.Reason
}

// Limiter is the rate limiter contract the engine consumes.
type Limiter interface {
	Allow(authorID string) bool
}

// Broadcaster is the fanout contract. Implementations are best-effort and
// never report failure back: a push failure must not undo a persisted
// transition.
type Broadcaster interface {
	BroadcastToSession(ctx context.Context, sessionID, event string, payload any)
	BroadcastToUser(ctx context.Context, userID, event string, payload any)
}

// SubmitInput carries an attendee's submission.
type SubmitInput struct {
	Text        string
	Industry    string
	SessionID   string
	AuthorToken string
	Email       string

	// Diagnostic attributes recorded in the question's meta
	UserAgent string
	IPHash    string
}

// Service is the question lifecycle engine. All status transitions flow
// through it so that persistence and fanout stay paired one-to-one.
type Service struct {
	store       store.Store
	limiter     Limiter
	gate        *moderation.Gate
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewService creates the lifecycle engine.
func NewService(s store.Store, limiter Limiter, gate *moderation.Gate, broadcaster Broadcaster) *Service {
	return &Service{
		store:       s,
		limiter:     limiter,
		gate:        gate,
		broadcaster: broadcaster,
		logger:      slog.Default().With("component", "question"),
	}
}

// Submit runs the rate limiter and the moderation gate, persists the
// question, and emits questionCreated. Flagged submissions are persisted
// with blocked status (for audit and the author's own history) and reported
// as *BlockedError without any fanout.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*store.Question, error) {
	if strings.TrimSpace(input.Text) == "" ||
		strings.TrimSpace(input.Industry) == "" ||
		strings.TrimSpace(input.SessionID) == "" ||
		strings.TrimSpace(input.AuthorToken) == "" {
		return nil, ErrMissingFields
	}

	if !s.limiter.Allow(input.AuthorToken) {
		return nil, ErrRateLimited
	}

	verdict := s.gate.Check(ctx, input.Text)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating question id: %w", err)
	}

	status := store.StatusPending
	if verdict.Flagged {
		status = store.StatusBlocked
	}

	q := &store.Question{
		ID:          id.String(),
		SessionID:   input.SessionID,
		Text:        input.Text,
		Industry:    input.Industry,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		AuthorToken: input.AuthorToken,
		Email:       input.Email,
		Moderation: &store.ModerationResult{
			Flagged: verdict.Flagged,
			Reason:  verdict.Reason,
		},
	}
	if input.UserAgent != "" || input.IPHash != "" {
		q.Meta = &store.Meta{
			IPHash:    input.IPHash,
			UserAgent: input.UserAgent,
		}
	}

	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("persisting question: %w", err)
	}

	if verdict.Flagged {
		s.logger.Info("question blocked by moderation",
			"id", q.ID, "session", q.SessionID, "reason", verdict.Reason)
		return q, &BlockedError{Reason: verdict.Reason}
	}

	s.logger.Info("question created", "id", q.ID, "session", q.SessionID, "industry", q.Industry)
	s.broadcaster.BroadcastToSession(ctx, q.SessionID, EventQuestionCreated, q)
	return q, nil
}

// Hide removes a question and emits questionHidden carrying the identity
// only — hidden content is never re-broadcast. Returns store.ErrNotFound
// when the id is unknown, with no event emitted.
func (s *Service) Hide(ctx context.Context, id string) error {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}

	s.logger.Info("question hidden", "id", id, "session", q.SessionID)
	s.broadcaster.BroadcastToSession(ctx, q.SessionID, EventQuestionHidden, map[string]string{"id": id})
	return nil
}

// ListBySession returns the shared display feed: non-blocked questions,
// newest first.
func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]*store.Question, error) {
	return s.store.ListBySession(ctx, sessionID)
}

// ListByAuthor returns an author's personal history, all statuses, newest
// first. Blocked questions stay visible here even though the session feed
// hides them.
func (s *Service) ListByAuthor(ctx context.Context, authorToken string) ([]*store.Question, error) {
	return s.store.ListByAuthor(ctx, authorToken)
}

// ClaimOldest claims the oldest pending question for answering. The
// pending->answering flip is a conditional write, so of two overlapping
// worker runs exactly one wins; the loser gets store.ErrClaimLost and must
// treat it as "someone else has it", not a failure. store.ErrNotFound means
// the queue is empty.
//
// On success the question is already in answering state and the interim
// questionAnswered event has been emitted to the session and the author.
func (s *Service) ClaimOldest(ctx context.Context) (*store.Question, error) {
	q, err := s.store.OldestPending(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.ClaimPending(ctx, q.ID); err != nil {
		return nil, err
	}
	q.Status = store.StatusAnswering

	s.logger.Info("question claimed", "id", q.ID, "session", q.SessionID)
	s.broadcastAnswerTransition(ctx, q)
	return q, nil
}

// CompleteAnswer finishes a claimed question: records the answer, flips the
// status to terminal answered, and emits the final questionAnswered event.
// A blank answer is rejected with ErrEmptyAnswer and leaves the question in
// answering state; callers release the claim and retry later.
func (s *Service) CompleteAnswer(ctx context.Context, q *store.Question, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}

	if err := s.store.SetAnswered(ctx, q.ID, answer); err != nil {
		return err
	}
	q.Status = store.StatusAnswered
	q.Answer = answer

	s.logger.Info("question answered", "id", q.ID, "session", q.SessionID)
	s.broadcastAnswerTransition(ctx, q)
	return nil
}

// ReleaseClaim reverts a claimed question to pending so a later worker run
// retries it. No event is emitted: subscribers already saw the answering
// state, and the retry will walk the same transitions again.
func (s *Service) ReleaseClaim(ctx context.Context, q *store.Question) error {
	if err := s.store.ReleaseClaim(ctx, q.ID); err != nil {
		return err
	}
	q.Status = store.StatusPending

	s.logger.Info("question released for retry", "id", q.ID, "session", q.SessionID)
	return nil
}

// broadcastAnswerTransition fans an answer-path transition out to the
// session group and to the author's personal channel.
func (s *Service) broadcastAnswerTransition(ctx context.Context, q *store.Question) {
	s.broadcaster.BroadcastToSession(ctx, q.SessionID, EventQuestionAnswered, q)
	s.broadcaster.BroadcastToUser(ctx, q.AuthorToken, EventQuestionAnswered, q)
}
