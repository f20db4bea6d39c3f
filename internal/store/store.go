// ABOUTME: Store interface and data types for askai-gateway persistence
// ABOUTME: Defines the Question model, status constants, and claim semantics

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested question does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateQuestion is returned when a question with the same ID already exists
var ErrDuplicateQuestion = errors.New("question already exists")

// ErrClaimLost is returned when a conditional status write finds the stored
// status changed underneath it. This is not a failure: it means another
// worker run (or a hide) got there first, and the caller should move on.
var ErrClaimLost = errors.New("claim lost")

// Question status constants. A question only moves forward:
// pending -> answering -> answered, with answering allowed to fall back to
// pending when answer generation fails. blocked and answered are terminal.
const (
	StatusPending   = "pending"
	StatusAnswering = "answering"
	StatusAnswered  = "answered"
	StatusBlocked   = "blocked"
)

// ModerationResult records the verdict from the moderation gate at creation time.
type ModerationResult struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// Meta holds diagnostic attributes about the submitting client.
type Meta struct {
	IPHash    string `json:"ipHash,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Question is the single persisted entity: an attendee question and its
// answer lifecycle. IDs are UUIDv7, so lexicographic order matches creation
// order. Everything except Status and Answer is immutable after creation.
type Question struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	Text        string            `json:"question"`
	Industry    string            `json:"industry"`
	Status      string            `json:"status"`
	Answer      string            `json:"answer,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	AuthorToken string            `json:"authorToken"`
	Email       string            `json:"email,omitempty"`
	Moderation  *ModerationResult `json:"moderation,omitempty"`
	Meta        *Meta             `json:"meta,omitempty"`
}

// Store defines the persistence operations for questions.
type Store interface {
	// CreateQuestion persists a new question.
	// Returns ErrDuplicateQuestion if the ID is already taken.
	CreateQuestion(ctx context.Context, q *Question) error

	// GetQuestion retrieves a question by ID. Returns ErrNotFound if absent.
	GetQuestion(ctx context.Context, id string) (*Question, error)

	// DeleteQuestion removes a question by ID. Returns ErrNotFound if absent.
	DeleteQuestion(ctx context.Context, id string) error

	// ListBySession returns the display feed for a session: all questions
	// except blocked ones, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]*Question, error)

	// ListByAuthor returns every question an author submitted, all statuses
	// included, newest first.
	ListByAuthor(ctx context.Context, authorToken string) ([]*Question, error)

	// OldestPending returns the pending question with the earliest creation
	// time (ties broken by ID). Returns ErrNotFound when the queue is empty.
	OldestPending(ctx context.Context) (*Question, error)

	// ClaimPending transitions a question from pending to answering iff the
	// stored status is still pending. Returns ErrClaimLost if the status
	// changed, ErrNotFound if the question was deleted.
	ClaimPending(ctx context.Context, id string) error

	// SetAnswered transitions a question from answering to answered and
	// records the answer, iff the stored status is still answering.
	// Returns ErrClaimLost if the status changed, ErrNotFound if deleted.
	SetAnswered(ctx context.Context, id, answer string) error

	// ReleaseClaim reverts a question from answering back to pending so a
	// later worker run can retry it. Returns ErrClaimLost if the stored
	// status is no longer answering, ErrNotFound if deleted.
	ReleaseClaim(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
