// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	questions map[string]*Question // keyed by question ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		questions: make(map[string]*Question),
	}
}

// CreateQuestion stores a new question.
func (m *MockStore) CreateQuestion(ctx context.Context, q *Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.questions[q.ID]; exists {
		return ErrDuplicateQuestion
	}

	// Make a copy to avoid external modification
	c := *q
	m.questions[c.ID] = &c
	return nil
}

// GetQuestion retrieves a question by ID.
func (m *MockStore) GetQuestion(ctx context.Context, id string) (*Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[id]
	if !ok {
		return nil, ErrNotFound
	}

	c := *q
	return &c, nil
}

// DeleteQuestion removes a question by ID.
func (m *MockStore) DeleteQuestion(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[id]; !ok {
		return ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

// ListBySession returns non-blocked questions for a session, newest first.
func (m *MockStore) ListBySession(ctx context.Context, sessionID string) ([]*Question, error) {
	return m.list(func(q *Question) bool {
		return q.SessionID == sessionID && q.Status != StatusBlocked
	}, false), nil
}

// ListByAuthor returns all questions for an author, newest first.
func (m *MockStore) ListByAuthor(ctx context.Context, authorToken string) ([]*Question, error) {
	return m.list(func(q *Question) bool {
		return q.AuthorToken == authorToken
	}, false), nil
}

// OldestPending returns the earliest pending question.
func (m *MockStore) OldestPending(ctx context.Context) (*Question, error) {
	pending := m.list(func(q *Question) bool {
		return q.Status == StatusPending
	}, true)
	if len(pending) == 0 {
		return nil, ErrNotFound
	}
	return pending[0], nil
}

// ClaimPending conditionally moves a question from pending to answering.
func (m *MockStore) ClaimPending(ctx context.Context, id string) error {
	return m.conditionalTransition(id, StatusPending, StatusAnswering, nil)
}

// SetAnswered conditionally moves a question from answering to answered.
func (m *MockStore) SetAnswered(ctx context.Context, id, answer string) error {
	return m.conditionalTransition(id, StatusAnswering, StatusAnswered, &answer)
}

// ReleaseClaim conditionally moves a question from answering back to pending.
func (m *MockStore) ReleaseClaim(ctx context.Context, id string) error {
	return m.conditionalTransition(id, StatusAnswering, StatusPending, nil)
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// conditionalTransition applies from->to iff the stored status equals from,
// mirroring the SQLite conditional UPDATE. A non-nil answer is written
// unconditionally, exactly as the SQL SET clause would.
func (m *MockStore) conditionalTransition(id, from, to string, answer *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return ErrNotFound
	}
	if q.Status != from {
		return ErrClaimLost
	}

	q.Status = to
	if answer != nil {
		q.Answer = *answer
	}
	return nil
}

// list returns copies of matching questions, sorted by creation time then ID.
// ascending=false gives newest-first order.
func (m *MockStore) list(match func(*Question) bool, ascending bool) []*Question {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Question
	for _, q := range m.questions {
		if match(q) {
			c := *q
			out = append(out, &c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	return out
}
