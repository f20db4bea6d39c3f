// ABOUTME: Tests that MockStore matches the SQLite store's claim semantics
// ABOUTME: Keeps the test double honest about conditional writes and ordering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ClaimSemantics(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.CreateQuestion(ctx, testQuestion("q-1", "session-1", time.Now().UTC())))

	require.NoError(t, m.ClaimPending(ctx, "q-1"))
	assert.ErrorIs(t, m.ClaimPending(ctx, "q-1"), ErrClaimLost)

	require.NoError(t, m.SetAnswered(ctx, "q-1", "done"))
	assert.ErrorIs(t, m.ReleaseClaim(ctx, "q-1"), ErrClaimLost)

	got, err := m.GetQuestion(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, got.Status)
	assert.Equal(t, "done", got.Answer)

	assert.ErrorIs(t, m.ClaimPending(ctx, "missing"), ErrNotFound)
}

func TestMockStore_Ordering(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, m.CreateQuestion(ctx, testQuestion("q-2", "session-1", base.Add(time.Second))))
	require.NoError(t, m.CreateQuestion(ctx, testQuestion("q-1", "session-1", base)))
	blocked := testQuestion("q-3", "session-1", base.Add(2*time.Second))
	blocked.Status = StatusBlocked
	require.NoError(t, m.CreateQuestion(ctx, blocked))

	feed, err := m.ListBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "q-2", feed[0].ID)

	oldest, err := m.OldestPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, "q-1", oldest.ID)
}

func TestMockStore_CopiesOnReadAndWrite(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	q := testQuestion("q-1", "session-1", time.Now().UTC())
	require.NoError(t, m.CreateQuestion(ctx, q))
	q.Text = "mutated after create"

	got, err := m.GetQuestion(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, "How do I start with AI governance?", got.Text)

	got.Status = StatusAnswered
	again, err := m.GetQuestion(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}
