// ABOUTME: Claim worker that answers pending questions one per tick
// ABOUTME: Safe under overlapping invocations; reverts and retries on failure

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/askai-gateway/internal/completion"
	"github.com/2389/askai-gateway/internal/question"
	"github.com/2389/askai-gateway/internal/store"
)

// DefaultInterval is the tick cadence for the in-process scheduler.
const DefaultInterval = time.Minute

// DefaultCompletionTimeout bounds a single answer generation call.
const DefaultCompletionTimeout = 60 * time.Second

// Worker claims and answers pending questions.
type Worker struct {
	questions *question.Service
	completer completion.Completer
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a worker. interval <= 0 falls back to DefaultInterval.
// The completer should already be timeout-bounded (completion.WithTimeout).
func New(questions *question.Service, completer completion.Completer, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		questions: questions,
		completer: completer,
		interval:  interval,
		logger:    slog.Default().With("component", "worker"),
	}
}

// Tick processes at most one question: claim the oldest pending one, answer
// it, persist the outcome. An empty queue and a lost claim race are both
// clean no-ops. Only infrastructure failures outside the per-question try
// (the initial query, the claim write itself) are returned; the next
// scheduled tick retries naturally.
func (w *Worker) Tick(ctx context.Context) error {
	q, err := w.questions.ClaimOldest(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.logger.Debug("no pending questions")
		return nil
	case errors.Is(err, store.ErrClaimLost):
		// Another worker run got there first. Not an error, and not worth
		// retrying within this tick.
		w.logger.Debug("claim lost to a concurrent worker run")
		return nil
	case err != nil:
		return fmt.Errorf("claiming oldest pending question: %w", err)
	}

	answer, err := w.completer.Complete(ctx, q.Text, q.Industry)
	if err != nil {
		w.logger.Error("answer generation failed, reverting to pending",
			"id", q.ID, "error", err)
		if relErr := w.questions.ReleaseClaim(ctx, q); relErr != nil {
			// Worst case the question sticks in answering until an operator
			// intervenes; the claim state is still consistent.
			w.logger.Error("failed to release claim", "id", q.ID, "error", relErr)
		}
		return nil
	}

	if err := w.questions.CompleteAnswer(ctx, q, answer); err != nil {
		switch {
		case errors.Is(err, question.ErrEmptyAnswer):
			// A blank completion is a generation failure. Revert and let a
			// later tick retry.
			w.logger.Error("completer returned an empty answer, reverting to pending", "id", q.ID)
			if relErr := w.questions.ReleaseClaim(ctx, q); relErr != nil {
				w.logger.Error("failed to release claim", "id", q.ID, "error", relErr)
			}
			return nil
		case errors.Is(err, store.ErrClaimLost), errors.Is(err, store.ErrNotFound):
			// The question was hidden mid-flight. The generated answer is
			// discarded; a benign inefficiency.
			w.logger.Warn("question disappeared while answering", "id", q.ID)
			return nil
		}
		return fmt.Errorf("recording answer for question %s: %w", q.ID, err)
	}

	return nil
}

// Run ticks on a fixed interval until the context is canceled. Tick errors
// are logged, never fatal: the worker's failure mode is a question stuck
// retrying, not a crashed process.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("answer worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("worker tick failed", "error", err)
			}
		case <-ctx.Done():
			w.logger.Info("answer worker stopped")
			return
		}
	}
}
