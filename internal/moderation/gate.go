// ABOUTME: Fail-open moderation gate wrapping a Classifier
// ABOUTME: Classifier failures let questions through and are logged loudly

package moderation

import (
	"context"
	"log/slog"
)

// Gate applies the gateway's moderation failure policy on top of a
// Classifier. A nil classifier disables moderation entirely (every
// submission passes), which the constructor logs as a warning.
type Gate struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewGate creates a moderation gate around the given classifier.
func NewGate(classifier Classifier) *Gate {
	logger := slog.Default().With("component", "moderation")
	if classifier == nil {
		logger.Warn("moderation disabled: no classifier configured, all submissions pass")
	}
	return &Gate{
		classifier: classifier,
		logger:     logger,
	}
}

// Check classifies the text and never returns an error: if the classifier
// fails, the gate fails open and the text is treated as clean. The failure
// is logged at error level so the tradeoff stays visible to operators.
func (g *Gate) Check(ctx context.Context, text string) Result {
	if g.classifier == nil {
		return Result{}
	}

	result, err := g.classifier.Classify(ctx, text)
	if err != nil {
		g.logger.Error("moderation classifier failed, failing open", "error", err)
		return Result{}
	}
	return result
}
