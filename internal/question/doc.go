// ABOUTME: Package documentation for the question package
// ABOUTME: Describes the question lifecycle engine

// Package question owns the question lifecycle state machine.
//
// A question is created pending (or blocked, when moderation flags it),
// claimed into answering by the answer worker, and finishes answered — or
// falls back to pending when answer generation fails. answered and blocked
// are terminal. All status transitions go through the Service here, and
// every successful transition emits exactly one fanout event to the owning
// session; answer transitions are additionally pushed to the author's
// personal channel.
package question
