// ABOUTME: Package documentation for the worker package
// ABOUTME: Describes the claim-based answer worker

// Package worker drains the pending question queue.
//
// Each tick claims the oldest pending question through the lifecycle
// engine's conditional write, generates an answer with the completion
// collaborator, and applies the resulting transition. Losing a claim race
// is a clean no-op, and a completion failure reverts the question to
// pending, so ticks are safe under arbitrary overlap — from the in-process
// ticker, the `tick` subcommand, or several gateway instances sharing a
// schedule. Answering is at-least-once: a question can in principle be
// attempted twice, and the last answer write wins.
package worker
