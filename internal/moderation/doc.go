// ABOUTME: Package documentation for the moderation package
// ABOUTME: Describes the content classifier and the fail-open gate

// Package moderation screens submitted question text before it is queued.
//
// Classifier is the collaborator contract: it scores text across a fixed set
// of harm categories and yields a flagged/ok verdict. ContentSafetyClient
// implements it against a Content-Safety-style REST API.
//
// Gate wraps a Classifier with the gateway's failure policy: if the
// collaborator is unreachable or errors, the gate FAILS OPEN and lets the
// question through unflagged. That is a deliberate availability-over-safety
// tradeoff for a live event; every fail-open is logged at error level so
// operators can see when the classifier is down.
package moderation
