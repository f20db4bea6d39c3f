// ABOUTME: Package documentation for the ratelimit package
// ABOUTME: Describes the per-author submission limiter

// Package ratelimit provides a per-author submission limiter.
//
// The limiter enforces a minimum interval between accepted submissions for
// each author identity. It is in-process and best-effort: the point is UX
// throttling, not a hard quota, so a deployment with several gateway
// instances is allowed to accept slightly more than one submission per
// cooldown window. A distributed deployment can swap this for a shared
// counter store without changing the interface.
package ratelimit
