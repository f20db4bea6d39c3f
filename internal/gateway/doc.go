// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Describes component wiring and server lifecycle management

// Package gateway wires the askai-gateway components together and manages
// the server lifecycle.
//
// A Gateway owns the question store, the submission rate limiter, the
// moderation gate, the completion client, the realtime broadcaster, the
// question service, the answer worker, and the HTTP server that exposes
// the web API. Run starts the HTTP listener (plain TCP or Tailscale tsnet)
// and the background worker, then blocks until the context is canceled
// and everything has shut down gracefully.
package gateway
