// ABOUTME: Package documentation for the realtime package
// ABOUTME: Describes token issuance, fanout broadcasting, and negotiation

// Package realtime pushes question state transitions to subscribers.
//
// It targets a SignalR-style broadcast broker: every send is a REST POST to
// the broker's hub surface, authenticated with a freshly minted short-lived
// JWT whose audience is the target URL. TokenIssuer mints those tokens,
// Broadcaster performs the sends, and Negotiator hands clients the
// credentials they need to subscribe.
//
// Delivery is best-effort and at-most-once. A failed push is logged and
// swallowed: the persisted question state is the source of truth, and a
// push failure must never fail the state transition that triggered it.
package realtime
