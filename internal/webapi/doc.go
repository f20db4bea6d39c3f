// ABOUTME: Package documentation for the webapi package
// ABOUTME: Describes the public HTTP surface of the gateway

// Package webapi exposes the gateway's HTTP endpoints: question submission,
// the session wall feed, the author's personal history, moderator hide, and
// SignalR connection negotiation. Handlers translate the question service's
// error taxonomy into status codes and render answer markdown to HTML for
// display clients.
package webapi
