// ABOUTME: Package documentation for the store package
// ABOUTME: Describes the question persistence layer

// Package store provides persistence for event questions.
//
// The Store interface defines the operations the rest of the gateway needs:
// create/read/delete, the session and author feeds, and the claim operations
// the answer worker uses to move a question through its lifecycle. The claim
// is a conditional write (status must still be "pending" at write time), so
// overlapping worker runs cannot both take the same question.
//
// SQLiteStore is the production implementation. MockStore is an in-memory
// implementation for tests.
package store
