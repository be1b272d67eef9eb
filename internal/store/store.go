// Package store provides the durable event-candidate store with its
// three disjoint lifecycle partitions (pending, declined, and the
// created-events audit log). All mutating operations are atomic and
// durable before they return.
package store

import (
	"context"

	"github.com/nhle/inbox-calendar/internal/model"
)

// EventStore is the persistence contract for event candidates.
//
// A source message id exists in at most one partition at any time.
// List operations return defensive copies in insertion order.
// Implementations serialize all mutations so that concurrent polling
// cycles, decision handling, and timer callbacks cannot violate the
// cross-partition uniqueness invariant.
type EventStore interface {
	// UpsertPending adds a new candidate to the pending partition.
	// Returns a DuplicateError if the source message id already
	// exists in any partition; the original record is untouched.
	UpsertPending(ctx context.Context, cand model.EventCandidate) error

	// Decline moves a pending candidate to the declined partition.
	// Returns a NotFoundError if the id is not currently pending.
	// A non-empty note annotates the record, e.g. with the permanent
	// calendar error that forced the decline.
	Decline(ctx context.Context, messageID, note string) error

	// Recover moves a declined candidate back to pending, restoring
	// it with its original fields. Returns a NotFoundError if the id
	// is not currently declined.
	Recover(ctx context.Context, messageID string) error

	// ConfirmSuccess removes a pending candidate entirely and records
	// the calendar reference in the audit log.
	ConfirmSuccess(ctx context.Context, messageID string, ref model.CalendarEventRef) error

	// ConfirmFailure records a failed calendar write for a pending
	// candidate, which stays pending for retry. Returns the updated
	// failure count.
	ConfirmFailure(ctx context.Context, messageID string) (int, error)

	// Get returns the candidate for the id from either live
	// partition, or a NotFoundError.
	Get(ctx context.Context, messageID string) (*model.EventCandidate, error)

	// Contains reports whether the id exists in any live partition.
	Contains(ctx context.Context, messageID string) (bool, error)

	// ListPending returns a snapshot of the pending partition.
	ListPending(ctx context.Context) ([]model.EventCandidate, error)

	// ListDeclined returns a snapshot of the declined partition.
	ListDeclined(ctx context.Context) ([]model.EventCandidate, error)

	// PurgeDeclined permanently deletes a declined candidate.
	PurgeDeclined(ctx context.Context, messageID string) error

	// ListCreated returns the audit log of committed calendar writes,
	// most recent first.
	ListCreated(ctx context.Context) ([]model.CreatedEvent, error)

	// Close releases the underlying resources.
	Close() error
}
