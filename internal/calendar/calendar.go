// Package calendar defines the calendar collaborator boundary with
// two backends: a local ICS file and a JSON HTTP API. Failures are
// classified as transient or permanent via the adapter error types so
// the lifecycle coordinator can decide between retry and decline.
package calendar

import (
	"context"

	"github.com/nhle/inbox-calendar/internal/model"
)

// Calendar is the contract for committing a confirmed candidate to an
// external calendar.
type Calendar interface {
	// CreateEvent writes the candidate as a calendar event and
	// returns the external reference. Errors are distinguishable as
	// transient (adapter.IsTransient) or permanent
	// (adapter.IsPermanent).
	CreateEvent(ctx context.Context, cand model.EventCandidate) (model.CalendarEventRef, error)
}
