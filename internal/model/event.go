package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an event candidate.
type Status string

const (
	// StatusPending means the candidate is awaiting a user decision.
	StatusPending Status = "pending"

	// StatusDeclined means the user rejected the candidate. Declined
	// candidates can be recovered back to pending.
	StatusDeclined Status = "declined"

	// StatusConfirmed means the candidate was accepted and a calendar
	// write is in flight or has completed. On success the record is
	// removed from the live store entirely.
	StatusConfirmed Status = "confirmed"
)

// Message is a single mail message as fetched from the mailbox.
// Messages are immutable once fetched.
type Message struct {
	// ID is the mailbox-assigned identifier, unique per mailbox.
	ID string `json:"id"`

	// Subject is the message subject line.
	Subject string `json:"subject"`

	// Body is the plain-text message body.
	Body string `json:"body"`

	// Sender is the From address or display name.
	Sender string `json:"sender"`

	// ReceivedAt is when the message arrived in the mailbox.
	ReceivedAt time.Time `json:"received_at"`
}

// EventCandidate is a possibly-an-event extraction from a single
// message. Exactly one candidate may exist per source message across
// all lifecycle states.
type EventCandidate struct {
	// SourceMessageID is the id of the message this candidate was
	// extracted from. Unique across the whole store.
	SourceMessageID string `json:"source_message_id"`

	// Title is the proposed event title, defaulting to the subject.
	Title string `json:"title"`

	// Description is the full message body. Never truncated in
	// storage; display surfaces may shorten it.
	Description string `json:"description"`

	// StartTime is the extracted event start.
	StartTime time.Time `json:"start_time"`

	// EndTime is the event end, defaulting to StartTime + 1 hour.
	EndTime time.Time `json:"end_time"`

	// Confidence is the detection score in [0.0, 1.0].
	Confidence float64 `json:"confidence"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Note carries an annotation for declined candidates, e.g. the
	// permanent calendar error that forced the decline.
	Note string `json:"note,omitempty"`

	// FailureCount tracks failed calendar writes for this candidate.
	FailureCount int `json:"failure_count"`

	// DetectedAt is when the scorer produced this candidate.
	DetectedAt time.Time `json:"detected_at"`
}

// Validate checks the candidate's structural invariants.
func (c *EventCandidate) Validate() error {
	if c.SourceMessageID == "" {
		return fmt.Errorf("candidate has no source message id")
	}
	if !c.EndTime.After(c.StartTime) {
		return fmt.Errorf(
			"candidate %s: end time %s is not after start time %s",
			c.SourceMessageID, c.EndTime, c.StartTime,
		)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf(
			"candidate %s: confidence %f out of range",
			c.SourceMessageID, c.Confidence,
		)
	}
	return nil
}

// CalendarEventRef is the external identifier returned by a calendar
// backend after a successful event write.
type CalendarEventRef struct {
	// ID is the calendar-assigned event identifier.
	ID string `json:"id"`

	// Link is an optional URL to the created event.
	Link string `json:"link,omitempty"`
}

// CreatedEvent is an audit record of a successfully committed
// calendar write. Created events live in the audit log, not in the
// live candidate store.
type CreatedEvent struct {
	ID              string    `json:"id"`
	SourceMessageID string    `json:"source_message_id"`
	CalendarID      string    `json:"calendar_id"`
	Link            string    `json:"link,omitempty"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	CreatedAt       time.Time `json:"created_at"`
}
