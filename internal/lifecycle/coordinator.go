// Package lifecycle orchestrates the candidate state machine: unseen
// messages are scored into pending candidates, surfaced for a user
// decision, and committed to the calendar or declined. All store
// mutations go through the EventStore's atomic operations; adapter
// I/O never happens while a store lock is held.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/nhle/inbox-calendar/internal/adapter"
	"github.com/nhle/inbox-calendar/internal/calendar"
	"github.com/nhle/inbox-calendar/internal/detect"
	"github.com/nhle/inbox-calendar/internal/mailbox"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/notify"
	"github.com/nhle/inbox-calendar/internal/store"
)

// Decision is a user verdict on a presented candidate.
type Decision int

const (
	// DecisionDefer leaves the candidate pending; it will be
	// re-presented on a later cycle.
	DecisionDefer Decision = iota

	// DecisionAccept confirms the candidate for calendar creation.
	DecisionAccept

	// DecisionDecline rejects the candidate.
	DecisionDecline
)

// Presenter is the decision surface: it shows one candidate and
// returns the user's verdict. It may be invoked again for the same
// candidate on later cycles until a non-defer decision is recorded.
type Presenter interface {
	Present(ctx context.Context, cand model.EventCandidate) (Decision, error)
}

// Change describes a candidate lifecycle transition, published to
// observers such as the websocket broadcaster.
type Change struct {
	Kind      string       `json:"kind"`
	MessageID string       `json:"message_id"`
	Title     string       `json:"title"`
	Status    model.Status `json:"status,omitempty"`
}

// Change kinds.
const (
	ChangeDetected  = "detected"
	ChangeConfirmed = "confirmed"
	ChangeDeclined  = "declined"
	ChangeRecovered = "recovered"
	ChangeFailed    = "failed"
	ChangePurged    = "purged"
)

// CycleStats summarizes one polling cycle.
type CycleStats struct {
	// Skipped is true when the cycle was not run because a previous
	// one was still in flight.
	Skipped bool `json:"skipped"`

	Fetched      int `json:"fetched"`
	AlreadyKnown int `json:"already_known"`
	Detected     int `json:"detected"`
	Rejected     int `json:"rejected"`
	Presented    int `json:"presented"`
}

// Options configures a Coordinator.
type Options struct {
	// Presenter surfaces pending candidates each cycle. Nil disables
	// in-cycle presentation (decisions then arrive via Accept and
	// Decline, e.g. from the HTTP surface).
	Presenter Presenter

	// Reminders schedules notifications for confirmed events. Nil
	// disables reminders.
	Reminders *notify.Scheduler

	// Alerts receives user-visible failure notifications. Nil
	// defaults to the process log.
	Alerts notify.Notifier

	// ProcessedLabel is applied to accepted messages. Empty disables
	// labeling.
	ProcessedLabel string

	// RepresentRecovered controls whether a recovered candidate is
	// prompted again on the cycle right after recovery.
	RepresentRecovered bool

	// FailureWarnThreshold is the failure count at which a candidate
	// is flagged as persistently failing. Zero means 3.
	FailureWarnThreshold int

	// OnChange observes lifecycle transitions. Optional.
	OnChange func(Change)
}

// Coordinator drives the candidate state machine: unseen, then
// pending, then declined (recoverable) or confirmed (removed).
type Coordinator struct {
	store    store.EventStore
	mailbox  mailbox.Mailbox
	calendar calendar.Calendar
	scorer   *detect.Scorer
	opts     Options

	mu          sync.Mutex
	cycleActive bool

	// suppressed holds recovered candidates excluded from their next
	// presentation round when RepresentRecovered is off.
	suppressed map[string]bool
}

// New creates a Coordinator over the given collaborators.
func New(
	st store.EventStore,
	mb mailbox.Mailbox,
	cal calendar.Calendar,
	scorer *detect.Scorer,
	opts Options,
) *Coordinator {
	if opts.Alerts == nil {
		opts.Alerts = notify.LogNotifier{}
	}
	if opts.FailureWarnThreshold <= 0 {
		opts.FailureWarnThreshold = 3
	}
	return &Coordinator{
		store:      st,
		mailbox:    mb,
		calendar:   cal,
		scorer:     scorer,
		opts:       opts,
		suppressed: make(map[string]bool),
	}
}

// RunCycle executes one polling cycle. Overlapping cycles are
// prevented: if a previous cycle is still running, the new one is
// skipped. A mailbox failure aborts the cycle without touching the
// store.
func (c *Coordinator) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	if !c.beginCycle() {
		stats.Skipped = true
		return stats, nil
	}
	defer c.endCycle()

	msgs, err := c.mailbox.ListUnread(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing unread messages: %w", err)
	}
	stats.Fetched = len(msgs)

	for _, msg := range msgs {
		known, err := c.store.Contains(ctx, msg.ID)
		if err != nil {
			return stats, fmt.Errorf("checking message %s: %w", msg.ID, err)
		}
		if known {
			stats.AlreadyKnown++
			continue
		}

		res := c.scorer.Score(msg)
		if !res.IsEvent {
			stats.Rejected++
			if err := c.mailbox.MarkRead(ctx, msg.ID); err != nil {
				log.Printf("marking rejected message %s read: %v", msg.ID, err)
			}
			continue
		}

		if err := c.store.UpsertPending(ctx, *res.Candidate); err != nil {
			if store.IsDuplicate(err) {
				log.Printf("skipping duplicate candidate: %v", err)
				continue
			}
			return stats, fmt.Errorf("storing candidate %s: %w", msg.ID, err)
		}
		stats.Detected++
		c.emit(Change{
			Kind:      ChangeDetected,
			MessageID: msg.ID,
			Title:     res.Candidate.Title,
			Status:    model.StatusPending,
		})
	}

	if c.opts.Presenter != nil {
		presented, err := c.presentPending(ctx)
		stats.Presented = presented
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// presentPending surfaces each pending candidate to the decision
// surface at most once this cycle and applies the verdicts.
func (c *Coordinator) presentPending(ctx context.Context) (int, error) {
	pending, err := c.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending candidates: %w", err)
	}

	presented := 0
	for _, cand := range pending {
		if c.consumeSuppression(cand.SourceMessageID) {
			continue
		}

		decision, err := c.opts.Presenter.Present(ctx, cand)
		if err != nil {
			log.Printf("presenting candidate %s: %v", cand.SourceMessageID, err)
			continue
		}
		presented++

		switch decision {
		case DecisionAccept:
			if _, err := c.Accept(ctx, cand.SourceMessageID); err != nil {
				log.Printf("accepting candidate %s: %v", cand.SourceMessageID, err)
			}
		case DecisionDecline:
			if err := c.Decline(ctx, cand.SourceMessageID); err != nil {
				log.Printf("declining candidate %s: %v", cand.SourceMessageID, err)
			}
		case DecisionDefer:
			// Stays pending; re-presented next cycle.
		}
	}
	return presented, nil
}

// Accept commits a pending candidate to the calendar. On success the
// record is removed from the store, the source message is marked read
// and labeled, and reminders are scheduled. On failure the candidate
// stays pending (transient) or is declined with the error as an
// annotation (permanent). The calendar call happens without any store
// lock held; only the resulting transition is committed afterwards.
func (c *Coordinator) Accept(
	ctx context.Context, messageID string,
) (model.CalendarEventRef, error) {
	cand, err := c.store.Get(ctx, messageID)
	if err != nil {
		return model.CalendarEventRef{}, err
	}
	if cand.Status != model.StatusPending {
		return model.CalendarEventRef{}, &store.NotFoundError{
			MessageID: messageID, Want: model.StatusPending,
		}
	}

	ref, err := c.calendar.CreateEvent(ctx, *cand)
	if err != nil {
		return model.CalendarEventRef{}, c.handleCreateFailure(ctx, cand, err)
	}

	if err := c.store.ConfirmSuccess(ctx, messageID, ref); err != nil {
		return ref, fmt.Errorf("committing candidate %s: %w", messageID, err)
	}

	if err := c.mailbox.MarkRead(ctx, messageID); err != nil {
		log.Printf("marking accepted message %s read: %v", messageID, err)
	}
	if c.opts.ProcessedLabel != "" {
		if err := c.mailbox.AddLabel(ctx, messageID, c.opts.ProcessedLabel); err != nil {
			log.Printf("labeling message %s: %v", messageID, err)
		}
	}

	if c.opts.Reminders != nil {
		c.opts.Reminders.Schedule(*cand)
	}

	c.emit(Change{
		Kind:      ChangeConfirmed,
		MessageID: messageID,
		Title:     cand.Title,
		Status:    model.StatusConfirmed,
	})
	return ref, nil
}

// handleCreateFailure classifies a calendar error: permanent failures
// decline the candidate with an annotation, transient failures keep
// it pending and bump the failure counter.
func (c *Coordinator) handleCreateFailure(
	ctx context.Context, cand *model.EventCandidate, createErr error,
) error {
	id := cand.SourceMessageID

	if adapter.IsPermanent(createErr) {
		if err := c.store.Decline(ctx, id, createErr.Error()); err != nil {
			log.Printf("declining failed candidate %s: %v", id, err)
		}
		c.opts.Alerts.Notify(
			"Calendar event failed",
			fmt.Sprintf("%q could not be created: %v", cand.Title, createErr),
		)
		c.emit(Change{
			Kind:      ChangeDeclined,
			MessageID: id,
			Title:     cand.Title,
			Status:    model.StatusDeclined,
		})
		return createErr
	}

	count, err := c.store.ConfirmFailure(ctx, id)
	if err != nil {
		log.Printf("recording failure for candidate %s: %v", id, err)
	}
	log.Printf(
		"calendar write for %s failed (attempt %d), will retry: %v",
		id, count, createErr,
	)
	if count >= c.opts.FailureWarnThreshold {
		c.opts.Alerts.Notify(
			"Calendar event failing",
			fmt.Sprintf(
				"%q has failed %d times and remains pending", cand.Title, count,
			),
		)
	}
	c.emit(Change{
		Kind:      ChangeFailed,
		MessageID: id,
		Title:     cand.Title,
		Status:    model.StatusPending,
	})
	return createErr
}

// Decline records a user rejection: the candidate moves to the
// declined partition, the source message is marked read, and any
// reminders are cancelled.
func (c *Coordinator) Decline(ctx context.Context, messageID string) error {
	cand, err := c.store.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if err := c.store.Decline(ctx, messageID, ""); err != nil {
		return err
	}

	if err := c.mailbox.MarkRead(ctx, messageID); err != nil {
		log.Printf("marking declined message %s read: %v", messageID, err)
	}
	if c.opts.Reminders != nil {
		c.opts.Reminders.CancelEvent(messageID)
	}

	c.emit(Change{
		Kind:      ChangeDeclined,
		MessageID: messageID,
		Title:     cand.Title,
		Status:    model.StatusDeclined,
	})
	return nil
}

// Recover moves a declined candidate back to pending. Depending on
// policy it is either re-presented on the next cycle or skipped once
// to avoid an immediate re-prompt.
func (c *Coordinator) Recover(ctx context.Context, messageID string) error {
	if err := c.store.Recover(ctx, messageID); err != nil {
		return err
	}

	if !c.opts.RepresentRecovered {
		c.mu.Lock()
		c.suppressed[messageID] = true
		c.mu.Unlock()
	}

	cand, err := c.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	c.emit(Change{
		Kind:      ChangeRecovered,
		MessageID: messageID,
		Title:     cand.Title,
		Status:    model.StatusPending,
	})
	return nil
}

// PurgeDeclined permanently deletes a declined candidate.
func (c *Coordinator) PurgeDeclined(ctx context.Context, messageID string) error {
	if err := c.store.PurgeDeclined(ctx, messageID); err != nil {
		return err
	}
	c.emit(Change{Kind: ChangePurged, MessageID: messageID})
	return nil
}

// beginCycle marks a cycle as active unless one already is.
func (c *Coordinator) beginCycle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycleActive {
		return false
	}
	c.cycleActive = true
	return true
}

func (c *Coordinator) endCycle() {
	c.mu.Lock()
	c.cycleActive = false
	c.mu.Unlock()
}

// consumeSuppression reports whether the candidate's presentation is
// suppressed this round, clearing the suppression as it goes.
func (c *Coordinator) consumeSuppression(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suppressed[messageID] {
		delete(c.suppressed, messageID)
		return true
	}
	return false
}

func (c *Coordinator) emit(ch Change) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(ch)
	}
}
