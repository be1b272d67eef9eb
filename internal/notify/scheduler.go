package notify

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nhle/inbox-calendar/internal/model"
)

// Scheduler arranges one-shot reminder callbacks for confirmed
// events. Scheduling is idempotent per (event id, offset) dedup key:
// re-scheduling the same event replaces its timers rather than
// duplicating them. Timer firings run concurrently with polling
// cycles; the scheduler holds only its own lock.
type Scheduler struct {
	notifier    Notifier
	morningHour int

	mu     sync.Mutex
	timers map[string]*time.Timer

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewScheduler creates a reminder scheduler delivering through the
// given notifier.
func NewScheduler(notifier Notifier, morningHour int) *Scheduler {
	if morningHour <= 0 || morningHour > 23 {
		morningHour = 8
	}
	return &Scheduler{
		notifier:    notifier,
		morningHour: morningHour,
		timers:      make(map[string]*time.Timer),
		now:         time.Now,
	}
}

// WithClock overrides the scheduler's time source for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// dedupKey builds the unique timer key for an event/offset pair.
func dedupKey(eventID, label string) string {
	return eventID + "|" + label
}

// Schedule registers reminders for a confirmed candidate. Offsets
// whose absolute time is already past are silently skipped — never
// fired immediately, never errors. An existing timer under the same
// dedup key is cancelled and replaced. Returns the reminders actually
// scheduled.
func (s *Scheduler) Schedule(cand model.EventCandidate) []Reminder {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var scheduled []Reminder
	for _, rem := range ReminderTimes(cand.StartTime, s.morningHour) {
		key := dedupKey(cand.SourceMessageID, rem.Label)

		if existing, ok := s.timers[key]; ok {
			existing.Stop()
			delete(s.timers, key)
		}

		if !rem.At.After(now) {
			continue
		}

		title := cand.Title
		label := rem.Label
		s.timers[key] = time.AfterFunc(rem.At.Sub(now), func() {
			s.fire(key, title, label)
		})
		scheduled = append(scheduled, rem)
	}

	if len(scheduled) > 0 {
		log.Printf(
			"scheduled %d reminder(s) for %q", len(scheduled), cand.Title,
		)
	}
	return scheduled
}

// fire delivers one reminder and forgets its timer.
func (s *Scheduler) fire(key, title, label string) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	s.notifier.Notify(
		fmt.Sprintf("Upcoming Event: %s", title), label,
	)
}

// CancelEvent stops and removes all pending timers for an event id.
// Used when an event is removed or declined after confirmation.
func (s *Scheduler) CancelEvent(eventID string) {
	prefix := eventID + "|"

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// PendingKeys returns the sorted dedup keys of all armed timers.
// Intended for tests and diagnostics.
func (s *Scheduler) PendingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.timers))
	for key := range s.timers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stop cancels every pending timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
