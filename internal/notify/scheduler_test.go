package notify

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nhle/inbox-calendar/internal/model"
)

var testNow = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

func testScheduler() *Scheduler {
	s := NewScheduler(FuncNotifier(func(string, string) {}), 8)
	return s.WithClock(func() time.Time { return testNow })
}

func testCandidate(id string, start time.Time) model.EventCandidate {
	return model.EventCandidate{
		SourceMessageID: id,
		Title:           "Team Sync",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
	}
}

func TestReminderTimes(t *testing.T) {
	start := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	rems := ReminderTimes(start, 8)

	if len(rems) != 4 {
		t.Fatalf("got %d reminders, want 4", len(rems))
	}

	wantAt := []time.Time{
		time.Date(2025, time.June, 5, 8, 0, 0, 0, time.UTC),
		start.Add(-2 * time.Hour),
		start.Add(-time.Hour),
		start.Add(-30 * time.Minute),
	}
	for i, rem := range rems {
		if !rem.At.Equal(wantAt[i]) {
			t.Errorf("%s at %v, want %v", rem.Label, rem.At, wantAt[i])
		}
	}
}

func TestScheduleSkipsPastOffsets(t *testing.T) {
	s := testScheduler()
	defer s.Stop()

	// Event three hours out, same day: the morning-of slot (08:00) is
	// already past at 10:00 and must be skipped silently.
	scheduled := s.Schedule(testCandidate("msg-1", testNow.Add(3*time.Hour)))

	var labels []string
	for _, rem := range scheduled {
		labels = append(labels, rem.Label)
	}
	want := []string{"2 hours before", "1 hour before", "30 minutes before"}
	if !slices.Equal(labels, want) {
		t.Fatalf("scheduled = %v, want %v", labels, want)
	}

	wantKeys := []string{
		"msg-1|1 hour before",
		"msg-1|2 hours before",
		"msg-1|30 minutes before",
	}
	if got := s.PendingKeys(); !slices.Equal(got, wantKeys) {
		t.Fatalf("pending keys = %v, want %v", got, wantKeys)
	}
}

func TestScheduleAllOffsetsPast(t *testing.T) {
	s := testScheduler()
	defer s.Stop()

	if got := s.Schedule(testCandidate("msg-1", testNow.Add(-time.Hour))); len(got) != 0 {
		t.Fatalf("scheduled %v for a past event, want none", got)
	}
	if keys := s.PendingKeys(); len(keys) != 0 {
		t.Fatalf("pending keys = %v, want none", keys)
	}
}

func TestScheduleIdempotent(t *testing.T) {
	s := testScheduler()
	defer s.Stop()

	cand := testCandidate("msg-1", testNow.Add(3*time.Hour))
	s.Schedule(cand)
	first := s.PendingKeys()

	// Re-scheduling replaces timers under the same dedup keys instead
	// of stacking duplicates.
	s.Schedule(cand)
	if got := s.PendingKeys(); !slices.Equal(got, first) {
		t.Fatalf("keys after reschedule = %v, want %v", got, first)
	}
}

func TestCancelEvent(t *testing.T) {
	s := testScheduler()
	defer s.Stop()

	s.Schedule(testCandidate("msg-1", testNow.Add(3*time.Hour)))
	s.Schedule(testCandidate("msg-2", testNow.Add(4*time.Hour)))

	s.CancelEvent("msg-1")

	for _, key := range s.PendingKeys() {
		if strings.HasPrefix(key, "msg-1|") {
			t.Fatalf("cancelled event still has timer %q", key)
		}
	}
	if len(s.PendingKeys()) == 0 {
		t.Fatal("cancel removed timers of another event")
	}
}

func TestStopClearsAllTimers(t *testing.T) {
	s := testScheduler()

	s.Schedule(testCandidate("msg-1", testNow.Add(3*time.Hour)))
	s.Stop()

	if keys := s.PendingKeys(); len(keys) != 0 {
		t.Fatalf("pending keys after stop = %v", keys)
	}
}

func TestReminderFires(t *testing.T) {
	fired := make(chan string, 1)
	s := NewScheduler(FuncNotifier(func(title, msg string) {
		fired <- title
	}), 8)
	defer s.Stop()

	// Real clock: a reminder 20ms out (start + 30m - 20ms from now).
	start := time.Now().Add(30*time.Minute + 20*time.Millisecond)
	cand := testCandidate("msg-1", start)
	if got := s.Schedule(cand); len(got) == 0 {
		t.Fatal("nothing scheduled")
	}

	select {
	case title := <-fired:
		if title != "Upcoming Event: Team Sync" {
			t.Fatalf("notification title = %q", title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder never fired")
	}
}
