package calendar_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/nhle/inbox-calendar/internal/adapter"
	"github.com/nhle/inbox-calendar/internal/calendar"
	"github.com/nhle/inbox-calendar/internal/model"
)

func icsCandidate(id, title string) model.EventCandidate {
	start := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	return model.EventCandidate{
		SourceMessageID: id,
		Title:           title,
		Description:     "discuss roadmap",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
	}
}

func decodeCalendar(t *testing.T, path string) *ical.Calendar {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening calendar file: %v", err)
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		t.Fatalf("decoding calendar file: %v", err)
	}
	return cal
}

func TestICSCreateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ics")
	cal := calendar.NewICSCalendar(path)
	ctx := context.Background()

	ref1, err := cal.CreateEvent(ctx, icsCandidate("msg-1", "Team Sync"))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	ref2, err := cal.CreateEvent(ctx, icsCandidate("msg-2", "Planning"))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if ref1.ID == "" || ref1.ID == ref2.ID {
		t.Fatalf("refs = %q, %q; want distinct non-empty uids", ref1.ID, ref2.ID)
	}

	parsed := decodeCalendar(t, path)

	var summaries []string
	for _, ev := range parsed.Events() {
		summary, err := ev.Props.Text(ical.PropSummary)
		if err != nil {
			t.Fatalf("reading summary: %v", err)
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) != 2 {
		t.Fatalf("events in file = %d, want 2", len(summaries))
	}
	if summaries[0] != "Team Sync" || summaries[1] != "Planning" {
		t.Errorf("summaries = %v", summaries)
	}
}

func TestICSRejectsNonPositiveDuration(t *testing.T) {
	cal := calendar.NewICSCalendar(filepath.Join(t.TempDir(), "events.ics"))

	cand := icsCandidate("msg-1", "Broken")
	cand.EndTime = cand.StartTime

	_, err := cal.CreateEvent(context.Background(), cand)
	if !adapter.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
}

func TestICSCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.ics")
	cal := calendar.NewICSCalendar(path)

	if _, err := cal.CreateEvent(context.Background(), icsCandidate("msg-1", "Sync")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("calendar file missing: %v", err)
	}
}
