package calendar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/nhle/inbox-calendar/internal/adapter"
	"github.com/nhle/inbox-calendar/internal/model"
)

// ICSCalendar appends confirmed events to a local iCalendar file.
// Writes are atomic: the calendar is rewritten to a temp file and
// renamed over the original.
type ICSCalendar struct {
	path string
	mu   sync.Mutex
}

// NewICSCalendar creates a calendar backend writing to path. The file
// is created on first event.
func NewICSCalendar(path string) *ICSCalendar {
	return &ICSCalendar{path: path}
}

// CreateEvent appends the candidate as a VEVENT and returns the
// generated UID as the event reference.
func (c *ICSCalendar) CreateEvent(
	_ context.Context, cand model.EventCandidate,
) (model.CalendarEventRef, error) {
	if !cand.EndTime.After(cand.StartTime) {
		return model.CalendarEventRef{}, &adapter.PermanentError{
			Op: "ics create event",
			Err: fmt.Errorf(
				"event %q has non-positive duration", cand.Title,
			),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cal, err := c.load()
	if err != nil {
		return model.CalendarEventRef{}, err
	}

	uid := uuid.New().String()

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
	event.Props.SetDateTime(ical.PropDateTimeStart, cand.StartTime)
	event.Props.SetDateTime(ical.PropDateTimeEnd, cand.EndTime)
	event.Props.SetText(ical.PropSummary, cand.Title)
	if cand.Description != "" {
		event.Props.SetText(ical.PropDescription, cand.Description)
	}
	cal.Children = append(cal.Children, event.Component)

	if err := c.write(cal); err != nil {
		return model.CalendarEventRef{}, err
	}

	return model.CalendarEventRef{ID: uid}, nil
}

// load reads the existing calendar file, or starts a fresh calendar
// when none exists yet.
func (c *ICSCalendar) load() (*ical.Calendar, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		cal := ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, "-//inboxcal//inbox-calendar//EN")
		return cal, nil
	}
	if err != nil {
		return nil, &adapter.TransientError{Op: "ics open", Err: err}
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		// An unreadable calendar file will not fix itself on retry.
		return nil, &adapter.PermanentError{
			Op:  "ics decode",
			Err: fmt.Errorf("parsing %s: %w", c.path, err),
		}
	}
	return cal, nil
}

// write encodes the calendar to a temp file and renames it into
// place.
func (c *ICSCalendar) write(cal *ical.Calendar) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &adapter.TransientError{Op: "ics mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".inboxcal-*.ics")
	if err != nil {
		return &adapter.TransientError{Op: "ics temp file", Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := ical.NewEncoder(tmp).Encode(cal); err != nil {
		tmp.Close()
		return &adapter.TransientError{Op: "ics encode", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &adapter.TransientError{Op: "ics close", Err: err}
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return &adapter.TransientError{Op: "ics rename", Err: err}
	}
	return nil
}
