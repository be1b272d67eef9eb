package notify

import "time"

// Reminder is a single computed reminder slot for an event.
type Reminder struct {
	// Label names the offset, e.g. "1 hour before". It doubles as
	// the offset half of the dedup key.
	Label string

	// At is the absolute time the reminder fires.
	At time.Time
}

// ReminderTimes computes the fixed reminder offsets for an event
// starting at start: morning of the event day at morningHour, then
// 2h, 1h, and 30m before the start. The list is deterministic and
// ordered earliest first.
func ReminderTimes(start time.Time, morningHour int) []Reminder {
	morning := time.Date(
		start.Year(), start.Month(), start.Day(),
		morningHour, 0, 0, 0, start.Location(),
	)
	return []Reminder{
		{Label: "morning of event", At: morning},
		{Label: "2 hours before", At: start.Add(-2 * time.Hour)},
		{Label: "1 hour before", At: start.Add(-time.Hour)},
		{Label: "30 minutes before", At: start.Add(-30 * time.Minute)},
	}
}
