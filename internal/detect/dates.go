package detect

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// defaultEventHour is the assumed start hour when a date is found
// without an accompanying clock time.
const defaultEventHour = 9

var newParser = sync.OnceValue(func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
})

var (
	isoRe = regexp.MustCompile(
		`\b(\d{4})-(\d{2})-(\d{2})(?:[ T](\d{1,2}):(\d{2}))?`)
	monthRe = regexp.MustCompile(
		`(?i)\b(january|february|march|april|may|june|july|august|` +
			`september|october|november|december)\s+(\d{1,2})` +
			`(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?`)
	clockRe = regexp.MustCompile(
		`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
)

var monthIndex = map[string]time.Month{
	"january": time.January, "february": time.February,
	"march": time.March, "april": time.April, "may": time.May,
	"june": time.June, "july": time.July, "august": time.August,
	"september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// ExtractTime attempts fuzzy date/time extraction from raw message
// text relative to now. It never fails: malformed date text is
// reported as not found. When the text is ambiguous about the year,
// the next future occurrence is preferred. Of multiple date-like
// substrings, the first that parses wins.
func ExtractTime(text string, now time.Time) (time.Time, bool) {
	if r, err := newParser().Parse(text, now); err == nil && r != nil {
		if !r.Time.IsZero() {
			t := r.Time
			// The parser can resolve a bare day word ("Tomorrow" in a
			// subject line) while the clock time sits elsewhere in the
			// text. Merge an unconsumed clock match the way
			// parseMonthDay does.
			if !clockRe.MatchString(r.Text) {
				if hour, minute, ok := clockFrom("", "", text); ok {
					t = time.Date(
						t.Year(), t.Month(), t.Day(),
						hour, minute, 0, 0, t.Location(),
					)
				}
			}
			return t, true
		}
	}
	return extractExplicit(text, now)
}

// extractExplicit handles explicit date formats the natural-language
// rules miss: ISO dates and "June 5"-style month-day text.
func extractExplicit(text string, now time.Time) (time.Time, bool) {
	type match struct {
		index int
		parse func() (time.Time, bool)
	}
	var matches []match

	if loc := isoRe.FindStringSubmatchIndex(text); loc != nil {
		groups := isoRe.FindStringSubmatch(text)
		matches = append(matches, match{loc[0], func() (time.Time, bool) {
			return parseISO(groups, text, now)
		}})
	}
	if loc := monthRe.FindStringSubmatchIndex(text); loc != nil {
		groups := monthRe.FindStringSubmatch(text)
		matches = append(matches, match{loc[0], func() (time.Time, bool) {
			return parseMonthDay(groups, text, now)
		}})
	}

	best := match{index: -1}
	for _, m := range matches {
		if best.index < 0 || m.index < best.index {
			best = m
		}
	}
	if best.index < 0 {
		return time.Time{}, false
	}
	return best.parse()
}

func parseISO(groups []string, text string, now time.Time) (time.Time, bool) {
	year, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	day, _ := strconv.Atoi(groups[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute, hasClock := clockFrom(groups[4], groups[5], text)
	if !hasClock {
		hour, minute = defaultEventHour, 0
	}

	return time.Date(
		year, time.Month(month), day, hour, minute, 0, 0, now.Location(),
	), true
}

func parseMonthDay(groups []string, text string, now time.Time) (time.Time, bool) {
	month, ok := monthIndex[strings.ToLower(groups[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(groups[2])
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute, hasClock := clockFrom("", "", text)
	if !hasClock {
		hour, minute = defaultEventHour, 0
	}

	yearGiven := groups[3] != ""
	year := now.Year()
	if yearGiven {
		year, _ = strconv.Atoi(groups[3])
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, now.Location())

	// No year in the text: roll forward to the next occurrence.
	if !yearGiven && t.Before(now) {
		t = t.AddDate(1, 0, 0)
	}
	return t, true
}

// clockFrom resolves a clock time either from already-captured
// hour/minute groups or from a standalone "2 PM" style match in the
// surrounding text.
func clockFrom(hourGroup, minuteGroup, text string) (int, int, bool) {
	if hourGroup != "" {
		hour, _ := strconv.Atoi(hourGroup)
		minute := 0
		if minuteGroup != "" {
			minute, _ = strconv.Atoi(minuteGroup)
		}
		if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
			return hour, minute, true
		}
		return 0, 0, false
	}

	groups := clockRe.FindStringSubmatch(text)
	if groups == nil {
		return 0, 0, false
	}
	hour, _ := strconv.Atoi(groups[1])
	minute := 0
	if groups[2] != "" {
		minute, _ = strconv.Atoi(groups[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, false
	}
	if strings.EqualFold(groups[3], "pm") && hour != 12 {
		hour += 12
	}
	if strings.EqualFold(groups[3], "am") && hour == 12 {
		hour = 0
	}
	return hour, minute, true
}
