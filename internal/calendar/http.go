package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nhle/inbox-calendar/internal/adapter"
	"github.com/nhle/inbox-calendar/internal/credential"
	"github.com/nhle/inbox-calendar/internal/model"
)

// HTTPCalendar writes events to a JSON calendar API using a bearer
// token from the credential provider.
type HTTPCalendar struct {
	baseURL    string
	calendarID string
	tokens     credential.TokenProvider
	client     *http.Client
}

// NewHTTPCalendar creates an HTTP calendar backend for the given API
// base URL and calendar id.
func NewHTTPCalendar(
	baseURL, calendarID string, tokens credential.TokenProvider,
) *HTTPCalendar {
	return &HTTPCalendar{
		baseURL:    baseURL,
		calendarID: calendarID,
		tokens:     tokens,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// eventPayload is the wire format for event creation.
type eventPayload struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// eventResponse is the wire format of a created event.
type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CreateEvent posts the candidate to the calendar API. Status codes
// are classified: 401/403 auth, other 4xx permanent, 5xx and network
// failures transient.
func (c *HTTPCalendar) CreateEvent(
	ctx context.Context, cand model.EventCandidate,
) (model.CalendarEventRef, error) {
	if !cand.EndTime.After(cand.StartTime) {
		return model.CalendarEventRef{}, &adapter.PermanentError{
			Op: "calendar create event",
			Err: fmt.Errorf(
				"event %q has non-positive duration", cand.Title,
			),
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return model.CalendarEventRef{}, &adapter.AuthError{
			Op:      "calendar token",
			Message: err.Error(),
		}
	}

	payload, err := json.Marshal(eventPayload{
		Summary:     cand.Title,
		Description: cand.Description,
		Start:       cand.StartTime.Format(time.RFC3339),
		End:         cand.EndTime.Format(time.RFC3339),
	})
	if err != nil {
		return model.CalendarEventRef{}, &adapter.PermanentError{
			Op:  "calendar marshal payload",
			Err: err,
		}
	}

	url := fmt.Sprintf(
		"%s/calendars/%s/events", c.baseURL, c.calendarID,
	)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(payload),
	)
	if err != nil {
		return model.CalendarEventRef{}, &adapter.PermanentError{
			Op:  "calendar build request",
			Err: err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.CalendarEventRef{}, &adapter.TransientError{
			Op:  "calendar create event",
			Err: err,
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return model.CalendarEventRef{}, &adapter.AuthError{
			Op:      "calendar create event",
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, body),
		}
	case resp.StatusCode >= 500:
		return model.CalendarEventRef{}, &adapter.TransientError{
			Op:  "calendar create event",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	case resp.StatusCode >= 400:
		return model.CalendarEventRef{}, &adapter.PermanentError{
			Op:  "calendar create event",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	var created eventResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return model.CalendarEventRef{}, &adapter.TransientError{
			Op:  "calendar decode response",
			Err: err,
		}
	}
	if created.ID == "" {
		return model.CalendarEventRef{}, &adapter.TransientError{
			Op:  "calendar decode response",
			Err: fmt.Errorf("response missing event id"),
		}
	}

	return model.CalendarEventRef{ID: created.ID, Link: created.HTMLLink}, nil
}
