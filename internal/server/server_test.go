package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nhle/inbox-calendar/internal/detect"
	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/server"
	"github.com/nhle/inbox-calendar/internal/store"
)

// stubMailbox serves canned messages; flag operations are no-ops.
type stubMailbox struct {
	messages []model.Message
}

func (m *stubMailbox) ListUnread(context.Context) ([]model.Message, error) {
	return m.messages, nil
}
func (m *stubMailbox) MarkRead(context.Context, string) error { return nil }

func (m *stubMailbox) AddLabel(context.Context, string, string) error { return nil }

// stubCalendar accepts every write.
type stubCalendar struct {
	created int
}

func (c *stubCalendar) CreateEvent(
	context.Context, model.EventCandidate,
) (model.CalendarEventRef, error) {
	c.created++
	return model.CalendarEventRef{
		ID:   fmt.Sprintf("cal-%d", c.created),
		Link: "https://calendar.example.com/e/1",
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, store.EventStore) {
	t.Helper()

	st := store.NewMemoryStore()
	mb := &stubMailbox{}
	scorer := detect.NewScorer(model.DetectorConfig{})
	coord := lifecycle.New(st, mb, &stubCalendar{}, scorer, lifecycle.Options{})

	srv := httptest.NewServer(server.NewRouter(coord, st, nil))
	t.Cleanup(srv.Close)
	return srv, st
}

func seedPending(t *testing.T, st store.EventStore, id string) {
	t.Helper()

	start := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	err := st.UpsertPending(context.Background(), model.EventCandidate{
		SourceMessageID: id,
		Title:           "Team Sync",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		Confidence:      0.8,
		Status:          model.StatusPending,
		DetectedAt:      start.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seeding candidate %s: %v", id, err)
	}
}

func doRequest(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
}

func TestListPendingEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/events/pending")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got []model.EventCandidate
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("body = %v, want empty array", got)
	}
}

func TestConfirmFlow(t *testing.T) {
	srv, st := newTestServer(t)
	seedPending(t, st, "msg-1")

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/events/msg-1/confirm")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var got struct {
		Status string                 `json:"status"`
		Ref    model.CalendarEventRef `json:"calendar_ref"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "confirmed" || got.Ref.ID == "" {
		t.Errorf("body = %+v", got)
	}

	if known, _ := st.Contains(context.Background(), "msg-1"); known {
		t.Error("confirmed candidate still in live store")
	}

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/events/created")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("created list status = %d", resp.StatusCode)
	}
	var created []model.CreatedEvent
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if len(created) != 1 || created[0].SourceMessageID != "msg-1" {
		t.Errorf("created = %+v", created)
	}
}

func TestDeclineRecoverDelete(t *testing.T) {
	srv, st := newTestServer(t)
	seedPending(t, st, "msg-1")
	ctx := context.Background()

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/events/msg-1/decline")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decline status = %d", resp.StatusCode)
	}
	if cand, _ := st.Get(ctx, "msg-1"); cand.Status != model.StatusDeclined {
		t.Fatalf("status = %q, want declined", cand.Status)
	}

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/events/declined")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declined list status = %d", resp.StatusCode)
	}
	var declined []model.EventCandidate
	if err := json.Unmarshal(body, &declined); err != nil {
		t.Fatalf("unmarshal declined: %v", err)
	}
	if len(declined) != 1 {
		t.Fatalf("declined = %+v", declined)
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/events/msg-1/recover")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recover status = %d", resp.StatusCode)
	}
	if cand, _ := st.Get(ctx, "msg-1"); cand.Status != model.StatusPending {
		t.Fatalf("status = %q, want pending", cand.Status)
	}

	// Deletion only applies to declined candidates.
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/events/msg-1")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete pending status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/events/msg-1/decline")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("re-decline status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/events/msg-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if known, _ := st.Contains(ctx, "msg-1"); known {
		t.Error("deleted candidate still present")
	}
}

func TestUnknownCandidateIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/events/ghost/confirm",
		"/api/events/ghost/decline",
		"/api/events/ghost/recover",
	} {
		resp, _ := doRequest(t, http.MethodPost, srv.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestScanEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/scan")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var stats lifecycle.CycleStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Fetched != 0 || stats.Skipped {
		t.Errorf("stats = %+v", stats)
	}
}
